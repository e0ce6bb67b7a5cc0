package memory

import (
	"context"
	"sort"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (v *view) ListDeployments(context.Context) ([]*models.Deployment, error) {
	out := make([]*models.Deployment, 0, len(v.s.deployments))
	for _, d := range v.s.deployments {
		out = append(out, copyOf(d))
	}
	return out, nil
}

func (v *view) ListDeploymentGroups(context.Context) ([]*models.DeploymentGroup, error) {
	out := make([]*models.DeploymentGroup, 0, len(v.s.groups))
	for _, g := range v.s.groups {
		out = append(out, copyOf(g))
	}
	return out, nil
}

func (v *view) GetDeployment(_ context.Context, id uuid.UUID) (*models.Deployment, error) {
	d, ok := v.s.deployments[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyOf(d), nil
}

func (v *view) InsertDeployment(_ context.Context, d *models.Deployment) error {
	v.s.deployments[d.ID] = copyOf(d)
	return nil
}

func (v *view) UpdateDeployment(_ context.Context, d *models.Deployment) error {
	if _, ok := v.s.deployments[d.ID]; !ok {
		return db.ErrNotFound
	}
	v.s.deployments[d.ID] = copyOf(d)
	return nil
}

func (v *view) InsertDeploymentGroups(_ context.Context, groups []*models.DeploymentGroup) error {
	for _, g := range groups {
		v.s.groups[g.ID] = copyOf(g)
	}
	return nil
}

func (v *view) InsertDeploymentGroupResources(_ context.Context, res []*models.DeploymentGroupResource) error {
	for _, r := range res {
		v.s.resources[r.ID] = copyOf(r)
	}
	return nil
}

func (v *view) GroupResources(_ context.Context, groupID uuid.UUID) ([]*models.DeploymentGroupResource, error) {
	var out []*models.DeploymentGroupResource
	for _, r := range v.s.resources {
		if r.DeploymentGroupID == groupID {
			out = append(out, copyOf(r))
		}
	}
	return out, nil
}

func (v *view) GetBid(_ context.Context, key models.BidKey) (*models.Bid, error) {
	b, ok := v.s.bids[key]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyOf(b), nil
}

func (v *view) UpsertBid(_ context.Context, b *models.Bid) error {
	v.s.bids[b.Key()] = copyOf(b)
	return nil
}

func (v *view) DeleteBid(_ context.Context, key models.BidKey) error {
	delete(v.s.bids, key)
	return nil
}

func (v *view) InsertLease(_ context.Context, l *models.Lease) error {
	v.s.leases[l.ID] = copyOf(l)
	return nil
}

func (v *view) UpdateLeases(_ context.Context, leases []*models.Lease) error {
	for _, l := range leases {
		if _, ok := v.s.leases[l.ID]; !ok {
			return db.ErrNotFound
		}
		v.s.leases[l.ID] = copyOf(l)
	}
	return nil
}

func (v *view) LeasesByDeployment(_ context.Context, deploymentID uuid.UUID) ([]*models.Lease, error) {
	var out []*models.Lease
	for _, l := range v.s.leases {
		if l.DeploymentID == deploymentID {
			out = append(out, copyOf(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedHeight != out[j].CreatedHeight {
			return out[i].CreatedHeight < out[j].CreatedHeight
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (v *view) LeaseStats(_ context.Context, height int64) (models.LeaseStats, error) {
	st := models.LeaseStats{PriceSum: decimal.Zero}
	providers := map[string]struct{}{}
	for _, l := range v.s.leases {
		if l.CreatedHeight <= height {
			st.TotalCount++
		}
		if !l.IsActiveAt(height) {
			continue
		}
		st.ActiveCount++
		st.CPU += l.CPUUnits
		st.Memory += l.MemoryQuantity
		st.Storage += l.StorageQuantity
		st.PriceSum = st.PriceSum.Add(l.Price)
		providers[l.ProviderAddress] = struct{}{}
	}
	st.ProviderCount = int64(len(providers))
	return st, nil
}

func (v *view) NextPredictedClosedHeight(_ context.Context, height int64) (int64, bool, error) {
	var next int64
	found := false
	for _, l := range v.s.leases {
		if l.ClosedHeight != nil || l.PredictedClosedHeight <= height {
			continue
		}
		if !found || l.PredictedClosedHeight < next {
			next, found = l.PredictedClosedHeight, true
		}
	}
	return next, found, nil
}

func (v *view) GetProvider(_ context.Context, owner string) (*models.Provider, error) {
	p, ok := v.s.providers[owner]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyOf(p), nil
}

func (v *view) UpsertProvider(_ context.Context, p *models.Provider) error {
	v.s.providers[p.Owner] = copyOf(p)
	return nil
}

func (v *view) ReplaceProviderAttributes(_ context.Context, owner string, attrs []models.ProviderAttribute) error {
	if len(attrs) == 0 {
		delete(v.s.attributes, owner)
		return nil
	}
	v.s.attributes[owner] = append([]models.ProviderAttribute(nil), attrs...)
	return nil
}

func (v *view) UpsertProviderAttributeSignatures(_ context.Context, sigs []models.ProviderAttributeSignature) error {
	for _, s := range sigs {
		v.s.signatures[sigKey{s.Provider, s.Auditor, s.Key}] = s
	}
	return nil
}

func (v *view) DeleteProviderAttributeSignatures(_ context.Context, owner, auditor string, keys []string) error {
	if len(keys) == 0 {
		for k := range v.s.signatures {
			if k.provider == owner && k.auditor == auditor {
				delete(v.s.signatures, k)
			}
		}
		return nil
	}
	for _, k := range keys {
		delete(v.s.signatures, sigKey{owner, auditor, k})
	}
	return nil
}

// ProviderAttributes is a test helper returning the attributes of owner.
func (m *Store) ProviderAttributes(owner string) []models.ProviderAttribute {
	return append([]models.ProviderAttribute(nil), m.s.attributes[owner]...)
}

// ProviderAttributeSignatures is a test helper returning every signature of owner.
func (m *Store) ProviderAttributeSignatures(owner string) []models.ProviderAttributeSignature {
	var out []models.ProviderAttributeSignature
	for k, s := range m.s.signatures {
		if k.provider == owner {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Leases is a test helper returning every lease.
func (m *Store) Leases() []*models.Lease {
	out := make([]*models.Lease, 0, len(m.s.leases))
	for _, l := range m.s.leases {
		out = append(out, copyOf(l))
	}
	return out
}
