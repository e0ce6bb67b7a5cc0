package akash

import (
	"context"
	"fmt"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (ix *Indexer) createDeployment(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgCreateDeployment) error {
	key := deploymentKey(msg.ID)
	if _, ok := ix.deployments[key]; ok {
		ix.logger.Warn("Deployment already exists, skipping create",
			zap.String("deployment", msg.ID.String()),
			zap.Int64("height", m.Height))
		return nil
	}

	d := &models.Deployment{
		ID:                 uuid.New(),
		Owner:              msg.ID.Owner,
		DSeq:               msg.ID.DSeq,
		Denom:              msg.Deposit.Denom,
		Deposit:            msg.Deposit.Amount,
		Balance:            msg.Deposit.Amount,
		WithdrawnAmount:    decimal.Zero,
		LastWithdrawHeight: m.Height,
		CreatedHeight:      m.Height,
	}

	groups := make([]*models.DeploymentGroup, 0, len(msg.Groups))
	var resources []*models.DeploymentGroupResource
	for i, spec := range msg.Groups {
		g := &models.DeploymentGroup{
			ID:           uuid.New(),
			DeploymentID: d.ID,
			Owner:        d.Owner,
			DSeq:         d.DSeq,
			GSeq:         uint32(i + 1),
			Name:         spec.Name,
		}
		groups = append(groups, g)
		for _, r := range spec.Resources {
			resources = append(resources, &models.DeploymentGroupResource{
				ID:                uuid.New(),
				DeploymentGroupID: g.ID,
				CPUUnits:          int64(r.CPUUnits),
				MemoryQuantity:    int64(r.MemoryQuantity),
				StorageQuantity:   int64(r.StorageQuantity),
				GPUUnits:          int64(r.GPUUnits),
				Count:             int64(r.Count),
				Price:             r.Price.Amount,
			})
		}
	}

	if err := tx.InsertDeployment(ctx, d); err != nil {
		return fmt.Errorf("insert deployment %s: %w", msg.ID, err)
	}
	if err := tx.InsertDeploymentGroups(ctx, groups); err != nil {
		return fmt.Errorf("insert groups of %s: %w", msg.ID, err)
	}
	if err := tx.InsertDeploymentGroupResources(ctx, resources); err != nil {
		return fmt.Errorf("insert group resources of %s: %w", msg.ID, err)
	}

	ix.deployments[key] = d.ID
	for _, g := range groups {
		ix.groups[g.Key()] = g.ID
	}
	ix.relate(m, msg.ID)
	return nil
}

func (ix *Indexer) depositDeployment(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgDepositDeployment) error {
	d, leases, err := ix.load(ctx, tx, m, msg.ID)
	if d == nil || err != nil {
		return err
	}
	ix.relate(m, msg.ID)
	ix.touched = true

	settle(d, leases, m.Height)
	if d.IsClosed() {
		ix.logger.Warn("Deposit to closed deployment ignored",
			zap.String("deployment", msg.ID.String()),
			zap.Int64("height", m.Height))
		return ix.save(ctx, tx, d, leases)
	}
	d.Deposit = d.Deposit.Add(msg.Amount.Amount)
	d.Balance = d.Balance.Add(msg.Amount.Amount)
	predict(d, leases)
	return ix.save(ctx, tx, d, leases)
}

func (ix *Indexer) closeDeployment(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgCloseDeployment) error {
	d, leases, err := ix.load(ctx, tx, m, msg.ID)
	if d == nil || err != nil {
		return err
	}
	ix.relate(m, msg.ID)
	ix.touched = true

	settle(d, leases, m.Height)
	closeDeployment(d, leases, m.Height)
	return ix.save(ctx, tx, d, leases)
}

// closeGroup handles both MsgCloseGroup and MsgPauseGroup: the group's leases
// stop billing either way.
func (ix *Indexer) closeGroup(ctx context.Context, tx db.Tx, m *indexer.Message, id msgs.GroupID) error {
	groupID, ok := ix.groups[groupKey(id)]
	if !ok {
		ix.missing(m, "group", fmt.Sprintf("%s/%d", id.Deployment(), id.GSeq))
		return nil
	}
	d, leases, err := ix.load(ctx, tx, m, id.Deployment())
	if d == nil || err != nil {
		return err
	}
	ix.relate(m, id.Deployment())
	ix.touched = true

	settle(d, leases, m.Height)
	for _, l := range leases {
		if l.DeploymentGroupID == groupID {
			closeLease(l, m.Height)
		}
	}
	predict(d, leases)
	return ix.save(ctx, tx, d, leases)
}

// load fetches a deployment and all of its leases. A deployment unknown to the
// cache is logged and reported as nil without error.
func (ix *Indexer) load(ctx context.Context, tx db.Tx, m *indexer.Message, id msgs.DeploymentID) (*models.Deployment, []*models.Lease, error) {
	depID, ok := ix.deployments[deploymentKey(id)]
	if !ok {
		ix.missing(m, "deployment", id.String())
		return nil, nil, nil
	}
	d, err := tx.GetDeployment(ctx, depID)
	if err != nil {
		return nil, nil, fmt.Errorf("get deployment %s: %w", id, err)
	}
	leases, err := tx.LeasesByDeployment(ctx, depID)
	if err != nil {
		return nil, nil, fmt.Errorf("leases of %s: %w", id, err)
	}
	return d, leases, nil
}

func (ix *Indexer) save(ctx context.Context, tx db.Tx, d *models.Deployment, leases []*models.Lease) error {
	if err := tx.UpdateDeployment(ctx, d); err != nil {
		return fmt.Errorf("update deployment %s/%d: %w", d.Owner, d.DSeq, err)
	}
	if len(leases) == 0 {
		return nil
	}
	if err := tx.UpdateLeases(ctx, leases); err != nil {
		return fmt.Errorf("update leases of %s/%d: %w", d.Owner, d.DSeq, err)
	}
	return nil
}

func (ix *Indexer) missing(m *indexer.Message, what, id string) {
	ix.logger.Warn("Referenced "+what+" not found, skipping message",
		zap.String(what, id),
		zap.Stringer("kind", m.Msg.Kind()),
		zap.Int64("height", m.Height))
}
