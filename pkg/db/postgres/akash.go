package postgres

import (
	"context"

	"github.com/akashx/akashx/pkg/db/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const deploymentColumns = `id, owner, dseq, denom, deposit, balance, withdrawn_amount,
	last_withdraw_height, created_height, closed_height`

func scanDeployment(row pgx.Row) (*models.Deployment, error) {
	var d models.Deployment
	err := row.Scan(&d.ID, &d.Owner, &d.DSeq, &d.Denom, &d.Deposit, &d.Balance, &d.WithdrawnAmount,
		&d.LastWithdrawHeight, &d.CreatedHeight, &d.ClosedHeight)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (q *queries) ListDeployments(ctx context.Context) ([]*models.Deployment, error) {
	rows, err := q.exec.Query(ctx, `SELECT `+deploymentColumns+` FROM deployments`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Deployment, error) {
		return scanDeployment(row)
	})
}

func (q *queries) ListDeploymentGroups(ctx context.Context) ([]*models.DeploymentGroup, error) {
	rows, err := q.exec.Query(ctx, `SELECT id, deployment_id, owner, dseq, gseq, name FROM deployment_groups`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.DeploymentGroup, error) {
		var g models.DeploymentGroup
		err := row.Scan(&g.ID, &g.DeploymentID, &g.Owner, &g.DSeq, &g.GSeq, &g.Name)
		return &g, err
	})
}

func (q *queries) GetDeployment(ctx context.Context, id uuid.UUID) (*models.Deployment, error) {
	d, err := scanDeployment(q.exec.QueryRow(ctx, `SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id))
	return d, notFound(err)
}

func (q *queries) InsertDeployment(ctx context.Context, d *models.Deployment) error {
	_, err := q.exec.Exec(ctx, `
		INSERT INTO deployments (`+deploymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, d.ID, d.Owner, d.DSeq, d.Denom, d.Deposit, d.Balance, d.WithdrawnAmount,
		d.LastWithdrawHeight, d.CreatedHeight, d.ClosedHeight)
	return err
}

func (q *queries) UpdateDeployment(ctx context.Context, d *models.Deployment) error {
	_, err := q.exec.Exec(ctx, `
		UPDATE deployments SET
			deposit = $2,
			balance = $3,
			withdrawn_amount = $4,
			last_withdraw_height = $5,
			closed_height = $6
		WHERE id = $1
	`, d.ID, d.Deposit, d.Balance, d.WithdrawnAmount, d.LastWithdrawHeight, d.ClosedHeight)
	return err
}

func (q *queries) InsertDeploymentGroups(ctx context.Context, groups []*models.DeploymentGroup) error {
	batch := &pgx.Batch{}
	for _, g := range groups {
		batch.Queue(`
			INSERT INTO deployment_groups (id, deployment_id, owner, dseq, gseq, name)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, g.ID, g.DeploymentID, g.Owner, g.DSeq, g.GSeq, g.Name)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) InsertDeploymentGroupResources(ctx context.Context, res []*models.DeploymentGroupResource) error {
	batch := &pgx.Batch{}
	for _, r := range res {
		batch.Queue(`
			INSERT INTO deployment_group_resources (
				id, deployment_group_id, cpu_units, memory_quantity, storage_quantity, gpu_units, count, price
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, r.ID, r.DeploymentGroupID, r.CPUUnits, r.MemoryQuantity, r.StorageQuantity, r.GPUUnits, r.Count, r.Price)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) GroupResources(ctx context.Context, groupID uuid.UUID) ([]*models.DeploymentGroupResource, error) {
	rows, err := q.exec.Query(ctx, `
		SELECT id, deployment_group_id, cpu_units, memory_quantity, storage_quantity, gpu_units, count, price
		FROM deployment_group_resources WHERE deployment_group_id = $1
	`, groupID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.DeploymentGroupResource, error) {
		var r models.DeploymentGroupResource
		err := row.Scan(&r.ID, &r.DeploymentGroupID, &r.CPUUnits, &r.MemoryQuantity, &r.StorageQuantity, &r.GPUUnits, &r.Count, &r.Price)
		return &r, err
	})
}

func (q *queries) GetBid(ctx context.Context, key models.BidKey) (*models.Bid, error) {
	var b models.Bid
	err := q.exec.QueryRow(ctx, `
		SELECT owner, dseq, gseq, oseq, provider, denom, price, deposit, created_height
		FROM bids WHERE owner = $1 AND dseq = $2 AND gseq = $3 AND oseq = $4 AND provider = $5
	`, key.Owner, key.DSeq, key.GSeq, key.OSeq, key.Provider).
		Scan(&b.Owner, &b.DSeq, &b.GSeq, &b.OSeq, &b.Provider, &b.Denom, &b.Price, &b.Deposit, &b.CreatedHeight)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (q *queries) UpsertBid(ctx context.Context, b *models.Bid) error {
	_, err := q.exec.Exec(ctx, `
		INSERT INTO bids (owner, dseq, gseq, oseq, provider, denom, price, deposit, created_height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner, dseq, gseq, oseq, provider) DO UPDATE SET
			denom = EXCLUDED.denom,
			price = EXCLUDED.price,
			deposit = EXCLUDED.deposit,
			created_height = EXCLUDED.created_height
	`, b.Owner, b.DSeq, b.GSeq, b.OSeq, b.Provider, b.Denom, b.Price, b.Deposit, b.CreatedHeight)
	return err
}

func (q *queries) DeleteBid(ctx context.Context, key models.BidKey) error {
	_, err := q.exec.Exec(ctx, `
		DELETE FROM bids WHERE owner = $1 AND dseq = $2 AND gseq = $3 AND oseq = $4 AND provider = $5
	`, key.Owner, key.DSeq, key.GSeq, key.OSeq, key.Provider)
	return err
}

const leaseColumns = `id, deployment_id, deployment_group_id, owner, dseq, gseq, oseq, provider_address,
	denom, price, withdrawn_amount, created_height, closed_height, predicted_closed_height,
	cpu_units, memory_quantity, storage_quantity, gpu_units`

func (q *queries) InsertLease(ctx context.Context, l *models.Lease) error {
	_, err := q.exec.Exec(ctx, `
		INSERT INTO leases (`+leaseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, l.ID, l.DeploymentID, l.DeploymentGroupID, l.Owner, l.DSeq, l.GSeq, l.OSeq, l.ProviderAddress,
		l.Denom, l.Price, l.WithdrawnAmount, l.CreatedHeight, l.ClosedHeight, l.PredictedClosedHeight,
		l.CPUUnits, l.MemoryQuantity, l.StorageQuantity, l.GPUUnits)
	return err
}

func (q *queries) UpdateLeases(ctx context.Context, leases []*models.Lease) error {
	batch := &pgx.Batch{}
	for _, l := range leases {
		batch.Queue(`
			UPDATE leases SET
				withdrawn_amount = $2,
				closed_height = $3,
				predicted_closed_height = $4
			WHERE id = $1
		`, l.ID, l.WithdrawnAmount, l.ClosedHeight, l.PredictedClosedHeight)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) LeasesByDeployment(ctx context.Context, deploymentID uuid.UUID) ([]*models.Lease, error) {
	rows, err := q.exec.Query(ctx, `SELECT `+leaseColumns+` FROM leases
		WHERE deployment_id = $1 ORDER BY created_height, id`, deploymentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Lease, error) {
		var l models.Lease
		err := row.Scan(&l.ID, &l.DeploymentID, &l.DeploymentGroupID, &l.Owner, &l.DSeq, &l.GSeq, &l.OSeq,
			&l.ProviderAddress, &l.Denom, &l.Price, &l.WithdrawnAmount, &l.CreatedHeight, &l.ClosedHeight,
			&l.PredictedClosedHeight, &l.CPUUnits, &l.MemoryQuantity, &l.StorageQuantity, &l.GPUUnits)
		return &l, err
	})
}

func (q *queries) LeaseStats(ctx context.Context, height int64) (models.LeaseStats, error) {
	st := models.LeaseStats{PriceSum: decimal.Zero}
	err := q.exec.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE active),
			COUNT(*),
			COALESCE(SUM(cpu_units) FILTER (WHERE active), 0),
			COALESCE(SUM(memory_quantity) FILTER (WHERE active), 0),
			COALESCE(SUM(storage_quantity) FILTER (WHERE active), 0),
			COUNT(DISTINCT provider_address) FILTER (WHERE active),
			COALESCE(SUM(price) FILTER (WHERE active), 0)
		FROM (
			SELECT *, (
				(closed_height IS NULL OR closed_height > $1) AND predicted_closed_height > $1
			) AS active
			FROM leases WHERE created_height <= $1
		) l
	`, height).Scan(&st.ActiveCount, &st.TotalCount, &st.CPU, &st.Memory, &st.Storage, &st.ProviderCount, &st.PriceSum)
	return st, err
}

func (q *queries) NextPredictedClosedHeight(ctx context.Context, height int64) (int64, bool, error) {
	var next *int64
	err := q.exec.QueryRow(ctx, `
		SELECT MIN(predicted_closed_height) FROM leases
		WHERE closed_height IS NULL AND predicted_closed_height > $1
	`, height).Scan(&next)
	if err != nil || next == nil {
		return 0, false, err
	}
	return *next, true, nil
}

func (q *queries) GetProvider(ctx context.Context, owner string) (*models.Provider, error) {
	var p models.Provider
	err := q.exec.QueryRow(ctx, `
		SELECT owner, host_uri, email, website, created_height, updated_height, deleted_height
		FROM providers WHERE owner = $1
	`, owner).Scan(&p.Owner, &p.HostURI, &p.Email, &p.Website, &p.CreatedHeight, &p.UpdatedHeight, &p.DeletedHeight)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (q *queries) UpsertProvider(ctx context.Context, p *models.Provider) error {
	_, err := q.exec.Exec(ctx, `
		INSERT INTO providers (owner, host_uri, email, website, created_height, updated_height, deleted_height)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner) DO UPDATE SET
			host_uri = EXCLUDED.host_uri,
			email = EXCLUDED.email,
			website = EXCLUDED.website,
			updated_height = EXCLUDED.updated_height,
			deleted_height = EXCLUDED.deleted_height
	`, p.Owner, p.HostURI, p.Email, p.Website, p.CreatedHeight, p.UpdatedHeight, p.DeletedHeight)
	return err
}

func (q *queries) ReplaceProviderAttributes(ctx context.Context, owner string, attrs []models.ProviderAttribute) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM provider_attributes WHERE provider = $1`, owner)
	for _, a := range attrs {
		batch.Queue(`
			INSERT INTO provider_attributes (provider, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (provider, key) DO UPDATE SET value = EXCLUDED.value
		`, owner, a.Key, a.Value)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) UpsertProviderAttributeSignatures(ctx context.Context, sigs []models.ProviderAttributeSignature) error {
	batch := &pgx.Batch{}
	for _, s := range sigs {
		batch.Queue(`
			INSERT INTO provider_attribute_signatures (provider, auditor, key, value) VALUES ($1, $2, $3, $4)
			ON CONFLICT (provider, auditor, key) DO UPDATE SET value = EXCLUDED.value
		`, s.Provider, s.Auditor, s.Key, s.Value)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) DeleteProviderAttributeSignatures(ctx context.Context, owner, auditor string, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	_, err := q.exec.Exec(ctx, `
		DELETE FROM provider_attribute_signatures
		WHERE provider = $1 AND auditor = $2 AND (cardinality($3::text[]) = 0 OR key = ANY($3))
	`, owner, auditor, keys)
	return err
}
