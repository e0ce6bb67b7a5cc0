package akash

import (
	"context"
	"errors"
	"fmt"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (ix *Indexer) createBid(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgCreateBid) error {
	b := &models.Bid{
		Owner:         msg.Order.Owner,
		DSeq:          msg.Order.DSeq,
		GSeq:          msg.Order.GSeq,
		OSeq:          msg.Order.OSeq,
		Provider:      msg.Provider,
		Denom:         msg.Price.Denom,
		Price:         msg.Price.Amount,
		Deposit:       msg.Deposit.Amount,
		CreatedHeight: m.Height,
	}
	if err := tx.UpsertBid(ctx, b); err != nil {
		return fmt.Errorf("upsert bid: %w", err)
	}
	ix.relate(m, msgs.DeploymentID{Owner: b.Owner, DSeq: b.DSeq})
	return nil
}

// closeBid removes the bid and closes the lease created from it, if any.
func (ix *Indexer) closeBid(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgCloseBid) error {
	if err := tx.DeleteBid(ctx, bidKey(msg.ID)); err != nil {
		return fmt.Errorf("delete bid: %w", err)
	}
	d, leases, err := ix.load(ctx, tx, m, msg.ID.Deployment())
	if d == nil || err != nil {
		return err
	}
	ix.relate(m, msg.ID.Deployment())
	ix.touched = true

	settle(d, leases, m.Height)
	if l := findLease(leases, bidKey(msg.ID)); l != nil {
		closeLease(l, m.Height)
	}
	predict(d, leases)
	return ix.save(ctx, tx, d, leases)
}

func (ix *Indexer) createLease(ctx context.Context, tx db.Tx, m *indexer.Message, msg msgs.MsgCreateLease) error {
	key := bidKey(msg.ID)
	bid, err := tx.GetBid(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		ix.missing(m, "bid", fmt.Sprintf("%s/%d/%d/%s", msg.ID.Deployment(), msg.ID.GSeq, msg.ID.OSeq, msg.ID.Provider))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get bid: %w", err)
	}

	groupID, ok := ix.groups[groupKey(msg.ID.Group())]
	if !ok {
		ix.missing(m, "group", fmt.Sprintf("%s/%d", msg.ID.Deployment(), msg.ID.GSeq))
		return nil
	}
	d, leases, err := ix.load(ctx, tx, m, msg.ID.Deployment())
	if d == nil || err != nil {
		return err
	}
	resources, err := tx.GroupResources(ctx, groupID)
	if err != nil {
		return fmt.Errorf("resources of group %s: %w", groupID, err)
	}
	ix.relate(m, msg.ID.Deployment())
	ix.touched = true

	settle(d, leases, m.Height)
	if err := tx.DeleteBid(ctx, key); err != nil {
		return fmt.Errorf("delete bid: %w", err)
	}
	if d.IsClosed() {
		ix.logger.Warn("Lease on closed deployment ignored",
			zap.String("deployment", msg.ID.Deployment().String()),
			zap.Int64("height", m.Height))
		return ix.save(ctx, tx, d, leases)
	}

	l := &models.Lease{
		ID:                uuid.New(),
		DeploymentID:      d.ID,
		DeploymentGroupID: groupID,
		Owner:             key.Owner,
		DSeq:              key.DSeq,
		GSeq:              key.GSeq,
		OSeq:              key.OSeq,
		ProviderAddress:   key.Provider,
		Denom:             bid.Denom,
		Price:             bid.Price,
		WithdrawnAmount:   decimal.Zero,
		CreatedHeight:     m.Height,
	}
	for _, r := range resources {
		l.CPUUnits += r.CPUUnits * r.Count
		l.MemoryQuantity += r.MemoryQuantity * r.Count
		l.StorageQuantity += r.StorageQuantity * r.Count
		l.GPUUnits += r.GPUUnits * r.Count
	}
	leases = append(leases, l)
	predict(d, leases)

	if err := tx.InsertLease(ctx, l); err != nil {
		return fmt.Errorf("insert lease: %w", err)
	}
	return ix.save(ctx, tx, d, leases)
}

func (ix *Indexer) closeLease(ctx context.Context, tx db.Tx, m *indexer.Message, id msgs.LeaseID) error {
	d, leases, err := ix.load(ctx, tx, m, id.Deployment())
	if d == nil || err != nil {
		return err
	}
	ix.relate(m, id.Deployment())
	l := findLease(leases, bidKey(id))
	if l == nil {
		ix.missing(m, "lease", fmt.Sprintf("%s/%d/%d/%s", id.Deployment(), id.GSeq, id.OSeq, id.Provider))
		return nil
	}
	ix.touched = true

	settle(d, leases, m.Height)
	closeLease(l, m.Height)
	predict(d, leases)
	return ix.save(ctx, tx, d, leases)
}

// withdrawLease settles the deployment; nothing else changes.
func (ix *Indexer) withdrawLease(ctx context.Context, tx db.Tx, m *indexer.Message, id msgs.LeaseID) error {
	d, leases, err := ix.load(ctx, tx, m, id.Deployment())
	if d == nil || err != nil {
		return err
	}
	ix.relate(m, id.Deployment())
	ix.touched = true

	settle(d, leases, m.Height)
	predict(d, leases)
	return ix.save(ctx, tx, d, leases)
}

func findLease(leases []*models.Lease, key models.BidKey) *models.Lease {
	for _, l := range leases {
		if l.Key() == key {
			return l
		}
	}
	return nil
}
