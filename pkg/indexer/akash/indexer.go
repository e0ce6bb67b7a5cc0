// Package akash indexes the Akash marketplace: deployments, their escrow
// balance, bids, leases and providers.
//
// Every balance-affecting message first settles the deployment up to the
// message height at the rate of the leases open since the previous settlement,
// then applies its own effect and recomputes the predicted closure of the
// leases left open.
package akash

import (
	"context"
	"fmt"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const Name = "akash"

// Indexer is the AkashStats indexer. It is not safe for concurrent use; the
// processor drives it from a single goroutine.
type Indexer struct {
	indexer.Base

	logger *zap.Logger

	deployments map[models.DeploymentKey]uuid.UUID
	groups      map[models.GroupKey]uuid.UUID

	// touched is set when the current block carried a balance-affecting message.
	touched bool
	// stats caches the lease aggregates until touched is set or the chain
	// reaches nextClosure.
	stats       *models.LeaseStats
	nextClosure int64
	hasNext     bool
}

var _ indexer.Indexer = (*Indexer)(nil)

func New(logger *zap.Logger) *Indexer {
	ix := &Indexer{logger: logger.With(zap.String("component", "indexer_akash"))}
	ix.InvalidateCache()
	return ix
}

func (ix *Indexer) Name() string { return Name }

func (ix *Indexer) Handles() []msgs.Kind {
	return []msgs.Kind{
		msgs.KindCreateDeployment,
		msgs.KindDepositDeployment,
		msgs.KindUpdateDeployment,
		msgs.KindCloseDeployment,
		msgs.KindCloseGroup,
		msgs.KindPauseGroup,
		msgs.KindStartGroup,
		msgs.KindCreateBid,
		msgs.KindCloseBid,
		msgs.KindCreateLease,
		msgs.KindCloseLease,
		msgs.KindWithdrawLease,
		msgs.KindCreateProvider,
		msgs.KindUpdateProvider,
		msgs.KindDeleteProvider,
		msgs.KindSignProviderAttributes,
		msgs.KindDeleteProviderAttributes,
	}
}

func (ix *Indexer) Tables() []string {
	return []string{
		db.TableDeployments,
		db.TableDeploymentGroups,
		db.TableDeploymentGroupResources,
		db.TableLeases,
		db.TableBids,
		db.TableProviders,
		db.TableProviderAttributes,
		db.TableProviderAttributeSignatures,
	}
}

// InitCache loads the deployment and group id lookups.
func (ix *Indexer) InitCache(ctx context.Context, tx db.Tx) error {
	ix.InvalidateCache()

	deployments, err := tx.ListDeployments(ctx)
	if err != nil {
		return fmt.Errorf("list deployments: %w", err)
	}
	for _, d := range deployments {
		ix.deployments[d.Key()] = d.ID
	}

	groups, err := tx.ListDeploymentGroups(ctx)
	if err != nil {
		return fmt.Errorf("list deployment groups: %w", err)
	}
	for _, g := range groups {
		ix.groups[g.Key()] = g.ID
	}

	ix.logger.Info("Warmed deployment cache",
		zap.Int("deployments", len(ix.deployments)),
		zap.Int("groups", len(ix.groups)))
	return nil
}

func (ix *Indexer) InvalidateCache() {
	ix.deployments = map[models.DeploymentKey]uuid.UUID{}
	ix.groups = map[models.GroupKey]uuid.UUID{}
	ix.touched = false
	ix.stats = nil
	ix.nextClosure, ix.hasNext = 0, false
}

func (ix *Indexer) Process(ctx context.Context, tx db.Tx, m *indexer.Message) error {
	switch msg := m.Msg.(type) {
	case msgs.MsgCreateDeployment:
		return ix.createDeployment(ctx, tx, m, msg)
	case msgs.MsgDepositDeployment:
		return ix.depositDeployment(ctx, tx, m, msg)
	case msgs.MsgUpdateDeployment:
		ix.relate(m, msg.ID)
		return nil
	case msgs.MsgCloseDeployment:
		return ix.closeDeployment(ctx, tx, m, msg)
	case msgs.MsgCloseGroup:
		return ix.closeGroup(ctx, tx, m, msg.ID)
	case msgs.MsgPauseGroup:
		return ix.closeGroup(ctx, tx, m, msg.ID)
	case msgs.MsgStartGroup:
		ix.relate(m, msg.ID.Deployment())
		return nil
	case msgs.MsgCreateBid:
		return ix.createBid(ctx, tx, m, msg)
	case msgs.MsgCloseBid:
		return ix.closeBid(ctx, tx, m, msg)
	case msgs.MsgCreateLease:
		return ix.createLease(ctx, tx, m, msg)
	case msgs.MsgCloseLease:
		return ix.closeLease(ctx, tx, m, msg.ID)
	case msgs.MsgWithdrawLease:
		return ix.withdrawLease(ctx, tx, m, msg.ID)
	case msgs.MsgCreateProvider:
		return ix.upsertProvider(ctx, tx, m, msg)
	case msgs.MsgUpdateProvider:
		return ix.upsertProvider(ctx, tx, m, msgs.MsgCreateProvider(msg))
	case msgs.MsgDeleteProvider:
		return ix.deleteProvider(ctx, tx, m, msg)
	case msgs.MsgSignProviderAttributes:
		return ix.signProviderAttributes(ctx, tx, m, msg)
	case msgs.MsgDeleteProviderAttributes:
		return ix.deleteProviderAttributes(ctx, tx, m, msg)
	}
	return fmt.Errorf("%w: %s", msgs.ErrUnknownType, m.Msg.Kind())
}

// AfterEveryBlock refreshes the active lease aggregates of the block. They are
// recomputed only when the block changed a balance or crossed the earliest
// predicted closure, otherwise the cached aggregates still hold.
func (ix *Indexer) AfterEveryBlock(ctx context.Context, tx db.Tx, current, previous *models.Block) error {
	h := current.Height
	if ix.touched || ix.stats == nil || (ix.hasNext && h >= ix.nextClosure) {
		st, err := tx.LeaseStats(ctx, h)
		if err != nil {
			return fmt.Errorf("lease stats at %d: %w", h, err)
		}
		next, ok, err := tx.NextPredictedClosedHeight(ctx, h)
		if err != nil {
			return fmt.Errorf("next predicted closure after %d: %w", h, err)
		}
		ix.stats = &st
		ix.nextClosure, ix.hasNext = next, ok
	}
	ix.touched = false

	st := ix.stats
	current.ActiveLeaseCount = st.ActiveCount
	current.TotalLeaseCount = st.TotalCount
	current.ActiveCPU = st.CPU
	current.ActiveMemory = st.Memory
	current.ActiveStorage = st.Storage
	current.ActiveProviderCount = st.ProviderCount

	spent := st.PriceSum
	if previous != nil {
		spent = previous.TotalUAktSpent.Add(spent)
	}
	current.TotalUAktSpent = spent
	return nil
}

// relate links the message row to a known deployment.
func (ix *Indexer) relate(m *indexer.Message, id msgs.DeploymentID) {
	depID, ok := ix.deployments[deploymentKey(id)]
	if !ok || m.Row == nil {
		return
	}
	m.Row.RelatedDeploymentID = &depID
}

func deploymentKey(id msgs.DeploymentID) models.DeploymentKey {
	return models.DeploymentKey{Owner: id.Owner, DSeq: id.DSeq}
}

func groupKey(id msgs.GroupID) models.GroupKey {
	return models.GroupKey{Owner: id.Owner, DSeq: id.DSeq, GSeq: id.GSeq}
}

func bidKey(id msgs.BidID) models.BidKey {
	return models.BidKey{Owner: id.Owner, DSeq: id.DSeq, GSeq: id.GSeq, OSeq: id.OSeq, Provider: id.Provider}
}
