package akash

import (
	"context"
	"testing"

	"github.com/akashx/akashx/pkg/db/memory"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	owner    = "akash1owner"
	provider = "akash1provider"
)

func uakt(n int64) txdecode.Coin {
	return txdecode.Coin{Denom: "uakt", Amount: decimal.NewFromInt(n)}
}

type harness struct {
	t     require.TestingT
	ctx   context.Context
	store *memory.Store
	ix    *Indexer
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithLogger(t, zaptest.NewLogger(t))
}

func newHarnessWithLogger(t require.TestingT, logger *zap.Logger) *harness {
	return &harness{t: t, ctx: context.Background(), store: memory.New(), ix: New(logger)}
}

func (h *harness) apply(height int64, msg msgs.Msg) *models.Message {
	row := &models.Message{ID: uuid.New(), Height: height, Type: msg.Kind().String()}
	err := h.ix.Process(h.ctx, h.store, &indexer.Message{Msg: msg, Row: row, Height: height})
	require.NoError(h.t, err)
	return row
}

// restart drops the indexer and warms a new one from the store.
func (h *harness) restart() {
	h.ix = New(zap.NewNop())
	require.NoError(h.t, h.ix.InitCache(h.ctx, h.store))
}

func (h *harness) deployment(dseq uint64) *models.Deployment {
	id, ok := h.ix.deployments[models.DeploymentKey{Owner: owner, DSeq: dseq}]
	require.True(h.t, ok)
	d, err := h.store.GetDeployment(h.ctx, id)
	require.NoError(h.t, err)
	return d
}

func (h *harness) lease(key models.BidKey) *models.Lease {
	for _, l := range h.store.Leases() {
		if l.Key() == key {
			return l
		}
	}
	require.Failf(h.t, "lease not found", "%+v", key)
	return nil
}

func createDeployment(dseq uint64, deposit int64, groups int) msgs.MsgCreateDeployment {
	m := msgs.MsgCreateDeployment{
		ID:      msgs.DeploymentID{Owner: owner, DSeq: dseq},
		Deposit: uakt(deposit),
	}
	for i := 0; i < groups; i++ {
		m.Groups = append(m.Groups, msgs.GroupSpec{
			Name: "westcoast",
			Resources: []msgs.ResourceUnit{
				{CPUUnits: 500, MemoryQuantity: 512 << 20, StorageQuantity: 1 << 30, Count: 2, Price: uakt(100)},
				{CPUUnits: 1000, MemoryQuantity: 1 << 30, StorageQuantity: 2 << 30, GPUUnits: 1, Count: 1, Price: uakt(50)},
			},
		})
	}
	return m
}

func bidID(dseq uint64, gseq uint32, prov string) msgs.BidID {
	return msgs.BidID{Owner: owner, DSeq: dseq, GSeq: gseq, OSeq: 1, Provider: prov}
}

func createBid(id msgs.BidID, price int64) msgs.MsgCreateBid {
	return msgs.MsgCreateBid{
		Order:    msgs.OrderID{Owner: id.Owner, DSeq: id.DSeq, GSeq: id.GSeq, OSeq: id.OSeq},
		Provider: id.Provider,
		Price:    uakt(price),
		Deposit:  uakt(5000000),
	}
}

// openLease places a bid and accepts it in the same block.
func (h *harness) openLease(height int64, id msgs.BidID, price int64) {
	h.apply(height, createBid(id, price))
	h.apply(height, msgs.MsgCreateLease{ID: id})
}
