package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/akashx/akashx/pkg/db/memory"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/indexer/akash"
	"github.com/akashx/akashx/pkg/indexer/bank"
	"github.com/akashx/akashx/pkg/notify"
	"github.com/akashx/akashx/pkg/rawcache"
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/akashx/akashx/pkg/txdecode/txtest"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	owner    = "akash1owner"
	provider = "akash1provider"
)

type mapCache struct {
	mu  sync.Mutex
	txs map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{txs: map[string][]byte{}} }

func (c *mapCache) GetTx(hash string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.txs[hash]
	if !ok {
		return nil, rawcache.ErrNotFound
	}
	return raw, nil
}

func (c *mapCache) PutTx(hash string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs[hash] = payload
	return nil
}

type recordingPublisher struct{ events []notify.BlockProcessed }

func (r *recordingPublisher) PublishProcessed(_ context.Context, ev notify.BlockProcessed) {
	r.events = append(r.events, ev)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	cache *mapCache
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, ctx: context.Background(), store: memory.New(), cache: newMapCache()}
}

func txPayload(hash string, height int64, b64 string) []byte {
	return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":-1,"result":{"hash":%q,"height":"%d","index":0,"tx":%q,"tx_result":{"code":0,"log":"[]","gas_wanted":"200000","gas_used":"100000"}}}`,
		hash, height, b64))
}

// addBlock stores a block with one transaction per entry of txs, each cached
// unless downloaded is false.
func (f *fixture) addBlock(height int64, downloaded bool, txs ...txtest.Tx) {
	b := &models.Block{
		Height:   height,
		Hash:     fmt.Sprintf("BLOCK%d", height),
		DateTime: time.Date(2023, 6, 1, 0, 0, int(height), 0, time.UTC),
		TxCount:  len(txs),
	}
	b.TotalUAktSpent = decimal.Zero
	require.NoError(f.t, f.store.InsertBlocks(f.ctx, []*models.Block{b}))

	var rows []*models.Transaction
	var msgRows []*models.Message
	for i, tx := range txs {
		raw := tx.Raw()
		row := &models.Transaction{
			ID:         uuid.New(),
			Hash:       txdecode.Hash(raw),
			Height:     height,
			Index:      i,
			MsgCount:   len(tx.Messages),
			Fee:        decimal.Zero,
			Downloaded: downloaded,
		}
		rows = append(rows, row)
		decoded, err := txdecode.DecodeBytes(raw)
		require.NoError(f.t, err)
		for j, m := range decoded.Body.Messages {
			msgRows = append(msgRows, &models.Message{
				ID:     uuid.New(),
				TxID:   row.ID,
				Height: height,
				Type:   m.TypeURL,
				Index:  j,
			})
		}
		if downloaded {
			require.NoError(f.t, f.cache.PutTx(row.Hash, txPayload(row.Hash, height, tx.Base64())))
		}
	}
	require.NoError(f.t, f.store.InsertTransactions(f.ctx, rows))
	require.NoError(f.t, f.store.InsertMessages(f.ctx, msgRows))
}

func (f *fixture) processor(cfg Config) *Processor {
	reg := indexer.NewRegistry(akash.New(zaptest.NewLogger(f.t)), bank.New(zaptest.NewLogger(f.t)))
	return New(zaptest.NewLogger(f.t), f.store, f.cache, reg, cfg)
}

func deploymentTx() txtest.Tx {
	return txtest.Tx{Messages: []txtest.P{
		txtest.CreateDeployment(owner, 1, 5000000),
		txtest.CreateBid(owner, 1, provider, 100),
		txtest.CreateLease(owner, 1, provider),
	}}
}

func TestProcessMessagesEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.addBlock(999, true)
	f.addBlock(1000, true, deploymentTx())
	f.addBlock(1001, true, txtest.Tx{Messages: []txtest.P{txtest.Send("akash1a", "akash1b", 7)}})

	pub := &recordingPublisher{}
	n, err := f.processor(Config{Publisher: pub}).ProcessMessages(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	leases := f.store.Leases()
	require.Len(t, leases, 1)
	assert.Equal(t, int64(51000), leases[0].PredictedClosedHeight)

	b1000, err := f.store.GetBlock(f.ctx, 1000)
	require.NoError(t, err)
	assert.True(t, b1000.IsProcessed)
	assert.Equal(t, int64(1), b1000.ActiveLeaseCount)
	assert.Equal(t, "100", b1000.TotalUAktSpent.String())

	b1001, err := f.store.GetBlock(f.ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "200", b1001.TotalUAktSpent.String())

	require.Len(t, f.store.Transfers(), 1)

	for _, tx := range f.store.Transactions() {
		assert.True(t, tx.IsProcessed, tx.Hash)
		for _, m := range f.store.Messages(tx.ID) {
			assert.True(t, m.IsProcessed)
			if tx.Height == 1000 {
				assert.NotNil(t, m.RelatedDeploymentID, m.Type)
			}
		}
	}

	require.Len(t, pub.events, 1)
	assert.Equal(t, 3, pub.events[0].Blocks)
	assert.Equal(t, 4, pub.events[0].Messages)

	// a second run finds nothing to do
	n, err = f.processor(Config{}).ProcessMessages(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWindowFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.addBlock(1000, true, deploymentTx())

	var hash string
	for h := range f.cache.txs {
		hash = h
	}
	good := f.cache.txs[hash]
	other := txtest.Tx{Memo: "other", Messages: []txtest.P{txtest.Send("a", "b", 1)}}
	f.cache.txs[hash] = txPayload(hash, 1000, other.Base64())

	p := f.processor(Config{})
	_, err := p.ProcessMessages(f.ctx)
	require.ErrorIs(t, err, txdecode.ErrHashMismatch)

	b, err := f.store.GetBlock(f.ctx, 1000)
	require.NoError(t, err)
	assert.False(t, b.IsProcessed)
	assert.Empty(t, f.store.Leases())
	deployments, err := f.store.ListDeployments(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, deployments)

	f.cache.txs[hash] = good
	n, err := p.ProcessMessages(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.store.Leases(), 1)
}

func TestProcessingStopsBeforePendingDownloads(t *testing.T) {
	f := newFixture(t)
	f.addBlock(1, true, txtest.Tx{Messages: []txtest.P{txtest.Send("a", "b", 1)}})
	f.addBlock(2, false, txtest.Tx{Messages: []txtest.P{txtest.Send("a", "b", 2)}})
	f.addBlock(3, true)

	n, err := f.processor(Config{}).ProcessMessages(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b2, err := f.store.GetBlock(f.ctx, 2)
	require.NoError(t, err)
	assert.False(t, b2.IsProcessed)
}

func TestWindowSizeDoesNotChangeResults(t *testing.T) {
	run := func(window int64) (*fixture, int) {
		f := newFixture(t)
		f.addBlock(1000, true, deploymentTx())
		for h := int64(1001); h < 1010; h++ {
			f.addBlock(h, true)
		}
		f.addBlock(1010, true, txtest.Tx{Messages: []txtest.P{txtest.CloseLease(owner, 1, provider)}})
		windows := 0
		_, err := f.processor(Config{Window: window, OnWindow: func(notify.BlockProcessed) { windows++ }}).ProcessMessages(f.ctx)
		require.NoError(t, err)
		return f, windows
	}

	one, w1 := run(100)
	many, w3 := run(3)
	assert.Equal(t, 1, w1)
	assert.Equal(t, 4, w3)

	for h := int64(1000); h <= 1010; h++ {
		a, err := one.store.GetBlock(one.ctx, h)
		require.NoError(t, err)
		b, err := many.store.GetBlock(many.ctx, h)
		require.NoError(t, err)
		assert.Equal(t, a.BlockStats.TotalUAktSpent.String(), b.BlockStats.TotalUAktSpent.String(), "height %d", h)
		assert.Equal(t, a.ActiveLeaseCount, b.ActiveLeaseCount, "height %d", h)
	}
	la, lb := one.store.Leases()[0], many.store.Leases()[0]
	assert.Equal(t, la.WithdrawnAmount.String(), lb.WithdrawnAmount.String())
	assert.Equal(t, *la.ClosedHeight, *lb.ClosedHeight)
}

func TestCacheMissRefetches(t *testing.T) {
	f := newFixture(t)
	f.addBlock(1, true, txtest.Tx{Messages: []txtest.P{txtest.Send("a", "b", 1)}})
	saved := f.cache.txs
	f.cache.txs = map[string][]byte{}

	_, err := f.processor(Config{}).ProcessMessages(f.ctx)
	require.ErrorIs(t, err, rawcache.ErrNotFound)

	fetched := 0
	fetch := func(_ context.Context, hash string) ([]byte, error) {
		fetched++
		raw, ok := saved[hash]
		if !ok {
			return nil, errors.New("unknown hash")
		}
		return raw, nil
	}
	n, err := f.processor(Config{Fetch: fetch}).ProcessMessages(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fetched)
	assert.Len(t, f.cache.txs, 1)
}
