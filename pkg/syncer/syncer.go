// Package syncer drives one sync cycle at a time: it downloads blocks into the
// raw cache, inserts them as relational rows, downloads their transactions and
// hands over to the processor.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akashx/akashx/pkg/checkpoint"
	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/processor"
	"github.com/akashx/akashx/pkg/rawcache"
	"github.com/akashx/akashx/pkg/rpc"
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultInsertBatchSize = 1000

var (
	// ErrCacheMiss means a block the download stage should have cached is
	// absent at insert time.
	ErrCacheMiss = errors.New("block missing from raw cache")
	// ErrCycleRunning is returned when a cycle is requested while one runs.
	ErrCycleRunning = errors.New("sync cycle already running")
)

type Config struct {
	// MaxHeight caps the sync target; zero means the chain head.
	MaxHeight int64
	// Production clears the raw cache after every successful cycle and
	// demotes per-batch progress logs to debug.
	Production      bool
	InsertBatchSize int
}

// Coordinator is the SyncCoordinator.
type Coordinator struct {
	logger      *zap.Logger
	client      rpc.Client
	cache       *rawcache.Cache
	checkpoints *checkpoint.Store
	store       db.Store
	registry    *indexer.Registry
	processor   *processor.Processor
	pool        pond.Pool
	cfg         Config
	status      *Status

	cycleMu sync.Mutex
}

func New(
	logger *zap.Logger,
	client rpc.Client,
	cache *rawcache.Cache,
	checkpoints *checkpoint.Store,
	store db.Store,
	registry *indexer.Registry,
	proc *processor.Processor,
	cfg Config,
) *Coordinator {
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = DefaultInsertBatchSize
	}
	workers := client.Capacity()
	if workers <= 0 {
		workers = 1
	}
	c := &Coordinator{
		logger:      logger.With(zap.String("component", "syncer")),
		client:      client,
		cache:       cache,
		checkpoints: checkpoints,
		store:       store,
		registry:    registry,
		processor:   proc,
		pool:        pond.NewPool(workers, pond.WithQueueSize(workers)),
		cfg:         cfg,
		status:      NewStatus(),
	}
	c.loadCheckpoints()
	return c
}

// loadCheckpoints publishes the persisted heights before the first cycle.
func (c *Coordinator) loadCheckpoints() {
	blocks, err := c.checkpoints.LoadHeight(checkpoint.Blocks)
	if err != nil {
		c.logger.Warn("Unable to read block checkpoint", zap.Error(err))
	}
	txs, err := c.checkpoints.LoadHeight(checkpoint.Txs)
	if err != nil {
		c.logger.Warn("Unable to read tx checkpoint", zap.Error(err))
	}
	c.status.update(func(s *Snapshot) {
		s.BlocksHeight = blocks
		s.TxsHeight = txs
	})
	c.logger.Info("Loaded checkpoints", zap.Int64("blocks", blocks), zap.Int64("txs", txs))
}

func (c *Coordinator) Status() *Status {
	return c.status
}

// Wait blocks until a running cycle or rebuild returns.
func (c *Coordinator) Wait() {
	c.cycleMu.Lock()
	c.cycleMu.Unlock() //nolint:staticcheck
}

// Close waits for a running cycle, then stops the fetch pool once its
// running tasks finish.
func (c *Coordinator) Close() {
	c.Wait()
	c.pool.StopAndWait()
}

// Sync runs one full cycle. Only one cycle runs at a time; a concurrent call
// returns ErrCycleRunning.
func (c *Coordinator) Sync(ctx context.Context) error {
	if !c.cycleMu.TryLock() {
		return ErrCycleRunning
	}
	defer c.cycleMu.Unlock()

	start := time.Now()
	c.status.begin(start)
	err := c.cycle(ctx)
	c.status.finish(time.Now(), err)
	if err != nil {
		snap := c.status.Snapshot()
		c.logger.Error("Sync cycle failed",
			zap.String("stage", string(snap.LastErrorStage)),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return err
	}
	c.logger.Info("Sync cycle finished", zap.Duration("took", time.Since(start)))
	return nil
}

func (c *Coordinator) cycle(ctx context.Context) error {
	head, err := c.client.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("latest height: %w", err)
	}
	target := head
	if c.cfg.MaxHeight > 0 && c.cfg.MaxHeight < target {
		target = c.cfg.MaxHeight
	}
	c.status.update(func(s *Snapshot) {
		s.ChainHeight = head
		s.TargetHeight = target
	})

	if err := c.seedIfEmpty(ctx); err != nil {
		return err
	}
	if err := c.downloadBlocks(ctx, target); err != nil {
		return err
	}
	if err := c.insertBlocks(ctx, target); err != nil {
		return err
	}
	if err := c.downloadTransactions(ctx); err != nil {
		return err
	}

	c.status.enter(StageProcessing, 0)
	n, err := c.processor.ProcessMessages(ctx)
	c.status.update(func(s *Snapshot) { s.BlocksProcessed += int64(n) })
	if err != nil {
		return fmt.Errorf("process messages: %w", err)
	}

	if c.cfg.Production {
		if err := c.cache.Clear(); err != nil {
			return fmt.Errorf("clear raw cache: %w", err)
		}
	}
	return nil
}

// seedIfEmpty hands the genesis document to every indexer before the first
// block is inserted.
func (c *Coordinator) seedIfEmpty(ctx context.Context) error {
	_, err := c.store.LatestBlock(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("latest block: %w", err)
	}
	return c.seed(ctx)
}

func (c *Coordinator) seed(ctx context.Context) error {
	c.status.enter(StageSeeding, 0)
	raw, err := c.client.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("fetch genesis: %w", err)
	}
	genesis, err := rpc.ParseGenesis(raw)
	if err != nil {
		return err
	}
	if err := c.store.InTx(ctx, func(tx db.Tx) error {
		return c.registry.Seed(ctx, tx, genesis)
	}); err != nil {
		return fmt.Errorf("seed genesis: %w", err)
	}
	c.logger.Info("Genesis seeded", zap.String("chain_id", genesis.Genesis.ChainID))
	return nil
}

// fetchAll fetches n paths through the client, at most Capacity at a time.
// handle runs on the pool for every response; the first error it returns
// stops new fetches, lets the in-flight ones drain and is returned.
func (c *Coordinator) fetchAll(ctx context.Context, n int, path func(i int) string, handle func(i int, bz []byte, err error) error) error {
	errCh := make(chan error, 1)
	report := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	group := c.pool.NewGroup()
	var stopErr error
	for i := 0; i < n && stopErr == nil; i++ {
		select {
		case stopErr = <-errCh:
			continue
		default:
		}
		slot, err := c.client.WaitForAvailable(ctx)
		if err != nil {
			stopErr = err
			continue
		}
		group.Submit(func() {
			bz, err := slot.Get(ctx, path(i))
			if err := handle(i, bz, err); err != nil {
				report(err)
			}
		})
	}

	if stopErr != nil {
		c.logger.Warn("Stopping fetches, draining in-flight requests", zap.Error(stopErr))
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		c.logger.Warn("Fetch group finished with error", zap.Error(err))
	}
	if err := c.client.WaitForAllFinished(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("Waiting for in-flight requests failed", zap.Error(err))
	}
	if stopErr == nil {
		select {
		case stopErr = <-errCh:
		default:
		}
	}
	return stopErr
}

func (c *Coordinator) downloadBlocks(ctx context.Context, target int64) error {
	from, err := c.checkpoints.LoadHeight(checkpoint.Blocks)
	if err != nil {
		return err
	}
	from++
	c.status.update(func(s *Snapshot) { s.BlocksHeight = from - 1 })
	if from > target {
		return nil
	}

	var heights []int64
	for h := from; h <= target; h++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := c.cache.HasBlock(h)
		if err != nil {
			return fmt.Errorf("raw cache lookup %d: %w", h, err)
		}
		if !ok {
			heights = append(heights, h)
		}
	}

	c.status.enter(StageDownloadingBlocks, int64(len(heights)))
	start := time.Now()
	c.logger.Info("Downloading blocks",
		zap.Int64("from", from),
		zap.Int64("to", target),
		zap.Int("missing", len(heights)))

	err = c.fetchAll(ctx, len(heights),
		func(i int) string { return rpc.BlockPath(heights[i]) },
		func(i int, bz []byte, err error) error {
			if err != nil {
				return fmt.Errorf("download block %d: %w", heights[i], err)
			}
			if err := c.cache.PutBlock(heights[i], bz); err != nil {
				return fmt.Errorf("cache block %d: %w", heights[i], err)
			}
			c.status.advance(1)
			return nil
		})
	if err != nil {
		return err
	}

	if err := c.checkpoints.SaveHeight(checkpoint.Blocks, target); err != nil {
		return err
	}
	c.status.update(func(s *Snapshot) { s.BlocksHeight = target })
	c.logger.Info("Blocks downloaded",
		zap.Int64("to", target),
		zap.Int("fetched", len(heights)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// batch is one flush of the insert stage.
type batch struct {
	days     map[uuid.UUID]*models.Day
	blocks   []*models.Block
	txs      []*models.Transaction
	messages []*models.Message
}

func newBatch() *batch {
	return &batch{days: make(map[uuid.UUID]*models.Day)}
}

func (b *batch) empty() bool {
	return len(b.blocks) == 0
}

func (b *batch) dayList() []*models.Day {
	out := make([]*models.Day, 0, len(b.days))
	for _, d := range b.days {
		out = append(out, d)
	}
	return out
}

func (c *Coordinator) insertBlocks(ctx context.Context, target int64) error {
	prev, err := c.store.LatestBlock(ctx)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("latest block: %w", err)
	}

	var from int64
	if prev != nil {
		from = prev.Height + 1
	} else {
		first, ok, err := c.cache.FirstBlockHeight()
		if err != nil {
			return fmt.Errorf("first cached block: %w", err)
		}
		if !ok {
			return nil
		}
		from = first
	}
	if from > target {
		return nil
	}

	day, err := c.store.LatestDay(ctx)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("latest day: %w", err)
	}

	c.status.enter(StageInsertingBlocks, target-from+1)
	start := time.Now()
	c.logger.Info("Inserting blocks", zap.Int64("from", from), zap.Int64("to", target))

	b := newBatch()
	for h := from; h <= target; h++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := c.cache.GetBlock(h)
		if errors.Is(err, rawcache.ErrNotFound) {
			return fmt.Errorf("%w: height %d", ErrCacheMiss, h)
		}
		if err != nil {
			return fmt.Errorf("read cached block %d: %w", h, err)
		}
		res, err := rpc.ParseBlock(raw)
		if err != nil {
			return fmt.Errorf("block %d: %w", h, err)
		}

		blockTime := res.Block.Header.Time
		date := models.DateOf(blockTime)
		if day == nil || !date.Equal(day.Date) {
			if day != nil {
				last := h - 1
				day.LastBlockHeight = &last
				day.LastBlockHeightYet = last
				b.days[day.ID] = day
			}
			day = &models.Day{
				ID:                 uuid.New(),
				Date:               date,
				FirstBlockHeight:   h,
				LastBlockHeightYet: h,
			}
		}
		day.LastBlockHeightYet = h
		b.days[day.ID] = day

		block := &models.Block{
			Height:   h,
			Hash:     res.BlockID.Hash,
			DateTime: blockTime,
			Proposer: res.Block.Header.ProposerAddress,
			DayID:    day.ID,
		}
		if prev != nil {
			block.BlockStats = prev.BlockStats
		} else {
			block.TotalUAktSpent = decimal.Zero
		}

		txs, messages := c.stageTransactions(h, res.Block.Data.Txs)
		block.TxCount = len(txs)
		block.TotalTxCount += int64(len(txs))

		b.blocks = append(b.blocks, block)
		b.txs = append(b.txs, txs...)
		b.messages = append(b.messages, messages...)
		prev = block

		if len(b.blocks) >= c.cfg.InsertBatchSize || h == target {
			if err := c.flush(ctx, b); err != nil {
				return err
			}
			b = newBatch()
		}
	}

	c.logger.Info("Blocks inserted",
		zap.Int64("from", from),
		zap.Int64("to", target),
		zap.Duration("took", time.Since(start)))
	return nil
}

// stageTransactions builds the rows for the base64 transactions of a block.
// A transaction that is not base64 cannot be keyed and is skipped; one whose
// protobuf does not decode keeps its row with the processing error flag.
func (c *Coordinator) stageTransactions(height int64, encoded []string) ([]*models.Transaction, []*models.Message) {
	var (
		txs      []*models.Transaction
		messages []*models.Message
	)
	inBlock := 0
	for i, s := range encoded {
		raw, err := txdecode.DecodeBase64(s)
		if err != nil {
			c.logger.Warn("Skipping transaction with invalid encoding",
				zap.Int64("height", height), zap.Int("index", i), zap.Error(err))
			continue
		}
		tx := &models.Transaction{
			ID:     uuid.New(),
			Hash:   txdecode.Hash(raw),
			Height: height,
			Index:  i,
			Fee:    decimal.Zero,
		}
		txs = append(txs, tx)

		decoded, err := txdecode.DecodeBytes(raw)
		if err != nil {
			c.logger.Warn("Transaction does not decode",
				zap.Int64("height", height), zap.String("hash", tx.Hash), zap.Error(err))
			tx.HasProcessingError = true
			continue
		}
		tx.Memo = decoded.Body.Memo
		tx.GasWanted = int64(decoded.AuthInfo.Fee.GasLimit)
		for _, coin := range decoded.AuthInfo.Fee.Amount {
			if coin.Denom == "uakt" {
				tx.Fee = tx.Fee.Add(coin.Amount)
			}
		}
		tx.MsgCount = len(decoded.Body.Messages)
		for j, msg := range decoded.Body.Messages {
			messages = append(messages, &models.Message{
				ID:           uuid.New(),
				TxID:         tx.ID,
				Height:       height,
				Type:         msg.TypeURL,
				TypeGroup:    TypeGroup(msg.TypeURL),
				Index:        j,
				IndexInBlock: inBlock,
			})
			inBlock++
		}
	}
	return txs, messages
}

// TypeGroup is the module part of a type url, "/akash.market.v1beta4.MsgCreateBid"
// gives "akash.market".
func TypeGroup(typeURL string) string {
	parts := strings.Split(strings.TrimPrefix(typeURL, "/"), ".")
	if len(parts) < 3 {
		return strings.TrimPrefix(typeURL, "/")
	}
	return strings.Join(parts[:len(parts)-2], ".")
}

func (c *Coordinator) flush(ctx context.Context, b *batch) error {
	if b.empty() {
		return nil
	}
	first, last := b.blocks[0].Height, b.blocks[len(b.blocks)-1].Height
	err := c.store.InTx(ctx, func(tx db.Tx) error {
		if err := tx.UpsertDays(ctx, b.dayList()); err != nil {
			return fmt.Errorf("upsert days: %w", err)
		}
		if err := tx.InsertBlocks(ctx, b.blocks); err != nil {
			return fmt.Errorf("insert blocks: %w", err)
		}
		if err := tx.InsertTransactions(ctx, b.txs); err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}
		if err := tx.InsertMessages(ctx, b.messages); err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush blocks %d-%d: %w", first, last, err)
	}

	n := int64(len(b.blocks))
	c.status.advance(n)
	c.status.update(func(s *Snapshot) {
		s.InsertedHeight = last
		s.BlocksInserted += n
	})
	log := c.logger.Debug
	if !c.cfg.Production {
		log = c.logger.Info
	}
	log("Inserted block batch",
		zap.Int64("from", first),
		zap.Int64("to", last),
		zap.Int("txs", len(b.txs)),
		zap.Int("messages", len(b.messages)))
	return nil
}

func (c *Coordinator) downloadTransactions(ctx context.Context) error {
	pending, err := c.store.PendingTransactions(ctx)
	if err != nil {
		return fmt.Errorf("pending transactions: %w", err)
	}
	latest, err := c.store.LatestBlock(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("latest block: %w", err)
	}

	recorded, err := c.checkpoints.LoadHeight(checkpoint.Txs)
	if err != nil {
		return err
	}
	stale := 0
	for _, tx := range pending {
		if !tx.HasDownloadError && tx.Height <= recorded {
			stale++
		}
	}
	if stale > 0 {
		// store was reset or restored behind the checkpoint files
		c.logger.Warn("Transactions below the tx checkpoint are not downloaded, fetching them again",
			zap.Int64("checkpoint", recorded),
			zap.Int("count", stale))
	}

	c.status.enter(StageDownloadingTxs, int64(len(pending)))
	start := time.Now()
	if len(pending) > 0 {
		c.logger.Info("Downloading transactions", zap.Int("pending", len(pending)))
	}

	var (
		mu      sync.Mutex
		updated []*models.Transaction
	)
	record := func(tx *models.Transaction) {
		mu.Lock()
		updated = append(updated, tx)
		mu.Unlock()
	}

	// cached payloads skip the network
	var toFetch []*models.Transaction
	for _, tx := range pending {
		raw, err := c.cache.GetTx(tx.Hash)
		if errors.Is(err, rawcache.ErrNotFound) {
			toFetch = append(toFetch, tx)
			continue
		}
		if err != nil {
			return fmt.Errorf("read cached tx %s: %w", tx.Hash, err)
		}
		if err := applyResult(tx, raw); err != nil {
			return err
		}
		record(tx)
	}

	fetchErr := c.fetchAll(ctx, len(toFetch),
		func(i int) string { return rpc.TxPath(toFetch[i].Hash) },
		func(i int, bz []byte, err error) error {
			tx := toFetch[i]
			if rpc.IsStatusError(err) {
				c.logger.Warn("Transaction download failed",
					zap.String("hash", tx.Hash), zap.Int64("height", tx.Height), zap.Error(err))
				tx.HasDownloadError = true
				record(tx)
				return nil
			}
			if err != nil {
				return fmt.Errorf("download tx %s: %w", tx.Hash, err)
			}
			if err := c.cache.PutTx(tx.Hash, bz); err != nil {
				return fmt.Errorf("cache tx %s: %w", tx.Hash, err)
			}
			if err := applyResult(tx, bz); err != nil {
				return err
			}
			record(tx)
			c.status.advance(1)
			return nil
		})

	// results that made it are kept even when the stage aborts
	if len(updated) > 0 {
		if err := c.store.InTx(ctx, func(t db.Tx) error {
			return t.UpdateTransactionResults(ctx, updated)
		}); err != nil {
			return fmt.Errorf("update transaction results: %w", err)
		}
	}
	if fetchErr != nil {
		return fetchErr
	}

	reached := latest.Height
	var failed int64
	for _, tx := range updated {
		if tx.HasDownloadError {
			failed++
			if tx.Height-1 < reached {
				reached = tx.Height - 1
			}
		}
	}
	if err := c.checkpoints.SaveHeight(checkpoint.Txs, reached); err != nil {
		return err
	}
	c.status.update(func(s *Snapshot) {
		s.TxsHeight = reached
		s.TxsDownloaded += int64(len(updated)) - failed
		s.TxsFailed += failed
	})
	if len(pending) > 0 {
		c.logger.Info("Transactions downloaded",
			zap.Int("count", len(updated)-int(failed)),
			zap.Int64("failed", failed),
			zap.Int64("checkpoint", reached),
			zap.Duration("took", time.Since(start)))
	}
	return nil
}

// applyResult copies the tx_result fields of a raw tx payload onto tx.
func applyResult(tx *models.Transaction, raw []byte) error {
	res, err := rpc.ParseTx(raw)
	if err != nil {
		return fmt.Errorf("tx %s: %w", tx.Hash, err)
	}
	tx.Downloaded = true
	tx.HasDownloadError = false
	tx.HasProcessingError = tx.HasProcessingError || res.TxResult.Code != 0
	tx.GasUsed = int64(res.TxResult.GasUsed)
	if w := int64(res.TxResult.GasWanted); w > 0 {
		tx.GasWanted = w
	}
	tx.Log = res.TxResult.Log
	return nil
}

// Rebuild empties every indexer table and replays all stored messages from
// the first block, seeding genesis again first.
func (c *Coordinator) Rebuild(ctx context.Context) error {
	if !c.cycleMu.TryLock() {
		return ErrCycleRunning
	}
	defer c.cycleMu.Unlock()

	start := time.Now()
	c.status.begin(start)
	err := c.rebuild(ctx)
	c.status.finish(time.Now(), err)
	if err != nil {
		c.logger.Error("Rebuild failed", zap.Error(err))
		return err
	}
	c.logger.Info("Rebuild finished", zap.Duration("took", time.Since(start)))
	return nil
}

func (c *Coordinator) rebuild(ctx context.Context) error {
	c.status.enter(StageRebuilding, 0)
	tables := c.registry.Tables()
	c.logger.Info("Rebuilding indexers", zap.Strings("tables", tables))
	if err := c.store.RecreateTables(ctx, tables...); err != nil {
		return fmt.Errorf("recreate tables: %w", err)
	}
	if err := c.store.ResetProcessed(ctx); err != nil {
		return fmt.Errorf("reset processed: %w", err)
	}
	c.processor.Reset()

	if _, err := c.store.LatestBlock(ctx); err == nil {
		if err := c.seed(ctx); err != nil {
			return err
		}
	}

	c.status.enter(StageProcessing, 0)
	n, err := c.processor.ProcessMessages(ctx)
	c.status.update(func(s *Snapshot) { s.BlocksProcessed += int64(n) })
	if err != nil {
		return fmt.Errorf("process messages: %w", err)
	}
	return nil
}
