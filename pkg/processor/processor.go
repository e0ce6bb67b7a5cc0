// Package processor replays stored messages through the indexers in
// canonical (height, tx index, msg index) order, one transactional window at a
// time.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/notify"
	"github.com/akashx/akashx/pkg/rawcache"
	"github.com/akashx/akashx/pkg/rpc"
	"github.com/akashx/akashx/pkg/txdecode"
	"go.uber.org/zap"
)

const DefaultWindow = 10000

// TxCache is the read side of the raw transaction cache.
type TxCache interface {
	GetTx(hash string) ([]byte, error)
	PutTx(hash string, payload []byte) error
}

// FetchFunc downloads a raw tx payload, used when the cache no longer holds it.
type FetchFunc func(ctx context.Context, hash string) ([]byte, error)

type Config struct {
	// Window is the number of heights processed per transaction.
	Window int64
	// Fetch, when set, refills cache misses from upstream.
	Fetch FetchFunc
	// Publisher, when set, is told about every committed window.
	Publisher notify.Publisher
	// OnWindow, when set, observes every committed window.
	OnWindow func(notify.BlockProcessed)
}

// Processor is the StatsProcessor. It is driven by one goroutine at a time.
type Processor struct {
	logger   *zap.Logger
	store    db.Store
	cache    TxCache
	registry *indexer.Registry
	cfg      Config

	cacheReady bool
}

func New(logger *zap.Logger, store db.Store, cache TxCache, registry *indexer.Registry, cfg Config) *Processor {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Processor{
		logger:   logger.With(zap.String("component", "processor")),
		store:    store,
		cache:    cache,
		registry: registry,
		cfg:      cfg,
	}
}

// Reset drops the indexer caches; they are rebuilt from the store on the
// next run.
func (p *Processor) Reset() {
	p.registry.InvalidateCache()
	p.cacheReady = false
}

// ProcessMessages processes every unprocessed block up to the highest height
// whose transactions are all downloaded. It returns the number of blocks
// processed. A failing window is rolled back and its error returned.
func (p *Processor) ProcessMessages(ctx context.Context) (int, error) {
	if !p.cacheReady {
		if err := p.store.InTx(ctx, func(tx db.Tx) error {
			return p.registry.InitCache(ctx, tx)
		}); err != nil {
			p.registry.InvalidateCache()
			return 0, fmt.Errorf("init indexer caches: %w", err)
		}
		p.cacheReady = true
	}

	limit, err := p.store.ProcessableHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("processable height: %w", err)
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		from, ok, err := p.store.FirstUnprocessedHeight(ctx)
		if err != nil {
			return total, fmt.Errorf("first unprocessed height: %w", err)
		}
		if !ok || from > limit {
			return total, nil
		}
		to := min(from+p.cfg.Window-1, limit)

		ev, err := p.processWindow(ctx, from, to)
		if err != nil {
			p.Reset()
			return total, fmt.Errorf("window %d-%d: %w", from, to, err)
		}
		total += ev.Blocks
		if ev.Blocks == 0 {
			// nothing unprocessed was left in range, avoid spinning
			return total, nil
		}
		if p.cfg.Publisher != nil {
			p.cfg.Publisher.PublishProcessed(ctx, ev)
		}
		if p.cfg.OnWindow != nil {
			p.cfg.OnWindow(ev)
		}
	}
}

func (p *Processor) processWindow(ctx context.Context, from, to int64) (notify.BlockProcessed, error) {
	start := time.Now()
	ev := notify.BlockProcessed{FromHeight: from, ToHeight: to}

	err := p.store.InTx(ctx, func(tx db.Tx) error {
		ev.Blocks, ev.Messages = 0, 0

		blocks, err := tx.UnprocessedBlocks(ctx, from, to)
		if err != nil {
			return fmt.Errorf("load blocks: %w", err)
		}
		if len(blocks) == 0 {
			return nil
		}

		prev, err := tx.GetBlock(ctx, blocks[0].Height-1)
		if errors.Is(err, db.ErrNotFound) {
			prev = nil
		} else if err != nil {
			return fmt.Errorf("previous block: %w", err)
		}

		var related []*models.Message
		for _, b := range blocks {
			for _, t := range b.Transactions {
				n, err := p.processTx(ctx, tx, b, t, &related)
				if err != nil {
					return fmt.Errorf("tx %s at height %d: %w", t.Hash, b.Height, err)
				}
				ev.Messages += n
			}
			if err := p.registry.AfterEveryBlock(ctx, tx, b, prev); err != nil {
				return err
			}
			if err := tx.UpdateBlockStats(ctx, b); err != nil {
				return fmt.Errorf("update block %d: %w", b.Height, err)
			}
			prev = b
		}
		ev.Blocks = len(blocks)

		if len(related) > 0 {
			if err := tx.UpdateMessageDeployments(ctx, related); err != nil {
				return fmt.Errorf("update message deployments: %w", err)
			}
		}
		return tx.MarkProcessed(ctx, from, to)
	})
	if err != nil {
		return ev, err
	}

	ev.ProcessedAt = time.Now()
	p.logger.Info("Processed window",
		zap.Int64("from", from),
		zap.Int64("to", to),
		zap.Int("blocks", ev.Blocks),
		zap.Int("messages", ev.Messages),
		zap.Duration("took", time.Since(start)))
	return ev, nil
}

// processTx dispatches the messages of t that some indexer handles. The raw
// transaction is only loaded when at least one message needs it.
func (p *Processor) processTx(ctx context.Context, tx db.Tx, b *models.Block, t *models.Transaction, related *[]*models.Message) (int, error) {
	needed := false
	for _, m := range t.Messages {
		if p.registry.HandlesType(m.Type) {
			needed = true
			break
		}
	}
	if !needed {
		return 0, nil
	}

	res, decoded, err := p.loadTx(ctx, t.Hash)
	if err != nil {
		return 0, err
	}
	events := rpc.ParseLog(res.TxResult.Log)

	n := 0
	for _, m := range t.Messages {
		if !p.registry.HandlesType(m.Type) {
			continue
		}
		if m.Index < 0 || m.Index >= len(decoded.Body.Messages) {
			return n, fmt.Errorf("message index %d out of range (%d messages)", m.Index, len(decoded.Body.Messages))
		}
		msg, err := msgs.DecodeAny(decoded.Body.Messages[m.Index])
		if err != nil {
			return n, err
		}
		im := &indexer.Message{
			Msg:       msg,
			Row:       m,
			Tx:        t,
			Height:    b.Height,
			BlockTime: b.DateTime,
		}
		if m.Index < len(events) {
			im.Events = events[m.Index]
		}
		if err := p.registry.Dispatch(ctx, tx, im); err != nil {
			return n, err
		}
		if m.RelatedDeploymentID != nil {
			*related = append(*related, m)
		}
		n++
	}
	return n, nil
}

// loadTx reads the cached tx payload, refetching it when allowed, and checks
// that its bytes hash to the stored identity.
func (p *Processor) loadTx(ctx context.Context, hash string) (*rpc.TxResult, *txdecode.Tx, error) {
	raw, err := p.cache.GetTx(hash)
	if errors.Is(err, rawcache.ErrNotFound) && p.cfg.Fetch != nil {
		raw, err = p.cfg.Fetch(ctx, hash)
		if err == nil {
			err = p.cache.PutTx(hash, raw)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("raw tx: %w", err)
	}

	res, err := rpc.ParseTx(raw)
	if err != nil {
		return nil, nil, err
	}
	decoded, err := txdecode.Decode(res.Tx)
	if err != nil {
		return nil, nil, err
	}
	if err := txdecode.VerifyHash(decoded.Raw, hash); err != nil {
		return nil, nil, err
	}
	return res, decoded, nil
}
