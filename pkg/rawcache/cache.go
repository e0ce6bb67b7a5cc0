// Package rawcache memoizes upstream payloads on disk so that a restarted sync
// never fetches the same block or transaction twice.
package rawcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/akashx/akashx/pkg/utils"
	"github.com/cockroachdb/pebble/v2"
	"go.uber.org/zap"
)

// ErrNotFound is returned by the getters when a key has never been stored.
var ErrNotFound = errors.New("rawcache: not found")

const (
	blocksDir = "blocks"
	txsDir    = "txs"
)

// Cache holds two independent pebble namespaces: raw blocks keyed by padded
// height and raw transactions keyed by uppercase hex hash.
type Cache struct {
	logger *zap.Logger
	blocks *namespace
	txs    *namespace
}

// Open opens (creating if needed) the cache rooted at dir.
func Open(dir string, logger *zap.Logger) (*Cache, error) {
	blocks, err := openNamespace(filepath.Join(dir, blocksDir))
	if err != nil {
		return nil, err
	}
	txs, err := openNamespace(filepath.Join(dir, txsDir))
	if err != nil {
		_ = blocks.close()
		return nil, err
	}
	logger.Info("Raw cache opened", zap.String("dir", dir))
	return &Cache{logger: logger, blocks: blocks, txs: txs}, nil
}

// BlockKey is the fixed-width key for a height.
func BlockKey(height int64) string {
	return utils.PadHeight(height)
}

// TxKey normalizes a transaction hash to its cache key.
func TxKey(hash string) string {
	return strings.ToUpper(hash)
}

func (c *Cache) GetBlock(height int64) ([]byte, error) {
	return c.blocks.get(BlockKey(height))
}

func (c *Cache) PutBlock(height int64, payload []byte) error {
	return c.blocks.put(BlockKey(height), payload)
}

func (c *Cache) HasBlock(height int64) (bool, error) {
	return c.blocks.has(BlockKey(height))
}

// FirstBlockHeight is the lowest cached height; ok is false when no block is
// cached.
func (c *Cache) FirstBlockHeight() (height int64, ok bool, err error) {
	key, ok, err := c.blocks.first()
	if err != nil || !ok {
		return 0, false, err
	}
	height, err = strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bad block key %q: %w", key, err)
	}
	return height, true, nil
}

func (c *Cache) GetTx(hash string) ([]byte, error) {
	return c.txs.get(TxKey(hash))
}

func (c *Cache) PutTx(hash string, payload []byte) error {
	return c.txs.put(TxKey(hash), payload)
}

func (c *Cache) HasTx(hash string) (bool, error) {
	return c.txs.has(TxKey(hash))
}

// Clear wipes both namespaces. It must not run while a sync cycle is active.
func (c *Cache) Clear() error {
	if err := c.blocks.clear(); err != nil {
		return fmt.Errorf("clear blocks: %w", err)
	}
	if err := c.txs.clear(); err != nil {
		return fmt.Errorf("clear txs: %w", err)
	}
	c.logger.Info("Raw cache cleared")
	return nil
}

func (c *Cache) Close() error {
	return errors.Join(c.blocks.close(), c.txs.close())
}

type namespace struct {
	dir string
	mu  sync.RWMutex
	db  *pebble.DB
}

func openNamespace(dir string) (*namespace, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", dir, err)
	}
	return &namespace{dir: dir, db: db}, nil
}

func (n *namespace) get(key string) ([]byte, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	v, closer, err := n.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, closer.Close()
}

func (n *namespace) has(key string) (bool, error) {
	_, err := n.get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (n *namespace) first() (string, bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	it, err := n.db.NewIter(nil)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = it.Close() }()
	if !it.First() {
		return "", false, it.Error()
	}
	return string(it.Key()), true, nil
}

func (n *namespace) put(key string, payload []byte) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.db.Set([]byte(key), payload, pebble.Sync)
}

func (n *namespace) clear() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.db.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(n.dir); err != nil {
		return err
	}
	db, err := pebble.Open(n.dir, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("reopen pebble at %s: %w", n.dir, err)
	}
	n.db = db
	return nil
}

func (n *namespace) close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.db.Close()
}
