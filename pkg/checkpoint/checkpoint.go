// Package checkpoint persists the download watermarks as plain-text integer
// files, outside of the relational store.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/creachadair/atomicfile"
)

// Kind names one of the independent checkpoints.
type Kind string

const (
	// Blocks is the last height fully downloaded into the raw cache.
	Blocks Kind = "blocks"
	// Txs is the last height whose transactions are fully downloaded.
	Txs Kind = "txs"
)

// Store reads and rewrites checkpoint files under a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates dir if missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(kind Kind) string {
	return filepath.Join(s.dir, string(kind)+".txt")
}

// LoadHeight returns 0 when the checkpoint was never written.
func (s *Store) LoadHeight(kind Kind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bz, err := os.ReadFile(s.path(kind))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s checkpoint: %w", kind, err)
	}
	v := strings.TrimSpace(string(bz))
	if v == "" {
		return 0, nil
	}
	h, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s checkpoint %q: %w", kind, v, err)
	}
	return h, nil
}

// SaveHeight atomically replaces the checkpoint file.
func (s *Store) SaveHeight(kind Kind, height int64) error {
	if height < 0 {
		return fmt.Errorf("negative %s checkpoint %d", kind, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := atomicfile.WriteData(s.path(kind), []byte(strconv.FormatInt(height, 10)), 0o644); err != nil {
		return fmt.Errorf("write %s checkpoint: %w", kind, err)
	}
	return nil
}
