// Package indexer defines the pluggable message indexers and the registry that
// routes decoded messages to them.
package indexer

import (
	"context"
	"time"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/rpc"
)

// Message is one decoded message with the context an Indexer needs.
type Message struct {
	Msg       msgs.Msg
	Row       *models.Message
	Tx        *models.Transaction
	Height    int64
	BlockTime time.Time
	// Events are the ABCI events this message emitted, nil when the log was
	// not structured.
	Events rpc.MsgEvents
}

// Indexer maintains derived relational state for a set of message kinds.
type Indexer interface {
	Name() string
	// Handles lists the message kinds Process accepts.
	Handles() []msgs.Kind
	// Tables lists the tables owned by this indexer, recreated on rebuild.
	Tables() []string
	// InitCache warms in-memory lookups from the store at process start.
	InitCache(ctx context.Context, tx db.Tx) error
	// Seed bootstraps state from the chain genesis.
	Seed(ctx context.Context, tx db.Tx, genesis *rpc.GenesisResult) error
	Process(ctx context.Context, tx db.Tx, m *Message) error
	// AfterEveryBlock runs once per processed block, after its messages.
	// previous is nil for the first block of the chain.
	AfterEveryBlock(ctx context.Context, tx db.Tx, current, previous *models.Block) error
	// InvalidateCache drops in-memory state after a rolled back window.
	InvalidateCache()
}

// Base provides no-op hooks for indexers that only react to messages.
type Base struct{}

func (Base) InitCache(context.Context, db.Tx) error                                     { return nil }
func (Base) Seed(context.Context, db.Tx, *rpc.GenesisResult) error                      { return nil }
func (Base) AfterEveryBlock(context.Context, db.Tx, *models.Block, *models.Block) error { return nil }
func (Base) InvalidateCache()                                                           {}
