package indexer

import (
	"context"
	"fmt"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/rpc"
)

// Registry is an ordered set of indexers. A message is offered to every
// indexer that handles its kind, in registration order.
type Registry struct {
	indexers []Indexer
	byKind   map[msgs.Kind][]Indexer
}

func NewRegistry(indexers ...Indexer) *Registry {
	r := &Registry{indexers: indexers, byKind: map[msgs.Kind][]Indexer{}}
	for _, ix := range indexers {
		for _, k := range ix.Handles() {
			r.byKind[k] = append(r.byKind[k], ix)
		}
	}
	return r
}

func (r *Registry) Indexers() []Indexer {
	return r.indexers
}

// Handles reports whether any indexer claims kind.
func (r *Registry) Handles(kind msgs.Kind) bool {
	return len(r.byKind[kind]) > 0
}

// HandlesType is Handles for a type url.
func (r *Registry) HandlesType(typeURL string) bool {
	return r.Handles(msgs.KindOf(typeURL))
}

// Dispatch runs every indexer claiming the message.
func (r *Registry) Dispatch(ctx context.Context, tx db.Tx, m *Message) error {
	for _, ix := range r.byKind[m.Msg.Kind()] {
		if err := ix.Process(ctx, tx, m); err != nil {
			return fmt.Errorf("%s: %s at height %d: %w", ix.Name(), m.Msg.Kind(), m.Height, err)
		}
	}
	return nil
}

func (r *Registry) AfterEveryBlock(ctx context.Context, tx db.Tx, current, previous *models.Block) error {
	for _, ix := range r.indexers {
		if err := ix.AfterEveryBlock(ctx, tx, current, previous); err != nil {
			return fmt.Errorf("%s: after block %d: %w", ix.Name(), current.Height, err)
		}
	}
	return nil
}

func (r *Registry) InitCache(ctx context.Context, tx db.Tx) error {
	for _, ix := range r.indexers {
		if err := ix.InitCache(ctx, tx); err != nil {
			return fmt.Errorf("%s: init cache: %w", ix.Name(), err)
		}
	}
	return nil
}

func (r *Registry) InvalidateCache() {
	for _, ix := range r.indexers {
		ix.InvalidateCache()
	}
}

func (r *Registry) Seed(ctx context.Context, tx db.Tx, genesis *rpc.GenesisResult) error {
	for _, ix := range r.indexers {
		if err := ix.Seed(ctx, tx, genesis); err != nil {
			return fmt.Errorf("%s: seed: %w", ix.Name(), err)
		}
	}
	return nil
}

// Tables lists every table owned by a registered indexer.
func (r *Registry) Tables() []string {
	var out []string
	for _, ix := range r.indexers {
		out = append(out, ix.Tables()...)
	}
	return out
}
