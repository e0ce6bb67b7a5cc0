// Package bank records token transfers.
package bank

import (
	"context"
	"fmt"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const Name = "bank"

type Indexer struct {
	indexer.Base
	logger *zap.Logger
}

var _ indexer.Indexer = (*Indexer)(nil)

func New(logger *zap.Logger) *Indexer {
	return &Indexer{logger: logger.With(zap.String("component", "indexer_bank"))}
}

func (ix *Indexer) Name() string { return Name }

func (ix *Indexer) Handles() []msgs.Kind {
	return []msgs.Kind{msgs.KindSend, msgs.KindMultiSend}
}

func (ix *Indexer) Tables() []string { return []string{db.TableTransfers} }

func (ix *Indexer) Process(ctx context.Context, tx db.Tx, m *indexer.Message) error {
	var rows []*models.Transfer
	switch msg := m.Msg.(type) {
	case msgs.MsgSend:
		rows = transfers(m, msg.From, msg.To, msg.Amount)
	case msgs.MsgMultiSend:
		// the sdk only accepts a single input
		if len(msg.Inputs) != 1 {
			ix.logger.Warn("Multi send with several inputs, attributing to the first",
				zap.Int("inputs", len(msg.Inputs)),
				zap.Int64("height", m.Height))
		}
		from := ""
		if len(msg.Inputs) > 0 {
			from = msg.Inputs[0].Address
		}
		for _, out := range msg.Outputs {
			rows = append(rows, transfers(m, from, out.Address, out.Coins)...)
		}
	default:
		return fmt.Errorf("%w: %s", msgs.ErrUnknownType, m.Msg.Kind())
	}

	if len(rows) == 0 {
		return nil
	}
	if err := tx.InsertTransfers(ctx, rows); err != nil {
		return fmt.Errorf("insert %d transfers: %w", len(rows), err)
	}
	return nil
}

// transfers returns one row per coin.
func transfers(m *indexer.Message, from, to string, coins []txdecode.Coin) []*models.Transfer {
	out := make([]*models.Transfer, 0, len(coins))
	for _, c := range coins {
		t := &models.Transfer{
			ID:     uuid.New(),
			Height: m.Height,
			From:   from,
			To:     to,
			Denom:  c.Denom,
			Amount: c.Amount,
		}
		if m.Row != nil {
			id := m.Row.ID
			t.MessageID = &id
		}
		out = append(out, t)
	}
	return out
}
