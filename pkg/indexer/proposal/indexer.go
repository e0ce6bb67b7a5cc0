// Package proposal indexes governance proposals. The proposal id is assigned
// by the chain and read from the submit_proposal event of the message.
package proposal

import (
	"context"
	"fmt"
	"strconv"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	Name = "proposal"

	// Denom is the staking denom deposits and spends are summed in.
	Denom = "uakt"
)

type Indexer struct {
	indexer.Base
	logger *zap.Logger
}

var _ indexer.Indexer = (*Indexer)(nil)

func New(logger *zap.Logger) *Indexer {
	return &Indexer{logger: logger.With(zap.String("component", "indexer_proposal"))}
}

func (ix *Indexer) Name() string { return Name }

func (ix *Indexer) Handles() []msgs.Kind { return []msgs.Kind{msgs.KindSubmitProposal} }

func (ix *Indexer) Tables() []string {
	return []string{db.TableProposals, db.TableProposalParameterChanges}
}

func (ix *Indexer) Process(ctx context.Context, tx db.Tx, m *indexer.Message) error {
	msg, ok := m.Msg.(msgs.MsgSubmitProposal)
	if !ok {
		return fmt.Errorf("%w: %s", msgs.ErrUnknownType, m.Msg.Kind())
	}

	raw, ok := m.Events.Attr("submit_proposal", "proposal_id")
	if !ok {
		ix.logger.Warn("Proposal without id event skipped", zap.Int64("height", m.Height))
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("proposal id %q: %w", raw, err)
	}

	c := msg.Content
	p := &models.Proposal{
		ID:             id,
		Height:         m.Height,
		Proposer:       msg.Proposer,
		ContentType:    c.TypeURL,
		Title:          c.Title,
		Description:    c.Description,
		InitialDeposit: sum(msg.InitialDeposit),
		PlanName:       c.PlanName,
		PlanHeight:     c.PlanHeight,
		Recipient:      c.Recipient,
		SpendAmount:    sum(c.Amount),
	}
	if m.Row != nil {
		rowID := m.Row.ID
		p.MessageID = &rowID
	}
	if err := tx.UpsertProposal(ctx, p); err != nil {
		return fmt.Errorf("upsert proposal %d: %w", id, err)
	}

	changes := make([]models.ProposalParameterChange, 0, len(c.Changes))
	for i, ch := range c.Changes {
		changes = append(changes, models.ProposalParameterChange{
			ProposalID: id,
			Index:      i,
			Subspace:   ch.Subspace,
			Key:        ch.Key,
			Value:      ch.Value,
		})
	}
	if err := tx.ReplaceProposalParameterChanges(ctx, id, changes); err != nil {
		return fmt.Errorf("parameter changes of proposal %d: %w", id, err)
	}
	return nil
}

func sum(coins []txdecode.Coin) decimal.Decimal {
	total := decimal.Zero
	for _, c := range coins {
		if c.Denom == Denom {
			total = total.Add(c.Amount)
		}
	}
	return total
}
