package memory

import (
	"context"
	"sort"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/google/uuid"
)

func (v *view) GetValidator(_ context.Context, operator string) (*models.Validator, error) {
	val, ok := v.s.validators[operator]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyOf(val), nil
}

func (v *view) UpsertValidator(_ context.Context, val *models.Validator) error {
	v.s.validators[val.OperatorAddress] = copyOf(val)
	return nil
}

func (v *view) InsertTransfers(_ context.Context, transfers []*models.Transfer) error {
	for _, t := range transfers {
		v.s.transfers[t.ID] = copyOf(t)
	}
	return nil
}

func (v *view) UpsertProposal(_ context.Context, p *models.Proposal) error {
	v.s.proposals[p.ID] = copyOf(p)
	return nil
}

func (v *view) ReplaceProposalParameterChanges(_ context.Context, proposalID int64, changes []models.ProposalParameterChange) error {
	if len(changes) == 0 {
		delete(v.s.paramChanges, proposalID)
		return nil
	}
	v.s.paramChanges[proposalID] = append([]models.ProposalParameterChange(nil), changes...)
	return nil
}

// Transfers is a test helper returning every transfer ordered by height.
func (m *Store) Transfers() []*models.Transfer {
	out := make([]*models.Transfer, 0, len(m.s.transfers))
	for _, t := range m.s.transfers {
		out = append(out, copyOf(t))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Height < out[j].Height })
	return out
}

// Proposal is a test helper returning a proposal and its parameter changes.
func (m *Store) Proposal(id int64) (*models.Proposal, []models.ProposalParameterChange) {
	p, ok := m.s.proposals[id]
	if !ok {
		return nil, nil
	}
	return copyOf(p), m.s.paramChanges[id]
}

// Days is a test helper returning every day ordered by date.
func (m *Store) Days() []*models.Day {
	out := make([]*models.Day, 0, len(m.s.days))
	for _, d := range m.s.days {
		out = append(out, copyOf(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Transactions is a test helper returning every transaction in canonical order.
func (m *Store) Transactions() []*models.Transaction {
	txs := m.sortedTxs(func(*models.Transaction) bool { return true })
	out := make([]*models.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = copyOf(tx)
	}
	return out
}

// Messages is a test helper returning the messages of one transaction.
func (m *Store) Messages(txID uuid.UUID) []*models.Message {
	var out []*models.Message
	for _, id := range m.s.msgsByTx[txID] {
		out = append(out, copyOf(m.s.msgs[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
