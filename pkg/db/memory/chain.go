package memory

import (
	"context"
	"errors"
	"slices"
	"sort"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/shopspring/decimal"
)

func (v *view) LatestBlock(context.Context) (*models.Block, error) {
	var latest *models.Block
	for _, b := range v.s.blocks {
		if latest == nil || b.Height > latest.Height {
			latest = b
		}
	}
	if latest == nil {
		return nil, db.ErrNotFound
	}
	return copyOf(latest), nil
}

func (v *view) GetBlock(_ context.Context, height int64) (*models.Block, error) {
	b, ok := v.s.blocks[height]
	if !ok {
		return nil, db.ErrNotFound
	}
	return copyOf(b), nil
}

func (v *view) LatestDay(context.Context) (*models.Day, error) {
	var latest *models.Day
	for _, d := range v.s.days {
		if latest == nil || d.Date.After(latest.Date) {
			latest = d
		}
	}
	if latest == nil {
		return nil, db.ErrNotFound
	}
	return copyOf(latest), nil
}

func (v *view) UpsertDays(_ context.Context, days []*models.Day) error {
	for _, d := range days {
		v.s.days[d.ID] = copyOf(d)
	}
	return nil
}

func (v *view) InsertBlocks(_ context.Context, blocks []*models.Block) error {
	for _, b := range blocks {
		if _, ok := v.s.blocks[b.Height]; ok {
			continue
		}
		c := copyOf(b)
		c.Transactions = nil
		v.s.blocks[b.Height] = c
	}
	return nil
}

func (v *view) InsertTransactions(_ context.Context, txs []*models.Transaction) error {
	for _, tx := range txs {
		if _, ok := v.s.txs[tx.ID]; ok {
			continue
		}
		c := copyOf(tx)
		c.Messages = nil
		v.s.txs[tx.ID] = c
		v.s.txsByHeight[tx.Height] = append(v.s.txsByHeight[tx.Height], tx.ID)
	}
	return nil
}

func (v *view) InsertMessages(_ context.Context, msgs []*models.Message) error {
	for _, m := range msgs {
		if _, ok := v.s.msgs[m.ID]; ok {
			continue
		}
		v.s.msgs[m.ID] = copyOf(m)
		v.s.msgsByTx[m.TxID] = append(v.s.msgsByTx[m.TxID], m.ID)
	}
	return nil
}

func (v *view) sortedTxs(filter func(*models.Transaction) bool) []*models.Transaction {
	var out []*models.Transaction
	for _, tx := range v.s.txs {
		if filter(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Height != out[j].Height {
			return out[i].Height < out[j].Height
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func (v *view) PendingTransactions(context.Context) ([]*models.Transaction, error) {
	txs := v.sortedTxs(func(tx *models.Transaction) bool { return !tx.Downloaded })
	out := make([]*models.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = copyOf(tx)
	}
	return out, nil
}

func (v *view) UpdateTransactionResults(_ context.Context, txs []*models.Transaction) error {
	for _, tx := range txs {
		cur, ok := v.s.txs[tx.ID]
		if !ok {
			continue
		}
		cur.Downloaded = cur.Downloaded || tx.Downloaded
		cur.HasDownloadError = tx.HasDownloadError
		cur.HasProcessingError = cur.HasProcessingError || tx.HasProcessingError
		cur.GasUsed = tx.GasUsed
		cur.GasWanted = tx.GasWanted
		cur.Log = tx.Log
	}
	return nil
}

func (v *view) ProcessableHeight(ctx context.Context) (int64, error) {
	var blocked int64 = -1
	for _, tx := range v.s.txs {
		if !tx.Downloaded && (blocked < 0 || tx.Height < blocked) {
			blocked = tx.Height
		}
	}
	if blocked >= 0 {
		return blocked - 1, nil
	}
	latest, err := v.LatestBlock(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return latest.Height, nil
}

func (v *view) FirstUnprocessedHeight(context.Context) (int64, bool, error) {
	var first int64
	found := false
	for h, b := range v.s.blocks {
		if !b.IsProcessed && (!found || h < first) {
			first, found = h, true
		}
	}
	return first, found, nil
}

func (v *view) UnprocessedBlocks(_ context.Context, from, to int64) ([]*models.Block, error) {
	var out []*models.Block
	for h := from; h <= to; h++ {
		b, ok := v.s.blocks[h]
		if !ok || b.IsProcessed {
			continue
		}
		blk := copyOf(b)
		for _, id := range v.s.txsByHeight[h] {
			tx := v.s.txs[id]
			if tx.HasDownloadError || tx.HasProcessingError || tx.IsProcessed {
				continue
			}
			t := copyOf(tx)
			for _, mid := range v.s.msgsByTx[tx.ID] {
				t.Messages = append(t.Messages, copyOf(v.s.msgs[mid]))
			}
			slices.SortFunc(t.Messages, func(a, b *models.Message) int { return a.Index - b.Index })
			blk.Transactions = append(blk.Transactions, t)
		}
		slices.SortFunc(blk.Transactions, func(a, b *models.Transaction) int { return a.Index - b.Index })
		out = append(out, blk)
	}
	return out, nil
}

func (v *view) UpdateBlockStats(_ context.Context, b *models.Block) error {
	cur, ok := v.s.blocks[b.Height]
	if !ok {
		return db.ErrNotFound
	}
	cur.BlockStats = b.BlockStats
	cur.IsProcessed = true
	return nil
}

func (v *view) MarkProcessed(_ context.Context, from, to int64) error {
	for h := from; h <= to; h++ {
		for _, id := range v.s.txsByHeight[h] {
			tx := v.s.txs[id]
			if tx.HasDownloadError || tx.HasProcessingError {
				continue
			}
			tx.IsProcessed = true
			for _, mid := range v.s.msgsByTx[id] {
				v.s.msgs[mid].IsProcessed = true
			}
		}
	}
	return nil
}

func (v *view) UpdateMessageDeployments(_ context.Context, msgs []*models.Message) error {
	for _, m := range msgs {
		if cur, ok := v.s.msgs[m.ID]; ok {
			cur.RelatedDeploymentID = m.RelatedDeploymentID
		}
	}
	return nil
}

func (v *view) ResetProcessed(context.Context) error {
	for _, b := range v.s.blocks {
		b.IsProcessed = false
		b.BlockStats = models.BlockStats{TotalTxCount: b.TotalTxCount, TotalUAktSpent: decimal.Zero}
	}
	for _, tx := range v.s.txs {
		tx.IsProcessed = false
	}
	for _, m := range v.s.msgs {
		m.IsProcessed = false
		m.RelatedDeploymentID = nil
	}
	return nil
}
