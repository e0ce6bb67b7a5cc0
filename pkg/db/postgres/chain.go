package postgres

import (
	"context"
	"fmt"

	"github.com/akashx/akashx/pkg/db/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const blockColumns = `height, hash, datetime, proposer, day_id, tx_count, is_processed,
	total_tx_count, total_uakt_spent, active_lease_count, total_lease_count,
	active_cpu, active_memory, active_storage, active_provider_count`

func scanBlock(row pgx.Row) (*models.Block, error) {
	var b models.Block
	err := row.Scan(&b.Height, &b.Hash, &b.DateTime, &b.Proposer, &b.DayID, &b.TxCount, &b.IsProcessed,
		&b.TotalTxCount, &b.TotalUAktSpent, &b.ActiveLeaseCount, &b.TotalLeaseCount,
		&b.ActiveCPU, &b.ActiveMemory, &b.ActiveStorage, &b.ActiveProviderCount)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (q *queries) LatestBlock(ctx context.Context) (*models.Block, error) {
	b, err := scanBlock(q.exec.QueryRow(ctx, `SELECT `+blockColumns+` FROM blocks ORDER BY height DESC LIMIT 1`))
	return b, notFound(err)
}

func (q *queries) GetBlock(ctx context.Context, height int64) (*models.Block, error) {
	b, err := scanBlock(q.exec.QueryRow(ctx, `SELECT `+blockColumns+` FROM blocks WHERE height = $1`, height))
	return b, notFound(err)
}

func (q *queries) LatestDay(ctx context.Context) (*models.Day, error) {
	var d models.Day
	err := q.exec.QueryRow(ctx, `
		SELECT id, date, first_block_height, last_block_height, last_block_height_yet, akt_price
		FROM days ORDER BY date DESC LIMIT 1
	`).Scan(&d.ID, &d.Date, &d.FirstBlockHeight, &d.LastBlockHeight, &d.LastBlockHeightYet, &d.AktPrice)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (q *queries) UpsertDays(ctx context.Context, days []*models.Day) error {
	batch := &pgx.Batch{}
	for _, d := range days {
		batch.Queue(`
			INSERT INTO days (id, date, first_block_height, last_block_height, last_block_height_yet, akt_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				last_block_height = EXCLUDED.last_block_height,
				last_block_height_yet = EXCLUDED.last_block_height_yet,
				akt_price = COALESCE(EXCLUDED.akt_price, days.akt_price)
		`, d.ID, d.Date, d.FirstBlockHeight, d.LastBlockHeight, d.LastBlockHeightYet, d.AktPrice)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) InsertBlocks(ctx context.Context, blocks []*models.Block) error {
	batch := &pgx.Batch{}
	for _, b := range blocks {
		batch.Queue(`
			INSERT INTO blocks (`+blockColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (height) DO NOTHING
		`, b.Height, b.Hash, b.DateTime, b.Proposer, b.DayID, b.TxCount, b.IsProcessed,
			b.TotalTxCount, b.TotalUAktSpent, b.ActiveLeaseCount, b.TotalLeaseCount,
			b.ActiveCPU, b.ActiveMemory, b.ActiveStorage, b.ActiveProviderCount)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) InsertTransactions(ctx context.Context, txs []*models.Transaction) error {
	batch := &pgx.Batch{}
	for _, tx := range txs {
		batch.Queue(`
			INSERT INTO transactions (
				id, hash, height, tx_index, msg_count, fee, memo, gas_wanted, gas_used, log,
				downloaded, has_download_error, has_processing_error, is_processed
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO NOTHING
		`, tx.ID, tx.Hash, tx.Height, tx.Index, tx.MsgCount, tx.Fee, tx.Memo, tx.GasWanted, tx.GasUsed, tx.Log,
			tx.Downloaded, tx.HasDownloadError, tx.HasProcessingError, tx.IsProcessed)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) InsertMessages(ctx context.Context, msgs []*models.Message) error {
	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(`
			INSERT INTO messages (id, tx_id, height, type, type_group, msg_index, index_in_block, is_processed, related_deployment_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, m.ID, m.TxID, m.Height, m.Type, m.TypeGroup, m.Index, m.IndexInBlock, m.IsProcessed, m.RelatedDeploymentID)
	}
	return sendBatch(ctx, q.exec, batch)
}

const txColumns = `id, hash, height, tx_index, msg_count, fee, memo, gas_wanted, gas_used, log,
	downloaded, has_download_error, has_processing_error, is_processed`

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Transaction, error) {
		var tx models.Transaction
		err := row.Scan(&tx.ID, &tx.Hash, &tx.Height, &tx.Index, &tx.MsgCount, &tx.Fee, &tx.Memo,
			&tx.GasWanted, &tx.GasUsed, &tx.Log, &tx.Downloaded, &tx.HasDownloadError,
			&tx.HasProcessingError, &tx.IsProcessed)
		return &tx, err
	})
}

func (q *queries) PendingTransactions(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := q.exec.Query(ctx, `SELECT `+txColumns+` FROM transactions WHERE NOT downloaded ORDER BY height, tx_index`)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (q *queries) UpdateTransactionResults(ctx context.Context, txs []*models.Transaction) error {
	batch := &pgx.Batch{}
	for _, tx := range txs {
		batch.Queue(`
			UPDATE transactions SET
				downloaded = downloaded OR $2,
				has_download_error = $3,
				has_processing_error = has_processing_error OR $4,
				gas_wanted = $5,
				gas_used = $6,
				log = $7
			WHERE id = $1
		`, tx.ID, tx.Downloaded, tx.HasDownloadError, tx.HasProcessingError, tx.GasWanted, tx.GasUsed, tx.Log)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) ProcessableHeight(ctx context.Context) (int64, error) {
	var h int64
	err := q.exec.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT MIN(height) - 1 FROM transactions WHERE NOT downloaded),
			(SELECT MAX(height) FROM blocks),
			0
		)
	`).Scan(&h)
	return h, err
}

func (q *queries) FirstUnprocessedHeight(ctx context.Context) (int64, bool, error) {
	var h *int64
	if err := q.exec.QueryRow(ctx, `SELECT MIN(height) FROM blocks WHERE NOT is_processed`).Scan(&h); err != nil {
		return 0, false, err
	}
	if h == nil {
		return 0, false, nil
	}
	return *h, true, nil
}

func (q *queries) UnprocessedBlocks(ctx context.Context, from, to int64) ([]*models.Block, error) {
	rows, err := q.exec.Query(ctx, `SELECT `+blockColumns+` FROM blocks
		WHERE height BETWEEN $1 AND $2 AND NOT is_processed ORDER BY height`, from, to)
	if err != nil {
		return nil, err
	}
	blocks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Block, error) {
		return scanBlock(row)
	})
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	byHeight := make(map[int64]*models.Block, len(blocks))
	for _, b := range blocks {
		byHeight[b.Height] = b
	}

	rows, err = q.exec.Query(ctx, `SELECT `+txColumns+` FROM transactions
		WHERE height BETWEEN $1 AND $2
			AND NOT has_download_error AND NOT has_processing_error AND NOT is_processed
		ORDER BY height, tx_index`, from, to)
	if err != nil {
		return nil, err
	}
	txs, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Transaction, len(txs))
	for _, tx := range txs {
		b, ok := byHeight[tx.Height]
		if !ok {
			continue
		}
		b.Transactions = append(b.Transactions, tx)
		byID[tx.ID] = tx
	}

	rows, err = q.exec.Query(ctx, `
		SELECT m.id, m.tx_id, m.height, m.type, m.type_group, m.msg_index, m.index_in_block, m.is_processed, m.related_deployment_id
		FROM messages m
		WHERE m.height BETWEEN $1 AND $2
		ORDER BY m.height, m.index_in_block`, from, to)
	if err != nil {
		return nil, err
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Message, error) {
		var m models.Message
		err := row.Scan(&m.ID, &m.TxID, &m.Height, &m.Type, &m.TypeGroup, &m.Index, &m.IndexInBlock, &m.IsProcessed, &m.RelatedDeploymentID)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	for _, m := range msgs {
		if tx, ok := byID[m.TxID]; ok {
			tx.Messages = append(tx.Messages, m)
		}
	}
	return blocks, nil
}

func (q *queries) UpdateBlockStats(ctx context.Context, b *models.Block) error {
	_, err := q.exec.Exec(ctx, `
		UPDATE blocks SET
			is_processed = TRUE,
			total_tx_count = $2,
			total_uakt_spent = $3,
			active_lease_count = $4,
			total_lease_count = $5,
			active_cpu = $6,
			active_memory = $7,
			active_storage = $8,
			active_provider_count = $9
		WHERE height = $1
	`, b.Height, b.TotalTxCount, b.TotalUAktSpent, b.ActiveLeaseCount, b.TotalLeaseCount,
		b.ActiveCPU, b.ActiveMemory, b.ActiveStorage, b.ActiveProviderCount)
	return err
}

func (q *queries) MarkProcessed(ctx context.Context, from, to int64) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		UPDATE messages m SET is_processed = TRUE
		FROM transactions t
		WHERE m.tx_id = t.id AND t.height BETWEEN $1 AND $2
			AND NOT t.has_download_error AND NOT t.has_processing_error
	`, from, to)
	batch.Queue(`
		UPDATE transactions SET is_processed = TRUE
		WHERE height BETWEEN $1 AND $2 AND NOT has_download_error AND NOT has_processing_error
	`, from, to)
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) UpdateMessageDeployments(ctx context.Context, msgs []*models.Message) error {
	batch := &pgx.Batch{}
	for _, m := range msgs {
		batch.Queue(`UPDATE messages SET related_deployment_id = $2 WHERE id = $1`, m.ID, m.RelatedDeploymentID)
	}
	return sendBatch(ctx, q.exec, batch)
}

func (q *queries) ResetProcessed(ctx context.Context) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		UPDATE blocks SET is_processed = FALSE, total_uakt_spent = 0, active_lease_count = 0,
			total_lease_count = 0, active_cpu = 0, active_memory = 0, active_storage = 0,
			active_provider_count = 0
	`)
	batch.Queue(`UPDATE transactions SET is_processed = FALSE`)
	batch.Queue(`UPDATE messages SET is_processed = FALSE, related_deployment_id = NULL`)
	return sendBatch(ctx, q.exec, batch)
}
