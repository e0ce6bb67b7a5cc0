package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInTxRollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := &models.Deployment{ID: uuid.New(), Owner: "o", DSeq: 1, Balance: decimal.NewFromInt(10)}
	require.NoError(t, s.InsertDeployment(ctx, d))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx db.Tx) error {
		got, err := tx.GetDeployment(ctx, d.ID)
		require.NoError(t, err)
		got.Balance = decimal.Zero
		require.NoError(t, tx.UpdateDeployment(ctx, got))
		require.NoError(t, tx.InsertBlocks(ctx, []*models.Block{{Height: 1}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Balance.String())
	_, err = s.LatestBlock(ctx)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestReturnedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := &models.Deployment{ID: uuid.New(), Balance: decimal.NewFromInt(5)}
	require.NoError(t, s.InsertDeployment(ctx, d))
	d.Balance = decimal.Zero

	got, err := s.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	got.Owner = "changed"

	again, err := s.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "5", again.Balance.String())
	assert.Empty(t, again.Owner)
}

func TestProcessableHeightAndUnprocessedBlocks(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	require.NoError(t, s.InsertBlocks(ctx, []*models.Block{{Height: 1, DateTime: now}, {Height: 2, DateTime: now}, {Height: 3, DateTime: now}}))

	h, err := s.ProcessableHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), h)

	ok := &models.Transaction{ID: uuid.New(), Height: 1, Index: 0, Downloaded: true}
	failed := &models.Transaction{ID: uuid.New(), Height: 2, Index: 0, HasDownloadError: true}
	pending := &models.Transaction{ID: uuid.New(), Height: 3, Index: 0}
	require.NoError(t, s.InsertTransactions(ctx, []*models.Transaction{pending, failed, ok}))
	require.NoError(t, s.InsertMessages(ctx, []*models.Message{
		{ID: uuid.New(), TxID: ok.ID, Height: 1, Index: 1},
		{ID: uuid.New(), TxID: ok.ID, Height: 1, Index: 0},
	}))

	h, err = s.ProcessableHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h, "a failed download holds back its height")

	blocks, err := s.UnprocessedBlocks(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Len(t, blocks[0].Transactions, 1)
	assert.Equal(t, 0, blocks[0].Transactions[0].Messages[0].Index)
	assert.Equal(t, 1, blocks[0].Transactions[0].Messages[1].Index)
	assert.Empty(t, blocks[1].Transactions, "download errors are excluded")

	pendingTxs, err := s.PendingTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, pendingTxs, 2)
	assert.Equal(t, failed.ID, pendingTxs[0].ID)

	require.NoError(t, s.MarkProcessed(ctx, 1, 2))
	require.NoError(t, s.UpdateBlockStats(ctx, &models.Block{Height: 1}))
	first, found, err := s.FirstUnprocessedHeight(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), first)
	for _, m := range s.Messages(ok.ID) {
		assert.True(t, m.IsProcessed)
	}

	require.NoError(t, s.ResetProcessed(ctx))
	first, _, err = s.FirstUnprocessedHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
}

func TestRecreateTables(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertValidator(ctx, &models.Validator{OperatorAddress: "v"}))
	require.NoError(t, s.RecreateTables(ctx, db.TableValidators))
	assert.Zero(t, s.Counts()[db.TableValidators])
	require.Error(t, s.RecreateTables(ctx, "nope"))
}
