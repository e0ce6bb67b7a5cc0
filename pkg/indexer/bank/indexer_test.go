package bank

import (
	"context"
	"sort"
	"testing"

	"github.com/akashx/akashx/pkg/db/memory"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func coin(denom string, n int64) txdecode.Coin {
	return txdecode.Coin{Denom: denom, Amount: decimal.NewFromInt(n)}
}

func TestSendOneRowPerCoin(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ix := New(zaptest.NewLogger(t))
	row := &models.Message{ID: uuid.New()}

	send := msgs.MsgSend{From: "akash1a", To: "akash1b", Amount: []txdecode.Coin{coin("uakt", 10), coin("ibc/27394FB0", 3)}}
	require.NoError(t, ix.Process(ctx, store, &indexer.Message{Msg: send, Row: row, Height: 7}))

	got := store.Transfers()
	require.Len(t, got, 2)
	for _, tr := range got {
		assert.Equal(t, "akash1a", tr.From)
		assert.Equal(t, "akash1b", tr.To)
		assert.Equal(t, int64(7), tr.Height)
		require.NotNil(t, tr.MessageID)
		assert.Equal(t, row.ID, *tr.MessageID)
	}
}

func TestMultiSendFansOutOutputs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ix := New(zaptest.NewLogger(t))

	ms := msgs.MsgMultiSend{
		Inputs: []msgs.Transfer{{Address: "akash1src", Coins: []txdecode.Coin{coin("uakt", 30)}}},
		Outputs: []msgs.Transfer{
			{Address: "akash1x", Coins: []txdecode.Coin{coin("uakt", 10)}},
			{Address: "akash1y", Coins: []txdecode.Coin{coin("uakt", 20)}},
		},
	}
	require.NoError(t, ix.Process(ctx, store, &indexer.Message{Msg: ms, Height: 9}))

	got := store.Transfers()
	require.Len(t, got, 2)
	sort.Slice(got, func(i, j int) bool { return got[i].To < got[j].To })
	assert.Equal(t, "akash1src", got[0].From)
	assert.Equal(t, "akash1x", got[0].To)
	assert.Equal(t, "10", got[0].Amount.String())
	assert.Equal(t, "20", got[1].Amount.String())
	assert.Nil(t, got[0].MessageID)
}

func TestEmptySendWritesNothing(t *testing.T) {
	store := memory.New()
	ix := New(zaptest.NewLogger(t))
	require.NoError(t, ix.Process(context.Background(), store, &indexer.Message{Msg: msgs.MsgSend{From: "a", To: "b"}}))
	assert.Empty(t, store.Transfers())
}

func TestRejectsForeignKinds(t *testing.T) {
	ix := New(zaptest.NewLogger(t))
	err := ix.Process(context.Background(), memory.New(), &indexer.Message{Msg: msgs.MsgDeleteProvider{}})
	assert.ErrorIs(t, err, msgs.ErrUnknownType)
}
