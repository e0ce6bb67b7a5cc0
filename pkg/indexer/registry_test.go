package indexer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/db/memory"
	"github.com/akashx/akashx/pkg/db/models"
	"github.com/akashx/akashx/pkg/indexer"
	"github.com/akashx/akashx/pkg/msgs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	indexer.Base
	name    string
	kinds   []msgs.Kind
	tables  []string
	seen    *[]string
	fail    error
	blocks  int
	invalid int
}

func (r *recorder) Name() string         { return r.name }
func (r *recorder) Handles() []msgs.Kind { return r.kinds }
func (r *recorder) Tables() []string     { return r.tables }

func (r *recorder) Process(_ context.Context, _ db.Tx, m *indexer.Message) error {
	*r.seen = append(*r.seen, r.name+":"+m.Msg.Kind().String())
	return r.fail
}

func (r *recorder) AfterEveryBlock(context.Context, db.Tx, *models.Block, *models.Block) error {
	r.blocks++
	return nil
}

func (r *recorder) InvalidateCache() { r.invalid++ }

func TestRegistryDispatchOrder(t *testing.T) {
	var seen []string
	a := &recorder{name: "a", kinds: []msgs.Kind{msgs.KindSend}, tables: []string{"t1"}, seen: &seen}
	b := &recorder{name: "b", kinds: []msgs.Kind{msgs.KindSend, msgs.KindMultiSend}, tables: []string{"t2", "t3"}, seen: &seen}
	r := indexer.NewRegistry(a, b)

	assert.True(t, r.Handles(msgs.KindMultiSend))
	assert.False(t, r.Handles(msgs.KindCreateLease))
	assert.True(t, r.HandlesType("/cosmos.bank.v1beta1.MsgSend"))
	assert.False(t, r.HandlesType("/cosmos.bank.v1beta1.MsgNope"))
	assert.Equal(t, []string{"t1", "t2", "t3"}, r.Tables())

	ctx := context.Background()
	store := memory.New()
	require.NoError(t, r.Dispatch(ctx, store, &indexer.Message{Msg: msgs.MsgSend{}}))
	require.NoError(t, r.Dispatch(ctx, store, &indexer.Message{Msg: msgs.MsgMultiSend{}}))
	require.NoError(t, r.Dispatch(ctx, store, &indexer.Message{Msg: msgs.MsgCreateLease{}}))
	assert.Equal(t, []string{"a:MsgSend", "b:MsgSend", "b:MsgMultiSend"}, seen)

	require.NoError(t, r.AfterEveryBlock(ctx, store, &models.Block{Height: 1}, nil))
	r.InvalidateCache()
	assert.Equal(t, 1, a.blocks)
	assert.Equal(t, 1, b.invalid)
}

func TestRegistryDispatchWrapsErrors(t *testing.T) {
	var seen []string
	boom := errors.New("boom")
	r := indexer.NewRegistry(&recorder{name: "a", kinds: []msgs.Kind{msgs.KindSend}, seen: &seen, fail: boom})

	err := r.Dispatch(context.Background(), memory.New(), &indexer.Message{Msg: msgs.MsgSend{}, Height: 12})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: MsgSend at height 12")
}
