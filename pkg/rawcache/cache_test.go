package rawcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNamespacesAreIndependent(t *testing.T) {
	c := openTestCache(t)

	_, err := c.GetBlock(1)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.PutBlock(1, []byte(`{"block":1}`)))
	require.NoError(t, c.PutTx("abcd", []byte(`{"tx":"abcd"}`)))

	bz, err := c.GetBlock(1)
	require.NoError(t, err)
	assert.Equal(t, `{"block":1}`, string(bz))

	bz, err = c.GetTx("ABCD")
	require.NoError(t, err)
	assert.Equal(t, `{"tx":"abcd"}`, string(bz))

	// a tx key never collides with the block namespace
	_, err = c.GetTx(BlockKey(1))
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := c.HasBlock(2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearEmptiesBothNamespaces(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.PutBlock(5, []byte("b")))
	require.NoError(t, c.PutTx("FF", []byte("t")))

	require.NoError(t, c.Clear())

	_, err := c.GetBlock(5)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = c.GetTx("FF")
	require.ErrorIs(t, err, ErrNotFound)

	// usable after clear
	require.NoError(t, c.PutBlock(6, []byte("again")))
	ok, err := c.HasBlock(6)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.PutBlock(9, []byte("nine")))
	require.NoError(t, c.Close())

	c, err = Open(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()
	bz, err := c.GetBlock(9)
	require.NoError(t, err)
	assert.Equal(t, "nine", string(bz))
}

func TestBlockKeyOrdering(t *testing.T) {
	assert.Len(t, BlockKey(1), 20)
	assert.Less(t, BlockKey(9), BlockKey(10))
	assert.Less(t, BlockKey(99999), BlockKey(100000))
	assert.Equal(t, "ABCDEF", TxKey("abcdef"))
}

func TestFirstBlockHeight(t *testing.T) {
	c := openTestCache(t)

	_, ok, err := c.FirstBlockHeight()
	require.NoError(t, err)
	assert.False(t, ok)

	for _, h := range []int64{1000, 11, 99} {
		require.NoError(t, c.PutBlock(h, []byte(`{}`)))
	}
	h, ok, err := c.FirstBlockHeight()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(11), h)
}
