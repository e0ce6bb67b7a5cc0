package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingIsZero(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	h, err := s.LoadHeight(Blocks)
	require.NoError(t, err)
	assert.Zero(t, h)
}

func TestSaveAndLoadAreIndependent(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.SaveHeight(Blocks, 100))
	require.NoError(t, s.SaveHeight(Txs, 42))
	require.NoError(t, s.SaveHeight(Blocks, 150))

	h, err := s.LoadHeight(Blocks)
	require.NoError(t, err)
	assert.Equal(t, int64(150), h)

	h, err = s.LoadHeight(Txs)
	require.NoError(t, err)
	assert.Equal(t, int64(42), h)

	bz, err := os.ReadFile(filepath.Join(dir, "blocks.txt"))
	require.NoError(t, err)
	assert.Equal(t, "150", string(bz))
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "txs.txt"), []byte("12a"), 0o644))
	s, err := New(dir)
	require.NoError(t, err)

	_, err = s.LoadHeight(Txs)
	require.Error(t, err)

	require.Error(t, s.SaveHeight(Txs, -1))
}
