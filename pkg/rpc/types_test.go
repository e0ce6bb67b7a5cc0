package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlockEnvelopeAndBare(t *testing.T) {
	bare := `{"block_id":{"hash":"AA11"},"block":{"header":{"height":"42","time":"2023-01-02T03:04:05Z","proposer_address":"BEEF"},"data":{"txs":["dGVzdA=="]}}}`
	wrapped := `{"jsonrpc":"2.0","id":-1,"result":` + bare + `}`

	for name, raw := range map[string]string{"bare": bare, "wrapped": wrapped} {
		t.Run(name, func(t *testing.T) {
			b, err := ParseBlock([]byte(raw))
			require.NoError(t, err)
			assert.Equal(t, int64(42), int64(b.Block.Header.Height))
			assert.Equal(t, "AA11", b.BlockID.Hash)
			assert.Equal(t, "BEEF", b.Block.Header.ProposerAddress)
			assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), b.Block.Header.Time.UTC())
			assert.Equal(t, []string{"dGVzdA=="}, b.Block.Data.Txs)
		})
	}
}

func TestParseRPCError(t *testing.T) {
	_, err := ParseTx([]byte(`{"jsonrpc":"2.0","id":-1,"error":{"code":-32603,"message":"Internal error","data":"tx not found"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tx not found")

	_, err = ParseTx(nil)
	require.Error(t, err)
}

func TestParseTxResult(t *testing.T) {
	raw := `{"result":{"hash":"AB","height":"7","index":1,"tx":"eA==","tx_result":{"code":5,"log":"out of gas","gas_wanted":"200000","gas_used":"210000"}}}`
	tx, err := ParseTx([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, uint32(5), tx.TxResult.Code)
	assert.Equal(t, int64(210000), int64(tx.TxResult.GasUsed))
	assert.Equal(t, int64(200000), int64(tx.TxResult.GasWanted))
	assert.Equal(t, 1, tx.Index)
}

func TestParseLog(t *testing.T) {
	log := `[{"msg_index":0,"events":[{"type":"message","attributes":[{"key":"action","value":"submit_proposal"}]},{"type":"submit_proposal","attributes":[{"key":"proposal_id","value":"17"},{"key":"proposal_id","value":"99"}]}]},{"events":[{"type":"transfer","attributes":[]}]}]`
	evs := ParseLog(log)
	require.Len(t, evs, 2)

	id, ok := evs[0].Attr("submit_proposal", "proposal_id")
	require.True(t, ok)
	assert.Equal(t, "17", id)

	_, ok = evs[1].Attr("submit_proposal", "proposal_id")
	assert.False(t, ok)

	assert.Nil(t, ParseLog("out of gas in location: WritePerByte"))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "block?height=10", BlockPath(10))
	assert.Equal(t, "tx?hash=0xABCDEF", TxPath("abcdef"))
}
