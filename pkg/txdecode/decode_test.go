package txdecode_test

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/akashx/akashx/pkg/txdecode/txtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTx() txtest.Tx {
	send := txtest.P{}.Str(1, "akash1from").Str(2, "akash1to").Msg(3, txtest.Coin("uakt", "1500"))
	return txtest.Tx{
		Messages: []txtest.P{
			txtest.Any("/cosmos.bank.v1beta1.MsgSend", send),
			txtest.Any("/akash.market.v1beta4.MsgCloseBid", txtest.P{}),
		},
		Memo:     "hello",
		Fee:      []txtest.P{txtest.Coin("uakt", "5000")},
		GasLimit: 200000,
	}
}

func TestDecodeEnvelope(t *testing.T) {
	b64 := sampleTx().Base64()
	tx, err := txdecode.Decode(b64)
	require.NoError(t, err)

	require.Len(t, tx.Body.Messages, 2)
	assert.Equal(t, "/cosmos.bank.v1beta1.MsgSend", tx.Body.Messages[0].TypeURL)
	assert.Equal(t, "/akash.market.v1beta4.MsgCloseBid", tx.Body.Messages[1].TypeURL)
	assert.Empty(t, tx.Body.Messages[1].Value)
	assert.Equal(t, "hello", tx.Body.Memo)

	require.Len(t, tx.AuthInfo.Fee.Amount, 1)
	assert.Equal(t, "uakt", tx.AuthInfo.Fee.Amount[0].Denom)
	assert.True(t, decimal.NewFromInt(5000).Equal(tx.AuthInfo.Fee.Amount[0].Amount))
	assert.Equal(t, uint64(200000), tx.AuthInfo.Fee.GasLimit)
	require.Len(t, tx.AuthInfo.SignerInfos, 1)
	assert.Equal(t, uint64(1), tx.AuthInfo.SignerInfos[0].Sequence)
	require.Len(t, tx.Signatures, 1)
}

func TestHashIsUppercaseSHA256(t *testing.T) {
	raw := sampleTx().Raw()
	sum := sha256.Sum256(raw)
	want := strings.ToUpper(hex.EncodeToString(sum[:]))

	assert.Equal(t, want, txdecode.Hash(raw))
	require.NoError(t, txdecode.VerifyHash(raw, strings.ToLower(want)))

	err := txdecode.VerifyHash(raw, strings.Repeat("0", 64))
	require.ErrorIs(t, err, txdecode.ErrHashMismatch)

	tx, err := txdecode.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, want, tx.Hash())
}

func TestMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not base64":      "this is not base64!",
		"bad padding":     "abc",
		"truncated proto": base64.StdEncoding.EncodeToString([]byte{0x0a, 0x10, 0x01}),
		"missing body":    base64.StdEncoding.EncodeToString(txtest.P{}.Bytes(3, []byte("sig"))),
		"bad wire type":   base64.StdEncoding.EncodeToString([]byte{0x0f}),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := txdecode.Decode(in)
			require.ErrorIs(t, err, txdecode.ErrMalformedInput)
		})
	}
}

func TestParseDec(t *testing.T) {
	d, err := txdecode.ParseDec("1500000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1.5", d.String())

	d, err = txdecode.ParseDec("2.25")
	require.NoError(t, err)
	assert.Equal(t, "2.25", d.String())

	d, err = txdecode.ParseDec("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = txdecode.ParseDec("x1")
	require.ErrorIs(t, err, txdecode.ErrMalformedInput)
}

func TestDecodeDecCoin(t *testing.T) {
	c, err := txdecode.DecodeDecCoin(txtest.Coin("uakt", "100000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "uakt", c.Denom)
	assert.Equal(t, "100", c.Amount.String())
	assert.Equal(t, "100uakt", c.String())
}
