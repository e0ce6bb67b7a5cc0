// Package txtest builds protobuf encoded cosmos transactions for tests.
package txtest

import (
	"encoding/base64"

	"google.golang.org/protobuf/encoding/protowire"
)

// P is a protobuf message under construction.
type P []byte

func (p P) Str(num protowire.Number, s string) P {
	b := protowire.AppendTag(p, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func (p P) Bytes(num protowire.Number, v []byte) P {
	b := protowire.AppendTag(p, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func (p P) Uint(num protowire.Number, v uint64) P {
	b := protowire.AppendTag(p, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func (p P) Msg(num protowire.Number, m P) P {
	return p.Bytes(num, m)
}

// Coin encodes a cosmos Coin/DecCoin. Amount is written as given.
func Coin(denom, amount string) P {
	return P{}.Str(1, denom).Str(2, amount)
}

// Any encodes a google.protobuf.Any.
func Any(typeURL string, value P) P {
	return P{}.Str(1, typeURL).Bytes(2, value)
}

// Tx assembles a TxRaw from already encoded Any messages.
type Tx struct {
	Messages []P
	Memo     string
	Fee      []P
	GasLimit uint64
}

// Raw encodes the TxRaw bytes.
func (t Tx) Raw() []byte {
	body := P{}
	for _, m := range t.Messages {
		body = body.Msg(1, m)
	}
	if t.Memo != "" {
		body = body.Str(2, t.Memo)
	}

	fee := P{}
	for _, c := range t.Fee {
		fee = fee.Msg(1, c)
	}
	if t.GasLimit > 0 {
		fee = fee.Uint(2, t.GasLimit)
	}
	signer := P{}.Msg(1, Any("/cosmos.crypto.secp256k1.PubKey", P{}.Bytes(1, []byte{2, 1}))).Uint(3, 1)
	auth := P{}.Msg(1, signer).Msg(2, fee)

	return P{}.Msg(1, body).Msg(2, auth).Bytes(3, []byte("sig"))
}

// Base64 encodes the TxRaw the way tendermint lists it in a block.
func (t Tx) Base64() string {
	return base64.StdEncoding.EncodeToString(t.Raw())
}
