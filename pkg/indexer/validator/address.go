package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // cosmos secp256k1 addresses are defined on ripemd160
	"google.golang.org/protobuf/encoding/protowire"
)

// Public key type urls.
const (
	PubKeyEd25519   = "/cosmos.crypto.ed25519.PubKey"
	PubKeySecp256k1 = "/cosmos.crypto.secp256k1.PubKey"
)

const addressLen = 20

var ErrUnsupportedKey = errors.New("unsupported public key type")

// HexAddress derives the consensus address of a public key as uppercase hex.
func HexAddress(typeURL string, key []byte) (string, error) {
	switch typeURL {
	case PubKeyEd25519:
		sum := sha256.Sum256(key)
		return strings.ToUpper(hex.EncodeToString(sum[:addressLen])), nil
	case PubKeySecp256k1:
		sum := sha256.Sum256(key)
		h := ripemd160.New()
		h.Write(sum[:])
		return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedKey, typeURL)
}

// HexAddressOfAny is HexAddress for a protobuf encoded PubKey message.
func HexAddressOfAny(a txdecode.Any) (string, error) {
	fs, err := txdecode.Fields(a.Value)
	if err != nil {
		return "", err
	}
	for _, f := range fs {
		if f.Num == 1 && f.Type == protowire.BytesType {
			return HexAddress(a.TypeURL, f.Bytes)
		}
	}
	return "", fmt.Errorf("%w: no key bytes", txdecode.ErrMalformedInput)
}

// AccountAddress converts a validator operator address (akashvaloper1...) to
// the account address of its operator (akash1...).
func AccountAddress(operator string) (string, error) {
	hrp, data, err := bech32.Decode(operator)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", operator, err)
	}
	prefix, ok := strings.CutSuffix(hrp, "valoper")
	if !ok {
		return "", fmt.Errorf("%s is not an operator address", operator)
	}
	return bech32.Encode(prefix, data)
}
