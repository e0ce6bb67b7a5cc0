// Package txdecode turns base64, protobuf-framed cosmos transactions into an
// envelope of auth info, body and per-message Any payloads.
package txdecode

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMalformedInput covers invalid base64 and invalid protobuf framing.
	ErrMalformedInput = errors.New("malformed transaction")
	// ErrHashMismatch is returned when raw bytes do not hash to the expected id.
	ErrHashMismatch = errors.New("transaction hash mismatch")
)

var base64Pattern = regexp.MustCompile(`^(?:[A-Za-z0-9+/]{4})*(?:[A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=)?$`)

// Tx is a decoded cosmos TxRaw.
type Tx struct {
	Raw        []byte
	Body       Body
	AuthInfo   AuthInfo
	Signatures [][]byte
}

type Body struct {
	Messages      []Any
	Memo          string
	TimeoutHeight uint64
}

type AuthInfo struct {
	SignerInfos []SignerInfo
	Fee         Fee
}

type SignerInfo struct {
	PublicKey Any
	Sequence  uint64
}

type Fee struct {
	Amount   []Coin
	GasLimit uint64
	Payer    string
	Granter  string
}

// Hash is the uppercase hex SHA-256 of the raw bytes, the identity tendermint
// reports for a transaction.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Hash of the decoded transaction.
func (t *Tx) Hash() string {
	return Hash(t.Raw)
}

// VerifyHash checks raw against an expected hash, case-insensitively.
func VerifyHash(raw []byte, expected string) error {
	if got := Hash(raw); !strings.EqualFold(got, expected) {
		return fmt.Errorf("%w: got %s want %s", ErrHashMismatch, got, strings.ToUpper(expected))
	}
	return nil
}

// DecodeBase64 strictly validates and decodes a standard base64 string.
func DecodeBase64(s string) ([]byte, error) {
	if !base64Pattern.MatchString(s) {
		return nil, fmt.Errorf("%w: not base64", ErrMalformedInput)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return raw, nil
}

// Decode decodes a base64 encoded TxRaw.
func Decode(base64Raw string) (*Tx, error) {
	raw, err := DecodeBase64(base64Raw)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(raw)
}

// DecodeBytes decodes a TxRaw.
func DecodeBytes(raw []byte) (*Tx, error) {
	fs, err := Fields(raw)
	if err != nil {
		return nil, err
	}
	tx := &Tx{Raw: raw}
	var bodySeen bool
	for _, f := range fs {
		switch f.Num {
		case 1:
			if tx.Body, err = decodeBody(f.Bytes); err != nil {
				return nil, fmt.Errorf("body: %w", err)
			}
			bodySeen = true
		case 2:
			if tx.AuthInfo, err = decodeAuthInfo(f.Bytes); err != nil {
				return nil, fmt.Errorf("auth info: %w", err)
			}
		case 3:
			tx.Signatures = append(tx.Signatures, f.Bytes)
		}
	}
	if !bodySeen {
		return nil, fmt.Errorf("%w: missing body", ErrMalformedInput)
	}
	return tx, nil
}

func decodeBody(b []byte) (Body, error) {
	fs, err := Fields(b)
	if err != nil {
		return Body{}, err
	}
	var body Body
	for _, f := range fs {
		switch f.Num {
		case 1:
			a, err := DecodeAny(f.Bytes)
			if err != nil {
				return Body{}, err
			}
			if a.TypeURL == "" {
				return Body{}, fmt.Errorf("%w: message without type url", ErrMalformedInput)
			}
			body.Messages = append(body.Messages, a)
		case 2:
			body.Memo = f.Str()
		case 3:
			body.TimeoutHeight = f.Varint
		}
	}
	return body, nil
}

func decodeAuthInfo(b []byte) (AuthInfo, error) {
	fs, err := Fields(b)
	if err != nil {
		return AuthInfo{}, err
	}
	var ai AuthInfo
	for _, f := range fs {
		switch f.Num {
		case 1:
			si, err := decodeSignerInfo(f.Bytes)
			if err != nil {
				return AuthInfo{}, err
			}
			ai.SignerInfos = append(ai.SignerInfos, si)
		case 2:
			if ai.Fee, err = decodeFee(f.Bytes); err != nil {
				return AuthInfo{}, err
			}
		}
	}
	return ai, nil
}

func decodeSignerInfo(b []byte) (SignerInfo, error) {
	fs, err := Fields(b)
	if err != nil {
		return SignerInfo{}, err
	}
	var si SignerInfo
	for _, f := range fs {
		switch f.Num {
		case 1:
			if si.PublicKey, err = DecodeAny(f.Bytes); err != nil {
				return SignerInfo{}, err
			}
		case 3:
			si.Sequence = f.Varint
		}
	}
	return si, nil
}

func decodeFee(b []byte) (Fee, error) {
	fs, err := Fields(b)
	if err != nil {
		return Fee{}, err
	}
	var fee Fee
	if fee.Amount, err = DecodeCoins(fs, 1); err != nil {
		return Fee{}, err
	}
	for _, f := range fs {
		switch f.Num {
		case 2:
			fee.GasLimit = f.Varint
		case 3:
			fee.Payer = f.Str()
		case 4:
			fee.Granter = f.Str()
		}
	}
	return fee, nil
}
