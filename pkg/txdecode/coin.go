package txdecode

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// legacyDecPrecision is the fixed scale of cosmos sdk.Dec on the wire.
const legacyDecPrecision = 18

// Coin is a cosmos Coin or DecCoin.
type Coin struct {
	Denom  string
	Amount decimal.Decimal
}

func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// DecodeCoin parses a cosmos.base.v1beta1.Coin (integer amount).
func DecodeCoin(b []byte) (Coin, error) {
	return decodeCoin(b, false)
}

// DecodeDecCoin parses a cosmos.base.v1beta1.DecCoin whose amount is an sdk.Dec.
func DecodeDecCoin(b []byte) (Coin, error) {
	return decodeCoin(b, true)
}

func decodeCoin(b []byte, dec bool) (Coin, error) {
	fs, err := Fields(b)
	if err != nil {
		return Coin{}, err
	}
	var c Coin
	c.Amount = decimal.Zero
	for _, f := range fs {
		switch f.Num {
		case 1:
			c.Denom = f.Str()
		case 2:
			parse := ParseInt
			if dec {
				parse = ParseDec
			}
			amt, err := parse(f.Str())
			if err != nil {
				return Coin{}, err
			}
			c.Amount = amt
		}
	}
	return c, nil
}

// ParseInt parses an sdk.Int string. Empty means zero.
func ParseInt(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q: %v", ErrMalformedInput, s, err)
	}
	return d, nil
}

// ParseDec parses an sdk.Dec. On the wire it is the integer scaled by 10^18;
// values that already carry a decimal point are taken verbatim.
func ParseDec(s string) (decimal.Decimal, error) {
	d, err := ParseInt(s)
	if err != nil || s == "" || strings.Contains(s, ".") {
		return d, err
	}
	return d.Shift(-legacyDecPrecision), nil
}

// DecodeCoins parses the repeated Coin fields numbered num.
func DecodeCoins(fs []Field, num int32) ([]Coin, error) {
	var out []Coin
	for _, f := range fs {
		if int32(f.Num) != num {
			continue
		}
		c, err := DecodeCoin(f.Bytes)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
