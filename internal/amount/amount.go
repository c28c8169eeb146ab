// Package amount converts raw token amounts into exact decimals and display strings.
package amount

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultDecimals  = 18
	DefaultPrecision = 4

	// MaxExponent bounds the decimal exponent accepted from text input.
	// uint256 amounts need at most 78 digits.
	MaxExponent = 100
)

var (
	ten         = decimal.New(1, 1)
	thousand    = decimal.New(1, 3)
	million     = decimal.New(1, 6)
	billion     = decimal.New(1, 9)
	exponentMax = decimal.New(1, 15)
	exponentMin = decimal.New(1, -6)
)

// Parse converts v into a decimal. Unparseable input yields zero.
func Parse(v any) (out decimal.Decimal) {
	defer func() {
		if recover() != nil {
			out = decimal.Zero
		}
	}()

	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero
		}
		return *t
	case string:
		return parseString(t)
	case []byte:
		return parseString(string(t))
	case json.Number:
		return parseString(t.String())
	case *big.Int:
		if t == nil {
			return decimal.Zero
		}
		return decimal.NewFromBigInt(t, 0)
	case big.Int:
		return decimal.NewFromBigInt(&t, 0)
	case int:
		return decimal.NewFromInt(int64(t))
	case int8:
		return decimal.NewFromInt(int64(t))
	case int16:
		return decimal.NewFromInt(int64(t))
	case int32:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(t)), 0)
	case uint8:
		return decimal.NewFromInt(int64(t))
	case uint16:
		return decimal.NewFromInt(int64(t))
	case uint32:
		return decimal.NewFromInt(int64(t))
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(t), 0)
	case float32:
		return parseFloat(float64(t))
	case float64:
		return parseFloat(t)
	case fmt.Stringer:
		return parseString(t.String())
	default:
		return decimal.Zero
	}
}

func parseString(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "undefined", "none", "nan":
		return decimal.Zero
	}
	s = strings.TrimPrefix(s, "+")

	if d, err := decimal.NewFromString(s); err == nil {
		if exp := d.Exponent(); exp > MaxExponent || exp < -MaxExponent {
			return decimal.Zero
		}
		return d
	}
	// hex quantities as returned by JSON-RPC
	if n, ok := new(big.Int).SetString(s, 0); ok {
		return decimal.NewFromBigInt(n, 0)
	}
	return decimal.Zero
}

func parseFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// FromBaseUnits shifts a raw base-unit amount into token units.
// A negative decimals value means DefaultDecimals.
func FromBaseUnits(raw any, decimals int) decimal.Decimal {
	if decimals < 0 {
		decimals = DefaultDecimals
	}
	return Parse(raw).Shift(-int32(decimals))
}
