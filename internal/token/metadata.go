package token

import (
	"bytes"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"bridgeScope/internal/model"
)

const (
	DefaultName     = "Unknown Token"
	DefaultSymbol   = "UNKNOWN"
	DefaultDecimals = 18
)

// DecodeMetadata extracts token identity from a hex metadata blob. It tries
// the ABI layout first, then a delimited UTF-8 string, and finally returns
// placeholder values. It never fails.
func DecodeMetadata(blob string) model.TokenMeta {
	meta := model.TokenMeta{Name: DefaultName, Symbol: DefaultSymbol, Decimals: DefaultDecimals}

	data, ok := decodeHex(blob)
	if !ok || len(data) == 0 {
		return meta
	}

	if name, symbol, decimals, ok := decodeABI(data); ok {
		if name != "" {
			meta.Name = name
		}
		if symbol != "" {
			meta.Symbol = symbol
		}
		meta.Decimals = decimals
		return meta
	}

	if name, symbol, ok := decodeText(data); ok {
		meta.Name = name
		if symbol != "" {
			meta.Symbol = symbol
		}
	}
	return meta
}

func decodeHex(blob string) ([]byte, bool) {
	blob = strings.TrimSpace(blob)
	if blob == "" || blob == "0x" || blob == "0X" {
		return nil, true
	}
	if !strings.HasPrefix(blob, "0x") && !strings.HasPrefix(blob, "0X") {
		blob = "0x" + blob
	}
	if len(blob)%2 != 0 {
		blob = "0x0" + blob[2:]
	}
	data, err := hexutil.Decode(blob)
	if err != nil {
		return nil, false
	}
	return data, true
}

func decodeABI(data []byte) (name, symbol string, decimals uint8, ok bool) {
	defer func() {
		if recover() != nil {
			name, symbol, decimals, ok = "", "", 0, false
		}
	}()

	full, short, err := metadataArguments()
	if err != nil || len(data) < 2*common.HashLength {
		return "", "", 0, false
	}

	head := new(big.Int).SetBytes(data[:common.HashLength])
	if head.Cmp(fullHeadOffset) == 0 {
		if values, err := full.Unpack(data); err == nil && len(values) == 3 {
			fullName, okName := values[0].(string)
			fullSymbol, okSymbol := values[1].(string)
			fullDecimals, okDecimals := values[2].(uint8)
			if okName && okSymbol && okDecimals && (fullName != "" || fullSymbol != "") {
				return fullName, fullSymbol, fullDecimals, true
			}
		}
	}

	values, err := short.Unpack(data)
	if err != nil || len(values) != 2 {
		return "", "", 0, false
	}
	name, okName := values[0].(string)
	symbol, okSymbol := values[1].(string)
	if !okName || !okSymbol || (name == "" && symbol == "") {
		return "", "", 0, false
	}
	return name, symbol, DefaultDecimals, true
}

func decodeText(data []byte) (string, string, bool) {
	data = trimNul(data)
	if len(data) == 0 || !utf8.Valid(data) {
		return "", "", false
	}
	text := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, string(data))

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}
	switch len(cleaned) {
	case 0:
		return "", "", false
	case 1:
		return cleaned[0], "", true
	default:
		return cleaned[0], cleaned[1], true
	}
}

func trimNul(data []byte) []byte {
	return bytes.Trim(data, "\x00")
}
