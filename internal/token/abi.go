package token

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Wrapped-token metadata is abi.encode(name, symbol, decimals); older
// deployments emit abi.encode(name, symbol).
var (
	metadataArgsOnce sync.Once
	metadataFull     abi.Arguments
	metadataShort    abi.Arguments
	metadataArgsErr  error
)

var fullHeadOffset = big.NewInt(3 * 32)

func metadataArguments() (abi.Arguments, abi.Arguments, error) {
	metadataArgsOnce.Do(func() {
		stringType, err := abi.NewType("string", "", nil)
		if err != nil {
			metadataArgsErr = err
			return
		}
		uint8Type, err := abi.NewType("uint8", "", nil)
		if err != nil {
			metadataArgsErr = err
			return
		}
		metadataFull = abi.Arguments{{Type: stringType}, {Type: stringType}, {Type: uint8Type}}
		metadataShort = abi.Arguments{{Type: stringType}, {Type: stringType}}
	})
	return metadataFull, metadataShort, metadataArgsErr
}

// EncodeMetadata packs name, symbol and decimals the way the bridge does.
func EncodeMetadata(name, symbol string, decimals uint8) ([]byte, error) {
	full, _, err := metadataArguments()
	if err != nil {
		return nil, err
	}
	return full.Pack(name, symbol, decimals)
}
