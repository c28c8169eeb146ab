package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20SupplyABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20SupplyABI    abi.ABI
	erc20SupplyOnce   sync.Once
	erc20SupplyABIErr error
)

func getERC20SupplyABI() (abi.ABI, error) {
	erc20SupplyOnce.Do(func() {
		erc20SupplyABI, erc20SupplyABIErr = abi.JSON(strings.NewReader(erc20SupplyABIJSON))
	})
	return erc20SupplyABI, erc20SupplyABIErr
}

func balanceOf(ctx context.Context, client *Client, token, owner common.Address) (*big.Int, error) {
	return callUint256(ctx, client, token, "balanceOf", owner)
}

func totalSupply(ctx context.Context, client *Client, token common.Address) (*big.Int, error) {
	return callUint256(ctx, client, token, "totalSupply")
}

func callUint256(ctx context.Context, client *Client, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	parsed, err := getERC20SupplyABI()
	if err != nil {
		return nil, err
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s unexpected type %T", method, values[0])
	}
	return value, nil
}
