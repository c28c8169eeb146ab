// Package chain reads bridge balances directly from network RPC endpoints.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// BalanceReader resolves asset and liability balances from chain state
// instead of indexed transfers. Assets are the bridge contract's holdings of
// the origin token (native balance for the zero address); liabilities are
// the total supply of the wrapped token.
type BalanceReader struct {
	clients map[uint32]*Client
	bridge  common.Address
	logger  *zap.Logger
}

func NewBalanceReader(clients map[uint32]*Client, bridge common.Address, logger *zap.Logger) (*BalanceReader, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("no rpc endpoints configured")
	}
	if bridge == (common.Address{}) {
		return nil, fmt.Errorf("bridge address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceReader{clients: clients, bridge: bridge, logger: logger}, nil
}

// AssetBalance returns the amount of token escrowed by the bridge on network.
func (r *BalanceReader) AssetBalance(ctx context.Context, network uint32, token string) (string, error) {
	client, err := r.client(network)
	if err != nil {
		return "", err
	}
	address, err := ParseAddress(token)
	if err != nil {
		return "", err
	}

	if address == (common.Address{}) {
		balance, err := client.BalanceAt(ctx, r.bridge)
		if err != nil {
			return "", fmt.Errorf("native balance: %w", err)
		}
		return balance.String(), nil
	}

	balance, err := balanceOf(ctx, client, address, r.bridge)
	if err != nil {
		return "", err
	}
	return balance.String(), nil
}

// LiabilityBalance returns the total supply of a wrapped token on network.
func (r *BalanceReader) LiabilityBalance(ctx context.Context, network uint32, wrapped string) (string, error) {
	client, err := r.client(network)
	if err != nil {
		return "", err
	}
	address, err := ParseAddress(wrapped)
	if err != nil {
		return "", err
	}
	supply, err := totalSupply(ctx, client, address)
	if err != nil {
		return "", err
	}
	return supply.String(), nil
}

func (r *BalanceReader) client(network uint32) (*Client, error) {
	client, ok := r.clients[network]
	if !ok {
		return nil, fmt.Errorf("no rpc endpoint for network %d", network)
	}
	return client, nil
}

// Dial connects to every endpoint, keyed by network id. Already opened
// clients are closed when one dial fails.
func Dial(ctx context.Context, endpoints map[uint32]string) (map[uint32]*Client, error) {
	clients := make(map[uint32]*Client, len(endpoints))
	for network, url := range endpoints {
		client, err := NewClient(ctx, url)
		if err != nil {
			CloseAll(clients)
			return nil, fmt.Errorf("dial network %d: %w", network, err)
		}
		clients[network] = client
	}
	return clients, nil
}

// CloseAll closes every client.
func CloseAll(clients map[uint32]*Client) {
	for _, client := range clients {
		client.Close()
	}
}

// ParseAddress validates a hex address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
