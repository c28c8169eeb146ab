package model

import "github.com/shopspring/decimal"

// LoadState tracks the fetch progress of a grouped token.
type LoadState string

const (
	LoadPending  LoadState = "pending"
	LoadLoading  LoadState = "loading"
	LoadComplete LoadState = "complete"
)

// LiabilityEntry is one wrapped representation of an origin token.
type LiabilityEntry struct {
	// NetworkID is the network holding the wrapped token.
	NetworkID            uint32 `json:"network_id"`
	DestinationNetworkID uint32 `json:"destination_network_id"`
	WrappedTokenAddress  string `json:"wrapped_token_address"`
	// Amount is the circulating supply in base units.
	Amount   string `json:"amount"`
	Resolved bool   `json:"resolved"`
	Failed   bool   `json:"failed,omitempty"`
}

// GroupedTokenStat aggregates one origin token with all of its wrapped
// representations.
type GroupedTokenStat struct {
	Key                string `json:"key"`
	OriginNetworkID    uint32 `json:"origin_network_id"`
	OriginTokenAddress string `json:"origin_token_address"`
	Name               string `json:"name"`
	Symbol             string `json:"symbol"`
	Decimals           uint8  `json:"decimals"`

	// AssetBalance is the escrowed balance in base units.
	AssetBalance  string `json:"asset_balance"`
	AssetResolved bool   `json:"asset_resolved"`
	AssetFailed   bool   `json:"asset_failed,omitempty"`

	Liabilities      []LiabilityEntry `json:"liabilities"`
	TotalLiabilities decimal.Decimal  `json:"total_liabilities"`
	Difference       decimal.Decimal  `json:"difference"`
	IsBalanced       bool             `json:"is_balanced"`
	State            LoadState        `json:"state"`
}

// Complete reports whether the asset and every liability have resolved.
func (s GroupedTokenStat) Complete() bool {
	if !s.AssetResolved {
		return false
	}
	for _, entry := range s.Liabilities {
		if !entry.Resolved {
			return false
		}
	}
	return true
}

// Loading reports whether any fetch for the token is outstanding.
func (s GroupedTokenStat) Loading() bool {
	return s.State != LoadComplete
}

// FailedFetches counts fields that resolved to zero because the fetch failed.
func (s GroupedTokenStat) FailedFetches() int {
	n := 0
	if s.AssetFailed {
		n++
	}
	for _, entry := range s.Liabilities {
		if entry.Failed {
			n++
		}
	}
	return n
}

// Clone returns a copy that shares no mutable state with s.
func (s GroupedTokenStat) Clone() GroupedTokenStat {
	out := s
	if s.Liabilities != nil {
		out.Liabilities = make([]LiabilityEntry, len(s.Liabilities))
		copy(out.Liabilities, s.Liabilities)
	}
	return out
}
