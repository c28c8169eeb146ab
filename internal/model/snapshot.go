package model

import "time"

// Snapshot is a completed reconciliation pass written to report sinks.
type Snapshot struct {
	Generation string          `json:"generation"`
	NetworkID  uint32          `json:"network_id"`
	TakenAt    time.Time       `json:"taken_at"`
	Tokens     []TokenSnapshot `json:"tokens"`
	Summary    SummarySnapshot `json:"summary"`
}

// TokenSnapshot flattens a GroupedTokenStat into display units.
type TokenSnapshot struct {
	Key                string              `json:"key"`
	OriginNetworkID    uint32              `json:"origin_network_id"`
	OriginTokenAddress string              `json:"origin_token_address"`
	Name               string              `json:"name"`
	Symbol             string              `json:"symbol"`
	Decimals           uint8               `json:"decimals"`
	Assets             string              `json:"assets"`
	TotalLiabilities   string              `json:"total_liabilities"`
	Difference         string              `json:"difference"`
	IsBalanced         bool                `json:"is_balanced"`
	FailedFetches      int                 `json:"failed_fetches"`
	Liabilities        []LiabilitySnapshot `json:"liabilities"`
}

// LiabilitySnapshot is one wrapped supply in display units.
type LiabilitySnapshot struct {
	NetworkID           uint32 `json:"network_id"`
	WrappedTokenAddress string `json:"wrapped_token_address"`
	Amount              string `json:"amount"`
	Failed              bool   `json:"failed,omitempty"`
}

// SummarySnapshot is the summary in display units.
type SummarySnapshot struct {
	TotalAssets      string `json:"total_assets"`
	TotalLiabilities string `json:"total_liabilities"`
	Difference       string `json:"difference"`
	LoadedTokens     int    `json:"loaded_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	BalancedTokens   int    `json:"balanced_tokens"`
	AllLoaded        bool   `json:"all_loaded"`
}
