package model

import "github.com/shopspring/decimal"

// ReconciliationSummary totals a network view over its completed tokens.
type ReconciliationSummary struct {
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	Difference       decimal.Decimal `json:"difference"`
	LoadedTokens     int             `json:"loaded_tokens"`
	TotalTokens      int             `json:"total_tokens"`
	BalancedTokens   int             `json:"balanced_tokens"`
	AllLoaded        bool            `json:"all_loaded"`
}

// Progress returns the loaded/total ratio, 1 for an empty view.
func (s ReconciliationSummary) Progress() float64 {
	if s.TotalTokens == 0 {
		return 1
	}
	return float64(s.LoadedTokens) / float64(s.TotalTokens)
}
