package reconcile

import (
	"github.com/shopspring/decimal"

	"bridgeScope/internal/model"
)

// Summarize totals the completed tokens of a view.
func Summarize(tokens []model.GroupedTokenStat) model.ReconciliationSummary {
	summary := model.ReconciliationSummary{
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalTokens:      len(tokens),
	}
	for _, tok := range tokens {
		if tok.State != model.LoadComplete {
			continue
		}
		summary.LoadedTokens++
		summary.TotalAssets = summary.TotalAssets.Add(AssetValue(tok))
		summary.TotalLiabilities = summary.TotalLiabilities.Add(tok.TotalLiabilities)
		if tok.IsBalanced {
			summary.BalancedTokens++
		}
	}
	summary.Difference = summary.TotalAssets.Sub(summary.TotalLiabilities)
	summary.AllLoaded = summary.LoadedTokens == summary.TotalTokens
	return summary
}
