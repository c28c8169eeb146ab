package reconcile

import (
	"time"

	"bridgeScope/internal/amount"
	"bridgeScope/internal/model"
)

// BuildSnapshot converts a view into display units for report sinks.
func BuildSnapshot(view View, takenAt time.Time) model.Snapshot {
	tokens := make([]model.TokenSnapshot, 0, len(view.Tokens))
	for _, tok := range view.Tokens {
		liabilities := make([]model.LiabilitySnapshot, 0, len(tok.Liabilities))
		for _, entry := range tok.Liabilities {
			liabilities = append(liabilities, model.LiabilitySnapshot{
				NetworkID:           entry.NetworkID,
				WrappedTokenAddress: entry.WrappedTokenAddress,
				Amount:              amount.FromBaseUnits(entry.Amount, int(tok.Decimals)).String(),
				Failed:              entry.Failed,
			})
		}
		tokens = append(tokens, model.TokenSnapshot{
			Key:                tok.Key,
			OriginNetworkID:    tok.OriginNetworkID,
			OriginTokenAddress: tok.OriginTokenAddress,
			Name:               tok.Name,
			Symbol:             tok.Symbol,
			Decimals:           tok.Decimals,
			Assets:             AssetValue(tok).String(),
			TotalLiabilities:   tok.TotalLiabilities.String(),
			Difference:         tok.Difference.String(),
			IsBalanced:         tok.IsBalanced,
			FailedFetches:      tok.FailedFetches(),
			Liabilities:        liabilities,
		})
	}

	return model.Snapshot{
		Generation: view.Generation,
		NetworkID:  view.Network,
		TakenAt:    takenAt.UTC(),
		Tokens:     tokens,
		Summary: model.SummarySnapshot{
			TotalAssets:      view.Summary.TotalAssets.String(),
			TotalLiabilities: view.Summary.TotalLiabilities.String(),
			Difference:       view.Summary.Difference.String(),
			LoadedTokens:     view.Summary.LoadedTokens,
			TotalTokens:      view.Summary.TotalTokens,
			BalancedTokens:   view.Summary.BalancedTokens,
			AllLoaded:        view.Summary.AllLoaded,
		},
	}
}
