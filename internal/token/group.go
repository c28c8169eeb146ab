// Package token groups wrapped-token mappings by origin token and decodes
// their metadata.
package token

import (
	"strconv"

	"bridgeScope/internal/model"
)

// Key identifies an origin token across every network it is wrapped on.
func Key(originNetwork uint32, originToken string) string {
	return strconv.FormatUint(uint64(originNetwork), 10) + "-" + originToken
}

// Group folds mappings into one stat per origin token, preserving first-seen
// order. Every mapping contributes one pending liability entry.
func Group(mappings []model.WrappedTokenMapping, viewing uint32) []model.GroupedTokenStat {
	stats := make([]model.GroupedTokenStat, 0)
	index := make(map[string]int)

	for _, m := range mappings {
		key := Key(m.OriginNetwork, m.OriginTokenAddress)
		i, ok := index[key]
		if !ok {
			meta := DecodeMetadata(m.Metadata)
			stats = append(stats, model.GroupedTokenStat{
				Key:                key,
				OriginNetworkID:    m.OriginNetwork,
				OriginTokenAddress: m.OriginTokenAddress,
				Name:               meta.Name,
				Symbol:             meta.Symbol,
				Decimals:           meta.Decimals,
				AssetBalance:       "0",
				State:              model.LoadLoading,
			})
			i = len(stats) - 1
			index[key] = i
		}

		stats[i].Liabilities = append(stats[i].Liabilities, model.LiabilityEntry{
			NetworkID:            m.RollupID,
			DestinationNetworkID: viewing,
			WrappedTokenAddress:  m.WrappedTokenAddress,
			Amount:               "0",
		})
	}

	return stats
}
