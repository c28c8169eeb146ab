package analytics

import (
	"sort"
	"strings"

	"bridgeScope/internal/model"
)

// DefaultTopBridgers is the number of addresses TopBridgers keeps when the
// caller asks for none.
const DefaultTopBridgers = 10

// Bridger is the number of bridges one address sent from a chain.
type Bridger struct {
	Address string `json:"address"`
	Count   uint64 `json:"count"`
}

// TopBridgers counts events that originate on chain by sender address and
// returns the topN busiest senders. Addresses are compared case-insensitively
// and events without a sender are ignored.
func TopBridgers(events []model.BridgeEvent, chain uint32, topN int) []Bridger {
	if topN <= 0 {
		topN = DefaultTopBridgers
	}
	counts := make(map[string]uint64)
	for _, e := range events {
		if e.OriginNetwork != chain {
			continue
		}
		address := strings.ToLower(strings.TrimSpace(e.OriginAddress))
		if address == "" {
			continue
		}
		counts[address]++
	}

	out := make([]Bridger, 0, len(counts))
	for address, count := range counts {
		out = append(out, Bridger{Address: address, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Address < out[j].Address
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// BridgeRow is a bridge event labelled with network names.
type BridgeRow struct {
	Block              uint64 `json:"block"`
	TxHash             string `json:"tx_hash"`
	OriginNetwork      uint32 `json:"origin_network"`
	Origin             string `json:"origin"`
	DestinationNetwork uint32 `json:"destination_network"`
	Destination        string `json:"destination"`
	Amount             string `json:"amount"`
}

// LatestBridges orders events newest first, keeps at most limit of them and
// resolves network ids to display names.
func LatestBridges(events []model.BridgeEvent, networks []model.RollupNetwork, limit int) []BridgeRow {
	names := make(map[uint32]string, len(networks))
	for _, n := range networks {
		names[n.ID] = n.DisplayName()
	}
	name := func(id uint32) string {
		if n, ok := names[id]; ok {
			return n
		}
		return "Unknown Network"
	}

	sorted := append([]model.BridgeEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BlockNumber > sorted[j].BlockNumber
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	rows := make([]BridgeRow, 0, len(sorted))
	for _, e := range sorted {
		amount := string(e.Amount)
		if amount == "" {
			amount = "0"
		}
		rows = append(rows, BridgeRow{
			Block:              e.BlockNumber,
			TxHash:             e.TxHash,
			OriginNetwork:      e.OriginNetwork,
			Origin:             name(e.OriginNetwork),
			DestinationNetwork: e.DestinationNetwork,
			Destination:        name(e.DestinationNetwork),
			Amount:             amount,
		})
	}
	return rows
}
