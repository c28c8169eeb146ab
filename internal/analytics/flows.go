package analytics

import (
	"sort"

	"bridgeScope/internal/model"
)

// Counterparty is the number of bridges exchanged with one network.
type Counterparty struct {
	Network uint32 `json:"network"`
	Count   uint64 `json:"count"`
}

// FlowSummary splits the bridge flows of a chain by direction.
type FlowSummary struct {
	Chain    uint32         `json:"chain"`
	Inbound  []Counterparty `json:"inbound"`
	Outbound []Counterparty `json:"outbound"`
	TotalIn  uint64         `json:"total_in"`
	TotalOut uint64         `json:"total_out"`
}

// SplitFlows folds (source, target, count) rows into inbound and outbound
// counts for chain. Bridges from a chain to itself are ignored.
func SplitFlows(flows []model.FlowCount, chain uint32) FlowSummary {
	inbound := make(map[uint32]uint64)
	outbound := make(map[uint32]uint64)

	for _, flow := range flows {
		switch {
		case flow.Source == chain && flow.Target != chain:
			outbound[flow.Target] += flow.Value
		case flow.Target == chain && flow.Source != chain:
			inbound[flow.Source] += flow.Value
		}
	}

	summary := FlowSummary{
		Chain:    chain,
		Inbound:  sortedCounterparties(inbound),
		Outbound: sortedCounterparties(outbound),
	}
	for _, c := range summary.Inbound {
		summary.TotalIn += c.Count
	}
	for _, c := range summary.Outbound {
		summary.TotalOut += c.Count
	}
	return summary
}

func sortedCounterparties(counts map[uint32]uint64) []Counterparty {
	out := make([]Counterparty, 0, len(counts))
	for network, count := range counts {
		out = append(out, Counterparty{Network: network, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Network < out[j].Network
	})
	return out
}

// NetworkCounts pairs bridge and claim counts of one network.
type NetworkCounts struct {
	Network uint32 `json:"network"`
	Name    string `json:"name"`
	Bridges uint64 `json:"bridges"`
	Claims  uint64 `json:"claims"`
}

// MergeCounts joins bridge and claim counts per network, ordered by bridges.
func MergeCounts(networks []model.RollupNetwork, bridges, claims []model.EventCount) []NetworkCounts {
	byNetwork := make(map[uint32]*NetworkCounts)
	get := func(id uint32) *NetworkCounts {
		if c, ok := byNetwork[id]; ok {
			return c
		}
		c := &NetworkCounts{Network: id, Name: "Unknown Network"}
		byNetwork[id] = c
		return c
	}
	for _, n := range networks {
		get(n.ID).Name = n.DisplayName()
	}
	for _, b := range bridges {
		get(b.Network).Bridges += b.Count
	}
	for _, c := range claims {
		get(c.Network).Claims += c.Count
	}

	out := make([]NetworkCounts, 0, len(byNetwork))
	for _, c := range byNetwork {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bridges != out[j].Bridges {
			return out[i].Bridges > out[j].Bridges
		}
		return out[i].Network < out[j].Network
	})
	return out
}
