// Package analytics derives dashboard statistics from indexer data.
package analytics

import (
	"fmt"

	"bridgeScope/internal/model"
)

// SyncState is the indexer's progress on one network.
type SyncState struct {
	Network  uint32  `json:"network"`
	Name     string  `json:"name"`
	Synced   bool    `json:"synced"`
	Distance *uint64 `json:"distance,omitempty"`
	Status   string  `json:"status"`
}

const (
	StatusSynced      = "Synced"
	StatusUnreachable = "Could not sync. Endpoint down"
	StatusNeverSynced = "Never synced"
)

// SyncStatus renders the distance reported by the indexer. A failed lookup
// means the network endpoint is down.
func SyncStatus(distance uint64, err error) string {
	if err != nil {
		return StatusUnreachable
	}
	if distance == 0 {
		return StatusSynced
	}
	return fmt.Sprintf("Distance from head: %d", distance)
}

// NewSyncState combines a network with its distance lookup.
func NewSyncState(network model.RollupNetwork, distance uint64, err error) SyncState {
	state := SyncState{
		Network: network.ID,
		Name:    network.DisplayName(),
		Status:  SyncStatus(distance, err),
	}
	if err == nil {
		state.Distance = &distance
		state.Synced = distance == 0
	}
	return state
}

// BlockStatus interprets the latest synced block stored in the rollups
// table.
func BlockStatus(network model.RollupNetwork) string {
	block := network.LatestSyncedBlock
	switch {
	case block == nil || *block == 0:
		return StatusNeverSynced
	case *block < 0:
		return StatusUnreachable
	default:
		return fmt.Sprintf("Latest synced block: %d", *block)
	}
}
