package model

// RollupNetwork is a row of the indexer's rollups table.
type RollupNetwork struct {
	ID   uint32 `json:"rollup_id"`
	Name string `json:"network_name"`
	// LatestSyncedBlock is nil or 0 when the network was never synced and
	// negative when the indexer could not reach the network's endpoint.
	LatestSyncedBlock *int64 `json:"latest_bridge_synced_block"`
}

// DisplayName falls back to a generic label when the indexer has no name.
func (n RollupNetwork) DisplayName() string {
	if n.Name == "" {
		return "Unknown Network"
	}
	return n.Name
}
