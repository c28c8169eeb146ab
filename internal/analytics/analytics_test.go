package analytics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgeScope/internal/model"
)

func TestSyncStatus(t *testing.T) {
	assert.Equal(t, "Synced", SyncStatus(0, nil))
	assert.Equal(t, "Distance from head: 17", SyncStatus(17, nil))
	assert.Equal(t, "Could not sync. Endpoint down", SyncStatus(0, errors.New("timeout")))

	state := NewSyncState(model.RollupNetwork{ID: 1, Name: "zkEVM"}, 3, nil)
	require.NotNil(t, state.Distance)
	assert.Equal(t, uint64(3), *state.Distance)
	assert.False(t, state.Synced)

	down := NewSyncState(model.RollupNetwork{ID: 2}, 0, errors.New("down"))
	assert.Nil(t, down.Distance)
	assert.Equal(t, "Unknown Network", down.Name)
}

func TestBlockStatus(t *testing.T) {
	block := func(v int64) *int64 { return &v }
	assert.Equal(t, StatusNeverSynced, BlockStatus(model.RollupNetwork{}))
	assert.Equal(t, StatusNeverSynced, BlockStatus(model.RollupNetwork{LatestSyncedBlock: block(0)}))
	assert.Equal(t, StatusUnreachable, BlockStatus(model.RollupNetwork{LatestSyncedBlock: block(-1)}))
	assert.Equal(t, "Latest synced block: 99", BlockStatus(model.RollupNetwork{LatestSyncedBlock: block(99)}))
}

func TestSplitFlows(t *testing.T) {
	flows := []model.FlowCount{
		{Source: 0, Target: 1, Value: 10},
		{Source: 0, Target: 2, Value: 4},
		{Source: 1, Target: 0, Value: 7},
		{Source: 0, Target: 0, Value: 100},
		{Source: 3, Target: 4, Value: 1},
	}

	summary := SplitFlows(flows, 0)
	assert.Equal(t, uint64(14), summary.TotalOut)
	assert.Equal(t, uint64(7), summary.TotalIn)
	require.Len(t, summary.Outbound, 2)
	assert.Equal(t, Counterparty{Network: 1, Count: 10}, summary.Outbound[0])
	require.Len(t, summary.Inbound, 1)
	assert.Equal(t, uint32(1), summary.Inbound[0].Network)
}

func TestMergeCounts(t *testing.T) {
	networks := []model.RollupNetwork{{ID: 0, Name: "Ethereum"}, {ID: 1, Name: "zkEVM"}}
	bridges := []model.EventCount{{Network: 1, Count: 5}, {Network: 0, Count: 9}}
	claims := []model.EventCount{{Network: 1, Count: 2}, {Network: 7, Count: 1}}

	counts := MergeCounts(networks, bridges, claims)
	require.Len(t, counts, 3)
	assert.Equal(t, NetworkCounts{Network: 0, Name: "Ethereum", Bridges: 9}, counts[0])
	assert.Equal(t, NetworkCounts{Network: 1, Name: "zkEVM", Bridges: 5, Claims: 2}, counts[1])
	assert.Equal(t, "Unknown Network", counts[2].Name)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	page, pages := Paginate(items, 1, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, page)
	assert.Equal(t, 2, pages)

	page, _ = Paginate(items, 2, 5)
	assert.Equal(t, []int{6, 7}, page)

	page, _ = Paginate(items, 3, 5)
	assert.Empty(t, page)

	page, pages = Paginate([]int{}, 1, 0)
	assert.Empty(t, page)
	assert.Equal(t, 0, pages)
}

func TestTopBridgers(t *testing.T) {
	events := []model.BridgeEvent{
		{OriginNetwork: 1, OriginAddress: "0xAAA"},
		{OriginNetwork: 1, OriginAddress: "0xaaa"},
		{OriginNetwork: 1, OriginAddress: "0xbbb"},
		{OriginNetwork: 1, OriginAddress: "0xccc"},
		{OriginNetwork: 1, OriginAddress: "0xccc"},
		{OriginNetwork: 1, OriginAddress: ""},
		{OriginNetwork: 0, DestinationNetwork: 1, OriginAddress: "0xddd"},
	}

	top := TopBridgers(events, 1, 2)
	assert.Equal(t, []Bridger{{Address: "0xaaa", Count: 2}, {Address: "0xccc", Count: 2}}, top)

	all := TopBridgers(events, 1, 0)
	require.Len(t, all, 3)
	assert.Equal(t, Bridger{Address: "0xbbb", Count: 1}, all[2])

	assert.Empty(t, TopBridgers(events, 5, 10))
}

func TestLatestBridges(t *testing.T) {
	networks := []model.RollupNetwork{{ID: 0, Name: "Ethereum"}, {ID: 1, Name: "zkEVM"}}
	events := []model.BridgeEvent{
		{OriginNetwork: 0, DestinationNetwork: 1, BlockNumber: 10, TxHash: "0xa", Amount: "5"},
		{OriginNetwork: 1, DestinationNetwork: 9, BlockNumber: 30, TxHash: "0xb"},
		{OriginNetwork: 1, DestinationNetwork: 0, BlockNumber: 20, TxHash: "0xc", Amount: "7"},
	}

	rows := LatestBridges(events, networks, 2)
	require.Len(t, rows, 2)
	assert.Equal(t, BridgeRow{
		Block: 30, TxHash: "0xb",
		OriginNetwork: 1, Origin: "zkEVM",
		DestinationNetwork: 9, Destination: "Unknown Network",
		Amount: "0",
	}, rows[0])
	assert.Equal(t, "0xc", rows[1].TxHash)
	assert.Equal(t, "Ethereum", rows[1].Destination)

	assert.Equal(t, uint64(10), events[0].BlockNumber)
	assert.Len(t, LatestBridges(events, networks, 0), 3)
}
