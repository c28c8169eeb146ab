package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bridgeScope/internal/model"
)

// FlowCounts aggregates bridge events that leave or enter chainID, grouped
// by (source, target).
func (c *Client) FlowCounts(ctx context.Context, chainID uint32) ([]model.FlowCount, error) {
	sql := fmt.Sprintf(
		"WITH flows AS ("+
			" SELECT rollup_id AS source, destinationNetwork AS target FROM bridge_events WHERE rollup_id = %[1]d"+
			" UNION ALL"+
			" SELECT rollup_id AS source, destinationNetwork AS target FROM bridge_events WHERE destinationNetwork = %[1]d"+
			") SELECT source, target, COUNT(*) AS value FROM flows GROUP BY source, target ORDER BY value DESC",
		chainID,
	)
	res, err := c.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("flow counts: %w", err)
	}
	flows, skipped := decodeRows[model.FlowCount](res)
	if skipped > 0 {
		c.logger.Warn("skipped malformed flow rows", zap.Uint32("chain_id", chainID), zap.Int("skipped", skipped))
	}
	return flows, nil
}

// BridgeCounts returns the number of bridge events indexed per network.
func (c *Client) BridgeCounts(ctx context.Context) ([]model.EventCount, error) {
	return c.eventCounts(ctx, "bridge_events")
}

// ClaimCounts returns the number of claim events indexed per network.
func (c *Client) ClaimCounts(ctx context.Context) ([]model.EventCount, error) {
	return c.eventCounts(ctx, "claim_events")
}

func (c *Client) eventCounts(ctx context.Context, table string) ([]model.EventCount, error) {
	sql := "SELECT rollup_id AS network, COUNT(*) AS count FROM " + table + " GROUP BY rollup_id ORDER BY count DESC"
	res, err := c.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%s counts: %w", table, err)
	}
	counts, skipped := decodeRows[model.EventCount](res)
	if skipped > 0 {
		c.logger.Warn("skipped malformed count rows", zap.String("table", table), zap.Int("skipped", skipped))
	}
	return counts, nil
}

// BridgeEvents returns the most recent bridge events leaving or entering
// chainID, newest first.
func (c *Client) BridgeEvents(ctx context.Context, chainID uint32, limit int) ([]model.BridgeEvent, error) {
	sql := fmt.Sprintf(
		"SELECT originNetwork, destinationNetwork, originAddress, block_number, transaction_hash, amount"+
			" FROM bridge_events WHERE originNetwork = %[1]d OR destinationNetwork = %[1]d"+
			" ORDER BY block_number DESC LIMIT %[2]d",
		chainID, limitOr(limit, DefaultEventLimit),
	)
	return c.bridgeEvents(ctx, "bridge events", sql)
}

// LatestBridges returns the latest bridge events across all networks.
func (c *Client) LatestBridges(ctx context.Context, limit int) ([]model.BridgeEvent, error) {
	sql := fmt.Sprintf(
		"SELECT originNetwork, destinationNetwork, block_number, transaction_hash, amount"+
			" FROM bridge_events ORDER BY block_number DESC LIMIT %d",
		limitOr(limit, DefaultLatestLimit),
	)
	return c.bridgeEvents(ctx, "latest bridges", sql)
}

func (c *Client) bridgeEvents(ctx context.Context, label, sql string) ([]model.BridgeEvent, error) {
	res, err := c.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	events, skipped := decodeRows[model.BridgeEvent](res)
	if skipped > 0 {
		c.logger.Warn("skipped malformed bridge rows", zap.String("query", label), zap.Int("skipped", skipped))
	}
	return events, nil
}

// Row limits of the bridge event queries.
const (
	DefaultEventLimit  = 5000
	DefaultLatestLimit = 20
)

func limitOr(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
