package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bridgeScope/internal/analytics"
	"bridgeScope/internal/chain"
	"bridgeScope/internal/config"
)

type syncRow struct {
	analytics.SyncState
	BlockStatus string  `json:"block_status"`
	RPCDistance *uint64 `json:"rpc_distance,omitempty"`
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The sync command never reads balances.
	cfg.BalanceSource = config.SourceIndexer
	src, err := buildSources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	networks, err := src.indexer.Networks(ctx)
	if err != nil {
		return fmt.Errorf("list networks: %w", err)
	}

	clients, err := chain.Dial(ctx, cfg.RPC)
	if err != nil {
		return err
	}
	defer chain.CloseAll(clients)

	rows := make([]syncRow, len(networks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, network := range networks {
		g.Go(func() error {
			distance, err := src.indexer.SyncDistance(gctx, network.ID)
			row := syncRow{
				SyncState:   analytics.NewSyncState(network, distance, err),
				BlockStatus: analytics.BlockStatus(network),
			}
			if client, ok := clients[network.ID]; ok && network.LatestSyncedBlock != nil && *network.LatestSyncedBlock > 0 {
				head, err := client.HeadDistance(gctx, uint64(*network.LatestSyncedBlock))
				if err != nil {
					logger.Warn("rpc head distance", zap.Uint32("network", network.ID), zap.Error(err))
				} else {
					row.RPCDistance = &head
				}
			}
			rows[i] = row
			return nil
		})
	}
	_ = g.Wait()

	if cfg.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), rows)
	}
	return writeSyncTable(cmd.OutOrStdout(), rows)
}

func writeSyncTable(w io.Writer, rows []syncRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNETWORK\tSTATUS\tBLOCK\tRPC DISTANCE")
	for _, row := range rows {
		rpcDistance := "-"
		if row.RPCDistance != nil {
			rpcDistance = fmt.Sprint(*row.RPCDistance)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", row.Network, row.Name, row.Status, row.BlockStatus, rpcDistance)
	}
	return tw.Flush()
}
