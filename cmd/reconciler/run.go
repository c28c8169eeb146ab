package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bridgeScope/internal/amount"
	"bridgeScope/internal/config"
	"bridgeScope/internal/model"
	"bridgeScope/internal/reconcile"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func runReconcile(cmd *cobra.Command, _ []string) error {
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

	src, err := buildSources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	sinks, closeSinks, err := buildSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	session := reconcile.NewSession(reconcile.SessionConfig{
		Network:      cfg.Network,
		FetchTimeout: cfg.FetchTimeout,
	}, src.indexer, src.balances, logger)
	defer session.Close()

	views, unsubscribe := session.Subscribe()
	defer unsubscribe()
	go logProgress(views, logger)

	logger.Info("reconcile start",
		zap.Uint32("network", cfg.Network),
		zap.String("format", cfg.Format),
	)

	if err := session.Load(ctx); err != nil {
		return err
	}
	if err := session.Wait(ctx); err != nil {
		return err
	}

	view := session.Snapshot()
	snapshot := reconcile.BuildSnapshot(view, time.Now())
	if len(sinks) > 0 {
		if err := sinks.PutSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		logger.Info("snapshot written", zap.String("generation", snapshot.Generation))
	}

	if cfg.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), snapshot)
	}
	return writeTable(cmd.OutOrStdout(), view)
}

func logProgress(views <-chan reconcile.View, logger *zap.Logger) {
	for view := range views {
		logger.Debug("progress",
			zap.String("generation", view.Generation),
			zap.Int("loaded", view.Summary.LoadedTokens),
			zap.Int("total", view.Summary.TotalTokens),
			zap.Bool("loading", view.Loading),
		)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, view reconcile.View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tSYMBOL\tORIGIN\tASSETS\tLIABILITIES\tDIFFERENCE\tSTATUS\tFAILED")
	for _, tok := range view.Tokens {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			tok.Name,
			tok.Symbol,
			tok.OriginTokenAddress,
			amount.Compact(reconcile.AssetValue(tok)),
			amount.Compact(tok.TotalLiabilities),
			amount.FormatDecimal(tok.Difference, amount.DefaultPrecision),
			tokenStatus(tok),
			tok.FailedFetches(),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sum := view.Summary
	fmt.Fprintf(w, "\nassets %s  liabilities %s  difference %s  balanced %d/%d\n",
		amount.Compact(sum.TotalAssets),
		amount.Compact(sum.TotalLiabilities),
		amount.FormatDecimal(sum.Difference, amount.DefaultPrecision),
		sum.BalancedTokens,
		sum.TotalTokens,
	)
	if view.Error != "" {
		fmt.Fprintf(w, "error: %s\n", view.Error)
	}
	return nil
}

func tokenStatus(tok model.GroupedTokenStat) string {
	switch {
	case !tok.Complete():
		return "loading"
	case tok.IsBalanced:
		return "balanced"
	default:
		return "deficit"
	}
}
