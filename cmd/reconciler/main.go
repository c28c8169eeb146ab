package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "reconciler",
		Short:        "Cross-chain bridge reconciliation",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile one network and print the result",
		RunE:  runReconcile,
	}
	addSourceFlags(runCmd.Flags())
	runCmd.Flags().String("out", "", "append the snapshot to this JSONL file")
	runCmd.Flags().String("pg-dsn", "", "upsert the snapshot to Postgres")
	runCmd.Flags().String("format", "table", "output format (table, json)")
	root.AddCommand(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reconciliation views over HTTP",
		RunE:  runServe,
	}
	addSourceFlags(serveCmd.Flags())
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().StringSlice("cors-origin", nil, "allowed CORS origins (default all)")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	root.AddCommand(serveCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Show the indexer sync state of every network",
		RunE:  runSync,
	}
	addSourceFlags(syncCmd.Flags())
	syncCmd.Flags().String("format", "table", "output format (table, json)")
	root.AddCommand(syncCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSourceFlags(flags *pflag.FlagSet) {
	flags.String("indexer", "", "indexer base URL")
	flags.Uint32("network", 0, "viewed (origin) network id")
	flags.Duration("request-timeout", 15*time.Second, "indexer request timeout")
	flags.Duration("fetch-timeout", 20*time.Second, "per balance request timeout")
	flags.Int("max-retries", 3, "maximum retry attempts for list requests")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Float64("rate-limit", 0, "indexer requests per second (0 disables)")
	flags.Int("rate-burst", 10, "indexer request burst")
	flags.String("cache", "memory", "response cache (memory, redis, none)")
	flags.Duration("cache-ttl", 300*time.Second, "response cache TTL")
	flags.String("redis-addr", "", "redis address for the redis cache")
	flags.String("balance-source", "indexer", "balance source (indexer, chain)")
	flags.String("rpc", "", "RPC endpoints per network (comma-separated id=url)")
	flags.String("bridge-address", "", "bridge contract address for the chain source")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
