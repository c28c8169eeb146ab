package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bridgeScope/internal/cache"
	"bridgeScope/internal/chain"
	"bridgeScope/internal/config"
	"bridgeScope/internal/indexer"
	"bridgeScope/internal/reconcile"
	"bridgeScope/internal/storage"
	"bridgeScope/internal/storage/postgres"
)

type sources struct {
	indexer  *indexer.Client
	balances reconcile.BalanceSource
	closers  []func()
}

func (s *sources) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildSources(ctx context.Context, cfg config.Config, logger *zap.Logger) (*sources, error) {
	out := &sources{}

	store, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		out.closers = append(out.closers, func() { _ = closer.Close() })
	}

	client, err := indexer.NewClient(indexer.ClientConfig{
		BaseURL:      cfg.IndexerURL,
		Timeout:      cfg.RequestTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RateLimit,
		RateBurst:    cfg.RateBurst,
		Cache:        store,
		CacheTTL:     cfg.CacheTTL,
	}, logger)
	if err != nil {
		out.Close()
		return nil, err
	}
	out.indexer = client
	out.balances = client

	if cfg.BalanceSource == config.SourceChain {
		bridge, err := chain.ParseAddress(cfg.BridgeAddress)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("bridge address: %w", err)
		}
		clients, err := chain.Dial(ctx, cfg.RPC)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.closers = append(out.closers, func() { chain.CloseAll(clients) })

		reader, err := chain.NewBalanceReader(clients, bridge, logger)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.balances = reader
	}

	logger.Info("sources ready",
		zap.String("indexer", cfg.IndexerURL),
		zap.String("cache", cfg.CacheBackend),
		zap.String("balance_source", cfg.BalanceSource),
	)
	return out, nil
}

func newCache(ctx context.Context, cfg config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		return nil, nil
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return cache.NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		return cache.NewMemoryStore(cfg.CacheTTL), nil
	}
}

func buildSinks(ctx context.Context, cfg config.Config) (storage.Multi, func(), error) {
	var sinks storage.Multi
	closeAll := func() {}

	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, closeAll, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, closeAll, err
		}
		sinks = append(sinks, store)
		closeAll = store.Close
	}
	return sinks, closeAll, nil
}
