package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
)

// BalanceSource resolves base-unit balances. AssetBalance is keyed by the
// origin network and token, LiabilityBalance by the network holding the
// wrapped token and its address.
type BalanceSource interface {
	AssetBalance(ctx context.Context, network uint32, token string) (string, error)
	LiabilityBalance(ctx context.Context, network uint32, wrapped string) (string, error)
}

const (
	kindAsset     = "asset"
	kindLiability = "liability"
)

// Fetcher issues the balance requests of a token. Every request resolves
// exactly once: failures resolve to zero with the failed flag set and are
// never retried.
type Fetcher struct {
	source  BalanceSource
	network string
	timeout time.Duration
	logger  *zap.Logger
}

func NewFetcher(source BalanceSource, network uint32, timeout time.Duration, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		source:  source,
		network: fmt.Sprint(network),
		timeout: timeout,
		logger:  logger,
	}
}

// Fetch requests the asset and every liability of tok concurrently, emitting
// one event per completed request. It returns once all requests resolved.
func (f *Fetcher) Fetch(ctx context.Context, generation string, tok model.GroupedTokenStat, emit func(Event)) {
	var g errgroup.Group

	g.Go(func() error {
		value, failed := f.call(ctx, kindAsset, tok.OriginNetworkID, tok.OriginTokenAddress, f.source.AssetBalance)
		emit(AssetResolved{Generation: generation, Key: tok.Key, Amount: value, Failed: failed})
		return nil
	})

	for i, entry := range tok.Liabilities {
		g.Go(func() error {
			value, failed := f.call(ctx, kindLiability, entry.NetworkID, entry.WrappedTokenAddress, f.source.LiabilityBalance)
			emit(LiabilityResolved{Generation: generation, Key: tok.Key, Index: i, Amount: value, Failed: failed})
			return nil
		})
	}

	_ = g.Wait()
}

func (f *Fetcher) call(
	ctx context.Context,
	kind string,
	network uint32,
	address string,
	fn func(context.Context, uint32, string) (string, error),
) (value string, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("balance source panicked",
				zap.String("kind", kind),
				zap.Uint32("network", network),
				zap.String("address", address),
				zap.Any("panic", r),
			)
			metrics.BalanceFetchTotal.WithLabelValues(f.network, kind, "failed").Inc()
			value, failed = "0", true
		}
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	value, err := fn(ctx, network, address)
	metrics.BalanceFetchLatency.WithLabelValues(f.network, kind).Observe(time.Since(start).Seconds())
	if err != nil {
		f.logger.Warn("balance fetch failed",
			zap.String("kind", kind),
			zap.Uint32("network", network),
			zap.String("address", address),
			zap.Error(err),
		)
		metrics.BalanceFetchTotal.WithLabelValues(f.network, kind, "failed").Inc()
		return "0", true
	}
	metrics.BalanceFetchTotal.WithLabelValues(f.network, kind, "ok").Inc()
	return value, false
}
