package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation pipeline counters, partitioned by viewed network.

var (
	// Balance fetcher
	BalanceFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridgescope",
		Subsystem: "fetcher",
		Name:      "balance_requests_total",
		Help:      "Balance requests by kind (asset, liability) and outcome (ok, failed)",
	}, []string{"network", "kind", "outcome"})

	BalanceFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bridgescope",
		Subsystem: "fetcher",
		Name:      "balance_request_duration_seconds",
		Help:      "Balance request duration",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"network", "kind"})

	// Session
	CyclesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridgescope",
		Subsystem: "session",
		Name:      "cycles_started_total",
		Help:      "Load cycles started",
	}, []string{"network"})

	CycleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridgescope",
		Subsystem: "session",
		Name:      "cycle_errors_total",
		Help:      "Load cycles that failed to fetch the mapping list",
	}, []string{"network"})

	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bridgescope",
		Subsystem: "session",
		Name:      "cycle_duration_seconds",
		Help:      "Time from dispatch until every token completed",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"network"})

	StaleEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridgescope",
		Subsystem: "session",
		Name:      "stale_events_total",
		Help:      "Fetch results discarded because a newer cycle started",
	}, []string{"network"})

	TokensTracked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bridgescope",
		Subsystem: "session",
		Name:      "tokens",
		Help:      "Grouped tokens in the current view",
	}, []string{"network"})

	TokensUnbalanced = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bridgescope",
		Subsystem: "session",
		Name:      "tokens_unbalanced",
		Help:      "Completed tokens whose liabilities exceed assets",
	}, []string{"network"})

	// Indexer client
	IndexerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridgescope",
		Subsystem: "indexer",
		Name:      "requests_total",
		Help:      "Indexer HTTP requests by endpoint and outcome (ok, error, cached)",
	}, []string{"endpoint", "outcome"})
)
