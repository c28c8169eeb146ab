package indexer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgeScope/internal/cache"
	"bridgeScope/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*ClientConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := ClientConfig{
		BaseURL:      srv.URL,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(ClientConfig{}, nil)
	assert.Error(t, err)
	_, err = NewClient(ClientConfig{BaseURL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestWrappedTokens(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/table/new_wrapped_token_events/filter", r.URL.Path)
		assert.Equal(t, "0", r.URL.Query().Get("originNetwork"))
		_, _ = w.Write([]byte(`{"data":[
			{"originNetwork":0,"originTokenAddress":"0xA","wrappedTokenAddress":"0xW1","rollup_id":1,"metadata":"0x"},
			{"originNetwork":"bad"},
			{"originNetwork":0,"originTokenAddress":"0xA","wrappedTokenAddress":"0xW2","rollup_id":2,"metadata":"0x"}
		]}`))
	}, nil)

	mappings, err := client.WrappedTokens(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, "0xW2", mappings[1].WrappedTokenAddress)
	assert.Equal(t, uint32(2), mappings[1].RollupID)
}

func TestBalances(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("rollup_id"))
		assert.Equal(t, "0xT", r.URL.Query().Get("token_address"))
		switch r.URL.Path {
		case "/bridge_balance":
			_, _ = w.Write([]byte(`{"balance_bridge":"1000000000000000000"}`))
		case "/wrapped_balance":
			_, _ = w.Write([]byte(`{"circulating_supply":300000000000000000}`))
		default:
			http.NotFound(w, r)
		}
	}, nil)

	asset, err := client.AssetBalance(context.Background(), 7, "0xT")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", asset)

	liability, err := client.LiabilityBalance(context.Background(), 7, "0xT")
	require.NoError(t, err)
	assert.Equal(t, "300000000000000000", liability)
}

func TestBalanceErrorPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Missing rollup_id parameter"}`))
	}, nil)

	_, err := client.AssetBalance(context.Background(), 1, "0xT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexer))
}

func TestBalanceNotRetried(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	_, err := client.LiabilityBalance(context.Background(), 1, "0xT")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusInternalServerError, status.Code)
}

func TestListRetriedOnServerError(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"rollup_id":1,"network_name":"zkEVM","latest_bridge_synced_block":42}]`))
	}, nil)

	networks, err := client.Networks(context.Background())
	require.NoError(t, err)
	require.Len(t, networks, 1)
	assert.Equal(t, "zkEVM", networks[0].Name)
	require.NotNil(t, networks[0].LatestSyncedBlock)
	assert.Equal(t, int64(42), *networks[0].LatestSyncedBlock)
	assert.Equal(t, int32(3), hits.Load())
}

func TestListNotRetriedOnClientError(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	_, err := client.Networks(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCacheAndInvalidate(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"balance_bridge":"5"}`))
	}, func(cfg *ClientConfig) {
		cfg.Cache = cache.NewMemoryStore(time.Minute)
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := client.AssetBalance(ctx, 1, "0xT")
		require.NoError(t, err)
		assert.Equal(t, "5", got)
	}
	assert.Equal(t, int32(1), hits.Load())

	require.NoError(t, client.Invalidate(ctx))
	_, err := client.AssetBalance(ctx, 1, "0xT")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSyncDistanceBypassesCache(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sync/3", r.URL.Path)
		hits.Add(1)
		_, _ = w.Write([]byte(`{"distance":12}`))
	}, func(cfg *ClientConfig) {
		cfg.Cache = cache.NewMemoryStore(time.Minute)
	})

	for i := 0; i < 2; i++ {
		distance, err := client.SyncDistance(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(12), distance)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestFlowAndEventCounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if strings.HasPrefix(q, "WITH") {
			_, _ = w.Write([]byte(`[{"source":0,"target":1,"value":9},{"source":1,"target":0,"value":4}]`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"network":0,"count":12}]}`))
	}, nil)

	flows, err := client.FlowCounts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, uint64(9), flows[0].Value)

	counts, err := client.BridgeCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, uint64(12), counts[0].Count)
}

func TestRateLimitHonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distance":0}`))
	}, func(cfg *ClientConfig) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})

	_, err := client.SyncDistance(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.SyncDistance(ctx, 1)
	assert.Error(t, err)
}

func TestBridgeEventQueries(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("q"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"data":[` +
			`{"originNetwork":1,"destinationNetwork":0,"originAddress":"0xAbC","block_number":90,"transaction_hash":"0x1","amount":"1000000000000000000000000"},` +
			`{"originNetwork":0,"destinationNetwork":1,"block_number":80,"transaction_hash":"0x2","amount":42},` +
			`{"originNetwork":"bad"}]}`))
	}, nil)

	events, err := client.BridgeEvents(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "0xAbC", events[0].OriginAddress)
	assert.Equal(t, model.Quantity("1000000000000000000000000"), events[0].Amount)
	assert.Equal(t, model.Quantity("42"), events[1].Amount)
	assert.Equal(t, uint64(80), events[1].BlockNumber)

	_, err = client.LatestBridges(context.Background(), 0)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "originNetwork = 1 OR destinationNetwork = 1")
	assert.Contains(t, queries[0], "LIMIT 5000")
	assert.Contains(t, queries[1], "ORDER BY block_number DESC LIMIT 20")
}
