// Package indexer is the client of the bridge event indexing service.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bridgeScope/internal/cache"
	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
)

// ClientConfig controls transport behavior of the indexer client.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// RateLimit is the request rate in requests per second; 0 disables it.
	RateLimit float64
	RateBurst int
	Cache     cache.Store
	CacheTTL  time.Duration
}

// StatusError is a non-2xx indexer response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("indexer status %d: %s", e.Code, e.Body)
}

type requestOpts struct {
	retry bool
	cache bool
}

var (
	listRequest    = requestOpts{retry: true, cache: true}
	balanceRequest = requestOpts{retry: false, cache: true}
	liveRequest    = requestOpts{retry: false, cache: false}
)

// Client talks to the indexer HTTP API.
type Client struct {
	cfg     ClientConfig
	http    *fasthttp.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("indexer url is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid indexer url: %s", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    &fasthttp.Client{Name: "bridgescope"},
		limiter: limiter,
		logger:  logger.Named("indexer"),
	}, nil
}

// Networks lists the rollups known to the indexer.
func (c *Client) Networks(ctx context.Context) ([]model.RollupNetwork, error) {
	res, err := c.get(ctx, "rollups", "/table/rollups", nil, listRequest)
	if err != nil {
		return nil, err
	}
	networks, skipped := decodeRows[model.RollupNetwork](res)
	if skipped > 0 {
		c.logger.Warn("skipped malformed rollup rows", zap.Int("skipped", skipped))
	}
	return networks, nil
}

// WrappedTokens lists the wrapped-token mappings whose origin is the given
// network.
func (c *Client) WrappedTokens(ctx context.Context, originNetwork uint32) ([]model.WrappedTokenMapping, error) {
	params := url.Values{}
	params.Set("originNetwork", formatNetwork(originNetwork))
	res, err := c.get(ctx, "wrapped_tokens", "/table/new_wrapped_token_events/filter", params, listRequest)
	if err != nil {
		return nil, err
	}
	mappings, skipped := decodeRows[model.WrappedTokenMapping](res)
	if skipped > 0 {
		c.logger.Warn("skipped malformed wrapped token rows",
			zap.Uint32("origin_network", originNetwork),
			zap.Int("skipped", skipped),
		)
	}
	return mappings, nil
}

// AssetBalance returns the bridge-escrowed balance of token on network in
// base units.
func (c *Client) AssetBalance(ctx context.Context, network uint32, token string) (string, error) {
	return c.balance(ctx, "bridge_balance", "/bridge_balance", "balance_bridge", network, token)
}

// LiabilityBalance returns the circulating supply of a wrapped token on
// network in base units.
func (c *Client) LiabilityBalance(ctx context.Context, network uint32, wrapped string) (string, error) {
	return c.balance(ctx, "wrapped_balance", "/wrapped_balance", "circulating_supply", network, wrapped)
}

func (c *Client) balance(ctx context.Context, endpoint, path, field string, network uint32, token string) (string, error) {
	params := url.Values{}
	params.Set("rollup_id", formatNetwork(network))
	params.Set("token_address", token)
	res, err := c.get(ctx, endpoint, path, params, balanceRequest)
	if err != nil {
		return "", err
	}
	return amountField(res, field)
}

// SyncDistance returns how many blocks the indexer trails the network head.
func (c *Client) SyncDistance(ctx context.Context, network uint32) (uint64, error) {
	res, err := c.get(ctx, "sync", "/sync/"+formatNetwork(network), nil, liveRequest)
	if err != nil {
		return 0, err
	}
	raw, err := amountField(res, "distance")
	if err != nil {
		return 0, err
	}
	distance, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: distance %q", ErrIndexer, raw)
	}
	return distance, nil
}

// Query runs an ad-hoc SQL statement on the indexer.
func (c *Client) Query(ctx context.Context, sql string) (Result, error) {
	params := url.Values{}
	params.Set("q", sql)
	return c.get(ctx, "query", "/query", params, listRequest)
}

// Invalidate drops every cached response.
func (c *Client) Invalidate(ctx context.Context) error {
	if c.cfg.Cache == nil {
		return nil
	}
	return c.cfg.Cache.Flush(ctx)
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, opts requestOpts) (Result, error) {
	requestURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	if opts.cache && c.cfg.Cache != nil {
		body, ok, err := c.cfg.Cache.Get(ctx, requestURL)
		if err != nil {
			c.logger.Warn("cache read failed", zap.String("url", requestURL), zap.Error(err))
		} else if ok {
			if res, err := decodeResult(body); err == nil {
				metrics.IndexerRequests.WithLabelValues(endpoint, "cached").Inc()
				return res, nil
			}
		}
	}

	var body []byte
	do := func(ctx context.Context) error {
		var err error
		body, err = c.do(ctx, requestURL)
		if err != nil {
			c.logger.Debug("indexer request failed", zap.String("url", requestURL), zap.Error(err))
			var status *StatusError
			if errors.As(err, &status) && status.Code < 500 && status.Code != fasthttp.StatusTooManyRequests {
				return permanent(err)
			}
		}
		return err
	}

	var err error
	if opts.retry {
		err = withRetry(ctx, c.cfg.MaxRetries, c.cfg.RetryBackoff, do)
	} else {
		err = do(ctx)
	}
	if err != nil {
		metrics.IndexerRequests.WithLabelValues(endpoint, "error").Inc()
		return Result{}, fmt.Errorf("%s: %w", endpoint, err)
	}

	res, err := decodeResult(body)
	if err != nil {
		metrics.IndexerRequests.WithLabelValues(endpoint, "error").Inc()
		return Result{}, fmt.Errorf("%s: %w", endpoint, err)
	}
	metrics.IndexerRequests.WithLabelValues(endpoint, "ok").Inc()

	if opts.cache && c.cfg.Cache != nil {
		if err := c.cfg.Cache.Set(ctx, requestURL, body, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("cache write failed", zap.String("url", requestURL), zap.Error(err))
		}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, requestURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(c.cfg.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request %s: %w", requestURL, err)
	}

	body := append([]byte(nil), resp.Body()...)
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &StatusError{Code: code, Body: truncate(string(body), 256)}
	}
	return body, nil
}

func formatNetwork(network uint32) string {
	return strconv.FormatUint(uint64(network), 10)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
