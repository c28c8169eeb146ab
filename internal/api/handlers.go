package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"bridgeScope/internal/amount"
	"bridgeScope/internal/analytics"
	"bridgeScope/internal/indexer"
	"bridgeScope/internal/model"
	"bridgeScope/internal/reconcile"
)

const networkKey = "network"

// syncLookups bounds concurrent sync-distance requests.
const syncLookups = 8

type errorResponse struct {
	Error string `json:"error"`
}

type networkResponse struct {
	analytics.SyncState
	BlockStatus string `json:"block_status"`
}

type entryRow struct {
	Network             uint32 `json:"network"`
	WrappedTokenAddress string `json:"wrapped_token_address"`
	Amount              string `json:"amount"`
	Resolved            bool   `json:"resolved"`
	Failed              bool   `json:"failed"`
}

type tokenRow struct {
	Key                string     `json:"key"`
	Name               string     `json:"name"`
	Symbol             string     `json:"symbol"`
	Decimals           uint8      `json:"decimals"`
	OriginNetwork      uint32     `json:"origin_network"`
	OriginTokenAddress string     `json:"origin_token_address"`
	State              string     `json:"state"`
	Assets             string     `json:"assets"`
	TotalLiabilities   string     `json:"total_liabilities"`
	Difference         string     `json:"difference"`
	IsBalanced         bool       `json:"is_balanced"`
	FailedFetches      int        `json:"failed_fetches"`
	Entries            []entryRow `json:"entries"`
}

type summaryResponse struct {
	Generation       string  `json:"generation"`
	Network          uint32  `json:"network"`
	TotalAssets      string  `json:"total_assets"`
	TotalLiabilities string  `json:"total_liabilities"`
	Difference       string  `json:"difference"`
	LoadedTokens     int     `json:"loaded_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	BalancedTokens   int     `json:"balanced_tokens"`
	AllLoaded        bool    `json:"all_loaded"`
	Progress         float64 `json:"progress"`
	Loading          bool    `json:"loading"`
	Error            string  `json:"error,omitempty"`
}

type tokensResponse struct {
	summaryResponse
	Page   int        `json:"page"`
	Pages  int        `json:"pages"`
	Tokens []tokenRow `json:"tokens"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseNetwork(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid network id"})
		return
	}
	c.Set(networkKey, uint32(id))
	c.Next()
}

func (s *Server) listNetworks(c *gin.Context) {
	ctx := c.Request.Context()
	networks, err := s.indexer.Networks(ctx)
	if err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}

	out := make([]networkResponse, len(networks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncLookups)
	for i, network := range networks {
		g.Go(func() error {
			distance, err := s.indexer.SyncDistance(gctx, network.ID)
			out[i] = networkResponse{
				SyncState:   analytics.NewSyncState(network, distance, err),
				BlockStatus: analytics.BlockStatus(network),
			}
			return nil
		})
	}
	_ = g.Wait()

	c.JSON(http.StatusOK, out)
}

func (s *Server) listTokens(c *gin.Context) {
	view, ok := s.view(c)
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", analytics.DefaultPageSize)
	tokens, pages := analytics.Paginate(view.Tokens, page, perPage)

	rows := make([]tokenRow, 0, len(tokens))
	for _, tok := range tokens {
		rows = append(rows, newTokenRow(tok))
	}
	c.JSON(http.StatusOK, tokensResponse{
		summaryResponse: newSummary(view),
		Page:            page,
		Pages:           pages,
		Tokens:          rows,
	})
}

func (s *Server) summary(c *gin.Context) {
	view, ok := s.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSummary(view))
}

func (s *Server) refetch(c *gin.Context) {
	network := c.MustGet(networkKey).(uint32)
	ctx := c.Request.Context()

	session, err := s.sessions.Refetch(ctx, network)
	if errors.Is(err, reconcile.ErrSessionClosed) {
		s.fail(c, http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusAccepted, newSummary(session.Snapshot()))
}

func (s *Server) flows(c *gin.Context) {
	network := c.MustGet(networkKey).(uint32)
	rows, err := s.indexer.FlowCounts(c.Request.Context(), network)
	if err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, analytics.SplitFlows(rows, network))
}

func (s *Server) counts(c *gin.Context) {
	var (
		networks []model.RollupNetwork
		bridges  []model.EventCount
		claims   []model.EventCount
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		networks, err = s.indexer.Networks(ctx)
		return err
	})
	g.Go(func() (err error) {
		bridges, err = s.indexer.BridgeCounts(ctx)
		return err
	})
	g.Go(func() (err error) {
		claims, err = s.indexer.ClaimCounts(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, analytics.MergeCounts(networks, bridges, claims))
}

const (
	maxTopBridgers   = 100
	maxLatestBridges = 500
)

func (s *Server) topBridgers(c *gin.Context) {
	network := c.MustGet(networkKey).(uint32)
	limit := min(max(queryInt(c, "limit", analytics.DefaultTopBridgers), 1), maxTopBridgers)
	events, err := s.indexer.BridgeEvents(c.Request.Context(), network, indexer.DefaultEventLimit)
	if err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, analytics.TopBridgers(events, network, limit))
}

func (s *Server) latestBridges(c *gin.Context) {
	limit := min(max(queryInt(c, "limit", indexer.DefaultLatestLimit), 1), maxLatestBridges)
	var (
		networks []model.RollupNetwork
		events   []model.BridgeEvent
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		networks, err = s.indexer.Networks(ctx)
		return err
	})
	g.Go(func() (err error) {
		events, err = s.indexer.LatestBridges(ctx, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, analytics.LatestBridges(events, networks, limit))
}

// view returns the session view of the requested network, loading it on
// first use. With ?wait=true it blocks until the cycle has resolved.
func (s *Server) view(c *gin.Context) (reconcile.View, bool) {
	network := c.MustGet(networkKey).(uint32)
	ctx := c.Request.Context()

	session, err := s.sessions.Session(ctx, network)
	if session == nil || errors.Is(err, reconcile.ErrSessionClosed) {
		s.fail(c, http.StatusServiceUnavailable, err)
		return reconcile.View{}, false
	}
	if err != nil {
		_ = c.Error(err)
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		waitCtx, cancel := context.WithTimeout(ctx, s.cfg.WaitTimeout)
		defer cancel()
		if err := session.Wait(waitCtx); err != nil && !errors.Is(err, reconcile.ErrMappingsUnavailable) {
			s.fail(c, http.StatusGatewayTimeout, err)
			return reconcile.View{}, false
		}
	}
	return session.Snapshot(), true
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		_ = c.Error(err)
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func newSummary(view reconcile.View) summaryResponse {
	sum := view.Summary
	return summaryResponse{
		Generation:       view.Generation,
		Network:          view.Network,
		TotalAssets:      amount.FormatDecimal(sum.TotalAssets, amount.DefaultPrecision),
		TotalLiabilities: amount.FormatDecimal(sum.TotalLiabilities, amount.DefaultPrecision),
		Difference:       amount.FormatDecimal(sum.Difference, amount.DefaultPrecision),
		LoadedTokens:     sum.LoadedTokens,
		TotalTokens:      sum.TotalTokens,
		BalancedTokens:   sum.BalancedTokens,
		AllLoaded:        sum.AllLoaded,
		Progress:         sum.Progress(),
		Loading:          view.Loading,
		Error:            view.Error,
	}
}

func newTokenRow(tok model.GroupedTokenStat) tokenRow {
	entries := make([]entryRow, 0, len(tok.Liabilities))
	for _, entry := range tok.Liabilities {
		entries = append(entries, entryRow{
			Network:             entry.NetworkID,
			WrappedTokenAddress: entry.WrappedTokenAddress,
			Amount:              amount.FormatTokenAmount(entry.Amount, int(tok.Decimals), amount.DefaultPrecision),
			Resolved:            entry.Resolved,
			Failed:              entry.Failed,
		})
	}
	return tokenRow{
		Key:                tok.Key,
		Name:               tok.Name,
		Symbol:             tok.Symbol,
		Decimals:           tok.Decimals,
		OriginNetwork:      tok.OriginNetworkID,
		OriginTokenAddress: tok.OriginTokenAddress,
		State:              string(tok.State),
		Assets:             amount.FormatDecimal(reconcile.AssetValue(tok), amount.DefaultPrecision),
		TotalLiabilities:   amount.FormatDecimal(tok.TotalLiabilities, amount.DefaultPrecision),
		Difference:         amount.FormatDecimal(tok.Difference, amount.DefaultPrecision),
		IsBalanced:         tok.IsBalanced,
		FailedFetches:      tok.FailedFetches(),
		Entries:            entries,
	}
}
