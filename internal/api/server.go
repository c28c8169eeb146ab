// Package api exposes reconciliation views and indexer statistics over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bridgeScope/internal/model"
	"bridgeScope/internal/reconcile"
)

// Indexer is the subset of the indexer client used by the statistics
// endpoints.
type Indexer interface {
	Networks(ctx context.Context) ([]model.RollupNetwork, error)
	SyncDistance(ctx context.Context, network uint32) (uint64, error)
	FlowCounts(ctx context.Context, chainID uint32) ([]model.FlowCount, error)
	BridgeCounts(ctx context.Context) ([]model.EventCount, error)
	ClaimCounts(ctx context.Context) ([]model.EventCount, error)
	BridgeEvents(ctx context.Context, chainID uint32, limit int) ([]model.BridgeEvent, error)
	LatestBridges(ctx context.Context, limit int) ([]model.BridgeEvent, error)
}

// Config configures the HTTP server.
type Config struct {
	CORSOrigins []string
	// WaitTimeout bounds ?wait=true requests.
	WaitTimeout time.Duration
}

// Server routes HTTP requests to the session manager and the indexer.
type Server struct {
	cfg      Config
	sessions *reconcile.Manager
	indexer  Indexer
	logger   *zap.Logger
	engine   *gin.Engine
}

func NewServer(cfg Config, sessions *reconcile.Manager, indexer Indexer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		indexer:  indexer,
		logger:   logger,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(s.cfg.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))
	router.Use(requestLogger(s.logger))
	router.Use(gin.Recovery())

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/networks", s.listNetworks)
	networks := router.Group("/networks/:id", parseNetwork)
	{
		networks.GET("/tokens", s.listTokens)
		networks.GET("/summary", s.summary)
		networks.POST("/refetch", s.refetch)
		networks.GET("/flows", s.flows)
		networks.GET("/top-bridgers", s.topBridgers)
	}

	router.GET("/stats/counts", s.counts)
	router.GET("/bridges/latest", s.latestBridges)
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
			return
		}
		logger.Debug("http request", fields...)
	}
}
