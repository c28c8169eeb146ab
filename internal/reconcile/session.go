package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/token"
)

var (
	// ErrMappingsUnavailable is returned when the mapping list of a network
	// cannot be fetched. The view then carries no tokens.
	ErrMappingsUnavailable = errors.New("wrapped token mappings unavailable")
	ErrSessionClosed       = errors.New("session closed")
)

// DefaultMappingTimeout bounds a mapping fetch when SessionConfig leaves it
// unset.
const DefaultMappingTimeout = 30 * time.Second

// MappingSource lists the wrapped-token mappings originating on a network.
type MappingSource interface {
	WrappedTokens(ctx context.Context, originNetwork uint32) ([]model.WrappedTokenMapping, error)
}

type invalidator interface {
	Invalidate(ctx context.Context) error
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Network      uint32
	FetchTimeout time.Duration
	// MappingTimeout bounds the mapping fetch of a load cycle.
	MappingTimeout time.Duration
	// Buffer is the channel size handed out by Subscribe.
	Buffer int
}

// View is what a consumer renders: the latest state of a network.
type View struct {
	Generation string                      `json:"generation"`
	Network    uint32                      `json:"network"`
	Tokens     []model.GroupedTokenStat    `json:"tokens"`
	Summary    model.ReconciliationSummary `json:"summary"`
	Error      string                      `json:"error,omitempty"`
	Loading    bool                        `json:"loading"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// Session reconciles one viewed network. Every fetch result is reduced into
// the state as soon as it arrives and published to subscribers.
type Session struct {
	cfg      SessionConfig
	mappings MappingSource
	balances BalanceSource
	fetcher  *Fetcher
	logger   *zap.Logger
	label    string

	baseCtx context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	state     State
	err       error
	done      chan struct{}
	started   time.Time
	updatedAt time.Time
	subs      map[int]chan View
	nextSub   int
	closed    bool
	// grouping is set while the mapping fetch of the current cycle runs.
	grouping bool
}

func NewSession(cfg SessionConfig, mappings MappingSource, balances BalanceSource, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 16
	}
	if cfg.MappingTimeout <= 0 {
		cfg.MappingTimeout = DefaultMappingTimeout
	}
	logger = logger.With(zap.Uint32("network", cfg.Network))
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		cfg:      cfg,
		mappings: mappings,
		balances: balances,
		fetcher:  NewFetcher(balances, cfg.Network, cfg.FetchTimeout, logger),
		logger:   logger,
		label:    fmt.Sprint(cfg.Network),
		baseCtx:  ctx,
		cancel:   cancel,
		state:    NewState("", nil),
		subs:     make(map[int]chan View),
	}
}

// Load starts a load cycle: it marks the view loading, fetches and groups
// the mappings, publishes the grouped tokens and dispatches every balance
// request. It returns once the requests are dispatched. The mapping fetch
// outlives a canceled ctx and is bounded by MappingTimeout; closing the
// session aborts it.
func (s *Session) Load(ctx context.Context) error {
	generation, done, err := s.begin()
	if err != nil {
		return err
	}
	return s.load(ctx, generation, done)
}

// begin opens a new generation. Tokens of the previous cycle stay listed as
// pending with their amounts discarded until the new grouping replaces them.
func (s *Session) begin() (string, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, ErrSessionClosed
	}

	generation := uuid.NewString()
	done := make(chan struct{})
	s.state = NewState(generation, pendingTokens(s.state.Tokens))
	s.err = nil
	s.done = done
	s.grouping = true
	s.started = time.Now()
	s.publishLocked()
	return generation, done, nil
}

func (s *Session) load(ctx context.Context, generation string, done chan struct{}) error {
	metrics.CyclesStarted.WithLabelValues(s.label).Inc()

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.MappingTimeout)
	defer cancel()
	stop := context.AfterFunc(s.baseCtx, cancel)
	defer stop()

	mappings, err := s.mappings.WrappedTokens(loadCtx, s.cfg.Network)

	s.mu.Lock()
	if s.closed || s.state.Generation != generation {
		closed := s.closed
		s.mu.Unlock()
		close(done)
		if closed {
			return ErrSessionClosed
		}
		return nil
	}

	if err != nil {
		metrics.CycleErrors.WithLabelValues(s.label).Inc()
		err = fmt.Errorf("%w: %v", ErrMappingsUnavailable, err)
		s.state = NewState(generation, nil)
		s.err = err
		s.grouping = false
		s.publishLocked()
		s.mu.Unlock()
		close(done)

		s.logger.Error("load mappings", zap.String("generation", generation), zap.Error(err))
		return err
	}

	tokens := token.Group(mappings, s.cfg.Network)
	s.state, _ = Reduce(s.state, GroupingReset{Generation: generation, Tokens: tokens})
	s.grouping = false
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Info("load cycle start",
		zap.String("generation", generation),
		zap.Int("mappings", len(mappings)),
		zap.Int("tokens", len(tokens)),
	)

	go s.dispatch(generation, tokens, done)
	return nil
}

// Refetch drops cached responses and starts a new cycle. Results of the
// previous cycle that arrive later are discarded.
func (s *Session) Refetch(ctx context.Context) error {
	for _, source := range []any{s.mappings, s.balances} {
		if inv, ok := source.(invalidator); ok {
			if err := inv.Invalidate(ctx); err != nil {
				s.logger.Warn("invalidate cache", zap.Error(err))
			}
		}
	}
	return s.Load(ctx)
}

func (s *Session) dispatch(generation string, tokens []model.GroupedTokenStat, done chan struct{}) {
	defer close(done)

	var g errgroup.Group
	for _, tok := range tokens {
		g.Go(func() error {
			s.fetcher.Fetch(s.baseCtx, generation, tok, s.apply)
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Generation != generation {
		return
	}
	elapsed := time.Since(s.started)
	metrics.CycleDuration.WithLabelValues(s.label).Observe(elapsed.Seconds())
	summary := Summarize(s.state.Tokens)
	s.logger.Info("load cycle complete",
		zap.String("generation", generation),
		zap.Int("tokens", summary.TotalTokens),
		zap.Int("balanced", summary.BalancedTokens),
		zap.String("total_assets", summary.TotalAssets.String()),
		zap.String("total_liabilities", summary.TotalLiabilities.String()),
		zap.Duration("elapsed", elapsed),
	)
}

func (s *Session) apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := Reduce(s.state, ev)
	if !changed {
		if ev.generation() != s.state.Generation {
			metrics.StaleEventsDropped.WithLabelValues(s.label).Inc()
		}
		return
	}
	s.state = next
	s.publishLocked()
}

// Snapshot returns the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Subscribe returns a channel receiving every published view, starting with
// the current one. A slow reader only misses intermediate views; the latest
// one is always delivered.
func (s *Session) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View, s.cfg.Buffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.viewLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Wait blocks until the current cycle has settled: every request resolved
// or the mapping fetch failed. A cycle superseded while waiting is followed
// to its successor.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		done, err := s.done, s.err
		s.mu.Unlock()
		if done == nil {
			return err
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.Lock()
		same := s.done == done
		err = s.err
		s.mu.Unlock()
		if same {
			return err
		}
	}
}

// Close stops in-flight requests and closes subscriber channels.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) viewLocked() View {
	tokens := make([]model.GroupedTokenStat, len(s.state.Tokens))
	loading := false
	for i, tok := range s.state.Tokens {
		tokens[i] = tok.Clone()
		if tok.Loading() {
			loading = true
		}
	}
	view := View{
		Generation: s.state.Generation,
		Network:    s.cfg.Network,
		Tokens:     tokens,
		Summary:    Summarize(tokens),
		Loading:    loading,
		UpdatedAt:  s.updatedAt,
	}
	if s.grouping {
		view.Loading = true
		view.Summary.AllLoaded = false
	}
	if s.err != nil {
		view.Error = s.err.Error()
	}
	return view
}

func (s *Session) publishLocked() {
	s.updatedAt = time.Now()
	view := s.viewLocked()

	metrics.TokensTracked.WithLabelValues(s.label).Set(float64(view.Summary.TotalTokens))
	metrics.TokensUnbalanced.WithLabelValues(s.label).Set(float64(view.Summary.LoadedTokens - view.Summary.BalancedTokens))

	for _, ch := range s.subs {
		select {
		case ch <- view:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- view:
		default:
		}
	}
}
