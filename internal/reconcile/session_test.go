package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bridgeScope/internal/model"
)

type fakeSource struct {
	mu          sync.Mutex
	mappings    []model.WrappedTokenMapping
	mappingErr  error
	balances    map[string]string
	failing     map[string]bool
	panicking   map[string]bool
	gate        chan struct{}
	mappingGate chan struct{}
	inflight    sync.WaitGroup
	invalidated int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		mappings: []model.WrappedTokenMapping{
			{OriginNetwork: 0, OriginTokenAddress: "0xA", WrappedTokenAddress: "0xWA1", RollupID: 1, Metadata: "0x"},
			{OriginNetwork: 0, OriginTokenAddress: "0xA", WrappedTokenAddress: "0xWA2", RollupID: 2, Metadata: "0x"},
			{OriginNetwork: 0, OriginTokenAddress: "0xB", WrappedTokenAddress: "0xWB1", RollupID: 1, Metadata: "0x"},
		},
		balances: map[string]string{
			"0/0xA":   "1000000000000000000",
			"1/0xWA1": "300000000000000000",
			"2/0xWA2": "400000000000000000",
			"0/0xB":   "500000000000000000",
			"1/0xWB1": "700000000000000000",
		},
		failing:   map[string]bool{},
		panicking: map[string]bool{},
	}
}

func (f *fakeSource) WrappedTokens(ctx context.Context, origin uint32) ([]model.WrappedTokenMapping, error) {
	f.mu.Lock()
	gate := f.mappingGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mappingErr != nil {
		return nil, f.mappingErr
	}
	out := make([]model.WrappedTokenMapping, 0, len(f.mappings))
	for _, m := range f.mappings {
		if m.OriginNetwork == origin {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeSource) AssetBalance(ctx context.Context, network uint32, token string) (string, error) {
	return f.lookup(ctx, network, token)
}

func (f *fakeSource) LiabilityBalance(ctx context.Context, network uint32, wrapped string) (string, error) {
	return f.lookup(ctx, network, wrapped)
}

func (f *fakeSource) lookup(ctx context.Context, network uint32, address string) (string, error) {
	key := fmt.Sprintf("%d/%s", network, address)

	f.mu.Lock()
	value, ok := f.balances[key]
	fail := f.failing[key]
	boom := f.panicking[key]
	gate := f.gate
	f.inflight.Add(1)
	f.mu.Unlock()
	defer f.inflight.Done()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if boom {
		panic("source exploded")
	}
	if fail || !ok {
		return "", errors.New("upstream unavailable")
	}
	return value, nil
}

func (f *fakeSource) Invalidate(context.Context) error {
	f.mu.Lock()
	f.invalidated++
	f.mu.Unlock()
	return nil
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func resolvedFields(view View) int {
	n := 0
	for _, tok := range view.Tokens {
		if tok.AssetResolved {
			n++
		}
		for _, entry := range tok.Liabilities {
			if entry.Resolved {
				n++
			}
		}
	}
	return n
}

func TestSessionLoadReconciles(t *testing.T) {
	src := newFakeSource()
	session := NewSession(SessionConfig{Network: 0}, src, src, zap.NewNop())
	defer session.Close()

	ctx := waitCtx(t)
	require.NoError(t, session.Load(ctx))
	require.NoError(t, session.Wait(ctx))

	view := session.Snapshot()
	require.Len(t, view.Tokens, 2)
	assert.False(t, view.Loading)
	assert.Empty(t, view.Error)

	a := view.Tokens[0]
	assert.Equal(t, "0-0xA", a.Key)
	assert.Equal(t, "0.7", a.TotalLiabilities.String())
	assert.Equal(t, "0.3", a.Difference.String())
	assert.True(t, a.IsBalanced)
	assert.Equal(t, uint32(0), a.Liabilities[0].DestinationNetworkID)

	b := view.Tokens[1]
	assert.Equal(t, "-0.2", b.Difference.String())
	assert.False(t, b.IsBalanced)

	assert.True(t, view.Summary.AllLoaded)
	assert.Equal(t, "1.5", view.Summary.TotalAssets.String())
	assert.Equal(t, "1.4", view.Summary.TotalLiabilities.String())
	assert.Equal(t, 1, view.Summary.BalancedTokens)
}

func TestSessionFailuresResolveToZero(t *testing.T) {
	src := newFakeSource()
	src.failing["2/0xWA2"] = true
	src.panicking["0/0xB"] = true
	session := NewSession(SessionConfig{Network: 0}, src, src, nil)
	defer session.Close()

	ctx := waitCtx(t)
	require.NoError(t, session.Load(ctx))
	require.NoError(t, session.Wait(ctx))

	view := session.Snapshot()
	a := view.Tokens[0]
	assert.Equal(t, model.LoadComplete, a.State)
	assert.True(t, a.Liabilities[1].Failed)
	assert.Equal(t, "0", a.Liabilities[1].Amount)
	assert.Equal(t, "0.3", a.TotalLiabilities.String())

	b := view.Tokens[1]
	assert.True(t, b.AssetFailed)
	assert.Equal(t, "0", b.AssetBalance)
	assert.Equal(t, model.LoadComplete, b.State)
	assert.True(t, view.Summary.AllLoaded)
}

func TestSessionPublishesEachResolution(t *testing.T) {
	src := newFakeSource()
	src.gate = make(chan struct{})
	session := NewSession(SessionConfig{Network: 0, Buffer: 64}, src, src, nil)
	defer session.Close()

	updates, cancel := session.Subscribe()
	defer cancel()

	ctx := waitCtx(t)
	require.NoError(t, session.Load(ctx))

	awaitView := func(pred func(View) bool) View {
		t.Helper()
		for {
			select {
			case view := <-updates:
				if pred(view) {
					return view
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for view")
			}
		}
	}

	loading := awaitView(func(v View) bool { return len(v.Tokens) == 2 })
	assert.True(t, loading.Loading)
	assert.Equal(t, 0, resolvedFields(loading))

	for want := 1; want <= 5; want++ {
		src.gate <- struct{}{}
		view := awaitView(func(v View) bool { return resolvedFields(v) == want })
		assert.Equal(t, want == 5, !view.Loading, "after %d resolutions", want)
	}
	require.NoError(t, session.Wait(ctx))
}

func TestSessionRefetchDropsStaleResults(t *testing.T) {
	src := newFakeSource()
	src.gate = make(chan struct{})
	session := NewSession(SessionConfig{Network: 0}, src, src, nil)
	defer session.Close()

	ctx := waitCtx(t)
	require.NoError(t, session.Load(ctx))
	first := session.Snapshot().Generation

	src.mu.Lock()
	oldGate := src.gate
	src.gate = nil
	src.balances["0/0xA"] = "2000000000000000000"
	src.mu.Unlock()

	require.NoError(t, session.Refetch(ctx))
	require.NoError(t, session.Wait(ctx))
	second := session.Snapshot()
	assert.NotEqual(t, first, second.Generation)
	assert.Equal(t, "2000000000000000000", second.Tokens[0].AssetBalance)

	close(oldGate)
	src.inflight.Wait()
	time.Sleep(10 * time.Millisecond)

	after := session.Snapshot()
	assert.Equal(t, second.Generation, after.Generation)
	assert.Equal(t, "2000000000000000000", after.Tokens[0].AssetBalance)
	src.mu.Lock()
	assert.NotZero(t, src.invalidated)
	src.mu.Unlock()
}

func TestSessionMappingFailure(t *testing.T) {
	src := newFakeSource()
	src.mappingErr = errors.New("indexer down")
	session := NewSession(SessionConfig{Network: 0}, src, src, nil)
	defer session.Close()

	ctx := waitCtx(t)
	err := session.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMappingsUnavailable))

	view := session.Snapshot()
	assert.Empty(t, view.Tokens)
	assert.NotEmpty(t, view.Error)
	assert.True(t, errors.Is(session.Wait(ctx), ErrMappingsUnavailable))

	src.mu.Lock()
	src.mappingErr = nil
	src.mu.Unlock()

	require.NoError(t, session.Refetch(ctx))
	require.NoError(t, session.Wait(ctx))
	view = session.Snapshot()
	assert.Empty(t, view.Error)
	assert.Len(t, view.Tokens, 2)
}

func TestSessionEmptyNetwork(t *testing.T) {
	src := newFakeSource()
	session := NewSession(SessionConfig{Network: 9}, src, src, nil)
	defer session.Close()

	ctx := waitCtx(t)
	require.NoError(t, session.Load(ctx))
	require.NoError(t, session.Wait(ctx))

	view := session.Snapshot()
	assert.Empty(t, view.Tokens)
	assert.True(t, view.Summary.AllLoaded)
	assert.False(t, view.Loading)
}

func TestSessionClosed(t *testing.T) {
	src := newFakeSource()
	session := NewSession(SessionConfig{Network: 0}, src, src, nil)
	updates, _ := session.Subscribe()
	session.Close()

	for range updates {
	}
	assert.ErrorIs(t, session.Load(context.Background()), ErrSessionClosed)
}

func TestManagerReusesSessions(t *testing.T) {
	src := newFakeSource()
	manager := NewManager(src, src, time.Second, nil)
	defer manager.Close()

	ctx := waitCtx(t)
	first, err := manager.Session(ctx, 0)
	require.NoError(t, err)
	second, err := manager.Session(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, first.Wait(ctx))
	snapshot := BuildSnapshot(first.Snapshot(), time.Unix(0, 0))
	require.Len(t, snapshot.Tokens, 2)
	assert.Equal(t, "1", snapshot.Tokens[0].Assets)
	assert.Equal(t, "0.3", snapshot.Tokens[0].Liabilities[0].Amount)
	assert.Equal(t, "0.1", snapshot.Summary.Difference)
}

func TestManagerRefetch(t *testing.T) {
	src := newFakeSource()
	manager := NewManager(src, src, time.Second, nil)
	defer manager.Close()

	ctx := waitCtx(t)
	session, err := manager.Refetch(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, session.Wait(ctx))
	first := session.Snapshot().Generation

	src.mu.Lock()
	assert.Zero(t, src.invalidated)
	src.mu.Unlock()

	again, err := manager.Refetch(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, session, again)
	require.NoError(t, again.Wait(ctx))
	assert.NotEqual(t, first, again.Snapshot().Generation)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.NotZero(t, src.invalidated)
}

func TestManagerConcurrentCallerSeesLoading(t *testing.T) {
	src := newFakeSource()
	src.mappingGate = make(chan struct{})
	manager := NewManager(src, src, time.Second, nil)
	defer manager.Close()

	ctx := waitCtx(t)
	firstErr := make(chan error, 1)
	go func() {
		_, err := manager.Session(ctx, 0)
		firstErr <- err
	}()

	var second *Session
	require.Eventually(t, func() bool {
		manager.mu.Lock()
		defer manager.mu.Unlock()
		second = manager.sessions[0]
		return second != nil
	}, time.Second, time.Millisecond)

	same, err := manager.Session(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, second, same)

	view := same.Snapshot()
	assert.True(t, view.Loading)
	assert.False(t, view.Summary.AllLoaded)
	assert.Empty(t, view.Tokens)

	waited := make(chan error, 1)
	go func() { waited <- same.Wait(ctx) }()
	select {
	case <-waited:
		t.Fatalf("wait returned before the mappings were fetched")
	case <-time.After(20 * time.Millisecond):
	}

	close(src.mappingGate)
	require.NoError(t, <-firstErr)
	require.NoError(t, <-waited)

	view = same.Snapshot()
	assert.Len(t, view.Tokens, 2)
	assert.True(t, view.Summary.AllLoaded)
	assert.False(t, view.Loading)
}

func TestSessionLoadOutlivesCanceledCaller(t *testing.T) {
	src := newFakeSource()
	src.mappingGate = make(chan struct{})
	session := NewSession(SessionConfig{Network: 0}, src, src, nil)
	defer session.Close()

	callerCtx, cancelCaller := context.WithCancel(context.Background())
	loaded := make(chan error, 1)
	go func() { loaded <- session.Load(callerCtx) }()

	cancelCaller()
	time.Sleep(10 * time.Millisecond)
	close(src.mappingGate)

	require.NoError(t, <-loaded)
	ctx := waitCtx(t)
	require.NoError(t, session.Wait(ctx))

	view := session.Snapshot()
	assert.Empty(t, view.Error)
	assert.Len(t, view.Tokens, 2)
}

func TestSessionMappingTimeout(t *testing.T) {
	src := newFakeSource()
	src.mappingGate = make(chan struct{})
	defer close(src.mappingGate)
	session := NewSession(SessionConfig{Network: 0, MappingTimeout: 20 * time.Millisecond}, src, src, nil)
	defer session.Close()

	err := session.Load(context.Background())
	assert.ErrorIs(t, err, ErrMappingsUnavailable)
	assert.ErrorIs(t, session.Wait(waitCtx(t)), ErrMappingsUnavailable)
	assert.False(t, session.Snapshot().Loading)
}

func TestSessionRefetchResetsToPending(t *testing.T) {
	src := newFakeSource()
	session := NewSession(SessionConfig{Network: 0}, src, src, nil)
	defer session.Close()

	ctx := waitCtx(t)
	require.NoError(t, session.Load(ctx))
	require.NoError(t, session.Wait(ctx))
	require.True(t, session.Snapshot().Summary.AllLoaded)

	src.mu.Lock()
	src.mappingGate = make(chan struct{})
	src.mu.Unlock()

	refetched := make(chan error, 1)
	go func() { refetched <- session.Refetch(ctx) }()

	require.Eventually(t, func() bool {
		return session.Snapshot().Tokens[0].State == model.LoadPending
	}, time.Second, time.Millisecond)

	view := session.Snapshot()
	assert.True(t, view.Loading)
	assert.False(t, view.Summary.AllLoaded)
	assert.Zero(t, view.Summary.LoadedTokens)
	for _, tok := range view.Tokens {
		assert.Equal(t, model.LoadPending, tok.State)
		assert.Equal(t, "0", tok.AssetBalance)
		assert.False(t, tok.AssetResolved)
		for _, entry := range tok.Liabilities {
			assert.Equal(t, "0", entry.Amount)
			assert.False(t, entry.Resolved)
		}
	}

	waited := make(chan error, 1)
	go func() { waited <- session.Wait(ctx) }()
	select {
	case <-waited:
		t.Fatalf("wait returned during the mapping fetch")
	case <-time.After(20 * time.Millisecond):
	}

	src.mu.Lock()
	close(src.mappingGate)
	src.mappingGate = nil
	src.mu.Unlock()

	require.NoError(t, <-refetched)
	require.NoError(t, <-waited)
	view = session.Snapshot()
	assert.True(t, view.Summary.AllLoaded)
	assert.Equal(t, "0.1", view.Summary.Difference.String())
}
