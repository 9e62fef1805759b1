package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
)

// ErrInitialResolutionFailed is returned by NewAsyncResolver when the
// warm-up call returns an empty list and failFast is enabled.
var ErrInitialResolutionFailed = errors.New("async resolver: initial resolution returned no endpoints")

// state is the ResolverState invariant from spec.md §3: lastValue is
// never empty after a successful warm-up, and a failed refresh never
// overwrites a previously successful value.
type state struct {
	lastValue     endpoint.EndpointList
	lastRefreshAt time.Time
	refreshing    bool
}

// AsyncResolver wraps a delegate resolver with warm-up, a cached value,
// and periodic background refresh. Endpoints() never blocks after
// construction returns.
//
// Grounded on the teacher's cluster.Syncer ticker lifecycle
// (Start/Stop/runLoop, stopCh/doneCh shutdown).
type AsyncResolver struct {
	delegate Resolver
	interval time.Duration
	logger   *slog.Logger

	mu    sync.RWMutex
	state state

	stopCh chan struct{}
	doneCh chan struct{}
}

// AsyncResolverOption configures an AsyncResolver at construction.
type AsyncResolverOption func(*asyncOpts)

type asyncOpts struct {
	failFast      bool
	logger        *slog.Logger
	warmUpTimeout time.Duration
}

// WithFailFast makes NewAsyncResolver return ErrInitialResolutionFailed
// when the warm-up call yields an empty endpoint list.
func WithFailFast() AsyncResolverOption {
	return func(o *asyncOpts) { o.failFast = true }
}

// WithLogger attaches a logger for refresh-failure warnings.
func WithLogger(l *slog.Logger) AsyncResolverOption {
	return func(o *asyncOpts) { o.logger = l }
}

// WithWarmUpTimeout bounds the initial synchronous delegate call
// (asyncResolverWarmUpTimeoutMs in spec.md §6). A zero timeout means
// "wait indefinitely", the default.
func WithWarmUpTimeout(d time.Duration) AsyncResolverOption {
	return func(o *asyncOpts) { o.warmUpTimeout = d }
}

// NewAsyncResolver performs one synchronous warm-up call against delegate,
// then starts a background refresh loop at the given interval.
func NewAsyncResolver(delegate Resolver, interval time.Duration, opts ...AsyncResolverOption) (*AsyncResolver, error) {
	o := &asyncOpts{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	a := &AsyncResolver{
		delegate: delegate,
		interval: interval,
		logger:   o.logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	var initial endpoint.EndpointList
	if o.warmUpTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), o.warmUpTimeout)
		initial = warmUpWithTimeout(ctx, delegate)
		cancel()
	} else {
		initial = delegate.Endpoints()
	}
	if len(initial) == 0 && o.failFast {
		return nil, ErrInitialResolutionFailed
	}
	a.state = state{lastValue: initial, lastRefreshAt: time.Now()}

	go a.runLoop()
	return a, nil
}

// Region delegates to the wrapped resolver.
func (a *AsyncResolver) Region() string { return a.delegate.Region() }

// Endpoints returns the cached value without blocking on the delegate.
func (a *AsyncResolver) Endpoints() endpoint.EndpointList {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.lastValue.Clone()
}

// Shutdown stops the background refresh loop and releases delegate
// resources.
func (a *AsyncResolver) Shutdown() {
	close(a.stopCh)
	<-a.doneCh
	if c, ok := a.delegate.(Closer); ok {
		c.Shutdown()
	}
}

func (a *AsyncResolver) runLoop() {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

func (a *AsyncResolver) refresh() {
	a.mu.Lock()
	if a.state.refreshing {
		a.mu.Unlock()
		return
	}
	a.state.refreshing = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.state.refreshing = false
		a.mu.Unlock()
	}()

	next := a.delegate.Endpoints()
	if len(next) == 0 {
		a.logger.Warn("async resolver refresh returned no endpoints, keeping previous value")
		return
	}

	a.mu.Lock()
	a.state.lastValue = next
	a.state.lastRefreshAt = time.Now()
	a.mu.Unlock()
}

// warmUpWithTimeout bounds the initial synchronous delegate call by a
// context deadline (asyncResolverWarmUpTimeoutMs in spec.md §6); it is used
// by NewAsyncResolver when WithWarmUpTimeout sets a positive timeout, and
// returns nil if the deadline passes first.
func warmUpWithTimeout(ctx context.Context, delegate Resolver) endpoint.EndpointList {
	done := make(chan endpoint.EndpointList, 1)
	go func() { done <- delegate.Endpoints() }()

	select {
	case v := <-done:
		return v
	case <-ctx.Done():
		return nil
	}
}
