package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/resolver"
)

const (
	// DefaultMaxAttempts is RetryableClient's default attempt budget.
	DefaultMaxAttempts = 3
	// DefaultQuarantineRefreshFraction is RetryableClient's default
	// quarantine-clear threshold.
	DefaultQuarantineRefreshFraction = 0.66
)

// quarantineSet is the concurrent ordered set of recently-failed
// endpoints from spec.md §3. Iteration order need not be consistent
// across calls; only membership and insertion order (for display/debug)
// matter.
type quarantineSet struct {
	mu    sync.Mutex
	order []endpoint.Endpoint
	set   map[endpoint.Endpoint]struct{}
}

func newQuarantineSet() *quarantineSet {
	return &quarantineSet{set: map[endpoint.Endpoint]struct{}{}}
}

func (q *quarantineSet) add(ep endpoint.Endpoint) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.set[ep]; ok {
		return
	}
	q.set[ep] = struct{}{}
	q.order = append(q.order, ep)
}

func (q *quarantineSet) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

func (q *quarantineSet) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.order = nil
	q.set = map[endpoint.Endpoint]struct{}{}
}

// pruneToIntersection removes quarantined entries that no longer appear
// in candidates (they may have been dropped from configuration).
func (q *quarantineSet) pruneToIntersection(candidates endpoint.EndpointList) {
	q.mu.Lock()
	defer q.mu.Unlock()
	live := make(map[endpoint.Endpoint]struct{}, len(candidates))
	for _, c := range candidates {
		live[c] = struct{}{}
	}
	keptOrder := q.order[:0]
	for _, ep := range q.order {
		if _, ok := live[ep]; ok {
			keptOrder = append(keptOrder, ep)
		} else {
			delete(q.set, ep)
		}
	}
	q.order = keptOrder
}

func (q *quarantineSet) contains(ep endpoint.Endpoint) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.set[ep]
	return ok
}

// RetryableClient iterates candidate endpoints supplied by a Resolver,
// quarantining endpoints that fail and retrying against the next
// candidate, up to maxAttempts. Grounded on the teacher's
// ForwardingResolver upstream-health-tracking map
// (upstreamFailedAt map[string]time.Time with a recovery window),
// generalized here into an explicit quarantine set cleared by a
// configurable fraction threshold rather than a fixed recovery duration.
type RetryableClient struct {
	res       resolver.Resolver
	newClient ClientFactory
	evaluator StatusEvaluator
	logger    *slog.Logger

	maxAttempts        int
	quarantineFraction float64

	mu         sync.Mutex
	delegate   Client
	delegateEP endpoint.Endpoint
	quarantine *quarantineSet
}

// RetryableClientOption configures a RetryableClient at construction.
type RetryableClientOption func(*RetryableClient)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) RetryableClientOption {
	return func(r *RetryableClient) { r.maxAttempts = n }
}

// WithQuarantineRefreshFraction overrides DefaultQuarantineRefreshFraction.
func WithQuarantineRefreshFraction(f float64) RetryableClientOption {
	return func(r *RetryableClient) { r.quarantineFraction = f }
}

// WithRetryLogger attaches a logger (defaults to slog.Default()).
func WithRetryLogger(l *slog.Logger) RetryableClientOption {
	return func(r *RetryableClient) { r.logger = l }
}

// NewRetryableClient builds a RetryableClient. newClient constructs a
// Client bound to a candidate endpoint (in practice, a RedirectingClient
// wrapping a SessionedClient wrapping the wire transport).
func NewRetryableClient(res resolver.Resolver, newClient ClientFactory, evaluator StatusEvaluator, opts ...RetryableClientOption) *RetryableClient {
	r := &RetryableClient{
		res:                res,
		newClient:          newClient,
		evaluator:          evaluator,
		logger:             slog.Default(),
		maxAttempts:        DefaultMaxAttempts,
		quarantineFraction: DefaultQuarantineRefreshFraction,
		quarantine:         newQuarantineSet(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute implements Client. If a delegate from a prior successful
// request is still installed, the first attempt reuses it; otherwise (or
// once the delegate fails) it selects candidates[attempt] by position, so
// a failed reuse on attempt 0 means candidates[0] is not tried in that
// call and the next attempt starts at candidates[1], matching spec.md §4.8's
// attempt-indexed selection exactly (S1: [A,B,C] with A failing, B
// throwing, C succeeding resolves in exactly 3 attempts, using
// candidates[1]=B on the second attempt rather than re-scanning from the
// front).
func (r *RetryableClient) Execute(ctx context.Context, req Request) (Response, error) {
	candidates := r.res.Endpoints()
	r.quarantine.pruneToIntersection(candidates)

	if float64(r.quarantine.len()) >= r.quarantineFraction*float64(len(candidates)) {
		r.quarantine.clear()
	} else {
		candidates = r.withoutQuarantined(candidates)
	}

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		r.mu.Lock()
		delegate := r.delegate
		delegateEP := r.delegateEP
		r.mu.Unlock()

		var candidate endpoint.Endpoint
		client := delegate
		if client == nil {
			if attempt >= len(candidates) {
				return Response{}, ErrNoReachableServer
			}
			candidate = candidates[attempt]
			var err error
			client, err = r.newClient(ctx, candidate)
			if err != nil {
				r.quarantine.add(candidate)
				continue
			}
		} else {
			candidate = delegateEP
		}

		resp, err := client.Execute(ctx, req)
		if err == nil && r.evaluator.Accept(resp.StatusCode, req.Kind) {
			r.setDelegate(client, candidate)
			return resp, nil
		}

		r.clearDelegateIf(client)
		_ = client.Close()
		r.quarantine.add(candidate)
		r.logger.Warn("retryable client attempt failed", "endpoint", candidate.URL(), "attempt", attempt)
	}

	return Response{}, ErrRetryLimitExceeded
}

func (r *RetryableClient) withoutQuarantined(candidates endpoint.EndpointList) endpoint.EndpointList {
	out := make(endpoint.EndpointList, 0, len(candidates))
	for _, c := range candidates {
		if !r.quarantine.contains(c) {
			out = append(out, c)
		}
	}
	return out
}

func (r *RetryableClient) setDelegate(c Client, ep endpoint.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delegate = c
	r.delegateEP = ep
}

func (r *RetryableClient) clearDelegateIf(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delegate == c {
		r.delegate = nil
	}
}

// Close shuts down the current delegate, if any.
func (r *RetryableClient) Close() error {
	r.mu.Lock()
	prev := r.delegate
	r.delegate = nil
	r.mu.Unlock()
	if prev != nil {
		return prev.Close()
	}
	return nil
}
