package transport

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/endpoint"
)

// randomize jitters a session duration into [d/2, 3d/2) per spec.md §4.9:
// d + d*(U[0,1) - 0.5).
func randomize(d time.Duration, r *rand.Rand) time.Duration {
	return d + time.Duration(float64(d)*(r.Float64()-0.5))
}

// SessionedClient forces periodic reconnection of the underlying wire
// client so a long-lived connection doesn't pin a caller to one
// load-balanced backend forever. Grounded on the teacher's cluster.Syncer,
// which redials per ticker interval rather than per logical session;
// generalized here into a jittered per-request session boundary. It is
// the innermost decorator, directly over the wire client, of the
// RedirectingClient(SessionedClient(wire))
// chain RetryableClient's newClient factory constructs per candidate.
//
// Uses a per-instance *rand.Rand (spec.md §9's design note) rather than
// the package-level source, so concurrent SessionedClients never
// contend on a shared lock for jitter.
type SessionedClient struct {
	newInner ClientFactory
	target   endpoint.Endpoint

	sessionDurationMs time.Duration
	rnd               *rand.Rand

	mu               sync.Mutex
	client           Client
	lastReconnectAt  time.Time
	currentSessionMs time.Duration
}

// NewSessionedClient builds a SessionedClient targeting ep, reconnecting
// the inner client (built via newInner) roughly every sessionDuration,
// jittered into [d/2, 3d/2).
func NewSessionedClient(target endpoint.Endpoint, newInner ClientFactory, sessionDuration time.Duration) *SessionedClient {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(seedFromEndpoint(target))))
	s := &SessionedClient{
		newInner:          newInner,
		target:            target,
		sessionDurationMs: sessionDuration,
		rnd:               rnd,
	}
	s.currentSessionMs = randomize(sessionDuration, rnd)
	return s
}

func seedFromEndpoint(ep endpoint.Endpoint) uint64 {
	var h uint64 = 1469598103934665603
	for _, c := range ep.URL() {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return h
}

// Execute implements Client. If the current session has expired, the
// inner client is closed and rebuilt before dispatching.
func (s *SessionedClient) Execute(ctx context.Context, req Request) (Response, error) {
	client, err := s.currentOrReconnect(ctx)
	if err != nil {
		return Response{}, err
	}
	return client.Execute(ctx, req)
}

func (s *SessionedClient) currentOrReconnect(ctx context.Context) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.client != nil && now.Sub(s.lastReconnectAt) >= s.currentSessionMs {
		_ = s.client.Close()
		s.client = nil
	}

	if s.client == nil {
		c, err := s.newInner(ctx, s.target)
		if err != nil {
			return nil, err
		}
		s.client = c
		s.lastReconnectAt = now
		s.currentSessionMs = randomize(s.sessionDurationMs, s.rnd)
	}

	return s.client, nil
}

// CurrentSessionDuration returns the jittered duration of the active
// session, for tests and diagnostics.
func (s *SessionedClient) CurrentSessionDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSessionMs
}

// Close releases the inner client, if any.
func (s *SessionedClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
