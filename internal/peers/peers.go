// Package peers implements PeerNodeSet (spec.md §4.11): the periodic,
// diff-apply reconciliation of the set of peer discovery-server nodes a
// server replicates against.
//
// Grounded on the teacher's internal/cluster.Syncer — its single-thread
// ticker lifecycle (Start/Stop via stopCh/doneCh, an immediate sync
// before the loop begins) is kept verbatim in spirit, generalized here
// from a one-way primary/secondary config pull into an N-way desired-vs-
// current URL diff that adds new peer clients and shuts down stale ones
// without disturbing peers present in both sets.
package peers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/discovery/transport"
)

// Node is a live connection to one peer server.
type Node struct {
	URL    string
	Client transport.Client
}

// Shutdown releases the node's underlying client.
func (n Node) Shutdown() {
	if n.Client != nil {
		_ = n.Client.Close()
	}
}

// NodeFactory constructs a Node bound to url.
type NodeFactory func(ctx context.Context, url string) (transport.Client, error)

// ResolveURLs builds the desired peer URL list from configuration (e.g.
// DNS lookup of a peer discovery hostname, or a static list), in the
// local zone. It must not filter out the local node's own URL — that is
// PeerNodeSet's job, via LocalMatch.
type ResolveURLs func(ctx context.Context) ([]string, error)

// LocalMatch reports whether url refers to the local node itself. The
// rule is supplied by the caller; the one cmd/hydradiscovery passes
// compares the whole URL string with -local-url and does not match by
// hostname or by IP, whatever applicationsResolverUseIp is set to.
type LocalMatch func(url string) bool

// PeerNodeSet maintains PeerNodeSet{urls, nodes} in bijection (spec.md
// §3): every tracked URL has exactly one Node, and the local node's own
// URL is never present.
type PeerNodeSet struct {
	resolve  ResolveURLs
	newNode  NodeFactory
	isLocal  LocalMatch
	interval time.Duration
	logger   *slog.Logger

	mu    sync.RWMutex
	nodes map[string]Node

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a PeerNodeSet. Reconciliation does not begin until Start is
// called.
func New(resolve ResolveURLs, newNode NodeFactory, isLocal LocalMatch, interval time.Duration, logger *slog.Logger) *PeerNodeSet {
	if logger == nil {
		logger = slog.Default()
	}
	return &PeerNodeSet{
		resolve:  resolve,
		newNode:  newNode,
		isLocal:  isLocal,
		interval: interval,
		logger:   logger,
		nodes:    map[string]Node{},
	}
}

// Start runs one immediate reconciliation, then schedules further
// reconciliations every interval on a single background goroutine, per
// spec.md §4.11's "single-thread periodic scheduler (daemon)".
func (p *PeerNodeSet) Start(ctx context.Context) error {
	p.runMu.Lock()
	if p.running {
		p.runMu.Unlock()
		return fmt.Errorf("peers: already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.runMu.Unlock()

	p.reconcile(ctx)

	go p.runLoop(ctx)
	return nil
}

func (p *PeerNodeSet) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reconcile(ctx)
		}
	}
}

// Shutdown stops the scheduler, swaps the node list out atomically, and
// shuts each node down — per spec.md §4.11 and the "atomic reference
// swaps ... close the loser" discipline in §8.
func (p *PeerNodeSet) Shutdown() {
	p.runMu.Lock()
	if !p.running {
		p.runMu.Unlock()
		return
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.runMu.Unlock()

	close(stopCh)
	<-doneCh

	p.mu.Lock()
	nodes := p.nodes
	p.nodes = map[string]Node{}
	p.mu.Unlock()

	for _, n := range nodes {
		n.Shutdown()
	}
}

// URLs returns the currently tracked peer URLs.
func (p *PeerNodeSet) URLs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.nodes))
	for u := range p.nodes {
		out = append(out, u)
	}
	return out
}

// Nodes returns a snapshot of the currently tracked peer nodes.
func (p *PeerNodeSet) Nodes() []Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Node, 0, len(p.nodes))
	for _, n := range p.nodes {
		out = append(out, n)
	}
	return out
}

// Reconcile forces an immediate reconciliation, outside the periodic
// schedule. Grounded on the teacher's Syncer.ForceSync.
func (p *PeerNodeSet) Reconcile(ctx context.Context) {
	p.reconcile(ctx)
}

// reconcile implements spec.md §4.11's resolve/diff/apply cycle.
func (p *PeerNodeSet) reconcile(ctx context.Context) {
	desired, err := p.resolve(ctx)
	if err != nil {
		p.logger.Warn("peer reconciliation: resolve failed", "err", err)
		return
	}

	desiredSet := make(map[string]struct{}, len(desired))
	for _, u := range desired {
		if p.isLocal != nil && p.isLocal(u) {
			continue
		}
		desiredSet[u] = struct{}{}
	}

	if len(desiredSet) == 0 {
		p.logger.Warn("peer reconciliation: desired URL set is empty, skipping")
		return
	}

	p.mu.RLock()
	current := make(map[string]Node, len(p.nodes))
	for u, n := range p.nodes {
		current[u] = n
	}
	p.mu.RUnlock()

	var toRemove []string
	for u := range current {
		if _, ok := desiredSet[u]; !ok {
			toRemove = append(toRemove, u)
		}
	}

	var toAdd []string
	for u := range desiredSet {
		if _, ok := current[u]; !ok {
			toAdd = append(toAdd, u)
		}
	}

	next := make(map[string]Node, len(desiredSet))
	for u, n := range current {
		if _, removed := desiredSet[u]; removed {
			next[u] = n
		}
	}

	for _, u := range toAdd {
		client, err := p.newNode(ctx, u)
		if err != nil {
			p.logger.Warn("peer reconciliation: construct node failed", "url", u, "err", err)
			continue
		}
		next[u] = Node{URL: u, Client: client}
	}

	p.mu.Lock()
	p.nodes = next
	p.mu.Unlock()

	for _, u := range toRemove {
		current[u].Shutdown()
	}

	if len(toAdd) > 0 || len(toRemove) > 0 {
		p.logger.Info("peer reconciliation applied", "added", len(toAdd), "removed", len(toRemove), "total", len(next))
	}
}
