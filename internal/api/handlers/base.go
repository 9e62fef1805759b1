// Package handlers implements the REST API endpoint handlers for
// HydraDiscovery's admin/diagnostics API.
//
// @title HydraDiscovery Admin API
// @version 1.0
// @description Read-only operational API for runtime introspection of the service-discovery core: health, process stats, cache state, peer membership, and the resolved endpoint set.
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hydradiscovery/hydradiscovery/internal/cache"
	"github.com/hydradiscovery/hydradiscovery/internal/config"
	"github.com/hydradiscovery/hydradiscovery/internal/discovery/resolver"
	"github.com/hydradiscovery/hydradiscovery/internal/peers"
)

// Handler contains dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	logger    *slog.Logger
	startTime time.Time

	mu       sync.RWMutex
	resolver resolver.Resolver
	cache    *cache.ResponseCache
	peerSet  *peers.PeerNodeSet
}

// New creates a new Handler with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
	}
}

// SetResolver attaches the live resolver stack for runtime access.
func (h *Handler) SetResolver(r resolver.Resolver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resolver = r
}

// SetCache attaches the live ResponseCache for runtime access.
func (h *Handler) SetCache(c *cache.ResponseCache) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache = c
}

// SetPeerSet attaches the live PeerNodeSet for runtime access.
func (h *Handler) SetPeerSet(p *peers.PeerNodeSet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peerSet = p
}

func (h *Handler) getResolver() resolver.Resolver {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.resolver
}

func (h *Handler) getCache() *cache.ResponseCache {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cache
}

func (h *Handler) getPeerSet() *peers.PeerNodeSet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.peerSet
}
