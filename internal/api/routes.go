package api

import (
	"github.com/gin-gonic/gin"
	"github.com/hydradiscovery/hydradiscovery/internal/api/handlers"
	"github.com/hydradiscovery/hydradiscovery/internal/api/middleware"
	"github.com/hydradiscovery/hydradiscovery/internal/config"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes mounts the read-only admin/diagnostics surface described
// in SPEC_FULL.md §2.5: health, process stats, cache state, peer
// membership, and a resolver snapshot.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	// Swagger UI at /swagger/*
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	// Optional API key protection.
	if cfg != nil && cfg.API.APIKey != "" {
		api.Use(middleware.RequireAPIKey(cfg.API.APIKey))
	}
	// Optional shared-budget rate limiting.
	if cfg != nil && cfg.API.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.API.RateLimit.QPS, cfg.API.RateLimit.Burst))
	}

	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	api.GET("/cache/stats", h.CacheStats)
	api.GET("/peers", h.Peers)
	api.GET("/resolver/endpoints", h.ResolverEndpoints)
}
