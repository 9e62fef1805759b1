package handlers_test

import (
	"github.com/gin-gonic/gin"
	"github.com/hydradiscovery/hydradiscovery/internal/api/handlers"
)

func setupTestRouter(h *handlers.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api/v1")
	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	api.GET("/cache/stats", h.CacheStats)
	api.GET("/peers", h.Peers)
	api.GET("/resolver/endpoints", h.ResolverEndpoints)

	return r
}
