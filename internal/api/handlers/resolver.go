package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hydradiscovery/hydradiscovery/internal/api/models"
)

// ResolverEndpoints godoc
// @Summary Resolved endpoint snapshot
// @Description Returns the configured resolver stack's currently resolved endpoints. Diagnostic only, not on the request path.
// @Tags resolver
// @Produce json
// @Success 200 {object} models.ResolverEndpointsResponse
// @Security ApiKeyAuth
// @Router /resolver/endpoints [get]
func (h *Handler) ResolverEndpoints(c *gin.Context) {
	r := h.getResolver()
	if r == nil {
		c.JSON(http.StatusOK, models.ResolverEndpointsResponse{Endpoints: []models.ResolverEndpoint{}})
		return
	}

	eps := r.Endpoints()
	out := make([]models.ResolverEndpoint, 0, len(eps))
	for _, ep := range eps {
		out = append(out, models.ResolverEndpoint{URL: ep.URL()})
	}

	c.JSON(http.StatusOK, models.ResolverEndpointsResponse{
		Region:    r.Region(),
		Endpoints: out,
		Count:     len(out),
	})
}
