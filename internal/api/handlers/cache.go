package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hydradiscovery/hydradiscovery/internal/api/models"
)

// CacheStats godoc
// @Summary Response cache statistics
// @Description Returns ResponseCache's current ReadWrite size and delta version counters
// @Tags cache
// @Produce json
// @Success 200 {object} models.CacheStatsResponse
// @Security ApiKeyAuth
// @Router /cache/stats [get]
func (h *Handler) CacheStats(c *gin.Context) {
	rc := h.getCache()
	if rc == nil {
		c.JSON(http.StatusOK, models.CacheStatsResponse{})
		return
	}

	c.JSON(http.StatusOK, models.CacheStatsResponse{
		ReadWriteSize:           rc.CurrentSize(),
		VersionDelta:            rc.VersionDelta(),
		VersionDeltaWithRegions: rc.VersionDeltaWithRegions(),
	})
}
