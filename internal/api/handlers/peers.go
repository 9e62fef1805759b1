package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hydradiscovery/hydradiscovery/internal/api/models"
)

// Peers godoc
// @Summary Peer node membership
// @Description Returns the current PeerNodeSet URL list
// @Tags peers
// @Produce json
// @Success 200 {object} models.PeersResponse
// @Security ApiKeyAuth
// @Router /peers [get]
func (h *Handler) Peers(c *gin.Context) {
	ps := h.getPeerSet()
	if ps == nil {
		c.JSON(http.StatusOK, models.PeersResponse{Peers: []string{}})
		return
	}

	urls := ps.URLs()
	c.JSON(http.StatusOK, models.PeersResponse{Peers: urls, Count: len(urls)})
}
