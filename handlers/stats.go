package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getStats handles GET /api/admin/stats
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.deps.Stats.Overview(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to load stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
