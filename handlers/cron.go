package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"blazeoffice/models"
)

// runDripCampaign handles GET|POST /api/cron/drip-campaign
func (h *Handler) runDripCampaign(c *gin.Context) {
	h.runCampaign(c, models.AudienceWaitlist)
}

// runCommitmentCampaign handles GET|POST /api/cron/commitment-campaign
func (h *Handler) runCommitmentCampaign(c *gin.Context) {
	h.runCampaign(c, models.AudienceCommitment)
}

func (h *Handler) runCampaign(c *gin.Context, audience string) {
	res, err := h.deps.Runner.Run(c.Request.Context(), audience)
	if err != nil {
		h.respondError(c, err, "Campaign run failed")
		return
	}
	c.JSON(http.StatusOK, res)
}
