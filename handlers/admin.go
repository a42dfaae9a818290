package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blazeoffice/middleware"
	"blazeoffice/models"
	"blazeoffice/services"
)

// listSignups handles GET /api/admin/signups?page=&page_size=&search=
func (h *Handler) listSignups(c *gin.Context) {
	page, err := h.deps.Waitlist.List(c.Request.Context(),
		queryInt(c, "page", 1), queryInt(c, "page_size", 50), c.Query("search"))
	if err != nil {
		h.respondError(c, err, "Failed to list signups")
		return
	}
	c.JSON(http.StatusOK, page)
}

type PauseRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// pauseSignup handles PATCH /api/admin/signups/:id/pause
func (h *Handler) pauseSignup(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	if err := h.deps.Waitlist.SetPaused(c.Request.Context(), id, *req.Paused); err != nil {
		h.respondError(c, err, "Failed to update signup")
		return
	}
	h.audit(c, "signup.pause", zap.Int64("signup_id", id), zap.Bool("paused", *req.Paused))
	c.JSON(http.StatusOK, gin.H{"id": id, "paused": *req.Paused})
}

// listMessages handles GET /api/admin/messages?status=
func (h *Handler) listMessages(c *gin.Context) {
	rows, err := h.deps.Contact.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err, "Failed to list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": rows})
}

type MessageStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateMessage handles PATCH /api/admin/messages/:id
func (h *Handler) updateMessage(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req MessageStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	if err := h.deps.Contact.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		h.respondError(c, err, "Failed to update message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// deleteMessage handles DELETE /api/admin/messages/:id
func (h *Handler) deleteMessage(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	if err := h.deps.Contact.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to delete message")
		return
	}
	h.audit(c, "message.delete", zap.Int64("message_id", id))
	c.Status(http.StatusNoContent)
}

// listCommitments handles GET /api/admin/commitments
func (h *Handler) listCommitments(c *gin.Context) {
	rows, err := h.deps.Commitments.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list commitments")
		return
	}
	c.JSON(http.StatusOK, gin.H{"commitments": rows})
}

type ConvertedRequest struct {
	Converted *bool `json:"converted" binding:"required"`
}

// setConverted handles PATCH /api/admin/commitments/:id/converted
func (h *Handler) setConverted(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req ConvertedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	if err := h.deps.Commitments.SetConverted(c.Request.Context(), id, *req.Converted); err != nil {
		h.respondError(c, err, "Failed to update commitment")
		return
	}
	h.audit(c, "commitment.converted", zap.Int64("commitment_id", id), zap.Bool("converted", *req.Converted))
	c.JSON(http.StatusOK, gin.H{"id": id, "converted": *req.Converted})
}

// exportCommitments handles GET /api/admin/commitments/export.csv
func (h *Handler) exportCommitments(c *gin.Context) {
	rows, err := h.deps.Commitments.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to export commitments")
		return
	}
	var buf bytes.Buffer
	if err := services.WriteCommitmentsCSV(&buf, rows); err != nil {
		h.respondError(c, err, "Failed to export commitments")
		return
	}
	h.sendCSV(c, "commitments", buf.Bytes())
}

// exportLeaderboard handles GET /api/admin/leaderboard/export.csv
func (h *Handler) exportLeaderboard(c *gin.Context) {
	entries, err := h.deps.Leaderboard.Full(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to export leaderboard")
		return
	}
	var buf bytes.Buffer
	if err := services.WriteLeaderboardCSV(&buf, entries); err != nil {
		h.respondError(c, err, "Failed to export leaderboard")
		return
	}
	h.sendCSV(c, "leaderboard", buf.Bytes())
}

func (h *Handler) sendCSV(c *gin.Context, prefix string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+services.ExportFilename(prefix, time.Now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}

// listPricingTiers handles GET /api/admin/pricing-tiers
func (h *Handler) listPricingTiers(c *gin.Context) {
	tiers, err := h.deps.Pricing.Tiers(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list pricing tiers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}

// activatePricingTier handles POST /api/admin/pricing-tiers/:id/activate
func (h *Handler) activatePricingTier(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	if err := h.deps.Pricing.Activate(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to activate pricing tier")
		return
	}
	h.audit(c, "pricing.activate", zap.Int64("tier_id", id))
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": true})
}

// listCampaigns handles GET /api/admin/campaigns?audience=
func (h *Handler) listCampaigns(c *gin.Context) {
	audience := c.Query("audience")
	if audience != "" && audience != models.AudienceWaitlist && audience != models.AudienceCommitment {
		h.respondError(c, services.ErrUnknownAudience, "Unknown audience")
		return
	}
	steps, err := h.deps.Campaigns.List(c.Request.Context(), audience)
	if err != nil {
		h.respondError(c, err, "Failed to list campaigns")
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": steps})
}

type CampaignToggleRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// toggleCampaign handles PATCH /api/admin/campaigns/:id
func (h *Handler) toggleCampaign(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req CampaignToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	if err := h.deps.Campaigns.SetActive(c.Request.Context(), id, *req.IsActive); err != nil {
		h.respondError(c, err, "Failed to update campaign")
		return
	}
	h.audit(c, "campaign.toggle", zap.Int64("campaign_id", id), zap.Bool("is_active", *req.IsActive))
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": *req.IsActive})
}

// listEmailLogs handles GET /api/admin/email-logs?audience=&limit=
func (h *Handler) listEmailLogs(c *gin.Context) {
	audience := c.DefaultQuery("audience", models.AudienceWaitlist)
	store, ok := h.deps.EmailLogs[audience]
	if !ok {
		h.respondError(c, services.ErrUnknownAudience, "Unknown audience")
		return
	}
	lim := queryInt(c, "limit", 100)
	if lim < 1 || lim > 1000 {
		lim = 100
	}
	logs, err := store.Recent(c.Request.Context(), lim)
	if err != nil {
		h.respondError(c, err, "Failed to list email logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"audience": audience, "logs": logs})
}

// backfillCountry handles POST /api/admin/backfill-country
func (h *Handler) backfillCountry(c *gin.Context) {
	res, err := h.deps.Backfill.Run(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Country backfill failed")
		return
	}
	h.audit(c, "commitments.backfill_country", zap.Int("updated", res.Updated))
	c.JSON(http.StatusOK, res)
}

func (h *Handler) audit(c *gin.Context, action string, fields ...zap.Field) {
	actor := ""
	if admin := middleware.CurrentAdmin(c); admin != nil {
		actor = admin.Email
	}
	h.log.Info("Admin action", append([]zap.Field{zap.String("action", action), zap.String("admin", actor)}, fields...)...)
}
