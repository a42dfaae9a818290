package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blazeoffice/services"
)

type ReminderRequest struct {
	Emails      []string `json:"emails"`
	TemplateKey string   `json:"template_key"`
}

// sendReminder handles POST /api/reminder
func (h *Handler) sendReminder(c *gin.Context) {
	var req ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.bindError(c, err)
		return
	}

	res, err := h.deps.Bulk.Reminder(c.Request.Context(), req.Emails, req.TemplateKey)
	if err != nil {
		h.respondError(c, err, "Reminder mailing failed")
		return
	}
	h.audit(c, "email.reminder", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	c.JSON(http.StatusOK, res)
}

type BroadcastRequest struct {
	Audience    string   `json:"audience"`
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	TemplateKey string   `json:"template_key"`
}

// sendBroadcast handles POST /api/email/send
func (h *Handler) sendBroadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	res, err := h.deps.Bulk.Broadcast(c.Request.Context(), services.BroadcastRequest{
		Audience:    req.Audience,
		To:          req.To,
		Subject:     req.Subject,
		Body:        req.Body,
		TemplateKey: req.TemplateKey,
	})
	if err != nil {
		h.respondError(c, err, "Broadcast failed")
		return
	}
	h.audit(c, "email.broadcast",
		zap.String("audience", req.Audience),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed))
	c.JSON(http.StatusOK, res)
}

// sendApology handles POST /api/email/commitment-apology
func (h *Handler) sendApology(c *gin.Context) {
	res, err := h.deps.Bulk.Apology(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Apology mailing failed")
		return
	}
	h.audit(c, "email.apology", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	c.JSON(http.StatusOK, res)
}
