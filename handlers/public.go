package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blazeoffice/services"
)

type JoinWaitlistRequest struct {
	Email        string `json:"email" binding:"required,email"`
	ReferralCode string `json:"referral_code"`
	Source       string `json:"source"`
}

type JoinWaitlistResponse struct {
	ReferralCode  string `json:"referral_code"`
	Position      int    `json:"position"`
	AlreadyJoined bool   `json:"already_joined"`
}

// joinWaitlist handles POST /api/waitlist
func (h *Handler) joinWaitlist(c *gin.Context) {
	var req JoinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	res, err := h.deps.Waitlist.Join(c.Request.Context(), services.JoinRequest{
		Email:        req.Email,
		ReferralCode: req.ReferralCode,
		Source:       req.Source,
	})
	if err != nil {
		h.respondError(c, err, "Failed to join waitlist")
		return
	}

	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	c.JSON(status, JoinWaitlistResponse{
		ReferralCode:  res.Signup.ReferralCode,
		Position:      res.Position,
		AlreadyJoined: !res.Created,
	})
}

// waitlistCount handles GET /api/waitlist/count
func (h *Handler) waitlistCount(c *gin.Context) {
	n, err := h.deps.Waitlist.Count(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to count signups")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

type CommitmentRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	CountryCode string  `json:"country_code"`
}

// createCommitment handles POST /api/commitment
func (h *Handler) createCommitment(c *gin.Context) {
	var req CommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	res, err := h.deps.Commitments.Commit(c.Request.Context(), services.CommitRequest{
		Email:       req.Email,
		Amount:      req.Amount,
		CountryCode: req.CountryCode,
		IPAddress:   c.ClientIP(),
	})
	if err != nil {
		h.respondError(c, err, "Failed to record commitment")
		return
	}
	c.JSON(http.StatusCreated, res)
}

// getPricing handles GET /api/pricing
func (h *Handler) getPricing(c *gin.Context) {
	ov, err := h.deps.Pricing.Overview(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to load pricing")
		return
	}
	c.JSON(http.StatusOK, ov)
}

// estimateTokens handles GET /api/pricing/estimate?amount=
func (h *Handler) estimateTokens(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "amount must be a number"})
		return
	}

	est, _, err := h.deps.Pricing.Estimate(c.Request.Context(), amount)
	if err != nil {
		h.respondError(c, err, "Failed to estimate tokens")
		return
	}
	c.JSON(http.StatusOK, est)
}

// getLeaderboard handles GET /api/leaderboard?limit=&code=
func (h *Handler) getLeaderboard(c *gin.Context) {
	board, err := h.deps.Leaderboard.Public(c.Request.Context(), queryInt(c, "limit", 0), c.Query("code"))
	if err != nil {
		h.respondError(c, err, "Failed to load leaderboard")
		return
	}
	c.JSON(http.StatusOK, board)
}

type ContactFormRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// submitContact handles POST /api/contact
func (h *Handler) submitContact(c *gin.Context) {
	var req ContactFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	msg, err := h.deps.Contact.Submit(c.Request.Context(), services.ContactRequest{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		h.respondError(c, err, "Failed to submit message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": msg.ID, "status": msg.Status})
}

type ChatRequest struct {
	Messages []services.ChatMessage `json:"messages" binding:"required"`
}

// chat handles POST /api/chat. The reply streams as server-sent events:
// "message" events carry text deltas, "done" ends the stream and "error"
// reports a failure after streaming began.
func (h *Handler) chat(c *gin.Context) {
	if h.deps.Chat == nil || !h.deps.Chat.Enabled() {
		h.respondError(c, services.ErrChatDisabled, "Chat unavailable")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	// Validate before the first byte so bad input still gets a JSON 400.
	messages, err := h.deps.Chat.Validate(req.Messages)
	if err != nil {
		h.respondError(c, err, "Invalid chat request")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	err = h.deps.Chat.Stream(c.Request.Context(), messages, func(delta string) error {
		c.SSEvent("message", gin.H{"text": delta})
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		h.log.Warn("Chat stream ended with error", zap.Error(err))
		c.SSEvent("error", gin.H{"message": "The assistant is unavailable right now"})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", gin.H{})
	c.Writer.Flush()
}
