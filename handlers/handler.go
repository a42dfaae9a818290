package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blazeoffice/metrics"
	"blazeoffice/middleware"
	"blazeoffice/services"
)

// Deps are the services behind the HTTP surface. Rate limiters may be nil.
type Deps struct {
	Waitlist    WaitlistServicer
	Commitments CommitmentServicer
	Pricing     PricingServicer
	Leaderboard LeaderboardServicer
	Contact     ContactServicer
	Chat        ChatServicer
	Bulk        BulkServicer
	Backfill    CountryBackfiller
	Stats       StatsReader
	Campaigns   CampaignAdmin
	EmailLogs   map[string]EmailLogReader
	Runner      services.AudienceRunner
	Auth        AdminAuthenticator

	CronSecret     string
	SecureCookies  bool
	TrustedProxies []string
	SignupLimiter  *middleware.RateLimiter
	ChatLimiter    *middleware.RateLimiter
}

type Handler struct {
	deps   Deps
	router *gin.Engine
	log    *zap.Logger
}

func NewHandler(deps Deps, log *zap.Logger) *Handler {
	router := gin.New()
	// Client IPs come from forwarding headers only when sent by a listed proxy.
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		log.Error("Invalid trusted proxy list, forwarding headers ignored", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		metrics.Middleware(),
	)

	h := &Handler{
		deps:   deps,
		router: router,
		log:    log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func limit(rl *middleware.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.Handler()
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := h.router.Group("/api")
	signupLimit := limit(h.deps.SignupLimiter)

	api.POST("/waitlist", signupLimit, h.joinWaitlist)
	api.GET("/waitlist/count", h.waitlistCount)
	api.POST("/commitment", signupLimit, h.createCommitment)
	api.GET("/pricing", h.getPricing)
	api.GET("/pricing/estimate", h.estimateTokens)
	api.GET("/leaderboard", h.getLeaderboard)
	api.POST("/contact", signupLimit, h.submitContact)
	api.POST("/chat", limit(h.deps.ChatLimiter), h.chat)

	cron := api.Group("/cron", middleware.CronSecret(h.deps.CronSecret, h.log))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		cron.Handle(method, "/drip-campaign", h.runDripCampaign)
		cron.Handle(method, "/commitment-campaign", h.runCommitmentCampaign)
	}

	api.POST("/admin/login", signupLimit, h.login)
	api.POST("/admin/logout", h.logout)

	admin := api.Group("", middleware.AdminRequired(h.deps.Auth))
	admin.GET("/admin/me", h.me)
	admin.GET("/admin/stats", h.getStats)

	admin.GET("/admin/signups", h.listSignups)
	admin.PATCH("/admin/signups/:id/pause", h.pauseSignup)

	admin.GET("/admin/messages", h.listMessages)
	admin.PATCH("/admin/messages/:id", h.updateMessage)
	admin.DELETE("/admin/messages/:id", h.deleteMessage)

	admin.GET("/admin/commitments", h.listCommitments)
	admin.PATCH("/admin/commitments/:id/converted", h.setConverted)
	admin.GET("/admin/commitments/export.csv", h.exportCommitments)
	admin.GET("/admin/leaderboard/export.csv", h.exportLeaderboard)

	admin.GET("/admin/pricing-tiers", h.listPricingTiers)
	admin.POST("/admin/pricing-tiers/:id/activate", h.activatePricingTier)

	admin.GET("/admin/campaigns", h.listCampaigns)
	admin.PATCH("/admin/campaigns/:id", h.toggleCampaign)
	admin.GET("/admin/email-logs", h.listEmailLogs)
	admin.POST("/admin/backfill-country", h.backfillCountry)

	admin.POST("/reminder", h.sendReminder)
	admin.POST("/email/send", h.sendBroadcast)
	admin.POST("/email/commitment-apology", h.sendApology)
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
