package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blazeoffice/middleware"
	"blazeoffice/models"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string        `json:"token"`
	Admin *models.Admin `json:"admin"`
}

// login handles POST /api/admin/login
func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	token, admin, err := h.deps.Auth.Login(req.Email, req.Password)
	if err != nil {
		h.log.Warn("Admin login rejected", zap.String("client_ip", c.ClientIP()), zap.Error(err))
		h.respondError(c, err, "Login failed")
		return
	}

	h.log.Info("Admin logged in", zap.String("email", admin.Email))
	h.setAuthCookie(c, token, time.Until(admin.ExpiresAt))
	c.JSON(http.StatusOK, LoginResponse{Token: token, Admin: admin})
}

// logout handles POST /api/admin/logout
func (h *Handler) logout(c *gin.Context) {
	h.setAuthCookie(c, "", -time.Second)
	c.Status(http.StatusNoContent)
}

// me handles GET /api/admin/me
func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentAdmin(c))
}

func (h *Handler) setAuthCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AdminCookie, token, int(ttl.Seconds()), "/", "", h.deps.SecureCookies, true)
}
