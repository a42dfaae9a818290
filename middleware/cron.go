package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CronSecret guards scheduler endpoints with a shared bearer secret. An
// empty secret locks the endpoints.
func CronSecret(secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := bearerToken(c)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log.Warn("Rejected cron trigger",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Bool("configured", secret != ""))
			abort(c, http.StatusUnauthorized, "unauthorized", "Invalid cron secret")
			return
		}
		c.Next()
	}
}
