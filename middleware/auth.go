package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"blazeoffice/models"
)

const (
	AdminCookie = "blaze_admin"
	adminKey    = "admin"
)

// TokenVerifier validates an admin session token.
type TokenVerifier interface {
	Verify(token string) (*models.Admin, error)
}

// AdminRequired accepts a bearer token or the admin session cookie.
func AdminRequired(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			if cookie, err := c.Cookie(AdminCookie); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		admin, err := verifier.Verify(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		c.Set(adminKey, admin)
		c.Next()
	}
}

// CurrentAdmin returns the admin set by AdminRequired.
func CurrentAdmin(c *gin.Context) *models.Admin {
	v, ok := c.Get(adminKey)
	if !ok {
		return nil
	}
	admin, _ := v.(*models.Admin)
	return admin
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}
