package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redflaghq/redflag-platform/internal/auth"
	"github.com/redflaghq/redflag-platform/internal/common"
)

const (
	UserIDKey    = "auth_user_id"
	UserEmailKey = "auth_user_email"
)

// AuthRequired rejects requests without a valid session token. It runs
// inside the API group, after the access gate has already had its say.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.ParseJWT(credentialFromRequest(c), secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}
		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Next()
	}
}
