package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the signed session token for browser clients; API
// clients may send the same token as a bearer header instead.
const SessionCookie = "rf_session"

func credentialFromRequest(c *gin.Context) string {
	if tok, err := c.Cookie(SessionCookie); err == nil && tok != "" {
		return tok
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
