package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redflaghq/redflag-platform/internal/gate"
)

// AccessGate is the transport adapter around the pure decision function: it
// extracts the credential, asks the gate, and either passes the request on
// or issues the redirect.
func AccessGate(g *gate.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Decide(c.Request.URL.RequestURI(), credentialFromRequest(c))
		if d.Kind == gate.Redirect {
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
			return
		}
		c.Next()
	}
}
