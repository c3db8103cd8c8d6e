package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/redflaghq/redflag-platform/internal/common"
)

const RequestIDKey = "request_id"

const requestIDHeader = "X-Request-ID"

// RequestID propagates the caller's request id or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			if generated, err := common.NewULID(); err == nil {
				id = generated
			}
		}
		c.Set(RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
