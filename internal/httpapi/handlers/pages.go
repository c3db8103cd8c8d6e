package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redflaghq/redflag-platform/internal/common"
)

// Ping is the liveness probe; it bypasses all gating.
func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "pong"})
}

func (h *Handler) Privacy(c *gin.Context) {
	c.String(http.StatusOK, "Red Flag Detector privacy policy.\nUploaded screenshots are deleted automatically after the retention window.\n")
}

func (h *Handler) Terms(c *gin.Context) {
	c.String(http.StatusOK, "Red Flag Detector terms of service.\n")
}
