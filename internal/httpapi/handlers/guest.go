package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redflaghq/redflag-platform/internal/auth"
	"github.com/redflaghq/redflag-platform/internal/common"
	"github.com/redflaghq/redflag-platform/internal/models"
)

// sanitizeRedirect only accepts site-relative targets; anything else falls
// back to the home page (open-redirect guard).
func sanitizeRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}

// GuestLogin provisions an anonymous identity and bounces the browser back
// to the originally requested URL. The route sits in the auth namespace so
// the access gate never redirects it (that would loop).
func (h *Handler) GuestLogin(c *gin.Context) {
	target := sanitizeRedirect(c.Query("redirectUrl"))

	var user models.User
	created := false
	for i := 0; i < 5; i++ {
		label, err := auth.NewGuestLabel()
		if err != nil {
			common.Fail(c, http.StatusInternalServerError, 20004, "failed to generate guest label")
			return
		}
		user = models.User{Email: label}
		if err := h.DB.Create(&user).Error; err != nil {
			// retry only when the label lost a uniqueness race; anything
			// else (database down, schema drift) fails immediately
			var clash int64
			countErr := h.DB.Model(&models.User{}).Where("email = ?", label).Count(&clash).Error
			if countErr != nil || clash == 0 {
				log.Printf("[GuestLogin] create guest failed err=%v", err)
				common.Fail(c, http.StatusInternalServerError, 20001, "db error")
				return
			}
			log.Printf("[GuestLogin] guest label collision attempt=%d", i)
			continue
		}
		created = true
		break
	}
	if !created {
		common.Fail(c, http.StatusInternalServerError, 20006, "failed to allocate guest identity")
		return
	}

	token, err := auth.SignJWT(user.ID, user.Email, h.Cfg.JWTSecret, sessionTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	h.setSessionCookie(c, token)

	c.Redirect(http.StatusFound, target)
}
