package handlers

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/redflaghq/redflag-platform/internal/auth"
	"github.com/redflaghq/redflag-platform/internal/common"
	"github.com/redflaghq/redflag-platform/internal/email"
	"github.com/redflaghq/redflag-platform/internal/httpapi/middleware"
	"github.com/redflaghq/redflag-platform/internal/models"
	"gorm.io/gorm"
)

const sessionTTL = 24 * time.Hour

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(middleware.SessionCookie, token, int(sessionTTL.Seconds()), "/", "", false, true)
}

func randomCaptcha6() (string, error) {
	const digits = "0123456789"
	out := make([]byte, 6)
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		out[i] = digits[n.Int64()]
	}
	return string(out), nil
}

type sendCaptchaReq struct {
	Email string `json:"email"`
}

func (h *Handler) SendCaptcha(c *gin.Context) {
	var req sendCaptchaReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		common.Fail(c, http.StatusBadRequest, 10001, "email required")
		return
	}

	code, err := randomCaptcha6()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20004, "failed to generate code")
		return
	}
	if err := h.Redis.SetCaptcha(c.Request.Context(), req.Email, code); err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
		return
	}

	go func(to, code string) {
		subject := "Your Red Flag Detector verification code"
		body := "Hello,\n\n" +
			"Your verification code is: " + code + "\n\n" +
			"The code expires in 10 minutes. If you did not request it, you can ignore this mail.\n\n" +
			"Red Flag Detector\n"
		_ = email.SendText(h.SMTPSetting, to, subject, body)
	}(req.Email, code)

	common.OK(c, gin.H{"sent": true})
}

type createUserReq struct {
	Email    string `json:"email"`
	Captcha  string `json:"captcha"`
	Password string `json:"password"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" || req.Captcha == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "email, captcha and password required")
		return
	}
	// the guest- prefix is reserved for provisioned anonymous identities
	if auth.IsGuestLabel(req.Email) {
		common.Fail(c, http.StatusBadRequest, 10005, "email not allowed")
		return
	}

	code, err := h.Redis.GetCaptcha(c.Request.Context(), req.Email)
	if err != nil {
		if err == redis.Nil {
			common.Fail(c, http.StatusBadRequest, 10020, "captcha expired or not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
		return
	}
	if code != req.Captcha {
		common.Fail(c, http.StatusBadRequest, 10021, "invalid captcha")
		return
	}
	_ = h.Redis.DeleteCaptcha(c.Request.Context(), req.Email)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	// the captcha round-trip proves the mailbox
	now := time.Now()
	user := models.User{
		Email:           req.Email,
		PasswordHash:    &hash,
		EmailVerifiedAt: &now,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email already exists)")
		return
	}

	token, err := auth.SignJWT(user.ID, user.Email, h.Cfg.JWTSecret, sessionTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	h.setSessionCookie(c, token)

	go func(to string) {
		subject := "Welcome to Red Flag Detector — Your account is ready"
		body := "Hello,\n\n" +
			"Welcome to Red Flag Detector. Your account has been successfully created.\n\n" +
			"If you did not request this account, please contact our support immediately.\n\n" +
			"Best regards,\n" +
			"Red Flag Detector\n"
		_ = email.SendText(h.SMTPSetting, to, subject, body)
	}(user.Email)

	common.OK(c, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"token": token,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		common.Fail(c, http.StatusBadRequest, 10001, "email and password required")
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid email or password")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	// guests have no password and cannot log in directly
	if user.PasswordHash == nil || !auth.CheckPassword(*user.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid email or password")
		return
	}

	token, err := auth.SignJWT(user.ID, user.Email, h.Cfg.JWTSecret, sessionTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	h.setSessionCookie(c, token)

	common.OK(c, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"token": token,
	})
}

func (h *Handler) Me(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"guest":      auth.IsGuestLabel(user.Email),
		"verified":   user.EmailVerifiedAt != nil,
		"created_at": user.CreatedAt,
	})
}
