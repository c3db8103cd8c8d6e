package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/redflaghq/redflag-platform/internal/auth"
	"github.com/redflaghq/redflag-platform/internal/config"
	"github.com/redflaghq/redflag-platform/internal/httpapi/middleware"
	"github.com/redflaghq/redflag-platform/internal/models"
	"gorm.io/gorm"
)

func newGuestHandler(t *testing.T) *Handler {
	t.Helper()
	gdb, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return &Handler{DB: gdb, Cfg: config.Config{JWTSecret: "test-secret"}}
}

func guestRequest(h *Handler, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/auth/guest", h.GuestLogin)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGuestLogin_ProvisionsIdentityAndRedirects(t *testing.T) {
	h := newGuestHandler(t)

	w := guestRequest(h, "/api/auth/guest?redirectUrl=%2Fchat%2F42")
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/chat/42" {
		t.Fatalf("Location = %q, want /chat/42", loc)
	}

	var hasSession bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.SessionCookie && ck.Value != "" {
			hasSession = true
		}
	}
	if !hasSession {
		t.Fatalf("expected a session cookie")
	}

	var user models.User
	if err := h.DB.First(&user).Error; err != nil {
		t.Fatalf("load guest user: %v", err)
	}
	if !auth.IsGuestLabel(user.Email) {
		t.Fatalf("expected guest label, got %q", user.Email)
	}
	if user.PasswordHash != nil {
		t.Fatalf("guest must have no password hash")
	}
}

func TestGuestLogin_RejectsOffsiteRedirect(t *testing.T) {
	h := newGuestHandler(t)

	w := guestRequest(h, "/api/auth/guest?redirectUrl=https%3A%2F%2Fevil.example")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("expected 302 to /, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestGuestLogin_FailsFastWhenDatabaseDown(t *testing.T) {
	h := newGuestHandler(t)
	sqlDB, err := h.DB.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w := guestRequest(h, "/api/auth/guest")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	// a dead database is not a label collision: one attempt, then db error
	var body struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Code != 20001 {
		t.Fatalf("expected code 20001 (db error), got %d", body.Code)
	}
}
