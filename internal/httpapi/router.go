package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redflaghq/redflag-platform/internal/auth"
	"github.com/redflaghq/redflag-platform/internal/common"
	"github.com/redflaghq/redflag-platform/internal/config"
	"github.com/redflaghq/redflag-platform/internal/gate"
	"github.com/redflaghq/redflag-platform/internal/httpapi/handlers"
	"github.com/redflaghq/redflag-platform/internal/httpapi/middleware"
	"github.com/redflaghq/redflag-platform/internal/retention"
	"github.com/redflaghq/redflag-platform/internal/store/rabbitmq"
	"github.com/redflaghq/redflag-platform/internal/store/redisstore"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit *rabbitmq.Publisher, blobs retention.BlobStore) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	// every request passes the access gate before it reaches a handler
	r.Use(middleware.AccessGate(gate.New(auth.NewResolver(cfg.JWTSecret))))

	h := handlers.NewHandler(db, cfg, rds, rabbit, blobs)

	// public
	r.GET("/ping", h.Ping)
	r.GET("/privacy", h.Privacy)
	r.GET("/terms", h.Terms)
	r.POST("/register", h.CreateUser)
	r.POST("/login", h.Login)

	// auth namespace: never gated (guest bootstrap must not loop)
	r.GET("/api/auth/guest", h.GuestLogin)
	r.POST("/api/auth/captcha", h.SendCaptcha)

	api := r.Group("/api")
	api.Use(middleware.AuthRequired(cfg.JWTSecret))
	api.GET("/me", h.Me)
	api.GET("/usage", h.GetUsage)

	api.POST("/conversations", h.CreateConversation)
	api.GET("/conversations", h.ListConversations)
	api.GET("/conversations/:id", h.GetConversation)
	api.DELETE("/conversations/:id", h.DeleteConversation)
	api.POST("/conversations/:id/messages", h.AddMessage)
	api.GET("/conversations/:id/messages", h.ListMessages)
	api.POST("/conversations/:id/files", h.CreateFileRecord)
	api.GET("/conversations/:id/files", h.ListFiles)
	api.GET("/jobs/:job_id", h.GetJob)

	api.POST("/admin/sweep", h.SweepNow)

	return r
}
