package handlers

import (
	"context"

	"github.com/redflaghq/redflag-platform/internal/analysis"
	"github.com/redflaghq/redflag-platform/internal/config"
	"github.com/redflaghq/redflag-platform/internal/conversation"
	"github.com/redflaghq/redflag-platform/internal/email"
	"github.com/redflaghq/redflag-platform/internal/retention"
	"github.com/redflaghq/redflag-platform/internal/store/rabbitmq"
	"github.com/redflaghq/redflag-platform/internal/store/redisstore"
	"github.com/redflaghq/redflag-platform/internal/usage"
	"gorm.io/gorm"
)

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	Redis       *redisstore.Store
	Rabbit      *rabbitmq.Publisher
	SMTPSetting email.SMTPConfig

	ConvSvc *conversation.Service
	Limiter *usage.Limiter
	Files   *retention.Repo
	Sweeper *retention.Sweeper
}

func NewHandler(db *gorm.DB, cfg config.Config, r *redisstore.Store, rabbit *rabbitmq.Publisher, blobs retention.BlobStore) *Handler {
	repo := conversation.NewRepo(db)

	reg := analysis.NewRegistry()
	reg.Register("openrouter", func(ctx context.Context) (analysis.Provider, error) {
		_ = ctx
		return analysis.NewOpenRouterProvider(
			cfg.OpenRouterBaseURL,
			cfg.OpenRouterAPIKey,
			cfg.OpenRouterModel,
			cfg.OpenRouterSiteURL,
			cfg.OpenRouterAppName,
		), nil
	})

	return &Handler{
		DB:     db,
		Cfg:    cfg,
		Redis:  r,
		Rabbit: rabbit,
		SMTPSetting: email.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		},
		ConvSvc: conversation.NewService(repo, reg, cfg.AnalysisProvider),
		Limiter: usage.NewLimiter(db, cfg.UsageTimeZone),
		Files:   retention.NewRepo(db),
		Sweeper: retention.NewSweeper(db, blobs),
	}
}
