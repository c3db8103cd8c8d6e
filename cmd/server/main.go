package main

import (
	"log"
	"os"

	"github.com/redflaghq/redflag-platform/internal/config"
	"github.com/redflaghq/redflag-platform/internal/conversation"
	"github.com/redflaghq/redflag-platform/internal/db"
	"github.com/redflaghq/redflag-platform/internal/httpapi"
	"github.com/redflaghq/redflag-platform/internal/models"
	"github.com/redflaghq/redflag-platform/internal/retention"
	"github.com/redflaghq/redflag-platform/internal/storage/cloudinary"
	"github.com/redflaghq/redflag-platform/internal/store/rabbitmq"
	"github.com/redflaghq/redflag-platform/internal/store/redisstore"
	"github.com/redflaghq/redflag-platform/internal/usage"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(
		&models.User{},
		&conversation.Conversation{},
		&conversation.Message{},
		&conversation.AnalysisJob{},
		&usage.UsageLog{},
		&retention.UploadedFile{},
	); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	rabbit, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit publisher: %v", err)
	}
	defer rabbit.Close()

	blobs := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)

	r := httpapi.NewRouter(gdb, cfg, rds, rabbit, blobs)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("server listening addr=%s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
