// The worker consumes analysis jobs from RabbitMQ and runs the retention
// sweeper on a fixed interval. Both loops share one shutdown signal.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redflaghq/redflag-platform/internal/analysis"
	"github.com/redflaghq/redflag-platform/internal/config"
	"github.com/redflaghq/redflag-platform/internal/conversation"
	"github.com/redflaghq/redflag-platform/internal/db"
	"github.com/redflaghq/redflag-platform/internal/retention"
	"github.com/redflaghq/redflag-platform/internal/storage/cloudinary"
	"github.com/redflaghq/redflag-platform/internal/store/rabbitmq"
)

type jobMsg struct {
	JobID string `json:"job_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	repo := conversation.NewRepo(gdb)

	// Provider registry (ANALYSIS_PROVIDER picks the factory)
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

	svc := conversation.NewService(repo, reg, cfg.AnalysisProvider)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// same retry/DLQ topology as the API publisher; declaring with different
	// arguments would make the broker reject whichever process starts second
	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started queue=%s concurrency=%d sweep_interval=%s", cfg.RabbitQueue, concurrency, cfg.SweepInterval)

	// retention sweeper, independent of request handling
	sweeper := retention.NewSweeper(gdb, cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret))
	var sweepWG sync.WaitGroup
	sweepWG.Add(1)
	go func() {
		defer sweepWG.Done()
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				res, err := sweeper.Sweep(ctx, time.Now())
				if err != nil {
					log.Printf("sweep aborted cost=%s err=%v", time.Since(start), err)
					continue
				}
				if res.Swept > 0 || res.Failed > 0 {
					log.Printf("sweep done swept=%d failed=%d cost=%s", res.Swept, res.Failed, time.Since(start))
				}
			}
		}
	}()

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m jobMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, svc, repo, m.JobID); err != nil {
					log.Printf("worker=%d job %s failed cost=%s err=%v", workerID, m.JobID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			sweepWG.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleJob(ctx context.Context, svc *conversation.Service, repo *conversation.Repo, jobID string) error {
	claimed, err := repo.ClaimJob(ctx, jobID)
	if err != nil {
		return err
	}

	j, err := repo.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	// A redelivered message for a finished job is acked without re-running
	// the analysis. An unclaimed running job means a previous attempt died
	// mid-flight; fall through and run it again.
	if !claimed && (j.Status == conversation.JobSucceeded || j.Status == conversation.JobFailed) {
		log.Printf("job %s already %s, skipping redelivery", jobID, j.Status)
		return nil
	}

	start := time.Now()
	msgID, err := svc.RunAnalysis(ctx, j.UserID, j.ConversationID)
	if err != nil {
		_ = repo.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}

	if err := repo.MarkJobSucceeded(ctx, jobID, msgID); err != nil {
		return err
	}

	if cost := time.Since(start); cost > 2*time.Second {
		log.Printf("job_timing job=%s analyze=%s", jobID, cost)
	}

	return nil
}
