// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/unclebandit/linkreach-backend/internal/browser"
	"github.com/unclebandit/linkreach-backend/internal/config"
	"github.com/unclebandit/linkreach-backend/internal/db"
	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
	"github.com/unclebandit/linkreach-backend/internal/queue"
	"github.com/unclebandit/linkreach-backend/internal/repository"
	"github.com/unclebandit/linkreach-backend/internal/service"
)

// The worker consumes campaign run jobs one at a time. It owns the only
// browser session: runs are long and strictly sequential, so prefetch is 1
// and a second worker instance should never share the same account.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer conn.Close()

	noteTemplate, err := config.LoadTemplate(cfg.ConnectionNoteFile)
	if err != nil {
		log.Fatal("Failed to load connection note template:", err)
	}
	followUpTemplate, err := config.LoadTemplate(cfg.FollowupMessageFile)
	if err != nil {
		log.Fatal("Failed to load follow-up message template:", err)
	}

	q, err := queue.NewClient(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer q.Close()

	msgs, err := q.ConsumeRuns()
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.NewSession(cfg)
	if err != nil {
		log.Fatal("Failed to launch browser:", err)
	}
	defer session.Close()

	if err := session.EnsureLoggedIn(ctx, browser.NewConsoleLoginProvider()); err != nil {
		log.Fatal("Login failed:", err)
	}

	profileRepo := &repository.ProfileRepository{DB: conn}

	log.Println("Worker running, waiting for campaign runs...")

	for {
		select {
		case <-ctx.Done():
			log.Println("Worker shutting down.")
			return
		case d, ok := <-msgs:
			if !ok {
				log.Println("Queue channel closed, exiting.")
				return
			}

			var job queue.RunJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid run job:", err)
				d.Ack(false)
				continue
			}

			log.Printf("📩 Starting campaign run %s (mode=%s, dry_run=%v)", job.JobID, job.Mode, job.DryRun)

			pacer := service.NewPacer(profileRepo, cfg, job.DryRun)
			executor := service.NewActionExecutor(session.Page(), pacer, cfg, job.DryRun)
			driver := &service.CampaignService{
				Repo:             profileRepo,
				Executor:         executor,
				Pacer:            pacer,
				Reporter:         &queue.ProgressReporter{Client: q, JobID: job.JobID},
				NoteTemplate:     noteTemplate,
				FollowUpTemplate: followUpTemplate,
				ConnectionCap:    cfg.DailyConnectionCap,
				MessageCap:       cfg.DailyMessageCap,
				BatchLimit:       cfg.BatchLimit,
				DryRun:           job.DryRun,
			}
			if job.Cap > 0 {
				driver.ConnectionCap = job.Cap
			}

			summary, err := driver.Run(ctx, job.Mode)
			if err != nil {
				if errors.Is(err, appErrors.ErrSessionInvalid) {
					// The saved session died mid-run. Requeue so the run
					// resumes after a fresh login.
					log.Println("⚠️ Session invalid, run aborted. Log in again and restart the worker.")
					d.Nack(false, true)
					return
				}
				if !d.Redelivered {
					log.Printf("⚠️ Run %s failed, requeueing once: %v", job.JobID, err)
					d.Nack(false, true)
					continue
				}
				log.Printf("⚠️ Run %s failed again, dropping: %v", job.JobID, err)
				d.Ack(false)
				continue
			}

			log.Printf("✅ Run %s done: processed=%d sent=%d skipped=%d errors=%d",
				job.JobID, summary.Processed, summary.Sent, summary.Skipped, summary.Errors)
			d.Ack(false)
		}
	}
}
