package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/presence-app/presence/internal/config"
	"github.com/presence-app/presence/internal/database"
	"github.com/presence-app/presence/internal/email"
	"github.com/presence-app/presence/internal/logging"
	"github.com/presence-app/presence/internal/maintenance"
	"github.com/presence-app/presence/internal/metrics"
	"github.com/presence-app/presence/internal/queue"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.NewLogger(logging.Config{Level: "info", Format: "json", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	q, err := queue.New(cfg.Queue)
	if err != nil {
		log.Fatalf("failed to connect to queue: %v", err)
	}
	defer q.Close()

	mailer := email.NewClient(cfg.Email, cfg.Server.AppURL)

	janitor := maintenance.NewJanitor(repo, log,
		cfg.Maintenance.SweepInterval, cfg.Maintenance.LimitRetentionDays)
	janitor.Start()
	defer janitor.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("shutting down worker")
		cancel()
	}()

	handler := func(job *queue.EmailJob) error {
		sendCtx, sendCancel := context.WithTimeout(ctx, 30*time.Second)
		defer sendCancel()

		var err error
		switch job.Kind {
		case queue.EmailJobVerification:
			_, err = mailer.SendVerification(sendCtx, job.To, job.Pseudo, job.Token)
		default:
			log.Warnf("unknown email job kind %q, dropping", job.Kind)
			return nil
		}

		log.LogEmailDelivery(job.To, job.Kind, err)
		if err != nil {
			metrics.EmailsSentTotal.WithLabelValues("error").Inc()
			return err
		}

		metrics.EmailsSentTotal.WithLabelValues("sent").Inc()
		return nil
	}

	log.Info("worker started, waiting for email jobs")
	if err := q.ConsumeEmails(ctx, handler); err != nil {
		log.Fatalf("failed to consume email jobs: %v", err)
	}

	<-ctx.Done()
	log.Info("worker stopped")
}
