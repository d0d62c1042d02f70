package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/auth"
	"github.com/tripwise-dev/tripwise/internal/config"
	"github.com/tripwise-dev/tripwise/internal/handlers"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/middleware"
	"github.com/tripwise-dev/tripwise/internal/notify"
	"github.com/tripwise-dev/tripwise/internal/router"
	"github.com/tripwise-dev/tripwise/internal/scheduler"
	"github.com/tripwise-dev/tripwise/internal/services"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		logger.Log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := auth.InitJWTSecret(cfg.JWTSecret); err != nil {
		logger.Log.Fatalf("Failed to initialize auth: %v", err)
	}

	if err := db.ConnectDatabase(cfg.DatabaseURL); err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		logger.Log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := notify.NewHub()

	var publisher notify.Publisher = notify.LocalPublisher{Hub: hub}

	if cfg.RedisURL != "" {
		relay, err := notify.NewRedisRelay(cfg.RedisURL, cfg.RedisChannel, hub)
		if err != nil {
			logger.Log.Fatalf("Failed to configure Redis relay: %v", err)
		}
		defer relay.Close()

		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Redis relay stopped")
			}
		}()

		publisher = relay
		logger.WithFields(logrus.Fields{"channel": cfg.RedisChannel}).Info("Relaying notifications through Redis")
	}

	var mailer services.Mailer = services.LogMailer{}

	if cfg.MailEnabled() {
		mailer = services.NewSMTPMailer(services.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	receipts, err := services.NewReceiptStore(cfg.UploadDir)

	if err != nil {
		logger.Log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	notifier := &services.Notifier{Publisher: publisher}

	h := &handlers.Handler{
		Config:   cfg,
		Hub:      hub,
		Notifier: notifier,
		Forms: &services.FormService{
			Notifier: notifier,
			Webhooks: services.NewWebhookSender(),
		},
		Mailer:   mailer,
		Receipts: receipts,
		AI: services.NewOpenAIClient(services.OpenAIConfig{
			APIKey:          cfg.OpenAIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			VisionModel:     cfg.OpenAIVisionModel,
			TranscribeModel: cfg.OpenAITranscribeModel,
		}),
	}
	h.Forms.Rates = h.Rates()

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)

	jobs := scheduler.NewScheduler()

	maintenance := []scheduler.Job{
		{Name: "purge-invitations", Run: scheduler.PurgeExpiredInvitations},
		{Name: "rate-limiter-cleanup", Run: func(context.Context) error {
			authLimiter.Cleanup(time.Hour)
			return nil
		}},
	}

	if cfg.NotificationRetention > 0 {
		maintenance = append(maintenance, scheduler.Job{
			Name: "prune-notifications",
			Run:  scheduler.PruneReadNotifications(cfg.NotificationRetention),
		})
	}

	for _, job := range maintenance {
		if err := jobs.Add(cfg.MaintenanceSchedule, job); err != nil {
			logger.Log.Fatalf("Invalid MAINTENANCE_SCHEDULE %q: %v", cfg.MaintenanceSchedule, err)
		}
	}

	jobs.Start()
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(h, authLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port}).Info("Server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}
