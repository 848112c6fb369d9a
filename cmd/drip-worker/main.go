package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyredlabs/outreach-console/cmd/mainconfig"
	"github.com/hyredlabs/outreach-console/internal/campaigns"
	appconfig "github.com/hyredlabs/outreach-console/internal/config"
	"github.com/hyredlabs/outreach-console/internal/contacts"
	"github.com/hyredlabs/outreach-console/internal/notify"
	"github.com/hyredlabs/outreach-console/internal/observability/metrics"
	"github.com/hyredlabs/outreach-console/internal/templates"
	"github.com/hyredlabs/outreach-console/internal/tracking"
	dripworker "github.com/hyredlabs/outreach-console/internal/worker/drip"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required for the drip worker")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres pool init failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sender := buildEmailSender(ctx, cfg, logger)

	m := metrics.NewOutreachMetrics(prometheus.DefaultRegisterer)

	scheduler := dripworker.NewScheduler(
		campaigns.NewPostgresRepository(pool),
		contacts.NewPostgresRepository(pool),
		templates.NewPostgresRepository(pool),
		sender,
		logger,
	).
		WithInterval(cfg.DripInterval).
		WithMaxSendsPerTick(cfg.MaxSendsPerTick).
		WithMetrics(m)

	if cfg.TrackingSecret != "" && cfg.PublicBaseURL != "" {
		issuer := tracking.NewTokenIssuer(cfg.TrackingSecret)
		scheduler = scheduler.WithPixelInjector(tracking.NewInjector(issuer, cfg.PublicBaseURL))
	} else {
		logger.Warn("open tracking disabled (needs TRACKING_SECRET and PUBLIC_BASE_URL)")
	}

	// Expose worker metrics on a side port for scraping.
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	logger.Info("starting drip worker",
		"interval", cfg.DripInterval,
		"max_sends_per_tick", cfg.MaxSendsPerTick,
	)
	scheduler.Run(ctx)

	logger.Info("shutting down drip worker...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	logger.Info("drip worker stopped")
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Error("sendgrid selected but SENDGRID_API_KEY is empty, falling back to stub")
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("AWS config load failed, falling back to stub sender", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}
