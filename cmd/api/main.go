package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hyredlabs/outreach-console/internal/api/router"
	"github.com/hyredlabs/outreach-console/internal/campaigns"
	appconfig "github.com/hyredlabs/outreach-console/internal/config"
	"github.com/hyredlabs/outreach-console/internal/contacts"
	"github.com/hyredlabs/outreach-console/internal/dashboard"
	"github.com/hyredlabs/outreach-console/internal/inbox"
	"github.com/hyredlabs/outreach-console/internal/leads"
	"github.com/hyredlabs/outreach-console/internal/observability/metrics"
	"github.com/hyredlabs/outreach-console/internal/smartreach"
	"github.com/hyredlabs/outreach-console/internal/stats"
	"github.com/hyredlabs/outreach-console/internal/templates"
	"github.com/hyredlabs/outreach-console/internal/tracking"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting outreach-console API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Repositories fall back to memory when no database is configured,
	// which keeps local development a one-command affair.
	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	var (
		campaignRepo campaigns.Repository
		contactRepo  contacts.Repository
		templateRepo templates.Repository
		events       tracking.EventStore
		sqlDB        *sql.DB
	)
	if pool != nil {
		campaignRepo = campaigns.NewPostgresRepository(pool)
		contactRepo = contacts.NewPostgresRepository(pool)
		templateRepo = templates.NewPostgresRepository(pool)
		events = tracking.NewPostgresEventStore(pool)
		if db, err := sql.Open("pgx", cfg.DatabaseURL); err == nil {
			sqlDB = db
		} else {
			logger.Error("database/sql open failed, dashboard disabled", "error", err)
		}
	} else {
		campaignRepo = campaigns.NewInMemoryRepository()
		contactRepo = contacts.NewInMemoryRepository()
		templateRepo = templates.NewInMemoryRepository()
		events = tracking.NewInMemoryEventStore()
	}

	m := metrics.NewOutreachMetrics(prometheus.DefaultRegisterer)

	statsCache := stats.NewCache(connectRedis(cfg), cfg.StatsCacheTTL, logger)

	var srClient *smartreach.Client
	if cfg.SmartreachAPIKey != "" {
		var err error
		srClient, err = smartreach.New(smartreach.Config{
			BaseURL: cfg.SmartreachBaseURL,
			APIKey:  cfg.SmartreachAPIKey,
			Timeout: cfg.SmartreachTimeout,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("smartreach client init failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("SMARTREACH_API_KEY not set, mirroring and lead fetch disabled")
	}

	// Interface fields must stay nil when the client is absent, so the
	// handlers can report the feature as unavailable.
	var fetcher campaigns.LeadFetcher
	var uploader contacts.LeadUploader
	var mirror campaigns.Mirror
	var seqMirror templates.SequenceMirror
	if srClient != nil {
		fetcher = srClient
		uploader = srClient
		mirror = srClient
		seqMirror = srClient
	}

	issuer := tracking.NewTokenIssuer(cfg.TrackingSecret)

	routerCfg := &router.Config{
		Logger:             logger,
		CampaignsHandler:   campaigns.NewHandler(campaignRepo, contactRepo, fetcher, mirror, statsCache, &leads.Normalizer{MaxRecords: cfg.MaxLeadBatch, Logger: logger, Metrics: m}, logger),
		ContactsHandler:    contacts.NewHandler(contactRepo, uploader, campaignLookup{campaignRepo}, logger),
		TemplatesHandler:   templates.NewHandler(templateRepo, seqMirror, campaignLookup{campaignRepo}, logger),
		TrackingHandler:    tracking.NewHandler(issuer, contactRepo, events, m, logger),
		DashboardHandler:   dashboard.NewHandler(sqlDB, prometheus.DefaultGatherer, logger),
		InboxHandler:       setupInbox(ctx, cfg, srClient, contactRepo, m, logger),
		MetricsHandler:     promhttp.Handler(),
		APIKey:             cfg.AdminAPIKey,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimit,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// campaignLookup adapts the campaigns repository to the contact import
// handler, which only needs the upstream campaign id.
type campaignLookup struct {
	repo campaigns.Repository
}

func (l campaignLookup) SmartreachID(ctx context.Context, campaignID string) (int64, error) {
	c, err := l.repo.GetByID(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	return c.SmartreachID, nil
}

func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if databaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("postgres pool init failed, using in-memory repositories", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres ping failed, using in-memory repositories", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

func connectRedis(cfg *appconfig.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

func setupInbox(ctx context.Context, cfg *appconfig.Config, srClient *smartreach.Client, contactRepo contacts.Repository, m *metrics.OutreachMetrics, logger *logging.Logger) *inbox.Handler {
	if srClient == nil || cfg.GeminiAPIKey == "" {
		logger.Warn("inbox processing disabled (needs smartreach and gemini credentials)")
		return nil
	}
	completer, err := inbox.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("gemini client init failed, inbox processing disabled", "error", err)
		return nil
	}
	processor := inbox.NewProcessor(srClient, completer, contactRepo, m, logger)
	return inbox.NewHandler(processor, logger)
}
