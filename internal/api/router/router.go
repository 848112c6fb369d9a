package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hyredlabs/outreach-console/internal/campaigns"
	"github.com/hyredlabs/outreach-console/internal/contacts"
	"github.com/hyredlabs/outreach-console/internal/dashboard"
	httpmiddleware "github.com/hyredlabs/outreach-console/internal/http/middleware"
	"github.com/hyredlabs/outreach-console/internal/inbox"
	"github.com/hyredlabs/outreach-console/internal/templates"
	"github.com/hyredlabs/outreach-console/internal/tracking"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	CampaignsHandler *campaigns.Handler
	ContactsHandler  *contacts.Handler
	TemplatesHandler *templates.Handler
	TrackingHandler  *tracking.Handler
	InboxHandler     *inbox.Handler
	DashboardHandler *dashboard.Handler
	MetricsHandler   http.Handler

	// APIKey guards the console routes; empty disables the guard.
	APIKey             string
	CORSAllowedOrigins []string

	// RateLimit is requests per second per IP on public endpoints.
	// Zero disables rate limiting.
	RateLimit      float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health, metrics, tracking pixel)
	r.Group(func(public chi.Router) {
		if cfg.RateLimit > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst))
		}
		public.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		// The pixel endpoint is hit from prospect mail clients and must
		// never require a key.
		if cfg.TrackingHandler != nil {
			public.Get("/t/{token}", cfg.TrackingHandler.Pixel)
		}
	})

	// Console API (protected by the shared key)
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.APIKey(cfg.APIKey))

		if cfg.CampaignsHandler != nil {
			api.Route("/campaigns", func(r chi.Router) {
				r.Post("/", cfg.CampaignsHandler.Create)
				r.Get("/", cfg.CampaignsHandler.List)
				r.Route("/{campaignID}", func(r chi.Router) {
					r.Get("/", cfg.CampaignsHandler.Get)
					r.Put("/status", cfg.CampaignsHandler.UpdateStatus)
					r.Get("/stats", cfg.CampaignsHandler.Stats)
					r.Get("/leads", cfg.CampaignsHandler.Leads)
					if cfg.ContactsHandler != nil {
						r.Get("/contacts", cfg.ContactsHandler.List)
						r.Post("/contacts/import", cfg.ContactsHandler.Import)
					}
					if cfg.TemplatesHandler != nil {
						r.Put("/sequence", cfg.TemplatesHandler.ReplaceSequence)
						r.Get("/sequence", cfg.TemplatesHandler.ListSequence)
					}
				})
			})
		}

		if cfg.ContactsHandler != nil {
			api.Post("/contacts", cfg.ContactsHandler.Create)
		}

		if cfg.TemplatesHandler != nil {
			api.Route("/templates", func(r chi.Router) {
				r.Post("/", cfg.TemplatesHandler.Create)
				r.Get("/", cfg.TemplatesHandler.List)
				r.Get("/{templateID}", cfg.TemplatesHandler.Get)
			})
		}

		if cfg.InboxHandler != nil {
			api.Post("/inbox/process", cfg.InboxHandler.Process)
		}

		if cfg.DashboardHandler != nil {
			api.Get("/dashboard", cfg.DashboardHandler.GetOverview)
		}
	})

	return r
}
