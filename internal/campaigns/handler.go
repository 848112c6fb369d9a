package campaigns

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyredlabs/outreach-console/internal/leads"
	"github.com/hyredlabs/outreach-console/internal/smartreach"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// ContactCounter aggregates a campaign's contacts per status. Satisfied by
// the contacts repository.
type ContactCounter interface {
	CountByStatus(ctx context.Context, campaignID string) (map[string]int, error)
}

// LeadFetcher pulls raw lead records for a campaign from the upstream
// platform. Satisfied by the smartreach client.
type LeadFetcher interface {
	FetchLeads(ctx context.Context, campaignSmartreachID int64, offset, limit int) ([]leads.RawRecord, error)
}

// Mirror pushes campaign lifecycle changes to the upstream platform so the
// local record and the real sender never drift. Satisfied by the smartreach
// client.
type Mirror interface {
	CreateCampaign(ctx context.Context, name string) (*smartreach.CampaignSummary, error)
	StartCampaign(ctx context.Context, campaignSmartreachID int64) error
	PauseCampaign(ctx context.Context, campaignSmartreachID int64) error
	ListEmailAccounts(ctx context.Context, offset, limit int) ([]smartreach.EmailAccount, error)
	AssignEmailAccounts(ctx context.Context, campaignSmartreachID int64, accountIDs []int64) error
	FetchStats(ctx context.Context, campaignSmartreachID int64) (*smartreach.CampaignStats, error)
}

// StatsCache caches computed stats. Get reports a miss with false.
type StatsCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, key string) error
}

// Handler exposes campaign endpoints.
type Handler struct {
	repo       Repository
	contacts   ContactCounter
	fetcher    LeadFetcher
	mirror     Mirror
	cache      StatsCache
	normalizer *leads.Normalizer
	logger     *logging.Logger
}

// NewHandler creates a campaigns handler. contacts, fetcher, mirror and cache
// may be nil; the endpoints that need them return 503 or skip the upstream
// call in that case.
func NewHandler(repo Repository, contacts ContactCounter, fetcher LeadFetcher, mirror Mirror, cache StatsCache, normalizer *leads.Normalizer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if normalizer == nil {
		normalizer = &leads.Normalizer{Logger: logger}
	}
	return &Handler{
		repo:       repo,
		contacts:   contacts,
		fetcher:    fetcher,
		mirror:     mirror,
		cache:      cache,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Create handles POST /campaigns.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Create the upstream campaign first so the local row carries its id.
	// Upstream being down leaves the campaign unlinked, not unrecorded.
	if h.mirror != nil && req.SmartreachID == 0 {
		if summary, err := h.mirror.CreateCampaign(r.Context(), req.Name); err != nil {
			h.logger.Warn("upstream campaign create failed, campaign stays unlinked", "name", req.Name, "error", err)
		} else {
			req.SmartreachID = summary.ID
		}
	}

	campaign, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("campaign create failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

// List handles GET /campaigns.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("campaign list failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Campaign{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"campaigns": list,
		"total":     len(list),
	})
}

// Get handles GET /campaigns/{campaignID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, ok := h.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

// UpdateStatus handles PUT /campaigns/{campaignID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		http.Error(w, "missing campaignID", http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	campaign, err := h.repo.UpdateStatus(r.Context(), campaignID, body.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("campaign status update failed", "campaign_id", campaignID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("campaign status changed", "campaign_id", campaignID, "status", campaign.Status)
	h.mirrorStatus(r.Context(), campaign)

	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context(), "campaign_stats:"+campaign.ID); err != nil {
			h.logger.Warn("stats cache invalidate failed", "campaign_id", campaign.ID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

// mirrorStatus propagates a status change upstream. The local transition has
// already committed, so upstream failures are logged and retried by the
// operator, never surfaced as request errors.
func (h *Handler) mirrorStatus(ctx context.Context, campaign *Campaign) {
	if h.mirror == nil || campaign.SmartreachID == 0 {
		return
	}
	switch campaign.Status {
	case StatusActive:
		// Starting a campaign needs sending mailboxes attached first.
		accounts, err := h.mirror.ListEmailAccounts(ctx, 0, 25)
		if err != nil {
			h.logger.Warn("email account list failed, upstream start skipped", "campaign_id", campaign.ID, "error", err)
			return
		}
		ids := make([]int64, 0, len(accounts))
		for _, a := range accounts {
			ids = append(ids, a.ID)
		}
		if len(ids) == 0 {
			h.logger.Warn("no upstream email accounts, upstream start skipped", "campaign_id", campaign.ID)
			return
		}
		if err := h.mirror.AssignEmailAccounts(ctx, campaign.SmartreachID, ids); err != nil {
			h.logger.Warn("email account assignment failed", "campaign_id", campaign.ID, "error", err)
			return
		}
		if err := h.mirror.StartCampaign(ctx, campaign.SmartreachID); err != nil {
			h.logger.Warn("upstream start failed", "campaign_id", campaign.ID, "error", err)
		}
	case StatusPaused, StatusCompleted:
		if err := h.mirror.PauseCampaign(ctx, campaign.SmartreachID); err != nil {
			h.logger.Warn("upstream pause failed", "campaign_id", campaign.ID, "error", err)
		}
	}
}

// Stats handles GET /campaigns/{campaignID}/stats. Computed stats are cached
// so dashboard polling does not hammer the contacts table.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.contacts == nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	campaign, ok := h.lookup(w, r)
	if !ok {
		return
	}

	cacheKey := "campaign_stats:" + campaign.ID
	if h.cache != nil {
		var cached CampaignStats
		hit, err := h.cache.Get(r.Context(), cacheKey, &cached)
		if err != nil {
			h.logger.Warn("stats cache read failed", "campaign_id", campaign.ID, "error", err)
		} else if hit {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(cached)
			return
		}
	}

	counts, err := h.contacts.CountByStatus(r.Context(), campaign.ID)
	if err != nil {
		h.logger.Error("stats aggregation failed", "campaign_id", campaign.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	stats := StatsFromCounts(counts, time.Now().UTC())

	// Upstream analytics ride along when the campaign is linked; a failed
	// fetch degrades to local counts only.
	if h.mirror != nil && campaign.SmartreachID != 0 {
		upstream, err := h.mirror.FetchStats(r.Context(), campaign.SmartreachID)
		if err != nil {
			h.logger.Warn("upstream stats fetch failed", "campaign_id", campaign.ID, "error", err)
		} else {
			stats.Upstream = upstream
		}
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, stats); err != nil {
			h.logger.Warn("stats cache write failed", "campaign_id", campaign.ID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// Leads handles GET /campaigns/{campaignID}/leads. It pulls raw lead records
// from the upstream platform and returns them normalized.
func (h *Handler) Leads(w http.ResponseWriter, r *http.Request) {
	if h.fetcher == nil {
		http.Error(w, "lead fetching unavailable", http.StatusServiceUnavailable)
		return
	}
	campaign, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if campaign.SmartreachID == 0 {
		http.Error(w, "campaign is not linked upstream", http.StatusConflict)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	maxBatch := h.normalizer.MaxRecords
	if maxBatch <= 0 {
		maxBatch = leads.DefaultMaxRecords
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > maxBatch {
		limit = maxBatch
	}

	records, err := h.fetcher.FetchLeads(r.Context(), campaign.SmartreachID, offset, limit)
	if err != nil {
		h.logger.Error("lead fetch failed", "campaign_id", campaign.ID, "error", err)
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	normalized := h.normalizer.NormalizeBatch(records)
	if normalized == nil {
		normalized = []leads.NormalizedLead{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"leads": normalized,
		"total": len(normalized),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Campaign, bool) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		http.Error(w, "missing campaignID", http.StatusBadRequest)
		return nil, false
	}
	campaign, err := h.repo.GetByID(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("campaign lookup failed", "campaign_id", campaignID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return campaign, true
}
