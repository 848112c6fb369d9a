package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyredlabs/outreach-console/internal/smartreach"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// SequenceMirror replaces the campaign's upstream drip sequence. Satisfied
// by the smartreach client.
type SequenceMirror interface {
	SaveSequence(ctx context.Context, campaignSmartreachID int64, steps []smartreach.SequenceStepPayload) error
}

// CampaignLookup resolves a local campaign to its upstream id.
type CampaignLookup interface {
	SmartreachID(ctx context.Context, campaignID string) (int64, error)
}

// Handler exposes template and sequence endpoints.
type Handler struct {
	repo      Repository
	mirror    SequenceMirror
	campaigns CampaignLookup
	logger    *logging.Logger
}

// NewHandler creates a templates handler. mirror and campaigns may be nil;
// sequence edits then stay local only.
func NewHandler(repo Repository, mirror SequenceMirror, campaigns CampaignLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, mirror: mirror, campaigns: campaigns, logger: logger}
}

// Create handles POST /templates.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	tpl, err := h.repo.CreateTemplate(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidTemplateName) || errors.Is(err, ErrMissingSubject) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("template create failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tpl)
}

// List handles GET /templates.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListTemplates(r.Context())
	if err != nil {
		h.logger.Error("template list failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Template{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"templates": list,
		"total":     len(list),
	})
}

// Get handles GET /templates/{templateID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	if id == "" {
		http.Error(w, "missing templateID", http.StatusBadRequest)
		return
	}

	tpl, err := h.repo.GetTemplate(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("template get failed", "template_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tpl)
}

// ReplaceSequence handles PUT /campaigns/{campaignID}/sequence.
func (h *Handler) ReplaceSequence(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		http.Error(w, "missing campaignID", http.StatusBadRequest)
		return
	}

	var body struct {
		Steps []StepInput `json:"steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	steps, err := h.repo.ReplaceSteps(r.Context(), campaignID, body.Steps)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingTemplate), errors.Is(err, ErrNegativeDelay):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrTemplateNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error("sequence replace failed", "campaign_id", campaignID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("sequence replaced", "campaign_id", campaignID, "steps", len(steps))
	h.mirrorSequence(r.Context(), campaignID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"steps": steps,
		"total": len(steps),
	})
}

// mirrorSequence pushes the campaign's sequence upstream after a local edit.
// The local replacement has already committed, so failures are logged only.
func (h *Handler) mirrorSequence(ctx context.Context, campaignID string) {
	if h.mirror == nil || h.campaigns == nil {
		return
	}
	srID, err := h.campaigns.SmartreachID(ctx, campaignID)
	if err != nil {
		h.logger.Warn("campaign lookup failed, upstream sequence not pushed", "campaign_id", campaignID, "error", err)
		return
	}
	if srID == 0 {
		return
	}
	sequence, err := h.repo.ListSequence(ctx, campaignID)
	if err != nil {
		h.logger.Warn("sequence load failed, upstream sequence not pushed", "campaign_id", campaignID, "error", err)
		return
	}
	payload := make([]smartreach.SequenceStepPayload, 0, len(sequence))
	for _, step := range sequence {
		payload = append(payload, smartreach.SequenceStepPayload{
			SeqNumber:    step.SequenceOrder,
			SeqDelayDays: int(step.Delay / (24 * time.Hour)),
			Subject:      step.Subject,
			EmailBody:    step.Body,
		})
	}
	if len(payload) == 0 {
		return
	}
	if err := h.mirror.SaveSequence(ctx, srID, payload); err != nil {
		h.logger.Warn("upstream sequence push failed", "campaign_id", campaignID, "error", err)
	}
}

// ListSequence handles GET /campaigns/{campaignID}/sequence.
func (h *Handler) ListSequence(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		http.Error(w, "missing campaignID", http.StatusBadRequest)
		return
	}

	steps, err := h.repo.ListSteps(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("sequence list failed", "campaign_id", campaignID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if steps == nil {
		steps = []*SequenceStep{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"steps": steps,
		"total": len(steps),
	})
}
