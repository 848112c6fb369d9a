package inbox

import (
	"encoding/json"
	"net/http"

	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// Handler exposes the reply-processing endpoint.
type Handler struct {
	processor *Processor
	logger    *logging.Logger
}

// NewHandler creates an inbox handler.
func NewHandler(processor *Processor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{processor: processor, logger: logger}
}

// ProcessRequest identifies the thread to process.
type ProcessRequest struct {
	CampaignSmartreachID int64  `json:"campaign_smartreach_id"`
	LeadID               string `json:"lead_id"`
	ContactID            string `json:"contact_id,omitempty"`
	AutoReply            bool   `json:"auto_reply"`
}

// Process handles POST /inbox/process.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	if h.processor == nil {
		http.Error(w, "inbox processing unavailable", http.StatusServiceUnavailable)
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.CampaignSmartreachID == 0 || req.LeadID == "" {
		http.Error(w, "campaign_smartreach_id and lead_id are required", http.StatusBadRequest)
		return
	}

	result, err := h.processor.Process(r.Context(), req.CampaignSmartreachID, req.LeadID, req.ContactID, req.AutoReply)
	if err != nil {
		h.logger.Error("reply processing failed", "lead_id", req.LeadID, "error", err)
		http.Error(w, "processing failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
