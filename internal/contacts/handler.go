package contacts

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// LeadUploader mirrors imported contacts to the upstream sending platform so
// the two systems stay in sync. Wired to the smartreach client in production.
type LeadUploader interface {
	UploadLeads(ctx context.Context, campaignSmartreachID int64, leads []map[string]string) error
}

// CampaignLookup resolves the upstream campaign id for mirroring.
type CampaignLookup interface {
	SmartreachID(ctx context.Context, campaignID string) (int64, error)
}

// Handler exposes contact endpoints.
type Handler struct {
	repo      Repository
	uploader  LeadUploader
	campaigns CampaignLookup
	logger    *logging.Logger
}

// NewHandler creates a contacts handler. uploader and campaigns may be nil,
// in which case imports are local-only.
func NewHandler(repo Repository, uploader LeadUploader, campaigns CampaignLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, uploader: uploader, campaigns: campaigns, logger: logger}
}

// Create handles POST /contacts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	contact, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingCampaign), errors.Is(err, ErrInvalidEmail):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrDuplicateEmail):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("contact create failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(contact)
}

// List handles GET /campaigns/{campaignID}/contacts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		http.Error(w, "missing campaignID", http.StatusBadRequest)
		return
	}

	list, err := h.repo.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("contact list failed", "campaign_id", campaignID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Contact{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"contacts": list,
		"total":    len(list),
	})
}

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
	Mirrored bool     `json:"mirrored"`
}

// Import handles POST /campaigns/{campaignID}/contacts/import. The body is a
// CSV file with a header row; recognized columns are "First Name",
// "Last Name" and "Email" (case-insensitive). Rows without a usable email are
// skipped, duplicates are skipped, and the rest are enrolled as pending.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		http.Error(w, "missing campaignID", http.StatusBadRequest)
		return
	}

	body := r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	rows, err := parseCSV(body)
	if err != nil {
		http.Error(w, "invalid csv: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "csv contains no data rows", http.StatusBadRequest)
		return
	}

	result := ImportResult{}
	var mirror []map[string]string
	for _, row := range rows {
		req := &CreateContactRequest{
			CampaignID: campaignID,
			FirstName:  row["first_name"],
			LastName:   row["last_name"],
			Email:      row["email"],
		}
		if _, err := h.repo.Create(r.Context(), req); err != nil {
			result.Skipped++
			if !errors.Is(err, ErrDuplicateEmail) && !errors.Is(err, ErrInvalidEmail) {
				result.Errors = append(result.Errors, err.Error())
			}
			continue
		}
		result.Imported++
		mirror = append(mirror, map[string]string{
			"first_name": req.FirstName,
			"last_name":  req.LastName,
			"email":      req.Email,
		})
	}

	if h.uploader != nil && h.campaigns != nil && len(mirror) > 0 {
		srID, err := h.campaigns.SmartreachID(r.Context(), campaignID)
		if err != nil {
			h.logger.Warn("campaign lookup for mirror failed", "campaign_id", campaignID, "error", err)
		} else if srID != 0 {
			if err := h.uploader.UploadLeads(r.Context(), srID, mirror); err != nil {
				h.logger.Warn("lead mirror upload failed", "campaign_id", campaignID, "error", err)
			} else {
				result.Mirrored = true
			}
		}
	}

	h.logger.Info("contacts imported",
		"campaign_id", campaignID,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"mirrored", result.Mirrored)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// csvColumns maps accepted header names to canonical field keys.
var csvColumns = map[string]string{
	"first name":    "first_name",
	"first_name":    "first_name",
	"firstname":     "first_name",
	"last name":     "last_name",
	"last_name":     "last_name",
	"lastname":      "last_name",
	"email":         "email",
	"email address": "email",
}

func parseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	fields := make([]string, len(header))
	for i, name := range header {
		fields[i] = csvColumns[strings.ToLower(strings.TrimSpace(name))]
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string)
		for i, value := range record {
			if i < len(fields) && fields[i] != "" {
				row[fields[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
