package campaigns

import (
	"strings"
	"time"

	"github.com/hyredlabs/outreach-console/internal/smartreach"
)

// Campaign statuses. Only active campaigns are scanned by the drip scheduler.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// Campaign mirrors one campaign on the outreach platform.
type Campaign struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	SmartreachID int64     `json:"smartreach_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCampaignRequest is the request body for creating a campaign.
type CreateCampaignRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SmartreachID int64  `json:"smartreach_id"`
}

// Validate validates the create campaign request.
func (r *CreateCampaignRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	return nil
}

// ValidStatus reports whether s is a known campaign status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a campaign may move from one status to
// another. Completed is terminal.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusDraft:
		return to == StatusActive
	case StatusActive:
		return to == StatusPaused || to == StatusCompleted
	case StatusPaused:
		return to == StatusActive || to == StatusCompleted
	}
	return false
}

// CampaignStats summarizes per-campaign delivery numbers for the dashboard.
type CampaignStats struct {
	TotalContacts int       `json:"total_contacts"`
	Pending       int       `json:"pending"`
	Sent          int       `json:"sent"`
	Seen          int       `json:"seen"`
	Responded     int       `json:"responded"`
	OpenRate      float64   `json:"open_rate"`
	ReplyRate     float64   `json:"reply_rate"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Upstream is the platform's own delivery report, present only when
	// the campaign is linked and the fetch succeeded.
	Upstream *smartreach.CampaignStats `json:"upstream,omitempty"`
}

// StatsFromCounts builds stats from per-status contact counts. Rates are
// computed against contacts that were actually emailed: a contact that is
// seen or responded was necessarily sent first.
func StatsFromCounts(counts map[string]int, at time.Time) CampaignStats {
	stats := CampaignStats{
		Pending:   counts["pending"],
		Sent:      counts["sent"],
		Seen:      counts["seen"],
		Responded: counts["responded"],
		UpdatedAt: at,
	}
	stats.TotalContacts = stats.Pending + stats.Sent + stats.Seen + stats.Responded
	emailed := stats.Sent + stats.Seen + stats.Responded
	if emailed > 0 {
		stats.OpenRate = float64(stats.Seen+stats.Responded) / float64(emailed)
		stats.ReplyRate = float64(stats.Responded) / float64(emailed)
	}
	return stats
}
