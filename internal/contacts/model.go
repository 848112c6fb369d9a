package contacts

import (
	"strings"
	"time"
)

// Contact statuses. Transitions are monotonic: pending -> sent -> seen ->
// responded. The drip scheduler owns pending -> sent; the tracking pixel sets
// seen; inbound-reply detection sets responded. A contact never moves back.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusSeen      = "seen"
	StatusResponded = "responded"
)

// StatusRank orders statuses for the monotonic-advance guard. Unknown
// statuses rank below pending so they can never overwrite a real one.
func StatusRank(status string) int {
	switch status {
	case StatusPending:
		return 1
	case StatusSent:
		return 2
	case StatusSeen:
		return 3
	case StatusResponded:
		return 4
	}
	return 0
}

// Contact is one recipient enrolled in a campaign.
type Contact struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaign_id"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	Email         string     `json:"email"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	LastEmailSent *time.Time `json:"last_email_sent,omitempty"`
}

// CreateContactRequest is the request body for enrolling a contact.
type CreateContactRequest struct {
	CampaignID string `json:"campaign_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
}

// Validate validates the create contact request.
func (r *CreateContactRequest) Validate() error {
	if strings.TrimSpace(r.CampaignID) == "" {
		return ErrMissingCampaign
	}
	if !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}
