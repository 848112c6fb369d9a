package templates

import (
	"strings"
	"time"
)

// Template is a reusable email body with placeholder support.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTemplateRequest is the request body for creating a template.
type CreateTemplateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate validates the create template request.
func (r *CreateTemplateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidTemplateName
	}
	if strings.TrimSpace(r.Subject) == "" {
		return ErrMissingSubject
	}
	return nil
}

// SequenceStep schedules one template within a campaign's drip sequence.
// Steps run in SequenceOrder; the delay is measured from the contact's
// enrollment time, not from the previous step.
type SequenceStep struct {
	ID            string    `json:"id"`
	CampaignID    string    `json:"campaign_id"`
	TemplateID    string    `json:"template_id"`
	SequenceOrder int       `json:"sequence_order"`
	DelayDays     int       `json:"delay_days"`
	DelayHours    int       `json:"delay_hours"`
	DelayMinutes  int       `json:"delay_minutes"`
	CreatedAt     time.Time `json:"created_at"`
}

// Delay converts the step's delay fields into a duration.
func (s *SequenceStep) Delay() time.Duration {
	return time.Duration(s.DelayDays)*24*time.Hour +
		time.Duration(s.DelayHours)*time.Hour +
		time.Duration(s.DelayMinutes)*time.Minute
}

// StepInput describes one step when replacing a campaign's sequence.
type StepInput struct {
	TemplateID    string `json:"template_id"`
	SequenceOrder int    `json:"sequence_order"`
	DelayDays     int    `json:"delay_days"`
	DelayHours    int    `json:"delay_hours"`
	DelayMinutes  int    `json:"delay_minutes"`
}

// Validate validates a step input.
func (s *StepInput) Validate() error {
	if strings.TrimSpace(s.TemplateID) == "" {
		return ErrMissingTemplate
	}
	if s.DelayDays < 0 || s.DelayHours < 0 || s.DelayMinutes < 0 {
		return ErrNegativeDelay
	}
	return nil
}

// SequenceEmail is a step joined with its template, the shape the drip
// scheduler consumes.
type SequenceEmail struct {
	StepID        string        `json:"step_id"`
	SequenceOrder int           `json:"sequence_order"`
	Delay         time.Duration `json:"-"`
	Subject       string        `json:"subject"`
	Body          string        `json:"body"`
}
