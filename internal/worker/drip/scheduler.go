package dripworker

import (
	"context"
	"time"

	"github.com/hyredlabs/outreach-console/internal/campaigns"
	"github.com/hyredlabs/outreach-console/internal/contacts"
	"github.com/hyredlabs/outreach-console/internal/notify"
	"github.com/hyredlabs/outreach-console/internal/observability/metrics"
	"github.com/hyredlabs/outreach-console/internal/templates"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

type campaignStore interface {
	ListActive(ctx context.Context) ([]*campaigns.Campaign, error)
}

type contactStore interface {
	ListPending(ctx context.Context, campaignID string) ([]*contacts.Contact, error)
	MarkSent(ctx context.Context, id string, at time.Time) (bool, error)
}

type sequenceStore interface {
	ListSequence(ctx context.Context, campaignID string) ([]*templates.SequenceEmail, error)
}

// PixelInjector appends open tracking to an outgoing email body. Wired to
// the tracking package in production; nil disables tracking.
type PixelInjector interface {
	Inject(body, contactID, stepID string) string
}

// Scheduler walks active campaigns on a fixed interval and delivers due
// sequence emails. Delays are anchored to the contact's enrollment time, so
// a contact enrolled at T with a 1-day first step is due at T+24h no matter
// when the campaign was activated.
//
// Each tick sends at most maxSends emails (default 1) and then stops. The
// remaining due contacts are picked up on subsequent ticks, which spreads
// deliveries out instead of bursting a provider quota.
type Scheduler struct {
	campaigns campaignStore
	contacts  contactStore
	sequences sequenceStore
	sender    notify.EmailSender
	pixel     PixelInjector
	metrics   *metrics.OutreachMetrics
	logger    *logging.Logger
	interval  time.Duration
	maxSends  int
	now       func() time.Time
}

func NewScheduler(campaigns campaignStore, contacts contactStore, sequences sequenceStore, sender notify.EmailSender, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		campaigns: campaigns,
		contacts:  contacts,
		sequences: sequences,
		sender:    sender,
		logger:    logger,
		interval:  30 * time.Second,
		maxSends:  1,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Scheduler) WithInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.interval = d
	}
	return s
}

func (s *Scheduler) WithMaxSendsPerTick(n int) *Scheduler {
	if n > 0 {
		s.maxSends = n
	}
	return s
}

func (s *Scheduler) WithPixelInjector(p PixelInjector) *Scheduler {
	s.pixel = p
	return s
}

func (s *Scheduler) WithMetrics(m *metrics.OutreachMetrics) *Scheduler {
	s.metrics = m
	return s
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	if now != nil {
		s.now = now
	}
	return s
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := s.now()
	sent, err := s.Tick(ctx)
	s.metrics.ObserveTickDuration(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("drip tick failed", "error", err)
		return
	}
	if sent > 0 {
		s.logger.Info("drip tick complete", "sent", sent)
	}
}

// Tick scans active campaigns once and returns how many emails were sent.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	if s.campaigns == nil || s.contacts == nil || s.sequences == nil || s.sender == nil {
		return 0, nil
	}

	active, err := s.campaigns.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, campaign := range active {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		sequence, err := s.sequences.ListSequence(ctx, campaign.ID)
		if err != nil {
			s.logger.Error("sequence load failed", "campaign_id", campaign.ID, "error", err)
			continue
		}
		if len(sequence) == 0 {
			continue
		}

		pending, err := s.contacts.ListPending(ctx, campaign.ID)
		if err != nil {
			s.logger.Error("pending contacts load failed", "campaign_id", campaign.ID, "error", err)
			continue
		}

		for _, contact := range pending {
			step := dueStep(sequence, contact.CreatedAt, s.now())
			if step == nil {
				continue
			}
			if !s.deliver(ctx, campaign, contact, step) {
				continue
			}
			sent++
			if sent >= s.maxSends {
				return sent, nil
			}
		}
	}
	return sent, nil
}

// dueStep returns the earliest step whose delay has elapsed since the
// contact was enrolled, or nil if nothing is due yet.
func dueStep(sequence []*templates.SequenceEmail, enrolledAt, now time.Time) *templates.SequenceEmail {
	for _, step := range sequence {
		if !now.Before(enrolledAt.Add(step.Delay)) {
			return step
		}
	}
	return nil
}

func (s *Scheduler) deliver(ctx context.Context, campaign *campaigns.Campaign, contact *contacts.Contact, step *templates.SequenceEmail) bool {
	body := Render(step.Body, contact)
	if s.pixel != nil {
		body = s.pixel.Inject(body, contact.ID, step.StepID)
	}
	msg := notify.EmailMessage{
		To:      contact.Email,
		ToName:  contact.FirstName,
		Subject: Render(step.Subject, contact),
		Body:    body,
		HTML:    body,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.ObserveSend("failed")
		s.logger.Error("drip send failed",
			"campaign_id", campaign.ID,
			"contact_id", contact.ID,
			"step_id", step.StepID,
			"error", err)
		return false
	}

	ok, err := s.contacts.MarkSent(ctx, contact.ID, s.now())
	if err != nil {
		s.logger.Error("mark sent failed", "contact_id", contact.ID, "error", err)
	} else if !ok {
		s.logger.Warn("contact no longer pending after send", "contact_id", contact.ID)
	}

	s.metrics.ObserveSend("sent")
	s.logger.Info("drip email sent",
		"campaign_id", campaign.ID,
		"contact_id", contact.ID,
		"step_order", step.SequenceOrder,
		"to", contact.Email)
	return true
}
