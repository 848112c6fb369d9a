package dripworker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyredlabs/outreach-console/internal/campaigns"
	"github.com/hyredlabs/outreach-console/internal/contacts"
	"github.com/hyredlabs/outreach-console/internal/notify"
	"github.com/hyredlabs/outreach-console/internal/templates"
)

type fakeSender struct {
	sent []notify.EmailMessage
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fixture struct {
	campaigns *campaigns.InMemoryRepository
	contacts  *contacts.InMemoryRepository
	templates *templates.InMemoryRepository
	sender    *fakeSender
	scheduler *Scheduler
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		campaigns: campaigns.NewInMemoryRepository(),
		contacts:  contacts.NewInMemoryRepository(),
		templates: templates.NewInMemoryRepository(),
		sender: &fakeSender{},
		// Contacts are enrolled at wall-clock time by the in-memory repo,
		// so the test clock starts an hour ahead to make zero-delay steps
		// immediately due.
		clock: time.Now().UTC().Add(time.Hour),
	}
	f.scheduler = NewScheduler(f.campaigns, f.contacts, f.templates, f.sender, nil).
		WithClock(func() time.Time { return f.clock })
	return f
}

func (f *fixture) activeCampaign(t *testing.T) *campaigns.Campaign {
	t.Helper()
	c, err := f.campaigns.Create(context.Background(), &campaigns.CreateCampaignRequest{Name: "drip"})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if _, err := f.campaigns.UpdateStatus(context.Background(), c.ID, campaigns.StatusActive); err != nil {
		t.Fatalf("activate campaign: %v", err)
	}
	return c
}

func (f *fixture) sequence(t *testing.T, campaignID string, delays ...int) {
	t.Helper()
	tpl, err := f.templates.CreateTemplate(context.Background(), &templates.CreateTemplateRequest{
		Name:    "step",
		Subject: "Hello {{first_name}}",
		Body:    "Hi {{first_name}} {{last_name}}",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	steps := make([]templates.StepInput, 0, len(delays))
	for i, d := range delays {
		steps = append(steps, templates.StepInput{TemplateID: tpl.ID, SequenceOrder: i + 1, DelayDays: d})
	}
	if _, err := f.templates.ReplaceSteps(context.Background(), campaignID, steps); err != nil {
		t.Fatalf("replace steps: %v", err)
	}
}

func (f *fixture) enroll(t *testing.T, campaignID, email string) *contacts.Contact {
	t.Helper()
	c, err := f.contacts.Create(context.Background(), &contacts.CreateContactRequest{
		CampaignID: campaignID,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      email,
	})
	if err != nil {
		t.Fatalf("enroll contact: %v", err)
	}
	return c
}

func TestNoSendBeforeDelayElapses(t *testing.T) {
	f := newFixture(t)
	c := f.activeCampaign(t)
	f.sequence(t, c.ID, 1)
	contact := f.enroll(t, c.ID, "ada@example.com")

	// The first step is due a day after enrollment.
	f.clock = contact.CreatedAt.Add(23 * time.Hour)
	sent, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sent != 0 || len(f.sender.sent) != 0 {
		t.Errorf("expected no sends before the delay elapsed, got %d", sent)
	}
}

func TestSendsWhenDue(t *testing.T) {
	f := newFixture(t)
	c := f.activeCampaign(t)
	f.sequence(t, c.ID, 1)
	contact := f.enroll(t, c.ID, "ada@example.com")

	f.clock = contact.CreatedAt.Add(24 * time.Hour)
	sent, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sent != 1 || len(f.sender.sent) != 1 {
		t.Fatalf("expected exactly one send, got %d", sent)
	}

	msg := f.sender.sent[0]
	if msg.To != "ada@example.com" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if msg.Subject != "Hello Ada" {
		t.Errorf("placeholders not rendered in subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Ada Lovelace") {
		t.Errorf("placeholders not rendered in body: %q", msg.Body)
	}

	got, _ := f.contacts.GetByID(context.Background(), contact.ID)
	if got.Status != contacts.StatusSent {
		t.Errorf("expected contact marked sent, got %q", got.Status)
	}
	if got.LastEmailSent == nil || !got.LastEmailSent.Equal(f.clock) {
		t.Errorf("expected last_email_sent %v, got %v", f.clock, got.LastEmailSent)
	}
}

func TestNoResendOnLaterTicks(t *testing.T) {
	f := newFixture(t)
	c := f.activeCampaign(t)
	f.sequence(t, c.ID, 1)
	contact := f.enroll(t, c.ID, "ada@example.com")

	f.clock = contact.CreatedAt.Add(24 * time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := f.scheduler.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		f.clock = f.clock.Add(30 * time.Second)
	}
	if len(f.sender.sent) != 1 {
		t.Errorf("expected a single send across ticks, got %d", len(f.sender.sent))
	}
}

func TestOneSendPerTickSpreadsLoad(t *testing.T) {
	f := newFixture(t)
	c := f.activeCampaign(t)
	f.sequence(t, c.ID, 0)
	f.enroll(t, c.ID, "a@example.com")
	f.enroll(t, c.ID, "b@example.com")

	// Both contacts are due immediately, but each tick delivers one.
	sent, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 send on first tick, got %d", sent)
	}

	sent, err = f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 send on second tick, got %d", sent)
	}
	if len(f.sender.sent) != 2 {
		t.Errorf("expected both contacts served after two ticks, got %d", len(f.sender.sent))
	}

	recipients := map[string]bool{}
	for _, msg := range f.sender.sent {
		recipients[msg.To] = true
	}
	if !recipients["a@example.com"] || !recipients["b@example.com"] {
		t.Errorf("expected both recipients served, got %v", recipients)
	}
}

func TestMaxSendsPerTickConfigurable(t *testing.T) {
	f := newFixture(t)
	f.scheduler.WithMaxSendsPerTick(10)
	c := f.activeCampaign(t)
	f.sequence(t, c.ID, 0)
	f.enroll(t, c.ID, "a@example.com")
	f.enroll(t, c.ID, "b@example.com")

	sent, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sent != 2 {
		t.Errorf("expected both sends in one tick, got %d", sent)
	}
}

func TestFailedSendLeavesContactPending(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("provider down")
	c := f.activeCampaign(t)
	f.sequence(t, c.ID, 0)
	contact := f.enroll(t, c.ID, "ada@example.com")

	sent, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sent != 0 {
		t.Errorf("expected no successful sends, got %d", sent)
	}

	got, _ := f.contacts.GetByID(context.Background(), contact.ID)
	if got.Status != contacts.StatusPending {
		t.Errorf("failed send must leave contact pending, got %q", got.Status)
	}
	if got.LastEmailSent != nil {
		t.Error("failed send must not stamp last_email_sent")
	}

	// Provider recovers; next tick delivers.
	f.sender.err = nil
	sent, err = f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("recovery tick: %v", err)
	}
	if sent != 1 {
		t.Errorf("expected send after recovery, got %d", sent)
	}
}

func TestInactiveCampaignsAreSkipped(t *testing.T) {
	f := newFixture(t)
	c, err := f.campaigns.Create(context.Background(), &campaigns.CreateCampaignRequest{Name: "still draft"})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	f.sequence(t, c.ID, 0)
	f.enroll(t, c.ID, "ada@example.com")

	sent, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sent != 0 {
		t.Errorf("draft campaign must not send, got %d", sent)
	}
}

func TestCampaignWithoutSequenceIsSkipped(t *testing.T) {
	f := newFixture(t)
	c := f.activeCampaign(t)
	f.enroll(t, c.ID, "ada@example.com")

	sent, err := f.scheduler.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sent != 0 {
		t.Errorf("campaign without sequence must not send, got %d", sent)
	}
}

func TestEarliestDueStepWins(t *testing.T) {
	f := newFixture(t)
	c := f.activeCampaign(t)
	f.sequence(t, c.ID, 1, 4)
	contact := f.enroll(t, c.ID, "ada@example.com")

	// Both steps are past due; the contact gets the first one.
	f.clock = contact.CreatedAt.Add(10 * 24 * time.Hour)
	if _, err := f.scheduler.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(f.sender.sent))
	}
}

type fakePixel struct{ suffix string }

func (f *fakePixel) Inject(body, contactID, stepID string) string {
	return body + f.suffix + contactID + "@" + stepID
}

func TestPixelInjectedIntoBody(t *testing.T) {
	f := newFixture(t)
	f.scheduler.WithPixelInjector(&fakePixel{suffix: "|pixel:"})
	c := f.activeCampaign(t)
	f.sequence(t, c.ID, 0)
	contact := f.enroll(t, c.ID, "ada@example.com")

	if _, err := f.scheduler.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(f.sender.sent))
	}
	seq, err := f.templates.ListSequence(context.Background(), c.ID)
	if err != nil || len(seq) != 1 {
		t.Fatalf("list sequence: %v (%d steps)", err, len(seq))
	}
	if !strings.Contains(f.sender.sent[0].Body, "|pixel:"+contact.ID+"@"+seq[0].StepID) {
		t.Errorf("pixel missing contact and step ids: %q", f.sender.sent[0].Body)
	}
}
