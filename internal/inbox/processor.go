package inbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyredlabs/outreach-console/internal/contacts"
	"github.com/hyredlabs/outreach-console/internal/observability/metrics"
	"github.com/hyredlabs/outreach-console/internal/smartreach"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// ThreadClient reads and writes lead conversation threads upstream.
// Satisfied by the smartreach client.
type ThreadClient interface {
	MessageHistory(ctx context.Context, campaignID int64, leadID string) ([]smartreach.Message, error)
	ReplyToThread(ctx context.Context, campaignID int64, req smartreach.ReplyRequest) error
}

// ContactAdvancer moves a contact forward in the status machine.
type ContactAdvancer interface {
	Advance(ctx context.Context, id string, status string) (bool, error)
}

// Result summarizes one processed reply.
type Result struct {
	Category string `json:"category,omitempty"`
	Draft    string `json:"draft,omitempty"`
	Replied  bool   `json:"replied"`
	Skipped  bool   `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
}

// Processor categorizes inbound replies and drafts responses for the hot
// ones.
type Processor struct {
	client   ThreadClient
	llm      Completer
	contacts ContactAdvancer
	metrics  *metrics.OutreachMetrics
	logger   *logging.Logger
}

// NewProcessor creates a reply processor. contacts may be nil when the lead
// has no local contact record.
func NewProcessor(client ThreadClient, llm Completer, contacts ContactAdvancer, m *metrics.OutreachMetrics, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{client: client, llm: llm, contacts: contacts, metrics: m, logger: logger}
}

// Process inspects a lead's thread. If the latest message is an inbound
// reply it is categorized; Meeting_Ready_Lead and Power replies also get a
// drafted response, posted back to the thread when autoReply is set. If we
// sent the last message there is nothing to do.
func (p *Processor) Process(ctx context.Context, campaignID int64, leadID, contactID string, autoReply bool) (*Result, error) {
	history, err := p.client.MessageHistory(ctx, campaignID, leadID)
	if err != nil {
		return nil, fmt.Errorf("inbox: load thread: %w", err)
	}
	if len(history) == 0 {
		return &Result{Skipped: true, Reason: "no messages in thread"}, nil
	}

	last := history[len(history)-1]
	if last.FromUs() {
		return &Result{Skipped: true, Reason: "awaiting prospect reply"}, nil
	}

	if p.contacts != nil && contactID != "" {
		if _, err := p.contacts.Advance(ctx, contactID, contacts.StatusResponded); err != nil {
			p.logger.Warn("responded status advance failed", "contact_id", contactID, "error", err)
		}
	}

	category, err := Categorize(ctx, p.llm, last.EmailBody)
	if err != nil {
		return nil, fmt.Errorf("inbox: categorize: %w", err)
	}
	p.metrics.ObserveReply(category)

	result := &Result{Category: category}
	if !WantsDraft(category) {
		p.logger.Info("reply categorized", "lead_id", leadID, "category", category)
		return result, nil
	}

	draft, err := DraftReply(ctx, p.llm, renderThread(history), last.EmailBody)
	if err != nil {
		return nil, fmt.Errorf("inbox: draft reply: %w", err)
	}
	result.Draft = draft

	if autoReply {
		req := smartreach.ReplyRequest{
			EmailStatsID:   last.StatsID,
			EmailBody:      draft,
			ReplyMessageID: last.MessageID,
			AddSignature:   true,
		}
		if err := p.client.ReplyToThread(ctx, campaignID, req); err != nil {
			return nil, fmt.Errorf("inbox: post reply: %w", err)
		}
		result.Replied = true
	}

	p.logger.Info("reply processed",
		"lead_id", leadID,
		"category", category,
		"replied", result.Replied)
	return result, nil
}

func renderThread(history []smartreach.Message) string {
	var b strings.Builder
	for _, msg := range history {
		if msg.FromUs() {
			b.WriteString("Us: ")
		} else {
			b.WriteString("Prospect: ")
		}
		b.WriteString(msg.EmailBody)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
