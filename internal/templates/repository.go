package templates

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for template and sequence storage.
type Repository interface {
	CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*Template, error)
	GetTemplate(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context) ([]*Template, error)
	ReplaceSteps(ctx context.Context, campaignID string, steps []StepInput) ([]*SequenceStep, error)
	ListSteps(ctx context.Context, campaignID string) ([]*SequenceStep, error)
	ListSequence(ctx context.Context, campaignID string) ([]*SequenceEmail, error)
}

// InMemoryRepository is a Repository backed by maps, used in tests and when
// no database is configured.
type InMemoryRepository struct {
	mu        sync.RWMutex
	templates map[string]*Template
	steps     map[string][]*SequenceStep
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		templates: make(map[string]*Template),
		steps:     make(map[string][]*SequenceStep),
	}
}

// CreateTemplate stores a new template.
func (r *InMemoryRepository) CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*Template, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tpl := &Template{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.templates[tpl.ID] = tpl
	r.mu.Unlock()

	copied := *tpl
	return &copied, nil
}

// GetTemplate retrieves a template by ID.
func (r *InMemoryRepository) GetTemplate(ctx context.Context, id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl, ok := r.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	copied := *tpl
	return &copied, nil
}

// ListTemplates returns all templates ordered by creation time.
func (r *InMemoryRepository) ListTemplates(ctx context.Context) ([]*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		copied := *tpl
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ReplaceSteps swaps a campaign's entire sequence for the given steps.
func (r *InMemoryRepository) ReplaceSteps(ctx context.Context, campaignID string, steps []StepInput) ([]*SequenceStep, error) {
	for i := range steps {
		if err := steps[i].Validate(); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range steps {
		if _, ok := r.templates[s.TemplateID]; !ok {
			return nil, ErrTemplateNotFound
		}
	}

	now := time.Now().UTC()
	replaced := make([]*SequenceStep, 0, len(steps))
	for _, s := range steps {
		replaced = append(replaced, &SequenceStep{
			ID:            uuid.New().String(),
			CampaignID:    campaignID,
			TemplateID:    s.TemplateID,
			SequenceOrder: s.SequenceOrder,
			DelayDays:     s.DelayDays,
			DelayHours:    s.DelayHours,
			DelayMinutes:  s.DelayMinutes,
			CreatedAt:     now,
		})
	}
	sortSteps(replaced)
	r.steps[campaignID] = replaced

	return copySteps(replaced), nil
}

// ListSteps returns a campaign's steps in sequence order.
func (r *InMemoryRepository) ListSteps(ctx context.Context, campaignID string) ([]*SequenceStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copySteps(r.steps[campaignID]), nil
}

// ListSequence returns a campaign's steps joined with their templates.
func (r *InMemoryRepository) ListSequence(ctx context.Context, campaignID string) ([]*SequenceEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*SequenceEmail
	for _, s := range r.steps[campaignID] {
		tpl, ok := r.templates[s.TemplateID]
		if !ok {
			return nil, ErrTemplateNotFound
		}
		out = append(out, &SequenceEmail{
			StepID:        s.ID,
			SequenceOrder: s.SequenceOrder,
			Delay:         s.Delay(),
			Subject:       tpl.Subject,
			Body:          tpl.Body,
		})
	}
	return out, nil
}

func sortSteps(steps []*SequenceStep) {
	sort.Slice(steps, func(i, j int) bool { return steps[i].SequenceOrder < steps[j].SequenceOrder })
}

func copySteps(steps []*SequenceStep) []*SequenceStep {
	out := make([]*SequenceStep, 0, len(steps))
	for _, s := range steps {
		copied := *s
		out = append(out, &copied)
	}
	return out
}
