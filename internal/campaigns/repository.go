package campaigns

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for campaign storage
type Repository interface {
	Create(ctx context.Context, req *CreateCampaignRequest) (*Campaign, error)
	GetByID(ctx context.Context, id string) (*Campaign, error)
	List(ctx context.Context) ([]*Campaign, error)
	ListActive(ctx context.Context) ([]*Campaign, error)
	UpdateStatus(ctx context.Context, id string, status string) (*Campaign, error)
}

// InMemoryRepository is a Repository backed by a map, used in tests and when
// no database is configured.
type InMemoryRepository struct {
	mu        sync.RWMutex
	campaigns map[string]*Campaign
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		campaigns: make(map[string]*Campaign),
	}
}

// Create creates a new campaign in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateCampaignRequest) (*Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	campaign := &Campaign{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Description:  req.Description,
		Status:       StatusDraft,
		SmartreachID: req.SmartreachID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	r.campaigns[campaign.ID] = campaign
	r.mu.Unlock()

	return campaign, nil
}

// GetByID retrieves a campaign by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	copied := *campaign
	return &copied, nil
}

// List returns all campaigns ordered by creation time.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListActive returns campaigns the scheduler should scan.
func (r *InMemoryRepository) ListActive(ctx context.Context) ([]*Campaign, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, c := range all {
		if c.Status == StatusActive {
			active = append(active, c)
		}
	}
	return active, nil
}

// UpdateStatus moves a campaign through its status machine.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status string) (*Campaign, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	if !CanTransition(campaign.Status, status) {
		return nil, ErrInvalidTransition
	}
	campaign.Status = status
	campaign.UpdatedAt = time.Now().UTC()
	copied := *campaign
	return &copied, nil
}
