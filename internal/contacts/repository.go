package contacts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for contact storage.
//
// MarkSent and Advance return false (without error) when the monotonic status
// guard rejects the change, so callers can distinguish "already past that
// state" from a storage failure.
type Repository interface {
	Create(ctx context.Context, req *CreateContactRequest) (*Contact, error)
	GetByID(ctx context.Context, id string) (*Contact, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]*Contact, error)
	ListPending(ctx context.Context, campaignID string) ([]*Contact, error)
	MarkSent(ctx context.Context, id string, at time.Time) (bool, error)
	Advance(ctx context.Context, id string, status string) (bool, error)
	CountByStatus(ctx context.Context, campaignID string) (map[string]int, error)
}

// InMemoryRepository is a Repository backed by maps, used in tests and when
// no database is configured.
type InMemoryRepository struct {
	mu       sync.RWMutex
	contacts map[string]*Contact
	byEmail  map[string]string
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		contacts: make(map[string]*Contact),
		byEmail:  make(map[string]string),
	}
}

// Create enrolls a contact.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateContactRequest) (*Contact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[req.Email]; exists {
		return nil, ErrDuplicateEmail
	}

	contact := &Contact{
		ID:         uuid.New().String(),
		CampaignID: req.CampaignID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	r.contacts[contact.ID] = contact
	r.byEmail[contact.Email] = contact.ID
	return copyContact(contact), nil
}

// GetByID retrieves a contact by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contact, ok := r.contacts[id]
	if !ok {
		return nil, ErrContactNotFound
	}
	return copyContact(contact), nil
}

// ListByCampaign returns all of a campaign's contacts ordered by creation.
func (r *InMemoryRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*Contact, error) {
	return r.listWhere(campaignID, "")
}

// ListPending returns the contacts still awaiting their first send.
func (r *InMemoryRepository) ListPending(ctx context.Context, campaignID string) ([]*Contact, error) {
	return r.listWhere(campaignID, StatusPending)
}

func (r *InMemoryRepository) listWhere(campaignID, status string) ([]*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Contact
	for _, c := range r.contacts {
		if c.CampaignID != campaignID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, copyContact(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MarkSent advances a pending contact to sent and stamps last_email_sent.
func (r *InMemoryRepository) MarkSent(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[id]
	if !ok {
		return false, ErrContactNotFound
	}
	if contact.Status != StatusPending {
		return false, nil
	}
	contact.Status = StatusSent
	sent := at
	contact.LastEmailSent = &sent
	return true, nil
}

// Advance moves a contact forward in the status machine; it never reverts.
func (r *InMemoryRepository) Advance(ctx context.Context, id string, status string) (bool, error) {
	if StatusRank(status) == 0 {
		return false, ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[id]
	if !ok {
		return false, ErrContactNotFound
	}
	if StatusRank(status) <= StatusRank(contact.Status) {
		return false, nil
	}
	contact.Status = status
	return true, nil
}

// CountByStatus aggregates a campaign's contacts per status.
func (r *InMemoryRepository) CountByStatus(ctx context.Context, campaignID string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range r.contacts {
		if c.CampaignID == campaignID {
			counts[c.Status]++
		}
	}
	return counts, nil
}

func copyContact(c *Contact) *Contact {
	copied := *c
	if c.LastEmailSent != nil {
		t := *c.LastEmailSent
		copied.LastEmailSent = &t
	}
	return &copied
}
