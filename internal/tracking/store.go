package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenEvent records one tracking pixel hit.
type OpenEvent struct {
	ID         string    `json:"id"`
	ContactID  string    `json:"contact_id"`
	StepID     string    `json:"step_id,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventStore persists open events.
type EventStore interface {
	Insert(ctx context.Context, event *OpenEvent) error
	ListByContact(ctx context.Context, contactID string) ([]*OpenEvent, error)
}

// InMemoryEventStore keeps open events in memory.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []*OpenEvent
}

// NewInMemoryEventStore creates an empty store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

// Insert records an open event.
func (s *InMemoryEventStore) Insert(ctx context.Context, event *OpenEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	if copied.OccurredAt.IsZero() {
		copied.OccurredAt = time.Now().UTC()
	}
	s.events = append(s.events, &copied)
	return nil
}

// ListByContact returns a contact's open events in insertion order.
func (s *InMemoryEventStore) ListByContact(ctx context.Context, contactID string) ([]*OpenEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*OpenEvent
	for _, e := range s.events {
		if e.ContactID == contactID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresEventStore persists open events in the relational database.
type PostgresEventStore struct {
	db querier
}

// NewPostgresEventStore initializes a store backed by pgxpool.
func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	if pool == nil {
		panic("tracking: pgx pool required")
	}
	return &PostgresEventStore{db: pool}
}

func newPostgresEventStoreWithQuerier(db querier) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// Insert records an open event.
func (s *PostgresEventStore) Insert(ctx context.Context, event *OpenEvent) error {
	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}
	query := `
		INSERT INTO open_events (id, contact_id, step_id, user_agent)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`
	if _, err := s.db.Exec(ctx, query, id, event.ContactID, event.StepID, event.UserAgent); err != nil {
		return fmt.Errorf("tracking: insert open event failed: %w", err)
	}
	return nil
}

// ListByContact returns a contact's open events, oldest first.
func (s *PostgresEventStore) ListByContact(ctx context.Context, contactID string) ([]*OpenEvent, error) {
	query := `
		SELECT id, contact_id, COALESCE(step_id, ''), COALESCE(user_agent, ''), occurred_at
		FROM open_events
		WHERE contact_id = $1
		ORDER BY occurred_at
	`
	rows, err := s.db.Query(ctx, query, contactID)
	if err != nil {
		return nil, fmt.Errorf("tracking: list open events failed: %w", err)
	}
	defer rows.Close()

	var out []*OpenEvent
	for rows.Next() {
		var e OpenEvent
		if err := rows.Scan(&e.ID, &e.ContactID, &e.StepID, &e.UserAgent, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("tracking: scan open event failed: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
