package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores contacts in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("contacts: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const contactColumns = "id, campaign_id, first_name, last_name, email, status, created_at, last_email_sent"

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	if err := row.Scan(
		&c.ID,
		&c.CampaignID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Status,
		&c.CreatedAt,
		&c.LastEmailSent,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create enrolls a contact.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateContactRequest) (*Contact, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO contacts (id, campaign_id, first_name, last_name, email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.CampaignID,
		req.FirstName,
		req.LastName,
		req.Email,
		StatusPending,
	).Scan(&createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("contacts: insert failed: %w", err)
	}

	return &Contact{
		ID:         id.String(),
		CampaignID: req.CampaignID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Status:     StatusPending,
		CreatedAt:  createdAt,
	}, nil
}

// GetByID fetches a contact.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	c, err := scanContact(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("contacts: select failed: %w", err)
	}
	return c, nil
}

// ListByCampaign returns all of a campaign's contacts ordered by creation.
func (r *PostgresRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE campaign_id = $1 ORDER BY created_at`
	return r.list(ctx, query, campaignID)
}

// ListPending returns the contacts still awaiting their first send.
func (r *PostgresRepository) ListPending(ctx context.Context, campaignID string) ([]*Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE campaign_id = $1 AND status = 'pending' ORDER BY created_at`
	return r.list(ctx, query, campaignID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Contact, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("contacts: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("contacts: scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkSent advances a pending contact to sent and stamps last_email_sent.
// The status filter in the WHERE clause is the double-send guard.
func (r *PostgresRepository) MarkSent(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE contacts
		SET status = 'sent', last_email_sent = $2
		WHERE id = $1 AND status = 'pending'
	`
	ct, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("contacts: mark sent failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// Advance moves a contact forward in the status machine; it never reverts.
func (r *PostgresRepository) Advance(ctx context.Context, id string, status string) (bool, error) {
	if StatusRank(status) == 0 {
		return false, ErrInvalidStatus
	}
	query := `
		UPDATE contacts
		SET status = $2
		WHERE id = $1
		  AND CASE status
			WHEN 'pending' THEN 1
			WHEN 'sent' THEN 2
			WHEN 'seen' THEN 3
			WHEN 'responded' THEN 4
			ELSE 0
		  END < $3
	`
	ct, err := r.db.Exec(ctx, query, id, status, StatusRank(status))
	if err != nil {
		return false, fmt.Errorf("contacts: advance failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// CountByStatus aggregates a campaign's contacts per status.
func (r *PostgresRepository) CountByStatus(ctx context.Context, campaignID string) (map[string]int, error) {
	query := `SELECT status, count(*) FROM contacts WHERE campaign_id = $1 GROUP BY status`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("contacts: count failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("contacts: scan count failed: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
