package campaigns

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
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores campaigns in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("campaigns: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const campaignColumns = "id, name, description, status, smartreach_id, created_at, updated_at"

func scanCampaign(row pgx.Row) (*Campaign, error) {
	var c Campaign
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Status,
		&c.SmartreachID,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateCampaignRequest) (*Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO campaigns (id, name, description, status, smartreach_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.Name,
		req.Description,
		StatusDraft,
		req.SmartreachID,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("campaigns: insert failed: %w", err)
	}

	return &Campaign{
		ID:           id.String(),
		Name:         req.Name,
		Description:  req.Description,
		Status:       StatusDraft,
		SmartreachID: req.SmartreachID,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// GetByID fetches a campaign.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaign(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("campaigns: select failed: %w", err)
	}
	return c, nil
}

// List returns all campaigns ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at`
	return r.list(ctx, query)
}

// ListActive returns campaigns the scheduler should scan.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = 'active' ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Campaign, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("campaigns: scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus moves a campaign through its status machine. The current row
// is locked so concurrent transitions cannot interleave.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status string) (*Campaign, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("campaigns: begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(ctx, `SELECT status FROM campaigns WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("campaigns: select for update failed: %w", err)
	}
	if !CanTransition(current, status) {
		return nil, ErrInvalidTransition
	}

	query := `
		UPDATE campaigns
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + campaignColumns
	c, err := scanCampaign(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		return nil, fmt.Errorf("campaigns: update status failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("campaigns: commit failed: %w", err)
	}
	return c, nil
}
