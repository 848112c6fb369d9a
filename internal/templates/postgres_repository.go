package templates

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

// PostgresRepository stores templates and sequence steps in the relational
// database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("templates: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateTemplate stores a new template.
func (r *PostgresRepository) CreateTemplate(ctx context.Context, req *CreateTemplateRequest) (*Template, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO email_templates (id, name, subject, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query, id, req.Name, req.Subject, req.Body).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("templates: insert failed: %w", err)
	}

	return &Template{
		ID:        id.String(),
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		CreatedAt: createdAt,
	}, nil
}

// GetTemplate fetches a template.
func (r *PostgresRepository) GetTemplate(ctx context.Context, id string) (*Template, error) {
	query := `SELECT id, name, subject, body, created_at FROM email_templates WHERE id = $1`
	var tpl Template
	if err := r.db.QueryRow(ctx, query, id).Scan(&tpl.ID, &tpl.Name, &tpl.Subject, &tpl.Body, &tpl.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("templates: select failed: %w", err)
	}
	return &tpl, nil
}

// ListTemplates returns all templates ordered by creation time.
func (r *PostgresRepository) ListTemplates(ctx context.Context) ([]*Template, error) {
	query := `SELECT id, name, subject, body, created_at FROM email_templates ORDER BY created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("templates: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		var tpl Template
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Subject, &tpl.Body, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("templates: scan failed: %w", err)
		}
		out = append(out, &tpl)
	}
	return out, rows.Err()
}

// ReplaceSteps swaps a campaign's entire sequence for the given steps inside
// one transaction, so the scheduler never observes a half-replaced sequence.
func (r *PostgresRepository) ReplaceSteps(ctx context.Context, campaignID string, steps []StepInput) ([]*SequenceStep, error) {
	for i := range steps {
		if err := steps[i].Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("templates: begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM email_sequences WHERE campaign_id = $1`, campaignID); err != nil {
		return nil, fmt.Errorf("templates: clear sequence failed: %w", err)
	}

	insert := `
		INSERT INTO email_sequences (id, campaign_id, template_id, sequence_order, delay_days, delay_hours, delay_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	out := make([]*SequenceStep, 0, len(steps))
	for _, s := range steps {
		id := uuid.New()
		var createdAt time.Time
		if err := tx.QueryRow(ctx, insert,
			id, campaignID, s.TemplateID, s.SequenceOrder,
			s.DelayDays, s.DelayHours, s.DelayMinutes,
		).Scan(&createdAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return nil, ErrTemplateNotFound
			}
			return nil, fmt.Errorf("templates: insert step failed: %w", err)
		}
		out = append(out, &SequenceStep{
			ID:            id.String(),
			CampaignID:    campaignID,
			TemplateID:    s.TemplateID,
			SequenceOrder: s.SequenceOrder,
			DelayDays:     s.DelayDays,
			DelayHours:    s.DelayHours,
			DelayMinutes:  s.DelayMinutes,
			CreatedAt:     createdAt,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("templates: commit failed: %w", err)
	}
	sortSteps(out)
	return out, nil
}

// ListSteps returns a campaign's steps in sequence order.
func (r *PostgresRepository) ListSteps(ctx context.Context, campaignID string) ([]*SequenceStep, error) {
	query := `
		SELECT id, campaign_id, template_id, sequence_order, delay_days, delay_hours, delay_minutes, created_at
		FROM email_sequences
		WHERE campaign_id = $1
		ORDER BY sequence_order
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("templates: list steps failed: %w", err)
	}
	defer rows.Close()

	var out []*SequenceStep
	for rows.Next() {
		var s SequenceStep
		if err := rows.Scan(&s.ID, &s.CampaignID, &s.TemplateID, &s.SequenceOrder,
			&s.DelayDays, &s.DelayHours, &s.DelayMinutes, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("templates: scan step failed: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// ListSequence returns a campaign's steps joined with their templates.
func (r *PostgresRepository) ListSequence(ctx context.Context, campaignID string) ([]*SequenceEmail, error) {
	query := `
		SELECT s.id, s.sequence_order, s.delay_days, s.delay_hours, s.delay_minutes, t.subject, t.body
		FROM email_sequences s
		JOIN email_templates t ON t.id = s.template_id
		WHERE s.campaign_id = $1
		ORDER BY s.sequence_order
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("templates: list sequence failed: %w", err)
	}
	defer rows.Close()

	var out []*SequenceEmail
	for rows.Next() {
		var e SequenceEmail
		var days, hours, minutes int
		if err := rows.Scan(&e.StepID, &e.SequenceOrder, &days, &hours, &minutes, &e.Subject, &e.Body); err != nil {
			return nil, fmt.Errorf("templates: scan sequence failed: %w", err)
		}
		step := SequenceStep{DelayDays: days, DelayHours: hours, DelayMinutes: minutes}
		e.Delay = step.Delay()
		out = append(out, &e)
	}
	return out, rows.Err()
}
