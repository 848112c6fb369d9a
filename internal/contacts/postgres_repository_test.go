package contacts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresCreateContact(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO contacts").
		WithArgs(pgxmock.AnyArg(), "c1", "Ada", "Lovelace", "ada@example.com", StatusPending).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	contact, err := repo.Create(context.Background(), &CreateContactRequest{
		CampaignID: "c1",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if contact.Status != StatusPending {
		t.Errorf("expected pending, got %q", contact.Status)
	}
	if !contact.CreatedAt.Equal(now) {
		t.Errorf("expected created_at %v, got %v", now, contact.CreatedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	mock.ExpectQuery("SELECT id, campaign_id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrContactNotFound) {
		t.Errorf("expected ErrContactNotFound, got %v", err)
	}
}

func TestPostgresMarkSent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE contacts").WithArgs("ct-1", at).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := repo.MarkSent(context.Background(), "ct-1", at)
	if err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if !ok {
		t.Error("expected mark sent to report success")
	}

	// Contact already past pending: zero rows touched, no error.
	mock.ExpectExec("UPDATE contacts").WithArgs("ct-1", at).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = repo.MarkSent(context.Background(), "ct-1", at)
	if err != nil {
		t.Fatalf("second mark sent failed: %v", err)
	}
	if ok {
		t.Error("expected second mark sent to be rejected")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAdvanceGuard(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	mock.ExpectExec("UPDATE contacts").WithArgs("ct-1", StatusSeen, 3).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := repo.Advance(context.Background(), "ct-1", StatusSeen)
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if !ok {
		t.Error("expected advance to report success")
	}

	if _, err := repo.Advance(context.Background(), "ct-1", "bogus"); err == nil {
		t.Error("expected error for unknown status")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCountByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithQuerier(mock)

	rows := pgxmock.NewRows([]string{"status", "count"}).
		AddRow(StatusPending, 5).
		AddRow(StatusSent, 2)
	mock.ExpectQuery("SELECT status, count").WithArgs("c1").WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), "c1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if counts[StatusPending] != 5 || counts[StatusSent] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
