package contacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type fakeUploader struct {
	calls  int
	lastID int64
	leads  []map[string]string
	err    error
}

func (f *fakeUploader) UploadLeads(ctx context.Context, campaignSmartreachID int64, leads []map[string]string) error {
	f.calls++
	f.lastID = campaignSmartreachID
	f.leads = leads
	return f.err
}

type fakeLookup struct {
	id  int64
	err error
}

func (f *fakeLookup) SmartreachID(ctx context.Context, campaignID string) (int64, error) {
	return f.id, f.err
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/contacts", h.Create)
	r.Get("/campaigns/{campaignID}/contacts", h.List)
	r.Post("/campaigns/{campaignID}/contacts/import", h.Import)
	return r
}

func TestCreateContact(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	body := `{"campaign_id":"c1","first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/contacts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var contact Contact
	if err := json.NewDecoder(rec.Body).Decode(&contact); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if contact.Status != StatusPending {
		t.Errorf("expected pending status, got %q", contact.Status)
	}
	if contact.ID == "" {
		t.Error("expected generated id")
	}
}

func TestCreateContactValidation(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing campaign", `{"email":"a@b.com"}`, http.StatusBadRequest},
		{"bad email", `{"campaign_id":"c1","email":"nope"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/contacts", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestCreateContactDuplicate(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	body := `{"campaign_id":"c1","email":"dup@example.com"}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/contacts", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("attempt %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}
}

func TestListContacts(t *testing.T) {
	repo := NewInMemoryRepository()
	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := repo.Create(context.Background(), &CreateContactRequest{CampaignID: "c1", Email: email}); err != nil {
			t.Fatalf("seed contact: %v", err)
		}
	}
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/campaigns/c1/contacts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Contacts []*Contact `json:"contacts"`
		Total    int        `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Contacts) != 2 {
		t.Errorf("expected 2 contacts, got total=%d len=%d", resp.Total, len(resp.Contacts))
	}
}

func TestImportCSV(t *testing.T) {
	repo := NewInMemoryRepository()
	uploader := &fakeUploader{}
	lookup := &fakeLookup{id: 4242}
	router := newTestRouter(NewHandler(repo, uploader, lookup, nil))

	csv := "First Name,Last Name,Email\n" +
		"Ada,Lovelace,ada@example.com\n" +
		"Alan,Turing,alan@example.com\n" +
		"NoEmail,Row,\n"
	req := httptest.NewRequest(http.MethodPost, "/campaigns/c1/contacts/import", strings.NewReader(csv))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result ImportResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("expected 2 imported, got %d", result.Imported)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.Skipped)
	}
	if !result.Mirrored {
		t.Error("expected import to be mirrored upstream")
	}
	if uploader.calls != 1 || uploader.lastID != 4242 {
		t.Errorf("unexpected uploader calls=%d id=%d", uploader.calls, uploader.lastID)
	}
	if len(uploader.leads) != 2 || uploader.leads[0]["email"] != "ada@example.com" {
		t.Errorf("unexpected mirrored leads: %v", uploader.leads)
	}

	pending, err := repo.ListPending(context.Background(), "c1")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("expected 2 pending contacts, got %d", len(pending))
	}
}

func TestImportCSVMirrorFailureStillImports(t *testing.T) {
	repo := NewInMemoryRepository()
	uploader := &fakeUploader{err: errors.New("upstream down")}
	lookup := &fakeLookup{id: 1}
	router := newTestRouter(NewHandler(repo, uploader, lookup, nil))

	csv := "Email\nada@example.com\n"
	req := httptest.NewRequest(http.MethodPost, "/campaigns/c1/contacts/import", strings.NewReader(csv))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result ImportResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("expected 1 imported, got %d", result.Imported)
	}
	if result.Mirrored {
		t.Error("mirror failed, result should not report mirrored")
	}
}

func TestImportCSVEmptyBody(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/campaigns/c1/contacts/import", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty body, got %d", rec.Code)
	}
}

func TestParseCSVHeaderVariants(t *testing.T) {
	rows, err := parseCSV(strings.NewReader("first_name,LASTNAME,Email Address\nGrace,Hopper,grace@example.com\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row["first_name"] != "Grace" || row["last_name"] != "Hopper" || row["email"] != "grace@example.com" {
		t.Errorf("unexpected row: %v", row)
	}
}
