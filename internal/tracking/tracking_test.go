package tracking

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hyredlabs/outreach-console/internal/contacts"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.Issue("ct-1", "step-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ContactID != "ct-1" || claims.StepID != "step-1" {
		t.Errorf("unexpected claims: %#v", claims)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	other := NewTokenIssuer("other-secret")

	token, err := issuer.Issue("ct-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := other.Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
	if _, err := issuer.Verify("garbage"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestInjectorAppendsPixelTag(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	inj := NewInjector(issuer, "https://outreach.example.com/")

	body := inj.Inject("<p>Hello</p>", "ct-1", "step-7")
	if !strings.Contains(body, `<img src="https://outreach.example.com/t/`) {
		t.Errorf("pixel tag missing: %q", body)
	}
	if !strings.HasPrefix(body, "<p>Hello</p>") {
		t.Errorf("original body mangled: %q", body)
	}

	// The embedded token must verify and point back at the contact.
	start := strings.Index(body, "/t/") + len("/t/")
	end := strings.Index(body[start:], `"`)
	claims, err := issuer.Verify(body[start : start+end])
	if err != nil {
		t.Fatalf("embedded token invalid: %v", err)
	}
	if claims.ContactID != "ct-1" {
		t.Errorf("expected contact ct-1, got %q", claims.ContactID)
	}
	if claims.StepID != "step-7" {
		t.Errorf("expected step step-7 in token, got %q", claims.StepID)
	}
}

func TestInjectorDisabledWithoutBaseURL(t *testing.T) {
	inj := NewInjector(NewTokenIssuer("s"), "")
	if got := inj.Inject("body", "ct-1", ""); got != "body" {
		t.Errorf("expected body unchanged, got %q", got)
	}
}

func newPixelRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/t/{token}", h.Pixel)
	return r
}

func TestPixelMarksContactSeen(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	repo := contacts.NewInMemoryRepository()
	events := NewInMemoryEventStore()

	contact, err := repo.Create(context.Background(), &contacts.CreateContactRequest{CampaignID: "c1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if _, err := repo.Advance(context.Background(), contact.ID, contacts.StatusSent); err != nil {
		t.Fatalf("advance to sent: %v", err)
	}

	token, err := issuer.Issue(contact.ID, "step-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	router := newPixelRouter(NewHandler(issuer, repo, events, nil, nil))
	req := httptest.NewRequest(http.MethodGet, "/t/"+token, nil)
	req.Header.Set("User-Agent", "test-mail-client")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("expected image/gif, got %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("GIF89a")) {
		t.Error("response is not a GIF")
	}

	got, _ := repo.GetByID(context.Background(), contact.ID)
	if got.Status != contacts.StatusSeen {
		t.Errorf("expected seen, got %q", got.Status)
	}

	recorded, _ := events.ListByContact(context.Background(), contact.ID)
	if len(recorded) != 1 || recorded[0].StepID != "step-1" || recorded[0].UserAgent != "test-mail-client" {
		t.Errorf("unexpected open events: %#v", recorded)
	}
}

func TestPixelDoesNotRegressRespondedContact(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	repo := contacts.NewInMemoryRepository()

	contact, err := repo.Create(context.Background(), &contacts.CreateContactRequest{CampaignID: "c1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if _, err := repo.Advance(context.Background(), contact.ID, contacts.StatusResponded); err != nil {
		t.Fatalf("advance to responded: %v", err)
	}

	token, _ := issuer.Issue(contact.ID, "")
	router := newPixelRouter(NewHandler(issuer, repo, NewInMemoryEventStore(), nil, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/"+token, nil))

	got, _ := repo.GetByID(context.Background(), contact.ID)
	if got.Status != contacts.StatusResponded {
		t.Errorf("pixel must not regress responded contact, got %q", got.Status)
	}
}

func TestPixelAlwaysReturnsGIF(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	router := newPixelRouter(NewHandler(issuer, nil, nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/t/not-a-token", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for bad token, got %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("GIF89a")) {
		t.Error("bad token must still return the GIF")
	}
}
