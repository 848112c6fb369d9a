package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hyredlabs/outreach-console/internal/smartreach"
)

type fakeSequenceMirror struct {
	campaignID int64
	steps      []smartreach.SequenceStepPayload
	err        error
}

func (m *fakeSequenceMirror) SaveSequence(_ context.Context, campaignID int64, steps []smartreach.SequenceStepPayload) error {
	m.campaignID = campaignID
	m.steps = steps
	return m.err
}

type fakeCampaignLookup struct {
	ids map[string]int64
}

func (l *fakeCampaignLookup) SmartreachID(_ context.Context, campaignID string) (int64, error) {
	if l.ids == nil {
		return 0, errors.New("lookup unavailable")
	}
	return l.ids[campaignID], nil
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/templates", h.Create)
	r.Get("/templates", h.List)
	r.Get("/templates/{templateID}", h.Get)
	r.Put("/campaigns/{campaignID}/sequence", h.ReplaceSequence)
	r.Get("/campaigns/{campaignID}/sequence", h.ListSequence)
	return r
}

func TestCreateTemplate(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	body := `{"name":"intro","subject":"Hello {{first_name}}","body":"Hi there"}`
	req := httptest.NewRequest(http.MethodPost, "/templates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tpl Template
	if err := json.NewDecoder(rec.Body).Decode(&tpl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tpl.ID == "" || tpl.Name != "intro" {
		t.Errorf("unexpected template: %#v", tpl)
	}
}

func TestCreateTemplateValidation(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	for _, body := range []string{
		`{"subject":"s"}`,
		`{"name":"n"}`,
		`{`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/templates", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/templates/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestReplaceAndListSequence(t *testing.T) {
	repo := NewInMemoryRepository()
	tpl := seedTemplate(t, repo, "intro")
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	body := `{"steps":[{"template_id":"` + tpl.ID + `","sequence_order":1,"delay_days":1}]}`
	req := httptest.NewRequest(http.MethodPut, "/campaigns/c1/sequence", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/campaigns/c1/sequence", nil))
	var resp struct {
		Steps []*SequenceStep `json:"steps"`
		Total int             `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Steps[0].DelayDays != 1 {
		t.Errorf("unexpected sequence: %#v", resp)
	}
}

func TestReplaceSequencePushedUpstream(t *testing.T) {
	repo := NewInMemoryRepository()
	tpl := seedTemplate(t, repo, "intro")
	mirror := &fakeSequenceMirror{}
	lookup := &fakeCampaignLookup{ids: map[string]int64{"c1": 77}}
	router := newTestRouter(NewHandler(repo, mirror, lookup, nil))

	body := `{"steps":[{"template_id":"` + tpl.ID + `","sequence_order":1,"delay_days":3}]}`
	req := httptest.NewRequest(http.MethodPut, "/campaigns/c1/sequence", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if mirror.campaignID != 77 {
		t.Fatalf("expected push to upstream campaign 77, got %d", mirror.campaignID)
	}
	if len(mirror.steps) != 1 {
		t.Fatalf("expected 1 pushed step, got %d", len(mirror.steps))
	}
	step := mirror.steps[0]
	if step.SeqNumber != 1 || step.SeqDelayDays != 3 {
		t.Errorf("unexpected step payload: %#v", step)
	}
	if step.Subject == "" || step.EmailBody == "" {
		t.Errorf("expected template content in payload, got %#v", step)
	}
}

func TestReplaceSequenceSurvivesUpstreamFailure(t *testing.T) {
	repo := NewInMemoryRepository()
	tpl := seedTemplate(t, repo, "intro")
	mirror := &fakeSequenceMirror{err: errors.New("smartreach down")}
	lookup := &fakeCampaignLookup{ids: map[string]int64{"c1": 77}}
	router := newTestRouter(NewHandler(repo, mirror, lookup, nil))

	body := `{"steps":[{"template_id":"` + tpl.ID + `","sequence_order":1}]}`
	req := httptest.NewRequest(http.MethodPut, "/campaigns/c1/sequence", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite upstream failure, got %d", rec.Code)
	}
}

func TestReplaceSequenceSkipsUnlinkedCampaign(t *testing.T) {
	repo := NewInMemoryRepository()
	tpl := seedTemplate(t, repo, "intro")
	mirror := &fakeSequenceMirror{}
	lookup := &fakeCampaignLookup{ids: map[string]int64{}}
	router := newTestRouter(NewHandler(repo, mirror, lookup, nil))

	body := `{"steps":[{"template_id":"` + tpl.ID + `","sequence_order":1}]}`
	req := httptest.NewRequest(http.MethodPut, "/campaigns/c1/sequence", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if mirror.campaignID != 0 || mirror.steps != nil {
		t.Errorf("expected no upstream push for unlinked campaign, got %#v", mirror)
	}
}

func TestReplaceSequenceUnknownTemplate(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil, nil, nil))

	body := `{"steps":[{"template_id":"ghost","sequence_order":1}]}`
	req := httptest.NewRequest(http.MethodPut, "/campaigns/c1/sequence", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
