package tracking

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyredlabs/outreach-console/internal/contacts"
	"github.com/hyredlabs/outreach-console/internal/observability/metrics"
	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// ContactAdvancer moves a contact forward in the status machine. Satisfied
// by the contacts repository.
type ContactAdvancer interface {
	Advance(ctx context.Context, id string, status string) (bool, error)
}

// Handler serves the tracking pixel.
type Handler struct {
	issuer   *TokenIssuer
	contacts ContactAdvancer
	events   EventStore
	metrics  *metrics.OutreachMetrics
	logger   *logging.Logger
}

// NewHandler creates a tracking handler.
func NewHandler(issuer *TokenIssuer, contacts ContactAdvancer, events EventStore, m *metrics.OutreachMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{issuer: issuer, contacts: contacts, events: events, metrics: m, logger: logger}
}

// Pixel handles GET /t/{token}. The response is always the 1x1 GIF with a
// 200 status: a bad or expired token must not render a broken image in the
// recipient's mail client, it just records nothing.
func (h *Handler) Pixel(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if claims, err := h.issuer.Verify(token); err == nil {
		h.recordOpen(r, claims)
	} else {
		h.logger.Debug("tracking pixel token rejected", "error", err)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(gifPixel)
}

func (h *Handler) recordOpen(r *http.Request, claims *Claims) {
	ctx := r.Context()

	if h.contacts != nil {
		// Advance is monotonic, so a pixel firing after the contact already
		// replied leaves the responded status in place.
		if _, err := h.contacts.Advance(ctx, claims.ContactID, contacts.StatusSeen); err != nil {
			h.logger.Warn("open status advance failed", "contact_id", claims.ContactID, "error", err)
		}
	}

	if h.events != nil {
		event := &OpenEvent{
			ContactID:  claims.ContactID,
			StepID:     claims.StepID,
			UserAgent:  r.UserAgent(),
			OccurredAt: time.Now().UTC(),
		}
		if err := h.events.Insert(ctx, event); err != nil {
			h.logger.Warn("open event insert failed", "contact_id", claims.ContactID, "error", err)
		}
	}

	h.metrics.ObserveOpen()
	h.logger.Info("email open recorded", "contact_id", claims.ContactID)
}
