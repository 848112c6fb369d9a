package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/hyredlabs/outreach-console/pkg/logging"
)

// Overview is the aggregate picture the console landing page renders.
type Overview struct {
	GeneratedAt       time.Time      `json:"generated_at"`
	CampaignsByStatus map[string]int `json:"campaigns_by_status"`
	ContactsByStatus  map[string]int `json:"contacts_by_status"`
	SentLast7Days     []DailySends   `json:"sent_last_7_days"`
	OpenRate          float64        `json:"open_rate"`
	ReplyRate         float64        `json:"reply_rate"`
	Worker            WorkerSnapshot `json:"worker"`
}

// DailySends counts deliveries for one day.
type DailySends struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// WorkerSnapshot is read from the process metrics, not the database, so it
// reflects this instance's scheduler only.
type WorkerSnapshot struct {
	SendsTotal  int64 `json:"sends_total"`
	SendsFailed int64 `json:"sends_failed"`
	OpensTotal  int64 `json:"opens_total"`
}

// Handler serves the console overview from SQL aggregates plus a metrics
// snapshot.
type Handler struct {
	db       *sql.DB
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(db *sql.DB, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{db: db, gatherer: gatherer, logger: logger}
}

// GetOverview handles GET /dashboard.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		http.Error(w, "dashboard disabled (db not configured)", http.StatusServiceUnavailable)
		return
	}

	overview, err := h.buildOverview(r.Context())
	if err != nil {
		h.logger.Error("dashboard query failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(overview)
}

func (h *Handler) buildOverview(ctx context.Context) (*Overview, error) {
	overview := &Overview{
		GeneratedAt:       time.Now().UTC(),
		CampaignsByStatus: map[string]int{},
		ContactsByStatus:  map[string]int{},
		Worker:            snapshotWorker(h.gatherer),
	}

	if err := h.countByStatus(ctx, `SELECT status, count(*) FROM campaigns GROUP BY status`, overview.CampaignsByStatus); err != nil {
		return nil, fmt.Errorf("dashboard: campaign counts: %w", err)
	}
	if err := h.countByStatus(ctx, `SELECT status, count(*) FROM contacts GROUP BY status`, overview.ContactsByStatus); err != nil {
		return nil, fmt.Errorf("dashboard: contact counts: %w", err)
	}

	emailed := overview.ContactsByStatus["sent"] +
		overview.ContactsByStatus["seen"] +
		overview.ContactsByStatus["responded"]
	if emailed > 0 {
		overview.OpenRate = float64(overview.ContactsByStatus["seen"]+overview.ContactsByStatus["responded"]) / float64(emailed)
		overview.ReplyRate = float64(overview.ContactsByStatus["responded"]) / float64(emailed)
	}

	daily, err := h.sentLast7Days(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: daily sends: %w", err)
	}
	overview.SentLast7Days = daily

	return overview, nil
}

func (h *Handler) countByStatus(ctx context.Context, query string, into map[string]int) error {
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		into[status] = n
	}
	return rows.Err()
}

func (h *Handler) sentLast7Days(ctx context.Context) ([]DailySends, error) {
	query := `
		SELECT date_trunc('day', last_email_sent) AS day, count(*)
		FROM contacts
		WHERE last_email_sent >= now() - interval '7 days'
		GROUP BY day
		ORDER BY day
	`
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailySends
	for rows.Next() {
		var day time.Time
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out = append(out, DailySends{Day: day.UTC().Format("2006-01-02"), Count: n})
	}
	return out, rows.Err()
}

// snapshotWorker reads the drip counters out of the prometheus registry so
// the overview can show them without scraping /metrics.
func snapshotWorker(gatherer prometheus.Gatherer) WorkerSnapshot {
	if gatherer == nil {
		return WorkerSnapshot{}
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return WorkerSnapshot{}
	}

	var snap WorkerSnapshot
	for _, mf := range mfs {
		switch mf.GetName() {
		case "outreach_drip_sends_total":
			for _, metric := range mf.Metric {
				value := int64(metric.GetCounter().GetValue())
				if hasLabel(metric, "status", "failed") {
					snap.SendsFailed += value
				} else {
					snap.SendsTotal += value
				}
			}
		case "outreach_tracking_opens_total":
			for _, metric := range mf.Metric {
				snap.OpensTotal += int64(metric.GetCounter().GetValue())
			}
		}
	}
	return snap
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, label := range metric.Label {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
