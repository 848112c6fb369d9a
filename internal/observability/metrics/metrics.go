package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutreachMetrics exposes counters/histograms for the drip pipeline.
type OutreachMetrics struct {
	sendsTotal      *prometheus.CounterVec
	tickDuration    prometheus.Histogram
	leadsNormalized prometheus.Counter
	opensTotal      prometheus.Counter
	repliesTotal    *prometheus.CounterVec
}

func NewOutreachMetrics(reg prometheus.Registerer) *OutreachMetrics {
	m := &OutreachMetrics{
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outreach",
			Subsystem: "drip",
			Name:      "sends_total",
			Help:      "Total drip emails attempted",
		}, []string{"status"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outreach",
			Subsystem: "drip",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one scheduler tick",
			Buckets:   prometheus.DefBuckets,
		}),
		leadsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outreach",
			Subsystem: "leads",
			Name:      "normalized_total",
			Help:      "Total raw lead records normalized",
		}),
		opensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outreach",
			Subsystem: "tracking",
			Name:      "opens_total",
			Help:      "Total tracking pixel hits",
		}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outreach",
			Subsystem: "inbox",
			Name:      "replies_total",
			Help:      "Total inbound replies processed, by category",
		}, []string{"category"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sendsTotal, m.tickDuration, m.leadsNormalized, m.opensTotal, m.repliesTotal)
	return m
}

func (m *OutreachMetrics) ObserveSend(status string) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(status).Inc()
}

func (m *OutreachMetrics) ObserveTickDuration(seconds float64) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(seconds)
}

func (m *OutreachMetrics) ObserveLeadsNormalized(n int) {
	if m == nil {
		return
	}
	m.leadsNormalized.Add(float64(n))
}

func (m *OutreachMetrics) ObserveOpen() {
	if m == nil {
		return
	}
	m.opensTotal.Inc()
}

func (m *OutreachMetrics) ObserveReply(category string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(category).Inc()
}
