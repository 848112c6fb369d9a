package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutreachMetricsObserve(t *testing.T) {
	m := NewOutreachMetrics(prometheus.NewRegistry())
	m.ObserveSend("sent")
	m.ObserveSend("failed")
	m.ObserveTickDuration(0.5)
	m.ObserveLeadsNormalized(100)
	m.ObserveOpen()
	m.ObserveReply("Power")
}

func TestOutreachMetricsNilSafe(t *testing.T) {
	var m *OutreachMetrics
	m.ObserveSend("sent")
	m.ObserveTickDuration(0.1)
	m.ObserveLeadsNormalized(1)
	m.ObserveOpen()
	m.ObserveReply("Info")
}
