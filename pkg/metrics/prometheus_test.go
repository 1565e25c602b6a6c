package metrics

import (
	"testing"

	"FollowFeed/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelMatches(m, label) {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}

func labelMatches(m *dto.Metric, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestRecordConnectionIsOneHot(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordConnection(models.StatusConnected)
	r.RecordConnection(models.StatusDisconnected)

	if v := gaugeValue(t, reg, "followfeed_market_connection", "disconnected"); v != 1 {
		t.Fatalf("disconnected = %v", v)
	}
	if v := gaugeValue(t, reg, "followfeed_market_connection", "connected"); v != 0 {
		t.Fatalf("connected = %v", v)
	}
}

func TestRecordersUseSeparateRegistries(t *testing.T) {
	// two recorders on separate registries must not collide
	NewWithRegistry(prometheus.NewRegistry()).RecordSignal("BTC")
	NewWithRegistry(prometheus.NewRegistry()).RecordSignal("BTC")
}
