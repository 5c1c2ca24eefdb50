package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue 汇总 name 下标签匹配的计数器值
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather err: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestPrometheusCollector(t *testing.T) {
	m := New("pricing")
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("register err: %v", err)
	}
	c := NewPrometheusCollector(m)

	c.RecordPricing("LATTICE", "success", 3*time.Millisecond)
	c.RecordPricing("LATTICE", "success", time.Millisecond)
	c.RecordPricing("MONTE_CARLO", "error", time.Millisecond)
	c.RecordSimulatedPaths(1500)
	c.RecordCacheLookup(true)
	c.RecordCacheLookup(false)
	c.RecordCacheLookup(false)
	c.RecordOutboxRelay("sent", 4)

	cases := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"optionlab_pricing_pricing_requests_total", map[string]string{"model": "LATTICE", "status": "success"}, 2},
		{"optionlab_pricing_pricing_requests_total", map[string]string{"status": "error"}, 1},
		{"optionlab_pricing_simulated_paths_total", nil, 1500},
		{"optionlab_pricing_cache_lookups_total", map[string]string{"result": "miss"}, 2},
		{"optionlab_pricing_outbox_relayed_total", map[string]string{"status": "sent"}, 4},
	}
	for _, tc := range cases {
		if got := counterValue(t, reg, tc.name, tc.labels); got != tc.want {
			t.Fatalf("%s%v=%v want %v", tc.name, tc.labels, got, tc.want)
		}
	}

	if err := m.Register(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
