package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Em-Cyborg/WAF-Service/adapters/metrics"
)

func TestNewWithRegistry(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.StreamConnects == nil {
		t.Error("StreamConnects is nil")
	}
	if m.StreamEvents == nil {
		t.Error("StreamEvents is nil")
	}
	if m.UpstreamErrors == nil {
		t.Error("UpstreamErrors is nil")
	}
	if m.PaymentConfirms == nil {
		t.Error("PaymentConfirms is nil")
	}
	if m.SessionsActive == nil {
		t.Error("SessionsActive is nil")
	}
	if m.ConfigReloads == nil {
		t.Error("ConfigReloads is nil")
	}
}

func TestCountersGather(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.StreamConnects.WithLabelValues("global").Inc()
	m.StreamEvents.WithLabelValues("log").Add(3)
	m.PaymentConfirms.WithLabelValues("done").Inc()
	m.SessionsActive.Set(2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}

	want := map[string]bool{
		"wafconsole_stream_connects_total": false,
		"wafconsole_stream_events_total":   false,
		"wafconsole_payment_confirms_total": false,
		"wafconsole_sessions_active":       false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("metric %s not gathered", name)
		}
	}
}
