package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/metrics"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.Registration("register", "registered", 1)
	m.ClaimsSynced(true)
	m.SetPending(1, 2)
	m.ObserveScan("box", 10, time.Millisecond)
}

func TestRegistration(t *testing.T) {
	m := metrics.New()

	m.Registration("register", "registered", 1)
	m.Registration("register", "registered", 3)
	m.Registration("register", "capacity_exceeded", 1)

	body := scrape(t, m)
	for _, want := range []string{
		`campushub_registration_outcomes_total{op="register",outcome="registered"} 2`,
		`campushub_registration_outcomes_total{op="register",outcome="capacity_exceeded"} 1`,
		"campushub_registration_attempts_count 3",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("scrape status: got %d, want 200", rec.Code)
	}
	return rec.Body.String()
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.ClaimsSynced(false)
	m.SetPending(3, 0)

	body := scrape(t, m)
	for _, want := range []string{
		`campushub_claims_sync_total{outcome="failed"} 1`,
		"campushub_claims_pending 3",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
