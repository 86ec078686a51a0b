// Package metrics exposes Prometheus counters for the consistency-critical
// paths: registrations, claims synchronization and location scans.
//
// All methods are safe on a nil *Metrics, which is what tests pass.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	// Register/unregister results by operation and outcome.
	RegistrationOutcome *prometheus.CounterVec

	// Conditional-write attempts used per registration call.
	RegistrationAttempts prometheus.Histogram

	// Claims writes by outcome (synced, failed).
	ClaimsSync *prometheus.CounterVec

	// Profiles whose claims trail the document, as of the last reconcile pass.
	ClaimsPending prometheus.Gauge

	// Identity deletions still waiting on the provider.
	DeletionsPending prometheus.Gauge

	// Records read per location scan.
	LocationScanSize prometheus.Histogram

	// Location query latency by query kind (box, nearby, search).
	LocationQueryLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg)
}

// NewWith registers the collectors on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		RegistrationOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campushub_registration_outcomes_total",
			Help: "Event registration results by operation and outcome",
		}, []string{"op", "outcome"}),

		RegistrationAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "campushub_registration_attempts",
			Help:    "Conditional-write attempts per registration call",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}),

		ClaimsSync: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campushub_claims_sync_total",
			Help: "Identity claims writes by outcome",
		}, []string{"outcome"}),

		ClaimsPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "campushub_claims_pending",
			Help: "Profiles whose identity claims trail the profile document",
		}),

		DeletionsPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "campushub_identity_deletions_pending",
			Help: "Profile deletions waiting on identity removal",
		}),

		LocationScanSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "campushub_location_scan_records",
			Help:    "Location records read per query scan",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),

		LocationQueryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campushub_location_query_duration_seconds",
			Help:    "Duration of location queries by kind",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"query"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Registration records the outcome of a register/unregister call and how
// many attempts it took.
func (m *Metrics) Registration(op, outcome string, attempts int) {
	if m == nil {
		return
	}
	m.RegistrationOutcome.WithLabelValues(op, outcome).Inc()
	if attempts > 0 {
		m.RegistrationAttempts.Observe(float64(attempts))
	}
}

// ClaimsSynced records one claims write result.
func (m *Metrics) ClaimsSynced(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.ClaimsSync.WithLabelValues("synced").Inc()
	} else {
		m.ClaimsSync.WithLabelValues("failed").Inc()
	}
}

// SetPending records the reconciler's view of outstanding saga work.
func (m *Metrics) SetPending(claims, deletions int) {
	if m == nil {
		return
	}
	m.ClaimsPending.Set(float64(claims))
	m.DeletionsPending.Set(float64(deletions))
}

// ObserveScan records one location scan.
func (m *Metrics) ObserveScan(query string, records int, d time.Duration) {
	if m == nil {
		return
	}
	m.LocationScanSize.Observe(float64(records))
	m.LocationQueryLatency.WithLabelValues(query).Observe(d.Seconds())
}
