package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects acceptance-run counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TestsTotal         *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	WarningsTotal      *prometheus.CounterVec
	HumanReviewTotal   prometheus.Counter
	PassRate           prometheus.Gauge
}

// New registers the collectors on a private registry so repeated runs in one
// process never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		TestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "evidencecheck_tests_total",
			Help: "Acceptance tests executed, by final state",
		}, []string{"state"}),
		ExtractionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "evidencecheck_extraction_duration_seconds",
			Help:    "Wall-clock time spent inside the extraction function",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		WarningsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "evidencecheck_validation_warnings_total",
			Help: "Validation warnings emitted, by code",
		}, []string{"code"}),
		HumanReviewTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "evidencecheck_human_review_total",
			Help: "Validations routed to human review",
		}),
		PassRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "evidencecheck_suite_pass_rate",
			Help: "Pass rate of the most recent suite run",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordTest(state string) {
	if m == nil {
		return
	}
	m.TestsTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveExtraction(seconds float64) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(seconds)
}

func (m *Metrics) RecordWarning(code string) {
	if m == nil {
		return
	}
	m.WarningsTotal.WithLabelValues(code).Inc()
}

func (m *Metrics) RecordHumanReview() {
	if m == nil {
		return
	}
	m.HumanReviewTotal.Inc()
}

func (m *Metrics) SetPassRate(rate float64) {
	if m == nil {
		return
	}
	m.PassRate.Set(rate)
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return fmt.Errorf("metrics not enabled")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
