// Package jobmetrics holds the Prometheus collectors shared by background jobs.
package jobmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reviews  *prometheus.CounterVec
	drift    prometheus.Gauge
}

// NewMetrics builds the collectors and registers them when registerer is non-nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopledger_jobs_total",
			Help: "Job executions by job name and status.",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopledger_job_duration_seconds",
			Help:    "Duration in seconds of job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopledger_fallback_reviews_total",
			Help: "Fallback reviews persisted by the worker, by terminal state.",
		}, []string{"state"}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shopledger_stock_drift_items",
			Help: "Ledger entries whose balance differed from the sum of their movements at the last reconciliation.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.runs, m.duration, m.reviews, m.drift)
	}
	return m
}

// Tracker times a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for job. It is safe on a nil Metrics.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// ObserveReview counts a persisted fallback review.
func (m *Metrics) ObserveReview(state string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(state).Inc()
}

// SetDriftItems records how many ledger entries disagreed with their stock card
// on the last reconciliation.
func (m *Metrics) SetDriftItems(count int) {
	if m == nil {
		return
	}
	m.drift.Set(float64(count))
}
