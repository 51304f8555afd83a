package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// sample returns the value of the series of name whose labels include want.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("series %s%v not found", name, want)
	return 0
}

func TestTrackerCountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("stock:reconcile").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("stock:reconcile").End(boom), boom)
	require.ErrorIs(t, m.Track("stock:reconcile").End(boom), boom)

	require.Equal(t, 1.0, sample(t, reg, "shopledger_jobs_total", map[string]string{"job": "stock:reconcile", "status": "success"}))
	require.Equal(t, 2.0, sample(t, reg, "shopledger_jobs_total", map[string]string{"job": "stock:reconcile", "status": "failure"}))
}

func TestReviewAndDriftCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveReview("FALLBACK_FAILED")
	m.SetDriftItems(3)

	require.Equal(t, 1.0, sample(t, reg, "shopledger_fallback_reviews_total", map[string]string{"state": "FALLBACK_FAILED"}))
	require.Equal(t, 3.0, sample(t, reg, "shopledger_stock_drift_items", nil))
}

func TestUnregisteredAndNilMetrics(t *testing.T) {
	NewMetrics(nil).SetDriftItems(1)

	var m *Metrics
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("x").End(boom), boom)
	m.ObserveReview("FALLBACK_DONE")
	m.SetDriftItems(1)
}
