package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopledger/shopledger/internal/platform/uow"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uowTotal        *prometheus.CounterVec
	uowDuration     *prometheus.HistogramVec
}

// NewMetrics menyiapkan registry privat berisi metrik runtime Go, proses,
// HTTP dan unit of work.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shopledger_http_requests_in_flight",
			Help: "Permintaan HTTP yang sedang diproses.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopledger_http_requests_total",
			Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopledger_http_request_duration_seconds",
			Help:    "Durasi permintaan HTTP per route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		uowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopledger_uow_total",
			Help: "Jumlah unit of work berdasarkan operasi dan state akhir.",
		}, []string{"op", "state"}),
		uowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shopledger_uow_duration_seconds",
			Help:    "Durasi unit of work per operasi, termasuk fallback.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inFlight, m.requestsTotal, m.requestDuration, m.uowTotal, m.uowDuration,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP. Label route memakai
// pola chi agar kardinalitas tetap rendah.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Observe mencatat state akhir setiap unit of work. Metrics memenuhi uow.Observer.
func (m *Metrics) Observe(_ context.Context, evt uow.Event) {
	if m == nil {
		return
	}
	m.uowTotal.WithLabelValues(evt.Op, string(evt.State)).Inc()
	m.uowDuration.WithLabelValues(evt.Op).Observe(evt.Duration.Seconds())
}

// Registerer mengekspos registry untuk metrik tambahan, misalnya metrik job.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
