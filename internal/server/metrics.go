package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperjump/shiori/internal/search"
)

// metrics holds the server's Prometheus collectors. Each server has its own
// registry so that several can run in one process.
type metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	searchesTotal   *prometheus.CounterVec
	ingestedTotal   prometheus.Counter
}

func newMetrics(engine *search.Engine) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiori_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shiori_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"route"},
		),
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiori_searches_total",
				Help: "Total number of searches by whether labels narrowed the candidate set",
			},
			[]string{"narrowed"},
		),
		ingestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shiori_chunks_ingested_total",
				Help: "Total number of chunks ingested through the API",
			},
		),
	}
	entries := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "shiori_store_entries",
			Help: "Number of entries in the vector store",
		},
		func() float64 { return float64(engine.Status().Entries) },
	)
	labels := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "shiori_index_labels",
			Help: "Number of distinct labels in the label index",
		},
		func() float64 { return float64(engine.Status().Labels) },
	)
	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.searchesTotal, m.ingestedTotal, entries, labels)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument records request counts and latency under the matched chi route pattern.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
