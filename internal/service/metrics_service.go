package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for HTTP traffic, catalog
// caching and timetable searches.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	searches        *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	generations     prometheus.Histogram
	bestPenalty     prometheus.Gauge
	runsActive      prometheus.Gauge
	exports         *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Catalog cache lookups by result",
		}, []string{"result"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_searches_total",
			Help: "Completed timetable searches by outcome",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timetable_search_duration_seconds",
			Help:    "Wall time of timetable searches",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		generations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timetable_search_generations",
			Help:    "Generations examined per search",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000},
		}),
		bestPenalty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_last_best_penalty",
			Help: "Best penalty of the most recent search",
		}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timetable_runs_active",
			Help: "Asynchronous runs currently searching",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_exports_total",
			Help: "Rendered exports by format",
		}, []string{"format"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.cacheLookups,
		m.searches, m.searchDuration, m.generations, m.bestPenalty, m.runsActive,
		m.exports, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup counts a catalog cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveSearch records a finished search. outcome is one of perfect,
// exhausted, cancelled or failed.
func (m *MetricsService) ObserveSearch(outcome string, generations, bestPenalty int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(elapsed.Seconds())
	m.generations.Observe(float64(generations))
	m.bestPenalty.Set(float64(bestPenalty))
}

// RunStarted and RunFinished track the number of searching runs.
func (m *MetricsService) RunStarted() {
	if m != nil {
		m.runsActive.Inc()
	}
}

// RunFinished decrements the active run gauge.
func (m *MetricsService) RunFinished() {
	if m != nil {
		m.runsActive.Dec()
	}
}

// RecordExport counts a rendered export.
func (m *MetricsService) RecordExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}
