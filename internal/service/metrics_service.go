package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	authEvents        *prometheus.CounterVec
	revocationLatency prometheus.Observer
	revocationHits    prometheus.Counter
	revocationMisses  prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	authEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Authentication events by kind and outcome",
	}, []string{"event", "outcome"})

	revocationLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "token_revocation_check_seconds",
		Help:    "Latency of revocation lookups",
		Buckets: prometheus.DefBuckets,
	})

	revocationHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "token_revocation_hits_total",
		Help: "Requests rejected because the access token was revoked",
	})

	revocationMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "token_revocation_misses_total",
		Help: "Revocation lookups that found no entry",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, authEvents, revocationLatency, revocationHits, revocationMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		authEvents:        authEvents,
		revocationLatency: revocationLatency,
		revocationHits:    revocationHits,
		revocationMisses:  revocationMisses,
	}
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

// Registry returns the underlying registry so tests can gather samples.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RegisterRevocationSize exposes the size of the in-memory revocation registry.
func (m *MetricsService) RegisterRevocationSize(size func() int) {
	if m == nil || size == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "token_revocation_entries",
		Help: "Revoked access tokens currently held in memory",
	}, func() float64 {
		return float64(size())
	}))
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordAuthEvent counts login, refresh, logout and revoke outcomes.
func (m *MetricsService) RecordAuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// ObserveRevocationCheck records a revocation lookup.
func (m *MetricsService) ObserveRevocationCheck(revoked bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.revocationLatency.Observe(duration.Seconds())
	if revoked {
		m.revocationHits.Inc()
	} else {
		m.revocationMisses.Inc()
	}
}

