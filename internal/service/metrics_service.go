package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	filterRuns      prometheus.Counter
	filterCandidate prometheus.Counter
	filterVisible   prometheus.Counter
	staleDiscarded  prometheus.Counter
	sweeps          prometheus.Counter
	sweepPruned     prometheus.Counter
	stateResets     *prometheus.CounterVec
}

// NewMetricsService registers the portal collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of portal HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of portal HTTP requests",
	}, []string{"method", "path", "status"})

	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_backend_request_duration_seconds",
		Help:    "Duration of calls to the activities backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	filterRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_filter_runs_total",
		Help: "Filter engine evaluations",
	})

	filterCandidate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_filter_candidates_total",
		Help: "Activities considered by the filter engine",
	})

	filterVisible := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_filter_visible_total",
		Help: "Activities that passed every residual predicate",
	})

	staleDiscarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_stale_responses_discarded_total",
		Help: "Activity responses dropped because a newer fetch superseded them",
	})

	sweeps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_dismissal_sweeps_total",
		Help: "Dismissal sweeps performed",
	})

	sweepPruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_dismissal_pruned_total",
		Help: "Dismissed announcement ids pruned by sweeps",
	})

	stateResets := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_state_resets_total",
		Help: "Persisted entries reset because they could not be decoded",
	}, []string{"key"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, backendDuration, filterRuns, filterCandidate, filterVisible,
		staleDiscarded, sweeps, sweepPruned, stateResets, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		backendDuration: backendDuration,
		filterRuns:      filterRuns,
		filterCandidate: filterCandidate,
		filterVisible:   filterVisible,
		staleDiscarded:  staleDiscarded,
		sweeps:          sweeps,
		sweepPruned:     sweepPruned,
		stateResets:     stateResets,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records portal request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveBackendCall records a call to the activities backend. status 0 means no response.
func (m *MetricsService) ObserveBackendCall(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(endpoint, fmt.Sprintf("%d", status)).Observe(duration.Seconds())
}

// ObserveFilter records one filter engine pass.
func (m *MetricsService) ObserveFilter(candidates, visible int) {
	if m == nil {
		return
	}
	m.filterRuns.Inc()
	m.filterCandidate.Add(float64(candidates))
	m.filterVisible.Add(float64(visible))
}

// RecordStaleResponse counts a superseded activity response.
func (m *MetricsService) RecordStaleResponse() {
	if m == nil {
		return
	}
	m.staleDiscarded.Inc()
}

// RecordSweep counts a dismissal sweep and the ids it pruned.
func (m *MetricsService) RecordSweep(pruned int) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.sweepPruned.Add(float64(pruned))
}

// RecordStateReset counts a corrupt persisted entry being reset.
func (m *MetricsService) RecordStateReset(key string) {
	if m == nil {
		return
	}
	m.stateResets.WithLabelValues(key).Inc()
}
