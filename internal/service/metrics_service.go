package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictsFound  prometheus.Counter
	importRows      *prometheus.CounterVec
	attendanceSaved prometheus.Counter
}

// NewMetricsService registers the core collectors.
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

	conflictsFound := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_conflicts_detected_total",
		Help: "Total number of rejected lesson writes due to schedule conflicts",
	})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_import_rows_total",
		Help: "Total number of processed import rows by outcome",
	}, []string{"result"})

	attendanceSaved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_records_saved_total",
		Help: "Total number of attendance records written",
	})

	registry.MustRegister(requestDuration, requestTotal, conflictsFound, importRows, attendanceSaved)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictsFound:  conflictsFound,
		importRows:      importRows,
		attendanceSaved: attendanceSaved,
	}
}

// Handler exposes the /metrics scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one finished request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// CountConflictRejection increments the conflict rejection counter.
func (s *MetricsService) CountConflictRejection() {
	s.conflictsFound.Inc()
}

// CountImportRows records an import batch outcome.
func (s *MetricsService) CountImportRows(imported, failed int) {
	s.importRows.WithLabelValues("imported").Add(float64(imported))
	s.importRows.WithLabelValues("failed").Add(float64(failed))
}

// CountAttendanceSaved records written attendance marks.
func (s *MetricsService) CountAttendanceSaved(n int) {
	s.attendanceSaved.Add(float64(n))
}
