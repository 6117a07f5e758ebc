// Package metrics collects and exposes Prometheus metrics for the HTTP
// surface and the meal-analysis pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and updates the application's metrics.
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    prometheus.Histogram
	analyzeSuccess  prometheus.Counter
	analyzeFailure  prometheus.Counter
	orphanedUploads prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caloriecam_http_requests_total",
			Help: "HTTP responses by method and status code.",
		}, []string{"method", "status_code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "caloriecam_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		analyzeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caloriecam_meal_analysis_success_total",
			Help: "Meal photos analyzed successfully.",
		}),
		analyzeFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caloriecam_meal_analysis_failure_total",
			Help: "Meal photo analyses that failed or timed out.",
		}),
		orphanedUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caloriecam_orphaned_upload_files_total",
			Help: "Upload files left behind after a failed file deletion.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.analyzeSuccess,
		c.analyzeFailure,
		c.orphanedUploads,
	)
	return c
}

// RecordRequest records one finished HTTP request.
func (c *Collector) RecordRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.Observe(duration.Seconds())
}

// RecordAnalysisSuccess counts a successful meal analysis.
func (c *Collector) RecordAnalysisSuccess() {
	c.analyzeSuccess.Inc()
}

// RecordAnalysisFailure counts a failed or timed-out meal analysis.
func (c *Collector) RecordAnalysisFailure() {
	c.analyzeFailure.Inc()
}

// RecordOrphanedUpload counts an upload file that could not be removed
// after its meal row was deleted.
func (c *Collector) RecordOrphanedUpload() {
	c.orphanedUploads.Inc()
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// Middleware returns HTTP middleware that records request count and
// latency for every response.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.RecordRequest(r.Method, rec.statusCode, time.Since(start))
	})
}

// Handler returns the scrape endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
