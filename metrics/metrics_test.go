package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsStatusAndMethod(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)

	handler := collector.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	for _, path := range []string{"/", "/", "/missing"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequests.WithLabelValues("GET", "404")))
}

func TestAnalysisCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)

	collector.RecordAnalysisSuccess()
	collector.RecordAnalysisSuccess()
	collector.RecordAnalysisFailure()
	collector.RecordOrphanedUpload()

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.analyzeSuccess))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.analyzeFailure))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.orphanedUploads))
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector(reg)
	collector.RecordRequest(http.MethodGet, http.StatusOK, 25*time.Millisecond)
	collector.RecordAnalysisSuccess()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "caloriecam_http_requests_total")
	assert.Contains(t, string(body), "caloriecam_http_request_duration_seconds")
	assert.Contains(t, string(body), "caloriecam_meal_analysis_success_total")
}
