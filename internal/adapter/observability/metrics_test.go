package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Get("/api/interview/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/interview/{id}", http.MethodGet, "204"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/interview/abc", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/api/interview/{id}", http.MethodGet, "204"))
	assert.Equal(t, before+1, after)
}

func TestHTTPMetricsMiddleware_NoRouterFallsBackToPath(t *testing.T) {
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/raw", http.MethodGet, "200"))
	mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/raw", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/raw", http.MethodGet, "200")))
}

func TestInterviewHelpers(t *testing.T) {
	InitMetrics()
	InitMetrics()

	created := testutil.ToFloat64(InterviewsCreatedTotal)
	completed := testutil.ToFloat64(InterviewsCompletedTotal)

	InterviewCreated()
	InterviewCompleted(85)
	InterviewCompleted(-1)

	assert.Equal(t, created+1, testutil.ToFloat64(InterviewsCreatedTotal))
	assert.Equal(t, completed+2, testutil.ToFloat64(InterviewsCompletedTotal))
}
