package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-dept-admin/internal/metrics"
	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSessionObserver(t *testing.T) {
	m := metrics.New()
	observe := m.SessionObserver()

	observe(session.EventLoggedIn)
	observe(session.EventLoggedIn)
	observe(session.EventPurged)

	require.Equal(t, 2.0, testutil.ToFloat64(m.SessionEvents.WithLabelValues("logged_in")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionEvents.WithLabelValues("purged")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, 5*time.Millisecond)
	m.LoginFailed("invalid_credentials")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `deptadmin_http_requests_total{method="GET",route="/",status="200"} 1`)
	require.Contains(t, string(body), `deptadmin_auth_login_failures_total{kind="invalid_credentials"} 1`)
}
