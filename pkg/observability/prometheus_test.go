package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbmap/pkg/observability"
)

func scrape(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func TestPrometheusProvider_ServesMetrics(t *testing.T) {
	t.Parallel()

	mp, handler, err := observability.NewPrometheusProvider()
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	rec := scrape(t, handler)

	assert.Equal(t, http.StatusOK, rec.Code)
	// Prometheus exposition format uses text/plain with version parameter.
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "target_info")
}

func TestPrometheusProvider_ExportsMapMetrics(t *testing.T) {
	t.Parallel()

	mp, handler, err := observability.NewPrometheusProvider()
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	mm, err := observability.NewMapMetrics(mp.Meter("test"))
	require.NoError(t, err)

	mm.RecordOp(context.Background(), "insert", "inserted", time.Microsecond)

	body := scrape(t, handler).Body.String()
	assert.Contains(t, body, "rbmap")
	assert.Contains(t, body, "operations")
	assert.Contains(t, body, `op="insert"`)
}

func TestPrometheusProvider_IndependentRegistries(t *testing.T) {
	t.Parallel()

	first, _, err := observability.NewPrometheusProvider()
	require.NoError(t, err)

	second, _, err := observability.NewPrometheusProvider()
	require.NoError(t, err)

	require.NoError(t, first.Shutdown(context.Background()))
	require.NoError(t, second.Shutdown(context.Background()))
}
