package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCollectorsCount(t *testing.T) {
	before := testutil.ToFloat64(ControllerEvents.WithLabelValues("metrics_test", "reload"))
	ControllerEvents.WithLabelValues("metrics_test", "reload").Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(ControllerEvents.WithLabelValues("metrics_test", "reload")))
	assert.Len(t, Collectors(), 8)
}

func TestHandler_ServesCollectors(t *testing.T) {
	h, err := Handler()
	require.NoError(t, err)
	_, err = Handler()
	require.NoError(t, err, "handlers use independent registries")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "liveresults_store_subscriptions")
}
