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

func TestCollector_RecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOperation("login", "success")
	c.RecordOperation("login", "success")
	c.RecordOperation("login", "rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("login", "rejected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.operations.WithLabelValues("register", "success")))
}

func TestCollector_RecordPasswordHash(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPasswordHash(40 * time.Millisecond)
	c.RecordPasswordHash(120 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "hubauth_password_hash_seconds" {
			continue
		}
		found = true
		require.Len(t, mf.GetMetric(), 1)
		assert.Equal(t, uint64(2), mf.GetMetric()[0].GetHistogram().GetSampleCount())
	}
	assert.True(t, found, "hubauth_password_hash_seconds not gathered")
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordOperation("register", "success")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hubauth_auth_operations_total{operation="register",outcome="success"} 1`)
}
