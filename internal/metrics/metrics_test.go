package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.ObserveScan("reconciled", 2*time.Second)
	r.ObserveScan("reconciled", time.Second)
	r.ObserveScan("failed", time.Second)
	r.FetchFailed("amazon")
	r.SetOpportunities(3)
	r.Webhook("ignored")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.scansTotal.WithLabelValues("reconciled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchFailures.WithLabelValues("amazon")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.opportunities))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.webhooksTotal.WithLabelValues("ignored")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.SetTrackedProducts(4)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "arbfinder_catalog_tracked_products 4"))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveScan("failed", time.Second)
	r.FetchFailed("bestbuy")
	r.SetOpportunities(1)
	r.SetTrackedProducts(1)
	r.Webhook("accepted")
	assert.Nil(t, r.Registry())
}
