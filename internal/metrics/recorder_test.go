package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-classifier/internal/core"
)

func TestRecorder_Classifications(t *testing.T) {
	r := NewRecorder()

	r.ClassificationCompleted(core.CategoryWork, false)
	r.ClassificationCompleted(core.CategoryWork, false)
	r.ClassificationCompleted(core.FallbackCategory, true)
	r.ClassificationRetried(4 * time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.classifications.WithLabelValues("Work", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.classifications.WithLabelValues("Notifications", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries))
}

func TestRecorder_Batches(t *testing.T) {
	r := NewRecorder()

	result := core.NewBatchResult()
	result.TotalProcessed = 12
	r.BatchCompleted(result, nil)
	r.BatchCompleted(nil, &core.QuotaExceededError{UserID: "u", Limit: 100})
	r.BatchCompleted(nil, &core.ListingError{Attempts: 3, Err: errors.New("503")})
	r.BatchCompleted(nil, errors.New("other"))

	for _, outcome := range []string{"ok", "quota_exceeded", "listing_failed", "error"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(r.batches.WithLabelValues(outcome)), outcome)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ClassificationCompleted(core.CategoryTravel, false)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `inbox_classifier_classifications_total{category="Travel",degraded="false"} 1`)
}

func TestRecorder_ImplementsPort(t *testing.T) {
	var _ core.MetricsRecorder = NewRecorder()
}
