package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheus(reg, "")

	score := 6.0
	r.ObserveRun("PREFERENCE_BASED", OutcomeSuccess, 20*time.Millisecond, &score)
	r.ObserveRun("RANDOM", OutcomeSuccess, time.Millisecond, nil)
	r.ObserveRun("RANDOM", OutcomeInvalid, 0, nil)

	require.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("PREFERENCE_BASED", OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("RANDOM", OutcomeInvalid)))
	require.Equal(t, 2, testutil.CollectAndCount(r.duration))
	require.Equal(t, 1, testutil.CollectAndCount(r.satisfaction))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "grouper_grouping_runs_total"))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.ObserveRun("RANDOM", OutcomeSuccess, time.Second, nil)
	})
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
