package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

func TestRecorder_ObserveCycle(t *testing.T) {
	recorder := NewRecorder()

	recorder.ObserveCycle(watchdog.CycleReport{
		Duration: 150 * time.Millisecond,
		Results: []watchdog.PathResult{
			{Path: "/bin/a", Outcome: watchdog.OutcomeLaunched},
			{Path: "/bin/b", Outcome: watchdog.OutcomeAlertedAndRestarted},
			{Path: "/bin/c", Outcome: watchdog.OutcomeNoAction},
			{Path: "/bin/d", Outcome: watchdog.OutcomeNoAction},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.restarts))
	assert.Equal(t, 4.0, testutil.ToFloat64(recorder.trackedPaths))
	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.pathOutcomes.WithLabelValues("no_action")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.pathOutcomes.WithLabelValues("launched")))

	recorder.CircuitOpened()
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.circuitOpens))
}

func TestRecorder_Handler(t *testing.T) {
	recorder := NewRecorder()
	recorder.ObserveCycle(watchdog.CycleReport{Results: []watchdog.PathResult{{Outcome: watchdog.OutcomeError}}})

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `watchdog_path_outcomes_total{outcome="error"} 1`))
	assert.Contains(t, body, "watchdog_cycles_total 1")
	assert.Contains(t, body, "watchdog_cycle_duration_seconds_bucket")
}
