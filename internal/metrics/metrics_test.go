package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsCounters(t *testing.T) {
	m := New()
	m.Cycle("down")
	m.Cycle("down")
	m.Notification("down", nil)
	m.Notification("reminder", errors.New("boom"))
	m.Command("mute")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles.WithLabelValues("down")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("down", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("reminder", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("mute")))
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()
	m.Probe(120*time.Millisecond, true)
	m.State(true, 90*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.targetUp))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.muted))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.downFor))

	m.Probe(time.Second, false)
	m.State(false, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.targetUp))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.muted))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Cycle("up")
	m.Notification("down", nil)
	m.Command("mute")
	m.Probe(time.Second, true)
	m.State(true, time.Minute)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_HandlerExposesNames(t *testing.T) {
	m := New()
	m.Cycle("up")
	m.Probe(10*time.Millisecond, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{"downwatch_cycles_total", "downwatch_probe_duration_seconds", "downwatch_target_up"} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
