package services

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
)

func TestMonitorSweep(t *testing.T) {
	h := newHarness(t)
	stale := h.createEmergency(t, "p1")
	taken := h.createEmergency(t, "p2")
	transition(t, h.dispatch, taken.ID, dispatch.EventAccept, "d1", models.UserTypeDriver)

	monitor := NewMonitorService(h.emergencies, "", 5*time.Millisecond, logger.Discard())
	time.Sleep(10 * time.Millisecond)
	fresh := h.createEmergency(t, "p3")

	found, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
	assert.NotEqual(t, fresh.ID, found[0].ID)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ActiveEmergencies.WithLabelValues(string(models.EmergencyStatusPending))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveEmergencies.WithLabelValues(string(models.EmergencyStatusDispatched))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StalePending))
}

func TestMonitorRejectsBadSchedule(t *testing.T) {
	h := newHarness(t)
	monitor := NewMonitorService(h.emergencies, "every so often", time.Minute, logger.Discard())
	assert.Error(t, monitor.Start())

	monitor = NewMonitorService(h.emergencies, "@every 1h", time.Minute, logger.Discard())
	require.NoError(t, monitor.Start())
	monitor.Stop()
}
