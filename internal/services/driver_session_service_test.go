package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
)

func (h *harness) online(t *testing.T, driverID string) {
	t.Helper()
	h.addDriver(t, driverID)
	_, err := h.driverSession.GoOnline(context.Background(), driverID)
	require.NoError(t, err)
}

func (h *harness) waitOffered(t *testing.T, driverID, emergencyID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		session, err := h.driverSession.Session(context.Background(), driverID)
		return err == nil && session.OfferedAlertID == emergencyID
	}, 2*time.Second, 5*time.Millisecond, "alert %s never offered to %s", emergencyID, driverID)
}

func expiredReasons(n *fakeNotifier, driverID string) []string {
	var reasons []string
	for _, m := range n.messages("user:"+driverID, MessageAlertExpired) {
		var body alertExpired
		if err := json.Unmarshal(m.Data, &body); err == nil {
			reasons = append(reasons, body.Reason)
		}
	}
	return reasons
}

func TestNewEmergencyIsOfferedToOnlineDriver(t *testing.T) {
	h := newHarness(t)
	h.online(t, "d1")

	rec := h.createEmergency(t, "p1")
	h.waitOffered(t, "d1", rec.ID)

	assert.Equal(t, 1, h.notifier.count("user:d1", MessageAlertOffered))
	require.Eventually(t, func() bool {
		return h.notifier.count("user:d1", MessageAlertCountdown) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestUnansweredAlertExpires(t *testing.T) {
	h := newHarness(t)
	h.online(t, "d1")
	rec := h.createEmergency(t, "p1")
	h.waitOffered(t, "d1", rec.ID)

	require.Eventually(t, func() bool {
		return len(expiredReasons(h.notifier, "d1")) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"timeout"}, expiredReasons(h.notifier, "d1"))

	session, err := h.driverSession.Session(context.Background(), "d1")
	require.NoError(t, err)
	assert.Empty(t, session.OfferedAlertID)
	assert.True(t, session.HasRejected(rec.ID))

	// The record stays pending for other drivers.
	stored, err := h.dispatch.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusPending, stored.Status)

	_, err = h.driverSession.AcceptAlert(context.Background(), "d1", rec.ID)
	assert.ErrorIs(t, err, ErrAlertNotOffered)
}

func TestAcceptAlertDispatchesAndTracksTrip(t *testing.T) {
	h := newHarness(t)
	h.online(t, "d1")
	rec := h.createEmergency(t, "p1")
	h.waitOffered(t, "d1", rec.ID)

	accepted, err := h.driverSession.AcceptAlert(context.Background(), "d1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusDispatched, accepted.Status)
	assert.Equal(t, "d1", accepted.AssignedDriverID)

	session, err := h.driverSession.Session(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, session.TripID)
	assert.Equal(t, models.EmergencyStatusDispatched, session.TripStatus)
	assert.Empty(t, session.OfferedAlertID)
	require.NotNil(t, session.AcceptedAt)

	updated, err := h.driverSession.AdvanceTrip(context.Background(), "d1", dispatch.EventStartRoute, "")
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusEnRoute, updated.Status)

	// The countdown was stopped by the accept.
	time.Sleep(400 * time.Millisecond)
	assert.Empty(t, expiredReasons(h.notifier, "d1"))
}

func TestAcceptAfterCountdownEndedIsRejected(t *testing.T) {
	h := newHarness(t)
	h.online(t, "d1")
	rec := h.createEmergency(t, "p1")
	h.waitOffered(t, "d1", rec.ID)

	// The countdown is gone while the session still names the offer.
	require.True(t, h.gate.Cancel(alertKey("d1")))

	_, err := h.driverSession.AcceptAlert(context.Background(), "d1", rec.ID)
	assert.ErrorIs(t, err, ErrAlertNotOffered)

	stored, err := h.dispatch.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusPending, stored.Status)
	assert.Empty(t, stored.AssignedDriverID)
}

func TestRejectOffersNextWaitingRecord(t *testing.T) {
	h := newHarness(t)
	first := h.createEmergency(t, "p1")
	time.Sleep(2 * time.Millisecond)
	second := h.createEmergency(t, "p2")

	h.online(t, "d1")
	session, err := h.driverSession.Session(context.Background(), "d1")
	require.NoError(t, err)
	offered := session.OfferedAlertID
	require.Contains(t, []string{first.ID, second.ID}, offered)

	other := first.ID
	if offered == first.ID {
		other = second.ID
	}

	assert.ErrorIs(t, h.driverSession.RejectAlert(context.Background(), "d1", other), ErrAlertNotOffered)
	require.NoError(t, h.driverSession.RejectAlert(context.Background(), "d1", offered))

	h.waitOffered(t, "d1", other)
	assert.Equal(t, []string{"rejected"}, expiredReasons(h.notifier, "d1"))
}

func TestOffersHeldByOthersAreWithdrawnWhenTaken(t *testing.T) {
	h := newHarness(t)
	h.online(t, "d1")
	h.online(t, "d2")

	rec := h.createEmergency(t, "p1")
	h.waitOffered(t, "d1", rec.ID)
	h.waitOffered(t, "d2", rec.ID)

	_, err := h.driverSession.AcceptAlert(context.Background(), "d1", rec.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"taken"}, expiredReasons(h.notifier, "d2"))
	session, err := h.driverSession.Session(context.Background(), "d2")
	require.NoError(t, err)
	assert.Empty(t, session.OfferedAlertID)

	_, err = h.driverSession.AcceptAlert(context.Background(), "d2", rec.ID)
	assert.ErrorIs(t, err, ErrAlertNotOffered)
}

func TestBusyOrOfflineDriverCannotAccept(t *testing.T) {
	h := newHarness(t)
	h.online(t, "d1")
	rec := h.createEmergency(t, "p1")
	h.waitOffered(t, "d1", rec.ID)

	require.NoError(t, h.driverSession.GoOffline(context.Background(), "d1"))
	_, err := h.driverSession.AcceptAlert(context.Background(), "d1", rec.ID)
	assert.ErrorIs(t, err, ErrDriverOffline)

	_, err = h.driverSession.AdvanceTrip(context.Background(), "d1", dispatch.EventStartRoute, "")
	assert.ErrorIs(t, err, ErrNoActiveTrip)
}
