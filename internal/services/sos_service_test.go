package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/models"
	"swiftresponse/internal/realtime"
)

func TestSOSArmCompletesIntoEmergency(t *testing.T) {
	h := newHarness(t)
	h.addPatient(t, "p1", nil)
	require.NoError(t, h.medical.Upsert(context.Background(), &models.MedicalProfile{UserID: "p1", BloodGroup: "B+"}))

	armed, err := h.sos.Arm(context.Background(), &SOSRequest{
		UserID:        "p1",
		EmergencyType: "cardiac",
		Location:      &models.EmergencyLocation{Latitude: 19.076, Longitude: 72.877},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, armed.Seconds)
	assert.InDelta(t, 19.076, armed.Location.Latitude, 1e-9)

	require.Eventually(t, func() bool {
		return h.notifier.count("user:p1", MessageSOSTriggered) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 3, h.notifier.count("user:p1", MessageSOSCountdown))

	records, err := h.emergencies.List(context.Background(), models.EmergencyFilter{PatientUserID: "p1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, models.EmergencyStatusPending, rec.Status)
	assert.Equal(t, models.EmergencyTypeCardiac, rec.EmergencyType)
	require.NotNil(t, rec.Patient.Medical)
	assert.Equal(t, "B+", rec.Patient.Medical.BloodGroup)

	sent := h.sms.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "+919800000001", sent[0].To)
	assert.True(t, strings.Contains(sent[0].Message, "19.076"))

	// The patient's trip view opens with the new record.
	require.Eventually(t, func() bool {
		for _, msg := range h.notifier.realtimeMessages("p1") {
			if msg.Type == realtime.MessageSnapshot && msg.View == realtime.ViewTrip && len(msg.Records) == 1 {
				return msg.Records[0].ID == rec.ID
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestSOSCancelPreventsEmergency(t *testing.T) {
	h := newHarness(t)
	h.addPatient(t, "p1", nil)

	_, err := h.sos.Arm(context.Background(), &SOSRequest{
		UserID:        "p1",
		EmergencyType: "accident",
		Location:      &models.EmergencyLocation{Latitude: 19.076, Longitude: 72.877},
	})
	require.NoError(t, err)
	assert.True(t, h.sos.Cancel(context.Background(), "p1"))
	assert.False(t, h.sos.Cancel(context.Background(), "p1"))

	time.Sleep(100 * time.Millisecond)
	records, err := h.emergencies.List(context.Background(), models.EmergencyFilter{PatientUserID: "p1"})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, h.notifier.count("user:p1", MessageSOSCancelled))
	assert.Zero(t, h.notifier.count("user:p1", MessageSOSTriggered))
}

func TestSOSTriggerSurvivesSMSFailure(t *testing.T) {
	h := newHarness(t)
	h.sms.fail = true
	h.addPatient(t, "p1", nil)

	rec, err := h.sos.Trigger(context.Background(), &SOSRequest{
		UserID:        "p1",
		EmergencyType: "respiratory",
		Location:      &models.EmergencyLocation{Latitude: 19.076, Longitude: 72.877},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusPending, rec.Status)
	assert.Len(t, h.sms.messages(), 1)
}

func TestResolveSOSLocation(t *testing.T) {
	lat, lng := 26.9, 75.8
	user := &models.UserProfile{
		CurrentLatitude:  &lat,
		CurrentLongitude: &lng,
		CurrentAddress:   "MI Road",
		ActiveLocationID: "home",
		SavedLocations: []models.SavedLocation{{
			ID:          "home",
			Type:        models.SavedLocationHome,
			Address:     "Malviya Nagar",
			Coordinates: models.GeoPoint{Lat: 26.85, Lng: 75.81},
		}},
	}

	loc, err := resolveSOSLocation(user, &models.EmergencyLocation{Latitude: 19.0, Longitude: 72.8})
	require.NoError(t, err)
	assert.Equal(t, 19.0, loc.Latitude)

	loc, err = resolveSOSLocation(user, &models.EmergencyLocation{})
	require.NoError(t, err)
	assert.Equal(t, 26.9, loc.Latitude)
	assert.Equal(t, "MI Road", loc.Address)

	user.CurrentLatitude, user.CurrentLongitude = nil, nil
	loc, err = resolveSOSLocation(user, nil)
	require.NoError(t, err)
	assert.Equal(t, 26.85, loc.Latitude)
	assert.Equal(t, "Malviya Nagar", loc.Address)

	user.SavedLocations = nil
	_, err = resolveSOSLocation(user, nil)
	assert.ErrorIs(t, err, ErrLocationRequired)
}

func TestSOSArmWithoutLocationFails(t *testing.T) {
	h := newHarness(t)
	h.addPatient(t, "p1", nil)

	_, err := h.sos.Arm(context.Background(), &SOSRequest{UserID: "p1", EmergencyType: "accident"})
	assert.ErrorIs(t, err, ErrLocationRequired)
	assert.Zero(t, h.notifier.count("user:p1", MessageSOSCountdown))
}
