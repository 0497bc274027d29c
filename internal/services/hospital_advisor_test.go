package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/pkg/maps"
)

func okElement(meters float64, seconds int) maps.DistanceElement {
	return maps.DistanceElement{
		Distance: maps.Distance{Value: meters},
		Duration: maps.Duration{Value: seconds},
		Status:   maps.ElementStatusOK,
	}
}

func TestCandidatesRankByETAThenDistance(t *testing.T) {
	h := newHarness(t)
	h.router.err = nil
	h.router.elements = []maps.DistanceElement{
		okElement(5000, 600),
		okElement(3000, 300),
		okElement(4000, 300),
		{Status: "ZERO_RESULTS"},
		okElement(9000, 900),
	}
	rec := h.createEmergency(t, "p1")

	candidates, err := h.advisor.Candidates(context.Background(), rec.ID, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 5)

	assert.Equal(t, "hosp-002", candidates[0].HospitalID)
	assert.Equal(t, "hosp-003", candidates[1].HospitalID)
	assert.Equal(t, "hosp-001", candidates[2].HospitalID)
	assert.Equal(t, models.RouteSourceRouting, candidates[0].Source)

	var fallback *models.HospitalCandidate
	for i := range candidates {
		if candidates[i].HospitalID == "hosp-004" {
			fallback = &candidates[i]
		}
	}
	require.NotNil(t, fallback)
	assert.Equal(t, models.RouteSourceStraightLine, fallback.Source)
	assert.Greater(t, fallback.DistanceMeters, 0.0)
}

func TestCandidatesFallBackWhenRoutingFails(t *testing.T) {
	h := newHarness(t)
	h.router.err = errors.New("quota exceeded")
	rec := h.createEmergency(t, "p1")

	origin := &models.GeoPoint{Lat: 26.811, Lng: 75.841}
	candidates, err := h.advisor.Candidates(context.Background(), rec.ID, origin)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	for i, c := range candidates {
		assert.Equal(t, models.RouteSourceStraightLine, c.Source)
		assert.Greater(t, c.ETASeconds, 0)
		if i > 0 {
			assert.GreaterOrEqual(t, c.ETASeconds, candidates[i-1].ETASeconds)
		}
	}
	assert.Equal(t, "hosp-004", candidates[0].HospitalID)
}

func TestConfirmAssignsOnceAndIsIdempotent(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")
	ctx := context.Background()

	result, err := h.advisor.Confirm(ctx, &ConfirmRequest{
		EmergencyID: rec.ID,
		HospitalID:  "hosp-001",
		ActorID:     "d1",
		Role:        models.UserTypeDriver,
	})
	require.NoError(t, err)
	assert.False(t, result.AlreadyConfirmed)
	assert.Equal(t, models.EmergencyStatusHospitalAssigned, result.Record.Status)
	assert.Equal(t, "hosp-001", result.Record.AssignedHospitalID)

	require.NotNil(t, result.Route)
	assert.Equal(t, models.RouteSourceStraightLine, result.Route.Source)
	points, err := maps.DecodePolyline(result.Route.EncodedPolyline)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, 19.076, points[0].Latitude, 1e-5)
	assert.InDelta(t, 26.769, points[1].Latitude, 1e-5)

	again, err := h.advisor.Confirm(ctx, &ConfirmRequest{
		EmergencyID: rec.ID,
		HospitalID:  "hosp-001",
		ActorID:     "d1",
		Role:        models.UserTypeDriver,
	})
	require.NoError(t, err)
	assert.True(t, again.AlreadyConfirmed)
	assert.Len(t, again.Record.StatusHistory, 1)

	_, err = h.advisor.Confirm(ctx, &ConfirmRequest{
		EmergencyID: rec.ID,
		HospitalID:  "hosp-002",
		ActorID:     "d1",
		Role:        models.UserTypeDriver,
	})
	assert.ErrorIs(t, err, ErrHospitalAlreadyAssigned)

	stored, err := h.dispatch.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "hosp-001", stored.AssignedHospitalID)
	require.NotNil(t, stored.Route)
}

func TestConfirmAtPickupStartsTransport(t *testing.T) {
	h := newHarness(t)
	h.router.err = nil
	h.router.directions = &maps.DirectionsResponse{Routes: []maps.Route{{
		Polyline: maps.EncodePolyline([]maps.Location{{Latitude: 19.08, Longitude: 72.88}, {Latitude: 26.77, Longitude: 75.86}}),
		Distance: maps.Distance{Value: 1200},
		Duration: maps.Duration{Value: 240},
	}}}
	rec := h.createEmergency(t, "p1")

	transition(t, h.dispatch, rec.ID, dispatch.EventAccept, "d1", models.UserTypeDriver)
	transition(t, h.dispatch, rec.ID, dispatch.EventStartRoute, "d1", models.UserTypeDriver)
	transition(t, h.dispatch, rec.ID, dispatch.EventArrivePickup, "d1", models.UserTypeDriver)

	result, err := h.advisor.Confirm(context.Background(), &ConfirmRequest{
		EmergencyID: rec.ID,
		HospitalID:  "hosp-001",
		ActorID:     "d1",
		Role:        models.UserTypeDriver,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusTransporting, result.Record.Status)
	require.NotNil(t, result.Route)
	assert.Equal(t, models.RouteSourceRouting, result.Route.Source)
	assert.Equal(t, 240, result.Route.DurationSeconds)
}

func TestConfirmOutsideConfirmableSteps(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")
	transition(t, h.dispatch, rec.ID, dispatch.EventAccept, "d1", models.UserTypeDriver)

	_, err := h.advisor.Confirm(context.Background(), &ConfirmRequest{
		EmergencyID: rec.ID,
		HospitalID:  "hosp-001",
		ActorID:     "d1",
		Role:        models.UserTypeDriver,
	})
	assert.ErrorIs(t, err, ErrInvalidConfirmStep)

	_, err = h.advisor.Confirm(context.Background(), &ConfirmRequest{
		EmergencyID: rec.ID,
		HospitalID:  "hosp-999",
		ActorID:     "d1",
		Role:        models.UserTypeDriver,
	})
	assert.ErrorIs(t, err, ErrHospitalNotFound)
}

func TestConfirmStep(t *testing.T) {
	tests := []struct {
		name     string
		status   models.EmergencyStatus
		assigned string
		event    dispatch.Event
		already  bool
		err      error
	}{
		{"pending", models.EmergencyStatusPending, "", dispatch.EventAssignHospital, false, nil},
		{"pickup", models.EmergencyStatusArrivedPickup, "", dispatch.EventStartTransport, false, nil},
		{"pickup same hospital", models.EmergencyStatusArrivedPickup, "h1", dispatch.EventStartTransport, false, nil},
		{"pickup other hospital", models.EmergencyStatusArrivedPickup, "h2", "", false, ErrHospitalAlreadyAssigned},
		{"already assigned", models.EmergencyStatusHospitalAssigned, "h1", "", true, nil},
		{"transporting same", models.EmergencyStatusTransporting, "h1", "", true, nil},
		{"assigned elsewhere", models.EmergencyStatusDispatched, "h2", "", false, ErrHospitalAlreadyAssigned},
		{"en route without hospital", models.EmergencyStatusEnRoute, "", "", false, ErrInvalidConfirmStep},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event, already, err := confirmStep(&models.EmergencyRecord{Status: tc.status, AssignedHospitalID: tc.assigned}, "h1")
			assert.Equal(t, tc.event, event)
			assert.Equal(t, tc.already, already)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
