package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
)

func transition(t *testing.T, svc DispatchService, id string, event dispatch.Event, actor string, role models.UserType) *models.EmergencyRecord {
	t.Helper()
	rec, err := svc.Transition(context.Background(), &TransitionRequest{
		EmergencyID: id,
		Event:       event,
		ActorID:     actor,
		Role:        role,
	})
	require.NoError(t, err)
	return rec
}

func TestCreateRejectsMissingLocation(t *testing.T) {
	h := newHarness(t)

	for _, loc := range []models.EmergencyLocation{
		{Latitude: 0, Longitude: 0},
		{Latitude: 120, Longitude: 72.8},
	} {
		_, err := h.dispatch.Create(context.Background(), &CreateEmergencyRequest{
			EmergencyType: "accident",
			Location:      loc,
		})
		assert.ErrorIs(t, err, ErrLocationRequired)
	}
}

func TestCreateStartsPending(t *testing.T) {
	h := newHarness(t)

	rec := h.createEmergency(t, "p1")
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.EmergencyStatusPending, rec.Status)
	assert.Equal(t, models.EmergencyTypeAccident, rec.EmergencyType)
	assert.Empty(t, rec.AssignedHospitalID)
	assert.Empty(t, rec.AssignedDriverID)
}

func TestTransitionRecordsHistoryAndAssignment(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")

	updated := transition(t, h.dispatch, rec.ID, dispatch.EventAssignHospital, "hosp-001", models.UserTypeHospital)
	assert.Equal(t, models.EmergencyStatusHospitalAssigned, updated.Status)
	assert.Equal(t, "hosp-001", updated.AssignedHospitalID)

	updated = transition(t, h.dispatch, rec.ID, dispatch.EventAccept, "d1", models.UserTypeDriver)
	assert.Equal(t, models.EmergencyStatusDispatched, updated.Status)
	assert.Equal(t, "d1", updated.AssignedDriverID)

	require.Len(t, updated.StatusHistory, 2)
	assert.Equal(t, models.EmergencyStatusPending, updated.StatusHistory[0].From)
	assert.Equal(t, "hosp-001", updated.StatusHistory[0].ActorID)
	assert.Equal(t, models.EmergencyStatusDispatched, updated.StatusHistory[1].To)
	assert.Equal(t, string(models.UserTypeDriver), updated.StatusHistory[1].ActorRole)
}

func TestTransitionRejections(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")
	ctx := context.Background()

	_, err := h.dispatch.Transition(ctx, &TransitionRequest{EmergencyID: rec.ID, Event: dispatch.EventAdmit, ActorID: "hosp-001", Role: models.UserTypeHospital})
	assert.ErrorIs(t, err, dispatch.ErrInvalidTransition)

	_, err = h.dispatch.Transition(ctx, &TransitionRequest{EmergencyID: rec.ID, Event: dispatch.EventAccept, ActorID: "p1", Role: models.UserTypePatient})
	assert.ErrorIs(t, err, dispatch.ErrRoleNotPermitted)

	_, err = h.dispatch.Transition(ctx, &TransitionRequest{EmergencyID: rec.ID, Event: dispatch.EventAssignHospital, ActorID: "d1", Role: models.UserTypeDriver})
	assert.ErrorIs(t, err, ErrHospitalRequired)

	transition(t, h.dispatch, rec.ID, dispatch.EventAccept, "d1", models.UserTypeDriver)

	_, err = h.dispatch.Transition(ctx, &TransitionRequest{EmergencyID: rec.ID, Event: dispatch.EventStartRoute, ActorID: "d2", Role: models.UserTypeDriver})
	assert.ErrorIs(t, err, ErrNotAssigned)

	stored, err := h.dispatch.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusDispatched, stored.Status)
	assert.Equal(t, "d1", stored.AssignedDriverID)
}

func TestHospitalCannotBeReassigned(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")

	transition(t, h.dispatch, rec.ID, dispatch.EventAccept, "d1", models.UserTypeDriver)
	transition(t, h.dispatch, rec.ID, dispatch.EventStartRoute, "d1", models.UserTypeDriver)
	transition(t, h.dispatch, rec.ID, dispatch.EventArrivePickup, "d1", models.UserTypeDriver)

	_, err := h.dispatch.Transition(context.Background(), &TransitionRequest{
		EmergencyID: rec.ID,
		Event:       dispatch.EventStartTransport,
		ActorID:     "d1",
		Role:        models.UserTypeDriver,
	})
	assert.ErrorIs(t, err, ErrHospitalRequired)

	updated, err := h.dispatch.Transition(context.Background(), &TransitionRequest{
		EmergencyID: rec.ID,
		Event:       dispatch.EventStartTransport,
		HospitalID:  "hosp-002",
		ActorID:     "d1",
		Role:        models.UserTypeDriver,
	})
	require.NoError(t, err)
	assert.Equal(t, "hosp-002", updated.AssignedHospitalID)
	assert.Equal(t, models.EmergencyStatusTransporting, updated.Status)
}

func TestClosedRecordRejectsEverything(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")

	transition(t, h.dispatch, rec.ID, dispatch.EventAssignHospital, "hosp-001", models.UserTypeHospital)
	transition(t, h.dispatch, rec.ID, dispatch.EventAccept, "d1", models.UserTypeDriver)
	transition(t, h.dispatch, rec.ID, dispatch.EventStartRoute, "d1", models.UserTypeDriver)
	transition(t, h.dispatch, rec.ID, dispatch.EventArrivePickup, "d1", models.UserTypeDriver)
	transition(t, h.dispatch, rec.ID, dispatch.EventStartTransport, "d1", models.UserTypeDriver)
	transition(t, h.dispatch, rec.ID, dispatch.EventConfirmArrival, "hosp-001", models.UserTypeHospital)
	closed := transition(t, h.dispatch, rec.ID, dispatch.EventStabilize, "hosp-001", models.UserTypeHospital)
	assert.True(t, closed.Status.IsTerminal())

	_, err := h.dispatch.Transition(context.Background(), &TransitionRequest{EmergencyID: rec.ID, Event: dispatch.EventAdmit, ActorID: "hosp-001", Role: models.UserTypeHospital})
	assert.ErrorIs(t, err, interfaces.ErrRecordClosed)

	_, err = h.dispatch.UpdateFields(context.Background(), rec.ID, map[string]interface{}{
		models.FieldDriverLocation: sampleAt(19.08, 72.88),
	})
	assert.ErrorIs(t, err, interfaces.ErrRecordClosed)
}

func TestUpdateFieldsIgnoresProtectedKeys(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")

	updated, err := h.dispatch.UpdateFields(context.Background(), rec.ID, map[string]interface{}{
		models.FieldStatus:           models.EmergencyStatusAdmitted,
		models.FieldAssignedDriverID: "intruder",
		models.FieldDriverLocation:   sampleAt(19.08, 72.88),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EmergencyStatusPending, updated.Status)
	assert.Empty(t, updated.AssignedDriverID)
	require.NotNil(t, updated.DriverLocation)
	assert.InDelta(t, 19.08, updated.DriverLocation.Latitude, 1e-9)
}

func TestConcurrentAcceptHasOneWinner(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")

	const drivers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   []string
		errs   []error
		starts = make(chan struct{})
	)
	for i := 0; i < drivers; i++ {
		driverID := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-starts
			_, err := h.dispatch.Transition(context.Background(), &TransitionRequest{
				EmergencyID: rec.ID,
				Event:       dispatch.EventAccept,
				ActorID:     driverID,
				Role:        models.UserTypeDriver,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins = append(wins, driverID)
			} else {
				errs = append(errs, err)
			}
		}()
	}
	close(starts)
	wg.Wait()

	require.Len(t, wins, 1)
	for _, err := range errs {
		assert.True(t,
			errors.Is(err, interfaces.ErrStatusConflict) ||
				errors.Is(err, ErrDriverAlreadyAssigned) ||
				errors.Is(err, dispatch.ErrInvalidTransition),
			"unexpected error %v", err)
	}

	stored, err := h.dispatch.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, wins[0], stored.AssignedDriverID)
	assert.Len(t, stored.StatusHistory, 1)
}

func TestTransitionHooksSeeCommittedRecord(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")

	var seen []*Transition
	h.dispatch.OnTransition(func(_ context.Context, tr *Transition) {
		seen = append(seen, tr)
	})

	transition(t, h.dispatch, rec.ID, dispatch.EventAccept, "d1", models.UserTypeDriver)

	require.Len(t, seen, 1)
	assert.Equal(t, models.EmergencyStatusPending, seen[0].From)
	assert.Equal(t, models.EmergencyStatusDispatched, seen[0].To)
	assert.Equal(t, "d1", seen[0].Record.AssignedDriverID)
}

func TestAvailableEventsByRole(t *testing.T) {
	h := newHarness(t)
	rec := h.createEmergency(t, "p1")

	events, err := h.dispatch.AvailableEvents(context.Background(), rec.ID, models.UserTypeDriver)
	require.NoError(t, err)
	assert.ElementsMatch(t, []dispatch.Event{dispatch.EventAssignHospital, dispatch.EventAccept}, events)

	events, err = h.dispatch.AvailableEvents(context.Background(), rec.ID, models.UserTypePatient)
	require.NoError(t, err)
	assert.Empty(t, events)
}
