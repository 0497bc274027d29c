package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/models"
)

var allEvents = []Event{
	EventAssignHospital, EventAccept, EventStartRoute, EventArrivePickup, EventStartTransport,
	EventReachHospital, EventConfirmArrival, EventAdmit, EventRefer, EventStabilize,
}

var allRoles = []models.UserType{models.UserTypePatient, models.UserTypeHospital, models.UserTypeDriver}

func TestNextCoversEveryPair(t *testing.T) {
	ctx := context.Background()
	for _, from := range models.AllEmergencyStatuses {
		for _, ev := range allEvents {
			for _, role := range allRoles {
				to, err := Next(ctx, from, ev, role)
				rule, exists := Lookup(from, ev)
				switch {
				case !exists:
					assert.ErrorIs(t, err, ErrInvalidTransition, "%s/%s/%s", from, ev, role)
					assert.Equal(t, from, to)
				case !rule.Allows(role):
					assert.ErrorIs(t, err, ErrRoleNotPermitted, "%s/%s/%s", from, ev, role)
					assert.Equal(t, from, to)
				default:
					require.NoError(t, err, "%s/%s/%s", from, ev, role)
					assert.Equal(t, rule.To, to)
				}
			}
		}
	}
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	for _, s := range models.TerminalStatuses {
		for _, role := range allRoles {
			assert.Empty(t, Permitted(context.Background(), s, role))
		}
	}
}

func TestPatientCannotMoveTheLifecycle(t *testing.T) {
	for _, s := range models.AllEmergencyStatuses {
		assert.Empty(t, Permitted(context.Background(), s, models.UserTypePatient), s)
	}
}

func TestTransitionsOnlyMoveForward(t *testing.T) {
	rank := make(map[models.EmergencyStatus]int)
	for i, s := range models.AllEmergencyStatuses {
		rank[s] = i
	}
	for _, r := range Rules {
		assert.Greater(t, rank[r.To], rank[r.From], "%s -> %s", r.From, r.To)
	}
}

func TestPermitted(t *testing.T) {
	ctx := context.Background()

	assert.ElementsMatch(t, []Event{EventAssignHospital, EventAccept},
		Permitted(ctx, models.EmergencyStatusPending, models.UserTypeDriver))
	assert.ElementsMatch(t, []Event{EventAssignHospital},
		Permitted(ctx, models.EmergencyStatusPending, models.UserTypeHospital))
	assert.ElementsMatch(t, []Event{EventAdmit, EventRefer, EventStabilize},
		Permitted(ctx, models.EmergencyStatusArrived, models.UserTypeHospital))
}

func TestParseEvent(t *testing.T) {
	ev, ok := ParseEvent("start_transport")
	require.True(t, ok)
	assert.Equal(t, EventStartTransport, ev)

	_, ok = ParseEvent("cancel")
	assert.False(t, ok)
}
