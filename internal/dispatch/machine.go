package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/qmuntal/stateless"

	"swiftresponse/internal/models"
)

type Event string

const (
	EventAssignHospital Event = "assign_hospital"
	EventAccept         Event = "accept"
	EventStartRoute     Event = "start_route"
	EventArrivePickup   Event = "arrive_pickup"
	EventStartTransport Event = "start_transport"
	EventReachHospital  Event = "reach_hospital"
	EventConfirmArrival Event = "confirm_arrival"
	EventAdmit          Event = "admit"
	EventRefer          Event = "refer"
	EventStabilize      Event = "stabilize"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRoleNotPermitted  = errors.New("role not permitted to perform transition")
)

// Rule is one permitted (state, event) pair.
type Rule struct {
	From  models.EmergencyStatus
	Event Event
	To    models.EmergencyStatus
	Roles []models.UserType
}

func (r Rule) Allows(role models.UserType) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var (
	hospitalOrDriver = []models.UserType{models.UserTypeHospital, models.UserTypeDriver}
	driverOnly       = []models.UserType{models.UserTypeDriver}
	hospitalOnly     = []models.UserType{models.UserTypeHospital}
)

// Rules is the full transition table. Terminal states have no rows.
var Rules = []Rule{
	{models.EmergencyStatusPending, EventAssignHospital, models.EmergencyStatusHospitalAssigned, hospitalOrDriver},
	{models.EmergencyStatusPending, EventAccept, models.EmergencyStatusDispatched, driverOnly},
	{models.EmergencyStatusHospitalAssigned, EventAccept, models.EmergencyStatusDispatched, driverOnly},
	{models.EmergencyStatusDispatched, EventStartRoute, models.EmergencyStatusEnRoute, driverOnly},
	{models.EmergencyStatusEnRoute, EventArrivePickup, models.EmergencyStatusArrivedPickup, driverOnly},
	{models.EmergencyStatusArrivedPickup, EventStartTransport, models.EmergencyStatusTransporting, driverOnly},
	{models.EmergencyStatusTransporting, EventReachHospital, models.EmergencyStatusReachedHospital, driverOnly},
	{models.EmergencyStatusTransporting, EventConfirmArrival, models.EmergencyStatusArrived, hospitalOrDriver},
	{models.EmergencyStatusReachedHospital, EventConfirmArrival, models.EmergencyStatusArrived, hospitalOrDriver},
	{models.EmergencyStatusArrived, EventAdmit, models.EmergencyStatusAdmitted, hospitalOnly},
	{models.EmergencyStatusArrived, EventRefer, models.EmergencyStatusReferred, hospitalOnly},
	{models.EmergencyStatusArrived, EventStabilize, models.EmergencyStatusStabilized, hospitalOnly},
}

// Lookup returns the rule for (from, event) regardless of role.
func Lookup(from models.EmergencyStatus, event Event) (Rule, bool) {
	for _, r := range Rules {
		if r.From == from && r.Event == event {
			return r, true
		}
	}
	return Rule{}, false
}

func ParseEvent(s string) (Event, bool) {
	for _, r := range Rules {
		if string(r.Event) == s {
			return r.Event, true
		}
	}
	return "", false
}

func roleGuard(roles []models.UserType) stateless.GuardFunc {
	rule := Rule{Roles: roles}
	return func(_ context.Context, args ...any) bool {
		if len(args) == 0 {
			return false
		}
		role, ok := args[0].(models.UserType)
		return ok && rule.Allows(role)
	}
}

func newMachine(from models.EmergencyStatus) *stateless.StateMachine {
	sm := stateless.NewStateMachine(from)
	for _, r := range Rules {
		sm.Configure(r.From).Permit(r.Event, r.To, roleGuard(r.Roles))
	}
	for _, s := range models.TerminalStatuses {
		sm.Configure(s)
	}
	return sm
}

// Next returns the status reached by firing event from the given status as
// role. It has no side effects.
func Next(ctx context.Context, from models.EmergencyStatus, event Event, role models.UserType) (models.EmergencyStatus, error) {
	sm := newMachine(from)
	ok, err := sm.CanFireCtx(ctx, event, role)
	if err != nil || !ok {
		if _, exists := Lookup(from, event); exists {
			return from, fmt.Errorf("%w: %s may not %s a %s emergency", ErrRoleNotPermitted, role, event, from)
		}
		return from, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, from)
	}
	if err := sm.FireCtx(ctx, event, role); err != nil {
		return from, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return sm.MustState().(models.EmergencyStatus), nil
}

// Permitted lists the events role may fire from the given status.
func Permitted(ctx context.Context, from models.EmergencyStatus, role models.UserType) []Event {
	triggers, err := newMachine(from).PermittedTriggersCtx(ctx, role)
	if err != nil {
		return nil
	}
	events := make([]Event, 0, len(triggers))
	for _, t := range triggers {
		if e, ok := t.(Event); ok {
			events = append(events, e)
		}
	}
	return events
}
