package models

import (
	"strings"
	"time"
)

type EmergencyType string
type EmergencyStatus string

const (
	EmergencyTypeAccident    EmergencyType = "accident"
	EmergencyTypeCardiac     EmergencyType = "cardiac"
	EmergencyTypeMaternal    EmergencyType = "maternal"
	EmergencyTypeRespiratory EmergencyType = "respiratory"
	EmergencyTypeOther       EmergencyType = "other"
)

const (
	EmergencyStatusPending          EmergencyStatus = "pending"
	EmergencyStatusHospitalAssigned EmergencyStatus = "hospital_assigned"
	EmergencyStatusDispatched       EmergencyStatus = "dispatched"
	EmergencyStatusEnRoute          EmergencyStatus = "en_route"
	EmergencyStatusArrivedPickup    EmergencyStatus = "arrived_pickup"
	EmergencyStatusTransporting     EmergencyStatus = "transporting"
	EmergencyStatusReachedHospital  EmergencyStatus = "reached_hospital"
	EmergencyStatusArrived          EmergencyStatus = "arrived"
	EmergencyStatusAdmitted         EmergencyStatus = "admitted"
	EmergencyStatusReferred         EmergencyStatus = "referred"
	EmergencyStatusStabilized       EmergencyStatus = "stabilized"
)

// Field names used in partial updates and realtime events.
const (
	FieldID                 = "_id"
	FieldRecordID           = "id"
	FieldStatus             = "status"
	FieldStatusHistory      = "status_history"
	FieldAssignedHospitalID = "assigned_hospital_id"
	FieldAssignedDriverID   = "assigned_driver_id"
	FieldDriverLocation     = "driver_location"
	FieldRoute              = "route"
	FieldCreatedAt          = "created_at"
	FieldUpdatedAt          = "updated_at"
)

const EmergencyTable = "emergency_requests"

var typeAliases = map[string]EmergencyType{
	"accident":     EmergencyTypeAccident,
	"cardiac":      EmergencyTypeCardiac,
	"heart_attack": EmergencyTypeCardiac,
	"stroke":       EmergencyTypeCardiac,
	"maternal":     EmergencyTypeMaternal,
	"maternity":    EmergencyTypeMaternal,
	"respiratory":  EmergencyTypeRespiratory,
	"breathing":    EmergencyTypeRespiratory,
	"other":        EmergencyTypeOther,
	"general":      EmergencyTypeOther,
	"fire":         EmergencyTypeOther,
}

// ParseEmergencyType maps client spellings onto the canonical types.
// Unknown values become EmergencyTypeOther.
func ParseEmergencyType(s string) EmergencyType {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return EmergencyTypeOther
}

// IsKnownEmergencyType reports whether s is a canonical type or an accepted alias.
func IsKnownEmergencyType(s string) bool {
	_, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func (t EmergencyType) IsValid() bool {
	switch t {
	case EmergencyTypeAccident, EmergencyTypeCardiac, EmergencyTypeMaternal,
		EmergencyTypeRespiratory, EmergencyTypeOther:
		return true
	}
	return false
}

func (s EmergencyStatus) IsTerminal() bool {
	switch s {
	case EmergencyStatusAdmitted, EmergencyStatusReferred, EmergencyStatusStabilized:
		return true
	}
	return false
}

func (s EmergencyStatus) IsValid() bool {
	for _, status := range AllEmergencyStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Label is the text shown on the patient tracking screen.
func (s EmergencyStatus) Label() string {
	switch s {
	case EmergencyStatusPending, EmergencyStatusHospitalAssigned:
		return "Dispatching..."
	case EmergencyStatusDispatched:
		return "Driver Dispatched"
	case EmergencyStatusEnRoute:
		return "Driver En Route"
	case EmergencyStatusArrivedPickup:
		return "Driver Arrived"
	case EmergencyStatusTransporting:
		return "On Way to Hospital"
	case EmergencyStatusReachedHospital, EmergencyStatusArrived:
		return "Arrived at Hospital"
	case EmergencyStatusAdmitted, EmergencyStatusReferred, EmergencyStatusStabilized:
		return "Emergency Resolved"
	}
	return string(s)
}

var AllEmergencyStatuses = []EmergencyStatus{
	EmergencyStatusPending,
	EmergencyStatusHospitalAssigned,
	EmergencyStatusDispatched,
	EmergencyStatusEnRoute,
	EmergencyStatusArrivedPickup,
	EmergencyStatusTransporting,
	EmergencyStatusReachedHospital,
	EmergencyStatusArrived,
	EmergencyStatusAdmitted,
	EmergencyStatusReferred,
	EmergencyStatusStabilized,
}

var TerminalStatuses = []EmergencyStatus{
	EmergencyStatusAdmitted,
	EmergencyStatusReferred,
	EmergencyStatusStabilized,
}

// ActiveStatuses lists every status that is not terminal.
func ActiveStatuses() []EmergencyStatus {
	out := make([]EmergencyStatus, 0, len(AllEmergencyStatuses)-len(TerminalStatuses))
	for _, s := range AllEmergencyStatuses {
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	return out
}

type EmergencyRecord struct {
	ID                 string            `json:"id" bson:"_id"`
	EmergencyType      EmergencyType     `json:"emergency_type" bson:"emergency_type" validate:"required"`
	Patient            PatientSnapshot   `json:"patient" bson:"patient"`
	Location           EmergencyLocation `json:"location" bson:"location" validate:"required"`
	Status             EmergencyStatus   `json:"status" bson:"status"`
	AssignedHospitalID string            `json:"assigned_hospital_id,omitempty" bson:"assigned_hospital_id,omitempty"`
	AssignedDriverID   string            `json:"assigned_driver_id,omitempty" bson:"assigned_driver_id,omitempty"`
	DriverLocation     *LocationSample   `json:"driver_location,omitempty" bson:"driver_location,omitempty"`
	Route              *RouteSummary     `json:"route,omitempty" bson:"route,omitempty"`
	StatusHistory      []StatusChange    `json:"status_history,omitempty" bson:"status_history,omitempty"`
	CreatedAt          time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" bson:"updated_at"`
}

type PatientSnapshot struct {
	UserID  string          `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Name    string          `json:"name" bson:"name"`
	Phone   string          `json:"phone" bson:"phone"`
	Medical *MedicalSummary `json:"medical,omitempty" bson:"medical,omitempty"`
}

type EmergencyLocation struct {
	Latitude  float64  `json:"latitude" bson:"latitude" validate:"latitude"`
	Longitude float64  `json:"longitude" bson:"longitude" validate:"longitude"`
	Address   string   `json:"address,omitempty" bson:"address,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
}

func (l EmergencyLocation) Point() GeoPoint {
	return GeoPoint{Lat: l.Latitude, Lng: l.Longitude}
}

type StatusChange struct {
	From      EmergencyStatus `json:"from" bson:"from"`
	To        EmergencyStatus `json:"to" bson:"to"`
	Event     string          `json:"event" bson:"event"`
	ActorID   string          `json:"actor_id" bson:"actor_id"`
	ActorRole string          `json:"actor_role" bson:"actor_role"`
	At        time.Time       `json:"at" bson:"at"`
}

// EmergencyFilter selects records by equality on the indexed fields.
type EmergencyFilter struct {
	Status             []EmergencyStatus
	AssignedHospitalID string
	AssignedDriverID   string
	PatientUserID      string
	CreatedAfter       *time.Time
	Limit              int
}
