package models

import (
	"time"
)

type DriverProfile struct {
	ID              string          `json:"id" bson:"_id"`
	Name            string          `json:"name" bson:"name"`
	Phone           string          `json:"phone" bson:"phone"`
	VehicleNumber   string          `json:"vehicle_number" bson:"vehicle_number"`
	ParamedicName   string          `json:"paramedic_name,omitempty" bson:"paramedic_name,omitempty"`
	CurrentLocation *LocationSample `json:"current_location,omitempty" bson:"current_location,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// DriverSession is the ephemeral per-driver state. It lives in Redis and
// expires with the driver's shift.
type DriverSession struct {
	DriverID           string          `json:"driver_id"`
	Online             bool            `json:"online"`
	TripID             string          `json:"trip_id,omitempty"`
	TripStatus         EmergencyStatus `json:"trip_status,omitempty"`
	OfferedAlertID     string          `json:"offered_alert_id,omitempty"`
	RejectedAlertIDs   []string        `json:"rejected_alert_ids,omitempty"`
	AcceptedAt         *time.Time      `json:"accepted_at,omitempty"`
	ArrivedPickupAt    *time.Time      `json:"arrived_pickup_at,omitempty"`
	StartedTransportAt *time.Time      `json:"started_transport_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	LastLocation       *LocationSample `json:"last_location,omitempty"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (s *DriverSession) HasActiveTrip() bool {
	return s.TripID != "" && !s.TripStatus.IsTerminal()
}

func (s *DriverSession) HasRejected(emergencyID string) bool {
	for _, id := range s.RejectedAlertIDs {
		if id == emergencyID {
			return true
		}
	}
	return false
}

// ClearTrip resets the trip fields once a trip is closed.
func (s *DriverSession) ClearTrip() {
	s.TripID = ""
	s.TripStatus = ""
	s.AcceptedAt = nil
	s.ArrivedPickupAt = nil
	s.StartedTransportAt = nil
	s.CompletedAt = nil
}
