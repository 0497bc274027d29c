package realtime

import (
	"swiftresponse/internal/models"
)

// View describes what one role sees of the emergency table.
type View struct {
	Name   string
	Table  string
	Filter Filter

	// Actionable marks records that need the viewer's attention. Only new
	// actionable records raise alerts.
	Actionable func(rec *models.EmergencyRecord) bool

	// Keep decides whether a tracked record stays in the view after an
	// update. Nil keeps every record that still matches the filter.
	Keep func(rec *models.EmergencyRecord) bool

	// Closes ends the view, as a trip view does once its record is closed.
	Closes func(rec *models.EmergencyRecord) bool
}

const (
	ViewHospital = "hospital"
	ViewIncoming = "incoming"
	ViewPending  = "pending"
	ViewTrip     = "trip"
)

func statusIs(status models.EmergencyStatus) func(*models.EmergencyRecord) bool {
	return func(rec *models.EmergencyRecord) bool {
		return rec.Status == status
	}
}

// HospitalView tracks records assigned to one hospital. A record can
// arrive already on its way when the driver picked the hospital at pickup,
// so any open record is admitted.
func HospitalView(hospitalID string) View {
	return View{
		Name:   ViewHospital,
		Table:  models.EmergencyTable,
		Filter: Eq(models.FieldAssignedHospitalID, hospitalID),
		Actionable: func(rec *models.EmergencyRecord) bool {
			return !rec.Status.IsTerminal()
		},
	}
}

// IncomingView shows unassigned pending records to hospitals so they can
// accept one.
func IncomingView() View {
	return View{
		Name:       ViewIncoming,
		Table:      models.EmergencyTable,
		Filter:     Eq(models.FieldStatus, string(models.EmergencyStatusPending)),
		Actionable: statusIs(models.EmergencyStatusPending),
		Keep:       statusIs(models.EmergencyStatusPending),
	}
}

// PendingView is the alert feed of an online driver: records waiting for
// an ambulance.
func PendingView() View {
	waiting := func(rec *models.EmergencyRecord) bool {
		return rec.AssignedDriverID == "" &&
			(rec.Status == models.EmergencyStatusPending || rec.Status == models.EmergencyStatusHospitalAssigned)
	}
	return View{
		Name:       ViewPending,
		Table:      models.EmergencyTable,
		Actionable: waiting,
		Keep:       waiting,
	}
}

// TripView follows a single record until it is closed.
func TripView(emergencyID string) View {
	return View{
		Name:   ViewTrip,
		Table:  models.EmergencyTable,
		Filter: Eq(models.FieldRecordID, emergencyID),
		Closes: func(rec *models.EmergencyRecord) bool {
			return rec.Status.IsTerminal()
		},
	}
}
