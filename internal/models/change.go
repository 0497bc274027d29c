package models

import (
	"time"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// ChangeEvent is one row-level change on a realtime table.
//
// Fields holds only the columns written by the change. Keys always carries
// the routing columns (id, status, assigned ids) so that subscribers can
// filter partial updates. Record is the full row when the writer had it.
type ChangeEvent struct {
	Table       string                 `json:"table"`
	Type        ChangeType             `json:"type"`
	RecordID    string                 `json:"record_id"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
	Keys        map[string]string      `json:"keys"`
	Record      *EmergencyRecord       `json:"record,omitempty"`
	CommittedAt time.Time              `json:"committed_at"`
}

// NewEmergencyChange builds an event for a write to rec.
func NewEmergencyChange(changeType ChangeType, rec *EmergencyRecord, fields map[string]interface{}) ChangeEvent {
	return ChangeEvent{
		Table:       EmergencyTable,
		Type:        changeType,
		RecordID:    rec.ID,
		Fields:      fields,
		Keys:        RoutingKeys(rec),
		Record:      rec,
		CommittedAt: time.Now(),
	}
}

func RoutingKeys(rec *EmergencyRecord) map[string]string {
	return map[string]string{
		FieldRecordID:           rec.ID,
		FieldStatus:             string(rec.Status),
		FieldAssignedHospitalID: rec.AssignedHospitalID,
		FieldAssignedDriverID:   rec.AssignedDriverID,
	}
}
