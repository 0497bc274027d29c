package interfaces

import (
	"context"
	"time"

	"swiftresponse/internal/models"
)

type EmergencyRepository interface {
	Create(ctx context.Context, emergency *models.EmergencyRecord) error
	GetByID(ctx context.Context, id string) (*models.EmergencyRecord, error)
	List(ctx context.Context, filter models.EmergencyFilter) ([]*models.EmergencyRecord, error)

	// CompareAndSwapStatus applies fields in one update only if the stored
	// status still equals expected. fields must include the new status.
	CompareAndSwapStatus(ctx context.Context, id string, expected models.EmergencyStatus, fields map[string]interface{}) (*models.EmergencyRecord, error)

	// UpdateFields writes status-independent fields such as the driver
	// location. Terminal records reject it with ErrRecordClosed.
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.EmergencyRecord, error)

	CountByStatus(ctx context.Context) (map[models.EmergencyStatus]int64, error)
	ListStale(ctx context.Context, status models.EmergencyStatus, olderThan time.Time) ([]*models.EmergencyRecord, error)
}
