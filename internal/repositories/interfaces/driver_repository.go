package interfaces

import (
	"context"

	"swiftresponse/internal/models"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.DriverProfile) error
	GetByID(ctx context.Context, id string) (*models.DriverProfile, error)
	UpdateLocation(ctx context.Context, id string, location models.LocationSample) error
}

// DriverSessionStore keeps the ephemeral per-driver session.
type DriverSessionStore interface {
	Get(ctx context.Context, driverID string) (*models.DriverSession, error)
	Save(ctx context.Context, session *models.DriverSession) error
	Delete(ctx context.Context, driverID string) error
	ListOnline(ctx context.Context) ([]*models.DriverSession, error)
}
