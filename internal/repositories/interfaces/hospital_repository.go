package interfaces

import (
	"context"

	"swiftresponse/internal/models"
)

type HospitalRepository interface {
	GetByID(ctx context.Context, id string) (*models.Hospital, error)
	ListActive(ctx context.Context) ([]*models.Hospital, error)
	Upsert(ctx context.Context, hospital *models.Hospital) error
	AddDeviceToken(ctx context.Context, id, token string) error
}
