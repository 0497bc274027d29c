package interfaces

import (
	"context"

	"swiftresponse/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.UserProfile) error
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	GetByPhone(ctx context.Context, phone string) (*models.UserProfile, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

type MedicalProfileRepository interface {
	Upsert(ctx context.Context, profile *models.MedicalProfile) error
	GetByUserID(ctx context.Context, userID string) (*models.MedicalProfile, error)
	GetByIdentity(ctx context.Context, identityValue string) (*models.MedicalProfile, error)
}
