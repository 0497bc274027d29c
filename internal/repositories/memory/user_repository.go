package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.UserProfile
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*models.UserProfile)}
}

func (r *UserRepository) Create(_ context.Context, user *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return fmt.Errorf("failed to create user %s: %w", user.ID, interfaces.ErrDuplicate)
	}
	for _, u := range r.users {
		if u.Phone == user.Phone {
			return fmt.Errorf("failed to create user with phone: %w", interfaces.ErrDuplicate)
		}
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = clone(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, interfaces.ErrNotFound)
	}
	return clone(u), nil
}

func (r *UserRepository) GetByPhone(_ context.Context, phone string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Phone == phone {
			return clone(u), nil
		}
	}
	return nil, fmt.Errorf("user with phone: %w", interfaces.ErrNotFound)
}

func (r *UserRepository) Update(_ context.Context, id string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, interfaces.ErrNotFound)
	}
	set := map[string]interface{}{"updated_at": time.Now()}
	for k, v := range updates {
		set[k] = v
	}
	updated, err := applyFields(u, set)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	r.users[id] = updated
	return nil
}

type MedicalProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*models.MedicalProfile
}

func NewMedicalProfileRepository() *MedicalProfileRepository {
	return &MedicalProfileRepository{profiles: make(map[string]*models.MedicalProfile)}
}

func (r *MedicalProfileRepository) Upsert(_ context.Context, profile *models.MedicalProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.ID == "" {
		profile.ID = profile.UserID
	}
	profile.UpdatedAt = time.Now()
	r.profiles[profile.UserID] = clone(profile)
	return nil
}

func (r *MedicalProfileRepository) GetByUserID(_ context.Context, userID string) (*models.MedicalProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("medical profile for %s: %w", userID, interfaces.ErrNotFound)
	}
	return clone(p), nil
}

func (r *MedicalProfileRepository) GetByIdentity(_ context.Context, identityValue string) (*models.MedicalProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if identityValue != "" && p.IdentityValue == identityValue {
			return clone(p), nil
		}
	}
	return nil, fmt.Errorf("medical profile for identity: %w", interfaces.ErrNotFound)
}

var (
	_ interfaces.UserRepository           = (*UserRepository)(nil)
	_ interfaces.MedicalProfileRepository = (*MedicalProfileRepository)(nil)
)
