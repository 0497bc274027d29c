package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
)

type HospitalRepository struct {
	mu        sync.RWMutex
	hospitals map[string]*models.Hospital
}

// NewHospitalRepository returns a repository holding the given hospitals.
func NewHospitalRepository(seed []*models.Hospital) *HospitalRepository {
	r := &HospitalRepository{hospitals: make(map[string]*models.Hospital, len(seed))}
	for _, h := range seed {
		r.hospitals[h.ID] = clone(h)
	}
	return r
}

func (r *HospitalRepository) GetByID(_ context.Context, id string) (*models.Hospital, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.hospitals[id]
	if !ok {
		return nil, fmt.Errorf("hospital %s: %w", id, interfaces.ErrNotFound)
	}
	return clone(h), nil
}

func (r *HospitalRepository) ListActive(_ context.Context) ([]*models.Hospital, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Hospital
	for _, h := range r.hospitals {
		if h.Active {
			out = append(out, clone(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *HospitalRepository) Upsert(_ context.Context, hospital *models.Hospital) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hospitals[hospital.ID] = clone(hospital)
	return nil
}

func (r *HospitalRepository) AddDeviceToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hospitals[id]
	if !ok {
		return fmt.Errorf("hospital %s: %w", id, interfaces.ErrNotFound)
	}
	for _, t := range h.DeviceTokens {
		if t == token {
			return nil
		}
	}
	updated := clone(h)
	updated.DeviceTokens = append(updated.DeviceTokens, token)
	r.hospitals[id] = updated
	return nil
}

var _ interfaces.HospitalRepository = (*HospitalRepository)(nil)
