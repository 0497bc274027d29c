package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
)

type EmergencyRepository struct {
	mu      sync.RWMutex
	records map[string]*models.EmergencyRecord
}

func NewEmergencyRepository() *EmergencyRepository {
	return &EmergencyRepository{records: make(map[string]*models.EmergencyRecord)}
}

func (r *EmergencyRepository) Create(_ context.Context, emergency *models.EmergencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[emergency.ID]; ok {
		return fmt.Errorf("failed to create emergency %s: %w", emergency.ID, interfaces.ErrDuplicate)
	}
	now := time.Now()
	if emergency.CreatedAt.IsZero() {
		emergency.CreatedAt = now
	}
	emergency.UpdatedAt = now
	r.records[emergency.ID] = clone(emergency)
	return nil
}

func (r *EmergencyRepository) GetByID(_ context.Context, id string) (*models.EmergencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("emergency %s: %w", id, interfaces.ErrNotFound)
	}
	return clone(rec), nil
}

func (r *EmergencyRepository) List(_ context.Context, filter models.EmergencyFilter) ([]*models.EmergencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.EmergencyRecord
	for _, rec := range r.records {
		if matches(rec, filter) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(rec *models.EmergencyRecord, f models.EmergencyFilter) bool {
	if len(f.Status) > 0 {
		found := false
		for _, s := range f.Status {
			if rec.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.AssignedHospitalID != "" && rec.AssignedHospitalID != f.AssignedHospitalID {
		return false
	}
	if f.AssignedDriverID != "" && rec.AssignedDriverID != f.AssignedDriverID {
		return false
	}
	if f.PatientUserID != "" && rec.Patient.UserID != f.PatientUserID {
		return false
	}
	if f.CreatedAfter != nil && !rec.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	return true
}

func (r *EmergencyRepository) CompareAndSwapStatus(_ context.Context, id string, expected models.EmergencyStatus, fields map[string]interface{}) (*models.EmergencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("emergency %s: %w", id, interfaces.ErrNotFound)
	}
	if rec.Status != expected {
		return nil, fmt.Errorf("emergency %s is %s, expected %s: %w", id, rec.Status, expected, interfaces.ErrStatusConflict)
	}
	return r.apply(rec, fields)
}

func (r *EmergencyRepository) UpdateFields(_ context.Context, id string, fields map[string]interface{}) (*models.EmergencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("emergency %s: %w", id, interfaces.ErrNotFound)
	}
	if rec.Status.IsTerminal() {
		return nil, fmt.Errorf("emergency %s: %w", id, interfaces.ErrRecordClosed)
	}
	return r.apply(rec, fields)
}

// apply must be called with r.mu held.
func (r *EmergencyRepository) apply(rec *models.EmergencyRecord, fields map[string]interface{}) (*models.EmergencyRecord, error) {
	set := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		set[k] = v
	}
	set[models.FieldUpdatedAt] = time.Now()

	updated, err := applyFields(rec, set)
	if err != nil {
		return nil, fmt.Errorf("failed to update emergency: %w", err)
	}
	r.records[rec.ID] = updated
	return clone(updated), nil
}

func (r *EmergencyRepository) CountByStatus(_ context.Context) (map[models.EmergencyStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.EmergencyStatus]int64)
	for _, rec := range r.records {
		if !rec.Status.IsTerminal() {
			counts[rec.Status]++
		}
	}
	return counts, nil
}

func (r *EmergencyRepository) ListStale(ctx context.Context, status models.EmergencyStatus, olderThan time.Time) ([]*models.EmergencyRecord, error) {
	all, err := r.List(ctx, models.EmergencyFilter{Status: []models.EmergencyStatus{status}})
	if err != nil {
		return nil, err
	}
	var stale []*models.EmergencyRecord
	for _, rec := range all {
		if rec.CreatedAt.Before(olderThan) {
			stale = append(stale, rec)
		}
	}
	return stale, nil
}

var _ interfaces.EmergencyRepository = (*EmergencyRepository)(nil)
