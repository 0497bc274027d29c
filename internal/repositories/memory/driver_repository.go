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

type DriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*models.DriverProfile
}

func NewDriverRepository() *DriverRepository {
	return &DriverRepository{drivers: make(map[string]*models.DriverProfile)}
}

func (r *DriverRepository) Create(_ context.Context, driver *models.DriverProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drivers[driver.ID]; ok {
		return fmt.Errorf("failed to create driver %s: %w", driver.ID, interfaces.ErrDuplicate)
	}
	now := time.Now()
	driver.CreatedAt, driver.UpdatedAt = now, now
	r.drivers[driver.ID] = clone(driver)
	return nil
}

func (r *DriverRepository) GetByID(_ context.Context, id string) (*models.DriverProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drivers[id]
	if !ok {
		return nil, fmt.Errorf("driver %s: %w", id, interfaces.ErrNotFound)
	}
	return clone(d), nil
}

func (r *DriverRepository) UpdateLocation(_ context.Context, id string, location models.LocationSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drivers[id]
	if !ok {
		return fmt.Errorf("driver %s: %w", id, interfaces.ErrNotFound)
	}
	updated := *d
	updated.CurrentLocation = &location
	updated.UpdatedAt = time.Now()
	r.drivers[id] = &updated
	return nil
}

// DriverSessionStore keeps sessions in process with the same TTL semantics
// as the Redis store.
type DriverSessionStore struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	session   models.DriverSession
	expiresAt time.Time
}

func NewDriverSessionStore(ttl time.Duration) *DriverSessionStore {
	return &DriverSessionStore{ttl: ttl, sessions: make(map[string]sessionEntry)}
}

func (s *DriverSessionStore) Get(_ context.Context, driverID string) (*models.DriverSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[driverID]
	if !ok || (s.ttl > 0 && time.Now().After(e.expiresAt)) {
		delete(s.sessions, driverID)
		return nil, fmt.Errorf("driver session %s: %w", driverID, interfaces.ErrNotFound)
	}
	session := e.session
	session.RejectedAlertIDs = append([]string(nil), e.session.RejectedAlertIDs...)
	return &session, nil
}

func (s *DriverSessionStore) Save(_ context.Context, session *models.DriverSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.UpdatedAt = time.Now()
	stored := *session
	stored.RejectedAlertIDs = append([]string(nil), session.RejectedAlertIDs...)
	s.sessions[session.DriverID] = sessionEntry{session: stored, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *DriverSessionStore) Delete(_ context.Context, driverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, driverID)
	return nil
}

func (s *DriverSessionStore) ListOnline(_ context.Context) ([]*models.DriverSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var out []*models.DriverSession
	for _, e := range s.sessions {
		if e.session.Online && (s.ttl <= 0 || now.Before(e.expiresAt)) {
			session := e.session
			out = append(out, &session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}

var (
	_ interfaces.DriverRepository   = (*DriverRepository)(nil)
	_ interfaces.DriverSessionStore = (*DriverSessionStore)(nil)
)
