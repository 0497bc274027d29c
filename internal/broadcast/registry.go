package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"swiftresponse/internal/models"
	"swiftresponse/pkg/logger"
)

var ErrNotBroadcasting = errors.New("no broadcaster running")

func DriverKey(driverID string) string {
	return string(KindDriver) + ":" + driverID
}

func PatientKey(userID string) string {
	return string(KindPatient) + ":" + userID
}

type entry struct {
	broadcaster *Broadcaster
	emergencyID string
	cancel      context.CancelFunc
}

// Registry owns the running broadcasters, one per key.
type Registry struct {
	base      context.Context
	windows   map[Kind]time.Duration
	validator Validator
	logger    *logger.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(base context.Context, windows map[Kind]time.Duration, validator Validator, log *logger.Logger) *Registry {
	return &Registry{
		base:      base,
		windows:   windows,
		validator: validator,
		logger:    log,
		entries:   make(map[string]*entry),
	}
}

// Start launches a broadcaster for key unless one is already running, in
// which case the running one is returned and re-bound to emergencyID.
func (r *Registry) Start(key string, kind Kind, emergencyID string, sink Sink) *Broadcaster {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		if emergencyID != "" {
			e.emergencyID = emergencyID
		}
		return e.broadcaster
	}

	window := r.windows[kind]
	if window <= 0 {
		window = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(r.base)
	b := NewBroadcaster(key, kind, window, sink, r.validator, r.logger)
	r.entries[key] = &entry{broadcaster: b, emergencyID: emergencyID, cancel: cancel}
	go b.Run(ctx)

	r.logger.WithFields(map[string]interface{}{
		"broadcaster":  key,
		"emergency_id": emergencyID,
		"window":       window.String(),
	}).Info("Location broadcaster started")
	return b
}

func (r *Registry) Get(key string) (*Broadcaster, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.broadcaster, true
}

// EmergencyID returns the emergency the broadcaster is currently bound to.
func (r *Registry) EmergencyID(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return "", false
	}
	return e.emergencyID, true
}

// Bind ties a running broadcaster to emergencyID. It reports false when
// nothing runs under key.
func (r *Registry) Bind(key, emergencyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return false
	}
	e.emergencyID = emergencyID
	return true
}

func (r *Registry) Offer(key string, sample models.LocationSample) error {
	b, ok := r.Get(key)
	if !ok {
		return ErrNotBroadcasting
	}
	return b.Offer(sample)
}

func (r *Registry) Stop(key string) bool {
	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.cancel()
	r.logger.WithField("broadcaster", key).Info("Location broadcaster stopped")
	return true
}

// StopEmergency stops every broadcaster bound to the emergency.
func (r *Registry) StopEmergency(emergencyID string) int {
	r.mu.Lock()
	var keys []string
	for key, e := range r.entries {
		if e.emergencyID == emergencyID {
			keys = append(keys, key)
		}
	}
	r.mu.Unlock()

	for _, key := range keys {
		r.Stop(key)
	}
	return len(keys)
}

func (r *Registry) StopAll() {
	r.mu.Lock()
	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	r.mu.Unlock()

	for _, key := range keys {
		r.Stop(key)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
