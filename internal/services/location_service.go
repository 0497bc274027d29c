package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swiftresponse/internal/broadcast"
	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/cache"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/maps"
)

type LocationService interface {
	HandleTransition(ctx context.Context, t *Transition)

	// UpdateDriverLocation feeds the driver's broadcaster while a trip is
	// active. Otherwise the sample only refreshes the session position.
	UpdateDriverLocation(ctx context.Context, driverID string, sample models.LocationSample) error
	// UpdatePatientLocation starts the patient broadcaster on first use.
	UpdatePatientLocation(ctx context.Context, userID string, sample models.LocationSample) error
	StopPatient(userID string)
	Shutdown()
}

type locationService struct {
	registry       *broadcast.Registry
	validator      broadcast.Validator
	dispatch       DispatchService
	driverRepo     interfaces.DriverRepository
	sessions       interfaces.DriverSessionStore
	userRepo       interfaces.UserRepository
	geocoder       maps.Geocoder
	geocache       *cache.LocalCache
	geocodeTimeout time.Duration
	logger         *logger.Logger
}

func NewLocationService(
	registry *broadcast.Registry,
	validator broadcast.Validator,
	dispatch DispatchService,
	driverRepo interfaces.DriverRepository,
	sessions interfaces.DriverSessionStore,
	userRepo interfaces.UserRepository,
	geocoder maps.Geocoder,
	geocache *cache.LocalCache,
	geocodeTimeout time.Duration,
	logger *logger.Logger,
) LocationService {
	if geocodeTimeout <= 0 {
		geocodeTimeout = 3 * time.Second
	}
	return &locationService{
		registry:       registry,
		validator:      validator,
		dispatch:       dispatch,
		driverRepo:     driverRepo,
		sessions:       sessions,
		userRepo:       userRepo,
		geocoder:       geocoder,
		geocache:       geocache,
		geocodeTimeout: geocodeTimeout,
		logger:         logger.WithField("service", "location"),
	}
}

// HandleTransition starts the driver broadcaster when a trip begins and
// stops every broadcaster of a closed record. A running patient
// broadcaster is bound to the patient's open record so that it ends with
// it; the next sample starts a fresh one.
func (s *locationService) HandleTransition(_ context.Context, t *Transition) {
	record := t.Record
	if record.Patient.UserID != "" && !t.To.IsTerminal() {
		s.registry.Bind(broadcast.PatientKey(record.Patient.UserID), record.ID)
	}

	switch {
	case t.To == models.EmergencyStatusDispatched || t.To == models.EmergencyStatusEnRoute:
		if record.AssignedDriverID == "" {
			return
		}
		key := broadcast.DriverKey(record.AssignedDriverID)
		s.registry.Start(key, broadcast.KindDriver, record.ID, s.driverSink(record.AssignedDriverID, key))

	case t.To.IsTerminal():
		if n := s.registry.StopEmergency(record.ID); n > 0 {
			s.logger.WithEmergencyID(record.ID).WithField("stopped", n).Info("Stopped broadcasters for closed emergency")
		}
	}
}

func (s *locationService) driverSink(driverID, key string) broadcast.Sink {
	return broadcast.SinkFunc(func(ctx context.Context, sample models.LocationSample) error {
		if err := s.driverRepo.UpdateLocation(ctx, driverID, sample); err != nil {
			return fmt.Errorf("failed to store driver location: %w", err)
		}
		s.rememberDriverLocation(ctx, driverID, sample)

		emergencyID, ok := s.registry.EmergencyID(key)
		if !ok || emergencyID == "" {
			return nil
		}
		_, err := s.dispatch.UpdateFields(ctx, emergencyID, map[string]interface{}{
			models.FieldDriverLocation: sample,
		})
		if errors.Is(err, interfaces.ErrRecordClosed) {
			s.registry.Stop(key)
			return nil
		}
		return err
	})
}

func (s *locationService) rememberDriverLocation(ctx context.Context, driverID string, sample models.LocationSample) {
	session, err := s.sessions.Get(ctx, driverID)
	if err != nil {
		return
	}
	session.LastLocation = &sample
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.WithError(err).WithField("driver_id", driverID).Debug("Failed to save driver session location")
	}
}

func (s *locationService) UpdateDriverLocation(ctx context.Context, driverID string, sample models.LocationSample) error {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}
	err := s.registry.Offer(broadcast.DriverKey(driverID), sample)
	if !errors.Is(err, broadcast.ErrNotBroadcasting) {
		return err
	}

	if err := s.validator.Check(sample); err != nil {
		return err
	}
	s.rememberDriverLocation(ctx, driverID, sample)
	return nil
}

func (s *locationService) UpdatePatientLocation(_ context.Context, userID string, sample models.LocationSample) error {
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}
	key := broadcast.PatientKey(userID)
	b := s.registry.Start(key, broadcast.KindPatient, "", s.patientSink(userID))
	return b.Offer(sample)
}

func (s *locationService) patientSink(userID string) broadcast.Sink {
	return broadcast.SinkFunc(func(ctx context.Context, sample models.LocationSample) error {
		now := time.Now()
		updates := map[string]interface{}{
			"current_latitude":     sample.Latitude,
			"current_longitude":    sample.Longitude,
			"last_location_update": now,
		}
		if address := s.reverseGeocode(ctx, sample.Latitude, sample.Longitude); address != "" {
			updates["current_address"] = address
		}
		return s.userRepo.Update(ctx, userID, updates)
	})
}

// reverseGeocode returns "" when no geocoder is configured or the lookup
// fails. Results are cached per ~100 m cell.
func (s *locationService) reverseGeocode(ctx context.Context, lat, lng float64) string {
	if s.geocoder == nil {
		return ""
	}
	key := fmt.Sprintf("%s%.3f,%.3f", utils.CacheGeocodePrefix, lat, lng)

	var address string
	if s.geocache != nil {
		if err := s.geocache.Get(ctx, key, &address); err == nil {
			return address
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.geocodeTimeout)
	defer cancel()
	resp, err := s.geocoder.ReverseGeocode(ctx, lat, lng)
	if err == nil {
		address, err = resp.FirstAddress()
	}
	if err != nil {
		s.logger.WithError(err).Debug("Reverse geocode failed")
		return ""
	}

	if s.geocache != nil {
		_ = s.geocache.Set(ctx, key, address, utils.GeocodeCacheTTL)
	}
	return address
}

func (s *locationService) StopPatient(userID string) {
	s.registry.Stop(broadcast.PatientKey(userID))
}

func (s *locationService) Shutdown() {
	s.registry.StopAll()
}
