package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"swiftresponse/internal/countdown"
	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

// DriverSessionService runs the driver side of a dispatch: presence, the
// incoming alert countdown and trip progress.
type DriverSessionService interface {
	GoOnline(ctx context.Context, driverID string) (*models.DriverSession, error)
	GoOffline(ctx context.Context, driverID string) error
	Session(ctx context.Context, driverID string) (*models.DriverSession, error)

	// OfferAlert shows the record to the driver with a countdown. It
	// returns false if the driver cannot take it right now.
	OfferAlert(ctx context.Context, driverID string, record *models.EmergencyRecord) bool
	AcceptAlert(ctx context.Context, driverID, emergencyID string) (*models.EmergencyRecord, error)
	RejectAlert(ctx context.Context, driverID, emergencyID string) error

	AdvanceTrip(ctx context.Context, driverID string, event dispatch.Event, hospitalID string) (*models.EmergencyRecord, error)
	HandleTransition(ctx context.Context, t *Transition)
}

type AlertOffer struct {
	Record  *models.EmergencyRecord `json:"record"`
	Seconds int                     `json:"seconds"`
}

type alertTick struct {
	EmergencyID string `json:"emergency_id"`
	Remaining   int    `json:"remaining"`
}

type alertExpired struct {
	EmergencyID string `json:"emergency_id"`
	Reason      string `json:"reason"`
}

type driverSessionService struct {
	base     context.Context
	sessions interfaces.DriverSessionStore
	dispatch DispatchService
	realtime RealtimeService
	notifier ClientNotifier
	gate     *countdown.Gate
	seconds  int
	logger   *logger.Logger

	// mu serialises read-modify-write cycles on sessions.
	mu sync.Mutex
}

func NewDriverSessionService(
	base context.Context,
	sessions interfaces.DriverSessionStore,
	dispatch DispatchService,
	realtime RealtimeService,
	notifier ClientNotifier,
	gate *countdown.Gate,
	seconds int,
	logger *logger.Logger,
) DriverSessionService {
	if seconds <= 0 {
		seconds = utils.DriverAlertCountdownSeconds
	}
	return &driverSessionService{
		base:     base,
		sessions: sessions,
		dispatch: dispatch,
		realtime: realtime,
		notifier: notifier,
		gate:     gate,
		seconds:  seconds,
		logger:   logger.WithField("service", "driver_session"),
	}
}

func alertKey(driverID string) string {
	return "driver:" + driverID
}

// update loads the session, applies fn and saves it when fn reports a
// change. A missing session is created only when create is set.
func (s *driverSessionService) update(ctx context.Context, driverID string, create bool, fn func(*models.DriverSession) bool) (*models.DriverSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(ctx, driverID)
	if errors.Is(err, interfaces.ErrNotFound) && create {
		session, err = &models.DriverSession{DriverID: driverID}, nil
	}
	if err != nil {
		return nil, err
	}
	if !fn(session) {
		return session, nil
	}
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *driverSessionService) GoOnline(ctx context.Context, driverID string) (*models.DriverSession, error) {
	session, err := s.update(ctx, driverID, true, func(session *models.DriverSession) bool {
		session.Online = true
		return true
	})
	if err != nil {
		return nil, err
	}

	if session.HasActiveTrip() {
		if err := s.realtime.OpenTrip(ctx, models.UserTypeDriver, driverID, session.TripID); err != nil {
			s.logger.WithError(err).WithField("driver_id", driverID).Warn("Failed to reopen trip view")
		}
	}
	if err := s.realtime.OpenPending(ctx, driverID, func(ctx context.Context, record *models.EmergencyRecord) {
		s.OfferAlert(ctx, driverID, record)
	}); err != nil {
		return nil, fmt.Errorf("failed to open pending alerts: %w", err)
	}

	s.logger.WithField("driver_id", driverID).Info("Driver online")
	return session, nil
}

func (s *driverSessionService) GoOffline(ctx context.Context, driverID string) error {
	s.realtime.ClosePending(driverID)
	s.gate.Cancel(alertKey(driverID))

	_, err := s.update(ctx, driverID, false, func(session *models.DriverSession) bool {
		session.Online = false
		session.OfferedAlertID = ""
		return true
	})
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return err
	}
	s.logger.WithField("driver_id", driverID).Info("Driver offline")
	return nil
}

func (s *driverSessionService) Session(ctx context.Context, driverID string) (*models.DriverSession, error) {
	return s.sessions.Get(ctx, driverID)
}

func (s *driverSessionService) OfferAlert(ctx context.Context, driverID string, record *models.EmergencyRecord) bool {
	offered := false
	_, err := s.update(ctx, driverID, false, func(session *models.DriverSession) bool {
		if !session.Online || session.HasActiveTrip() || session.OfferedAlertID != "" ||
			session.HasRejected(record.ID) || record.AssignedDriverID != "" {
			return false
		}
		session.OfferedAlertID = record.ID
		offered = true
		return true
	})
	if err != nil || !offered {
		return false
	}

	emergencyID := record.ID
	s.notifier.SendToUser(driverID, MessageAlertOffered, AlertOffer{Record: record, Seconds: s.seconds})
	s.gate.Start(alertKey(driverID), s.seconds,
		func(remaining int) {
			s.notifier.SendToUser(driverID, MessageAlertCountdown, alertTick{EmergencyID: emergencyID, Remaining: remaining})
		},
		func() {
			s.withdraw(s.base, driverID, emergencyID, "timeout")
		},
	)

	s.logger.WithEmergencyID(emergencyID).WithField("driver_id", driverID).Info("Alert offered to driver")
	return true
}

// withdraw clears the driver's offer for emergencyID and offers the next
// waiting record. A withdrawn record is never offered to that driver again.
func (s *driverSessionService) withdraw(ctx context.Context, driverID, emergencyID, reason string) {
	cleared := false
	_, err := s.update(ctx, driverID, false, func(session *models.DriverSession) bool {
		if session.OfferedAlertID != emergencyID {
			return false
		}
		session.OfferedAlertID = ""
		if !session.HasRejected(emergencyID) {
			session.RejectedAlertIDs = append(session.RejectedAlertIDs, emergencyID)
		}
		cleared = true
		return true
	})
	if err != nil {
		s.logger.WithError(err).WithField("driver_id", driverID).Warn("Failed to withdraw alert")
		return
	}
	if !cleared {
		return
	}

	s.notifier.SendToUser(driverID, MessageAlertExpired, alertExpired{EmergencyID: emergencyID, Reason: reason})
	s.logger.WithEmergencyID(emergencyID).WithFields(map[string]interface{}{
		"driver_id": driverID,
		"reason":    reason,
	}).Info("Alert withdrawn")
	s.offerNext(ctx, driverID)
}

func (s *driverSessionService) offerNext(ctx context.Context, driverID string) {
	pending := s.realtime.Pending(driverID)
	for i := len(pending) - 1; i >= 0; i-- {
		if s.OfferAlert(ctx, driverID, pending[i]) {
			return
		}
	}
}

func (s *driverSessionService) AcceptAlert(ctx context.Context, driverID, emergencyID string) (*models.EmergencyRecord, error) {
	session, err := s.sessions.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !session.Online {
		return nil, ErrDriverOffline
	}
	if session.HasActiveTrip() {
		return nil, ErrDriverBusy
	}
	if session.OfferedAlertID != emergencyID {
		return nil, ErrAlertNotOffered
	}
	// The offer expired after the session was read; its timeout withdraws it.
	if !s.gate.Cancel(alertKey(driverID)) {
		return nil, ErrAlertNotOffered
	}

	record, err := s.dispatch.Transition(ctx, &TransitionRequest{
		EmergencyID: emergencyID,
		Event:       dispatch.EventAccept,
		ActorID:     driverID,
		Role:        models.UserTypeDriver,
	})
	if err != nil {
		s.withdraw(ctx, driverID, emergencyID, "unavailable")
		if errors.Is(err, ErrDriverAlreadyAssigned) || errors.Is(err, interfaces.ErrStatusConflict) ||
			errors.Is(err, dispatch.ErrInvalidTransition) || errors.Is(err, interfaces.ErrRecordClosed) {
			return nil, fmt.Errorf("%w: %v", ErrAlertUnavailable, err)
		}
		return nil, err
	}

	if err := s.realtime.OpenTrip(ctx, models.UserTypeDriver, driverID, record.ID); err != nil {
		s.logger.WithEmergencyID(record.ID).WithError(err).Warn("Failed to open driver trip view")
	}
	return record, nil
}

func (s *driverSessionService) RejectAlert(ctx context.Context, driverID, emergencyID string) error {
	session, err := s.sessions.Get(ctx, driverID)
	if err != nil {
		return err
	}
	if session.OfferedAlertID != emergencyID {
		return ErrAlertNotOffered
	}
	s.gate.Cancel(alertKey(driverID))
	s.withdraw(ctx, driverID, emergencyID, "rejected")
	return nil
}

func (s *driverSessionService) AdvanceTrip(ctx context.Context, driverID string, event dispatch.Event, hospitalID string) (*models.EmergencyRecord, error) {
	session, err := s.sessions.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !session.HasActiveTrip() {
		return nil, ErrNoActiveTrip
	}
	return s.dispatch.Transition(ctx, &TransitionRequest{
		EmergencyID: session.TripID,
		Event:       event,
		HospitalID:  hospitalID,
		ActorID:     driverID,
		Role:        models.UserTypeDriver,
	})
}

// HandleTransition mirrors the record's progress into the assigned
// driver's session and withdraws offers other drivers hold for a record
// that has just been taken.
func (s *driverSessionService) HandleTransition(ctx context.Context, t *Transition) {
	record := t.Record
	if record.AssignedDriverID != "" {
		s.trackTrip(ctx, record.AssignedDriverID, record, t.To)
	}
	if t.To == models.EmergencyStatusDispatched {
		s.withdrawOthers(ctx, record)
	}
	if t.To.IsTerminal() {
		s.realtime.CloseTrip(record.ID)
	}
}

func (s *driverSessionService) trackTrip(ctx context.Context, driverID string, record *models.EmergencyRecord, to models.EmergencyStatus) {
	closed := false
	_, err := s.update(ctx, driverID, false, func(session *models.DriverSession) bool {
		if session.TripID != "" && session.TripID != record.ID {
			return false
		}
		now := time.Now()
		session.TripID = record.ID
		session.TripStatus = to
		switch to {
		case models.EmergencyStatusDispatched:
			session.AcceptedAt = &now
			if session.OfferedAlertID == record.ID {
				session.OfferedAlertID = ""
			}
		case models.EmergencyStatusArrivedPickup:
			session.ArrivedPickupAt = &now
		case models.EmergencyStatusTransporting:
			session.StartedTransportAt = &now
		case models.EmergencyStatusArrived:
			session.CompletedAt = &now
		}
		if to.IsTerminal() {
			session.ClearTrip()
			closed = true
		}
		return true
	})
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.WithEmergencyID(record.ID).WithError(err).Warn("Failed to update driver trip")
		}
		return
	}
	if closed {
		s.offerNext(ctx, driverID)
	}
}

func (s *driverSessionService) withdrawOthers(ctx context.Context, record *models.EmergencyRecord) {
	online, err := s.sessions.ListOnline(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to list online drivers")
		return
	}
	for _, session := range online {
		if session.DriverID == record.AssignedDriverID || session.OfferedAlertID != record.ID {
			continue
		}
		s.gate.Cancel(alertKey(session.DriverID))
		s.withdraw(ctx, session.DriverID, record.ID, "taken")
	}
}
