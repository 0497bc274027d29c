package services

import (
	"context"
	"time"

	"swiftresponse/internal/models"
	"swiftresponse/internal/realtime"
	"swiftresponse/pkg/logger"
)

// AlertHandler is called for each new actionable record in a driver's
// pending view.
type AlertHandler func(ctx context.Context, record *models.EmergencyRecord)

type RealtimeService interface {
	OpenHospital(ctx context.Context, hospitalID string) error
	OpenPending(ctx context.Context, driverID string, onAlert AlertHandler) error
	ClosePending(driverID string)
	// Pending returns the records the driver's pending view holds, newest
	// first.
	Pending(driverID string) []*models.EmergencyRecord
	OpenTrip(ctx context.Context, role models.UserType, userID, emergencyID string) error
	CloseTrip(emergencyID string)
	CloseOwner(role models.UserType, userID string)
	SessionCount() int
}

type RealtimeOptions struct {
	RecencyWindow     time.Duration
	InitialLoadWindow time.Duration
	InitialLoadLimit  int
}

type realtimeService struct {
	base     context.Context
	feed     realtime.Feed
	dispatch DispatchService
	notifier ClientNotifier
	sessions *realtime.Sessions
	opts     RealtimeOptions
	logger   *logger.Logger
}

// NewRealtimeService binds sessions to base rather than to the request
// that opened them, so they live until closed explicitly.
func NewRealtimeService(
	base context.Context,
	feed realtime.Feed,
	dispatch DispatchService,
	notifier ClientNotifier,
	opts RealtimeOptions,
	logger *logger.Logger,
) RealtimeService {
	if opts.RecencyWindow <= 0 {
		opts.RecencyWindow = 5 * time.Minute
	}
	if opts.InitialLoadWindow <= 0 {
		opts.InitialLoadWindow = time.Hour
	}
	if opts.InitialLoadLimit <= 0 {
		opts.InitialLoadLimit = 3
	}
	return &realtimeService{
		base:     base,
		feed:     feed,
		dispatch: dispatch,
		notifier: notifier,
		sessions: realtime.NewSessions(),
		opts:     opts,
		logger:   logger.WithField("service", "realtime"),
	}
}

func ownerKey(role models.UserType, userID string) string {
	return string(role) + ":" + userID
}

// OpenHospital opens the assigned-records view, seeded with the most recent
// open records assigned to the hospital, and the incoming view of
// unassigned pending records.
func (s *realtimeService) OpenHospital(ctx context.Context, hospitalID string) error {
	since := time.Now().Add(-s.opts.InitialLoadWindow)
	assigned, err := s.dispatch.List(ctx, models.EmergencyFilter{
		Status:             models.ActiveStatuses(),
		AssignedHospitalID: hospitalID,
		CreatedAfter:       &since,
		Limit:              s.opts.InitialLoadLimit,
	})
	if err != nil {
		return err
	}

	incomingSince := time.Now().Add(-s.opts.RecencyWindow)
	incoming, err := s.dispatch.List(ctx, models.EmergencyFilter{
		Status:       []models.EmergencyStatus{models.EmergencyStatusPending},
		CreatedAfter: &incomingSince,
	})
	if err != nil {
		return err
	}

	owner := ownerKey(models.UserTypeHospital, hospitalID)
	sink := userSink(s.notifier, hospitalID)
	s.open(owner, realtime.HospitalView(hospitalID), sink, assigned)
	s.open(owner, realtime.IncomingView(), sink, incoming)
	return nil
}

func (s *realtimeService) OpenPending(ctx context.Context, driverID string, onAlert AlertHandler) error {
	since := time.Now().Add(-s.opts.RecencyWindow)
	records, err := s.dispatch.List(ctx, models.EmergencyFilter{
		Status:       []models.EmergencyStatus{models.EmergencyStatusPending, models.EmergencyStatusHospitalAssigned},
		CreatedAfter: &since,
	})
	if err != nil {
		return err
	}
	seed := make([]*models.EmergencyRecord, 0, len(records))
	for _, rec := range records {
		if rec.AssignedDriverID == "" {
			seed = append(seed, rec)
		}
	}

	base := userSink(s.notifier, driverID)
	sink := realtime.SinkFunc(func(msg realtime.Message) error {
		err := base.Send(msg)
		if onAlert != nil && msg.Alert && msg.Record != nil {
			onAlert(s.base, msg.Record)
		}
		return err
	})

	session := s.open(ownerKey(models.UserTypeDriver, driverID), realtime.PendingView(), sink, seed)
	if onAlert != nil {
		for _, rec := range session.Reflector().Records() {
			onAlert(s.base, rec)
		}
	}
	return nil
}

func (s *realtimeService) ClosePending(driverID string) {
	s.sessions.Close(ownerKey(models.UserTypeDriver, driverID), realtime.ViewPending)
}

func (s *realtimeService) Pending(driverID string) []*models.EmergencyRecord {
	session, ok := s.sessions.Get(ownerKey(models.UserTypeDriver, driverID), realtime.ViewPending)
	if !ok {
		return nil
	}
	return session.Reflector().Records()
}

func (s *realtimeService) OpenTrip(ctx context.Context, role models.UserType, userID, emergencyID string) error {
	record, err := s.dispatch.Get(ctx, emergencyID)
	if err != nil {
		return err
	}
	s.open(ownerKey(role, userID), realtime.TripView(emergencyID), userSink(s.notifier, userID), []*models.EmergencyRecord{record})
	return nil
}

// CloseTrip tears down trip views that will never see the closing change
// because they run without live updates.
func (s *realtimeService) CloseTrip(emergencyID string) {
	s.sessions.CloseDegraded(realtime.ViewTrip, emergencyID)
}

func (s *realtimeService) CloseOwner(role models.UserType, userID string) {
	s.sessions.CloseOwner(ownerKey(role, userID))
}

func (s *realtimeService) SessionCount() int {
	return s.sessions.Len()
}

func (s *realtimeService) open(owner string, view realtime.View, sink realtime.Sink, seed []*models.EmergencyRecord) *realtime.Session {
	session := realtime.NewSession(s.feed, realtime.NewReflector(view, s.opts.RecencyWindow), sink, s.logger)
	s.sessions.Put(owner, view.Name, session)
	session.Start(s.base, seed)

	s.logger.WithFields(map[string]interface{}{
		"owner":    owner,
		"view":     view.Name,
		"seeded":   len(seed),
		"degraded": session.Degraded(),
	}).Debug("Realtime view opened")
	return session
}
