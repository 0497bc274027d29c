package services

import (
	"context"
	"errors"

	"swiftresponse/internal/countdown"
	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

type SOSService interface {
	// Arm starts the cancellable countdown. The emergency is created when
	// it completes.
	Arm(ctx context.Context, request *SOSRequest) (*SOSArmed, error)
	Cancel(ctx context.Context, userID string) bool
	// Trigger creates the emergency immediately.
	Trigger(ctx context.Context, request *SOSRequest) (*models.EmergencyRecord, error)
}

type SOSRequest struct {
	UserID        string                    `json:"-"`
	EmergencyType string                    `json:"emergency_type" validate:"required,emergency_type"`
	Location      *models.EmergencyLocation `json:"location,omitempty"`
}

type SOSArmed struct {
	Seconds  int                      `json:"seconds"`
	Location models.EmergencyLocation `json:"location"`
}

type sosTick struct {
	Remaining int `json:"remaining"`
}

type sosFailure struct {
	Error string `json:"error"`
}

type sosService struct {
	base          context.Context
	dispatch      DispatchService
	userRepo      interfaces.UserRepository
	medicalRepo   interfaces.MedicalProfileRepository
	notifications NotificationService
	realtime      RealtimeService
	notifier      ClientNotifier
	gate          *countdown.Gate
	seconds       int
	logger        *logger.Logger
}

func NewSOSService(
	base context.Context,
	dispatch DispatchService,
	userRepo interfaces.UserRepository,
	medicalRepo interfaces.MedicalProfileRepository,
	notifications NotificationService,
	realtime RealtimeService,
	notifier ClientNotifier,
	gate *countdown.Gate,
	seconds int,
	logger *logger.Logger,
) SOSService {
	if seconds <= 0 {
		seconds = utils.SOSCountdownSeconds
	}
	return &sosService{
		base:          base,
		dispatch:      dispatch,
		userRepo:      userRepo,
		medicalRepo:   medicalRepo,
		notifications: notifications,
		realtime:      realtime,
		notifier:      notifier,
		gate:          gate,
		seconds:       seconds,
		logger:        logger.WithField("service", "sos"),
	}
}

func sosKey(userID string) string {
	return "sos:" + userID
}

func (s *sosService) Arm(ctx context.Context, request *SOSRequest) (*SOSArmed, error) {
	user, err := s.userRepo.GetByID(ctx, request.UserID)
	if err != nil {
		return nil, err
	}
	location, err := resolveSOSLocation(user, request.Location)
	if err != nil {
		return nil, err
	}

	// The location is fixed when the countdown starts.
	armed := *request
	armed.Location = &location
	userID := request.UserID

	s.gate.Start(sosKey(userID), s.seconds,
		func(remaining int) {
			s.notifier.SendToUser(userID, MessageSOSCountdown, sosTick{Remaining: remaining})
		},
		func() {
			if _, err := s.Trigger(s.base, &armed); err != nil {
				s.logger.WithError(err).WithField("user_id", userID).Error("SOS trigger after countdown failed")
				s.notifier.SendToUser(userID, MessageSOSFailed, sosFailure{Error: err.Error()})
			}
		},
	)

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"seconds": s.seconds,
	}).Info("SOS armed")
	return &SOSArmed{Seconds: s.seconds, Location: location}, nil
}

func (s *sosService) Cancel(_ context.Context, userID string) bool {
	if !s.gate.Cancel(sosKey(userID)) {
		return false
	}
	s.notifier.SendToUser(userID, MessageSOSCancelled, nil)
	s.logger.WithField("user_id", userID).Info("SOS cancelled")
	return true
}

func (s *sosService) Trigger(ctx context.Context, request *SOSRequest) (*models.EmergencyRecord, error) {
	s.gate.Cancel(sosKey(request.UserID))

	user, err := s.userRepo.GetByID(ctx, request.UserID)
	if err != nil {
		return nil, err
	}
	location, err := resolveSOSLocation(user, request.Location)
	if err != nil {
		return nil, err
	}

	patient := models.PatientSnapshot{
		UserID: user.ID,
		Name:   user.Name,
		Phone:  user.Phone,
	}
	if profile, err := s.medicalRepo.GetByUserID(ctx, user.ID); err == nil {
		patient.Medical = profile.Summary()
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to load medical profile for SOS")
	}

	record, err := s.dispatch.Create(ctx, &CreateEmergencyRequest{
		EmergencyType: request.EmergencyType,
		Patient:       patient,
		Location:      location,
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifications.NotifyFamily(ctx, user, record); err != nil {
		s.logger.WithEmergencyID(record.ID).WithError(err).Warn("Family SMS failed")
	}
	if err := s.realtime.OpenTrip(ctx, models.UserTypePatient, user.ID, record.ID); err != nil {
		s.logger.WithEmergencyID(record.ID).WithError(err).Warn("Failed to open patient trip view")
	}
	s.notifier.SendToUser(user.ID, MessageSOSTriggered, record)
	return record, nil
}

// resolveSOSLocation prefers the request, then the live broadcast position,
// then the active saved location.
func resolveSOSLocation(user *models.UserProfile, requested *models.EmergencyLocation) (models.EmergencyLocation, error) {
	if requested != nil && usable(requested.Latitude, requested.Longitude) {
		return *requested, nil
	}
	if point, ok := user.LiveLocation(); ok && usable(point.Lat, point.Lng) {
		return models.EmergencyLocation{
			Latitude:  point.Lat,
			Longitude: point.Lng,
			Address:   user.CurrentAddress,
		}, nil
	}
	if saved := user.ActiveLocation(); saved != nil && usable(saved.Coordinates.Lat, saved.Coordinates.Lng) {
		return models.EmergencyLocation{
			Latitude:  saved.Coordinates.Lat,
			Longitude: saved.Coordinates.Lng,
			Address:   saved.Address,
			Accuracy:  saved.Accuracy,
		}, nil
	}
	return models.EmergencyLocation{}, ErrLocationRequired
}

func usable(lat, lng float64) bool {
	return utils.IsValidCoordinates(lat, lng) && !utils.IsNullIsland(lat, lng)
}
