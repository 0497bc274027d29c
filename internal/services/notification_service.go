package services

import (
	"context"
	"fmt"
	"time"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
	"swiftresponse/pkg/push"
	"swiftresponse/pkg/sms"
)

// NotificationService fans transitions out to the people involved. Every
// delivery is best effort and never fails the transition.
type NotificationService interface {
	HandleTransition(ctx context.Context, t *Transition)
	NotifyFamily(ctx context.Context, user *models.UserProfile, record *models.EmergencyRecord) error
	SendSMS(ctx context.Context, phone, message, smsType string) error
}

type StatusUpdate struct {
	EmergencyID string                 `json:"emergency_id"`
	Status      models.EmergencyStatus `json:"status"`
	Label       string                 `json:"label"`
	HospitalID  string                 `json:"hospital_id,omitempty"`
	DriverID    string                 `json:"driver_id,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

type notificationService struct {
	hospitalRepo interfaces.HospitalRepository
	userRepo     interfaces.UserRepository
	notifier     ClientNotifier
	pushProvider push.PushProvider
	smsProvider  sms.SMSProvider
	logger       *logger.Logger
}

func NewNotificationService(
	hospitalRepo interfaces.HospitalRepository,
	userRepo interfaces.UserRepository,
	notifier ClientNotifier,
	pushProvider push.PushProvider,
	smsProvider sms.SMSProvider,
	logger *logger.Logger,
) NotificationService {
	return &notificationService{
		hospitalRepo: hospitalRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		pushProvider: pushProvider,
		smsProvider:  smsProvider,
		logger:       logger.WithField("service", "notification"),
	}
}

func (s *notificationService) HandleTransition(ctx context.Context, t *Transition) {
	record := t.Record
	update := StatusUpdate{
		EmergencyID: record.ID,
		Status:      t.To,
		Label:       t.To.Label(),
		HospitalID:  record.AssignedHospitalID,
		DriverID:    record.AssignedDriverID,
		UpdatedAt:   record.UpdatedAt,
	}

	if t.HospitalAssigned {
		s.notifyHospital(ctx, record)
	}

	s.notifier.SendToRoom(utils.RoomEmergencyPrefix+record.ID, MessageStatusUpdate, update)
	if record.Patient.UserID != "" {
		s.notifier.SendToUser(record.Patient.UserID, MessageStatusUpdate, update)
		s.notifyPatient(ctx, record, t.To)
	}
}

func (s *notificationService) notifyHospital(ctx context.Context, record *models.EmergencyRecord) {
	s.notifier.SendToRoom(utils.RoomHospitalPrefix+record.AssignedHospitalID, MessageEmergencyAssigned, record)

	hospital, err := s.hospitalRepo.GetByID(ctx, record.AssignedHospitalID)
	if err != nil {
		s.logger.WithEmergencyID(record.ID).WithError(err).Warn("Failed to load assigned hospital for push")
		return
	}

	s.push(ctx, record.ID, hospital.DeviceTokens, &push.NotificationRequest{
		Title:       "Incoming emergency",
		Body:        fmt.Sprintf("%s patient assigned to %s", record.EmergencyType, hospital.Name),
		Priority:    push.PriorityHigh,
		TTLSeconds:  300,
		CollapseKey: record.ID,
		Data: map[string]string{
			"type":         MessageEmergencyAssigned,
			"emergency_id": record.ID,
		},
	})
}

func (s *notificationService) notifyPatient(ctx context.Context, record *models.EmergencyRecord, status models.EmergencyStatus) {
	user, err := s.userRepo.GetByID(ctx, record.Patient.UserID)
	if err != nil {
		return
	}

	priority := push.PriorityNormal
	if status == models.EmergencyStatusDispatched || status == models.EmergencyStatusArrivedPickup {
		priority = push.PriorityHigh
	}
	s.push(ctx, record.ID, user.DeviceTokens, &push.NotificationRequest{
		Title:       "Emergency update",
		Body:        status.Label(),
		Priority:    priority,
		CollapseKey: record.ID,
		Data: map[string]string{
			"type":         MessageStatusUpdate,
			"emergency_id": record.ID,
			"status":       string(status),
		},
	})
}

func (s *notificationService) push(ctx context.Context, emergencyID string, tokens []string, req *push.NotificationRequest) {
	if s.pushProvider == nil || len(tokens) == 0 {
		return
	}
	responses, err := s.pushProvider.SendMulticast(ctx, tokens, req)
	if err != nil {
		metrics.SideEffectFailures.WithLabelValues("push").Inc()
		s.logger.WithEmergencyID(emergencyID).WithError(err).Warn("Push notification failed")
		return
	}
	s.logger.WithEmergencyID(emergencyID).WithFields(map[string]interface{}{
		"provider": s.pushProvider.Name(),
		"sent":     push.Sent(responses),
		"tokens":   len(tokens),
	}).Debug("Push notification sent")
}

// NotifyFamily texts the family contact a maps link to the pickup point.
func (s *notificationService) NotifyFamily(ctx context.Context, user *models.UserProfile, record *models.EmergencyRecord) error {
	if user == nil || user.FamilyPhone == "" {
		return nil
	}
	name := user.Name
	if name == "" {
		name = "Your family member"
	}
	message := fmt.Sprintf("EMERGENCY: %s triggered an SOS (%s). Location: %s",
		name, record.EmergencyType, utils.MapsLink(record.Location.Latitude, record.Location.Longitude))
	return s.SendSMS(ctx, user.FamilyPhone, message, sms.TypeAlert)
}

func (s *notificationService) SendSMS(ctx context.Context, phone, message, smsType string) error {
	if s.smsProvider == nil {
		return sms.ErrSendFailed
	}
	resp, err := s.smsProvider.SendSMS(ctx, &sms.SMSRequest{
		To:      phone,
		Message: message,
		Type:    smsType,
	})
	if err == nil && resp != nil && !resp.Success {
		err = fmt.Errorf("%w: %s", sms.ErrSendFailed, resp.Error)
	}
	if err != nil {
		metrics.SideEffectFailures.WithLabelValues("sms").Inc()
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"provider": s.smsProvider.Name(),
			"to":       utils.MaskPhone(phone),
			"type":     smsType,
		}).Warn("SMS delivery failed")
		return err
	}
	return nil
}
