package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/internal/realtime"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
)

type DispatchService interface {
	Create(ctx context.Context, request *CreateEmergencyRequest) (*models.EmergencyRecord, error)
	Get(ctx context.Context, id string) (*models.EmergencyRecord, error)
	List(ctx context.Context, filter models.EmergencyFilter) ([]*models.EmergencyRecord, error)

	// Transition is the only writer of status.
	Transition(ctx context.Context, request *TransitionRequest) (*models.EmergencyRecord, error)
	// UpdateFields writes status-independent fields and publishes them.
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.EmergencyRecord, error)
	AvailableEvents(ctx context.Context, id string, role models.UserType) ([]dispatch.Event, error)

	OnTransition(hook TransitionHook)
}

type CreateEmergencyRequest struct {
	ID            string                   `json:"id,omitempty" validate:"omitempty,uuid4"`
	EmergencyType string                   `json:"emergency_type" validate:"required,emergency_type"`
	Patient       models.PatientSnapshot   `json:"patient"`
	Location      models.EmergencyLocation `json:"location"`
}

type TransitionRequest struct {
	EmergencyID string          `json:"emergency_id" validate:"required"`
	Event       dispatch.Event  `json:"event" validate:"required"`
	HospitalID  string          `json:"hospital_id,omitempty"`
	ActorID     string          `json:"-"`
	Role        models.UserType `json:"-"`
	// Fields are written together with the status. Status and assignment
	// keys are ignored.
	Fields map[string]interface{} `json:"-"`
}

// Transition describes a committed status change.
type Transition struct {
	Record  *models.EmergencyRecord
	From    models.EmergencyStatus
	To      models.EmergencyStatus
	Event   dispatch.Event
	ActorID string
	Role    models.UserType
	// HospitalAssigned is set when this transition wrote the destination
	// hospital, whether by assign_hospital or by selection at pickup.
	HospitalAssigned bool
}

// TransitionHook runs after a transition is committed and published.
type TransitionHook func(ctx context.Context, t *Transition)

var protectedFields = map[string]bool{
	models.FieldID:                 true,
	models.FieldRecordID:           true,
	models.FieldStatus:             true,
	models.FieldStatusHistory:      true,
	models.FieldAssignedHospitalID: true,
	models.FieldAssignedDriverID:   true,
	models.FieldCreatedAt:          true,
}

type dispatchService struct {
	emergencyRepo interfaces.EmergencyRepository
	feed          realtime.Feed
	logger        *logger.Logger

	hooksMu sync.RWMutex
	hooks   []TransitionHook
}

func NewDispatchService(
	emergencyRepo interfaces.EmergencyRepository,
	feed realtime.Feed,
	logger *logger.Logger,
) DispatchService {
	return &dispatchService{
		emergencyRepo: emergencyRepo,
		feed:          feed,
		logger:        logger.WithField("service", "dispatch"),
	}
}

func (s *dispatchService) OnTransition(hook TransitionHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, hook)
}

func (s *dispatchService) Create(ctx context.Context, request *CreateEmergencyRequest) (*models.EmergencyRecord, error) {
	loc := request.Location
	if !utils.IsValidCoordinates(loc.Latitude, loc.Longitude) || utils.IsNullIsland(loc.Latitude, loc.Longitude) {
		return nil, ErrLocationRequired
	}

	id := request.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	record := &models.EmergencyRecord{
		ID:            id,
		EmergencyType: models.ParseEmergencyType(request.EmergencyType),
		Patient:       request.Patient,
		Location:      loc,
		Status:        models.EmergencyStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.emergencyRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create emergency: %w", err)
	}

	s.logger.WithEmergencyID(record.ID).WithFields(map[string]interface{}{
		"emergency_type": record.EmergencyType,
		"patient":        utils.MaskPhone(record.Patient.Phone),
	}).Info("Emergency created")

	s.publish(ctx, models.NewEmergencyChange(models.ChangeInsert, record, nil))
	return record, nil
}

func (s *dispatchService) Get(ctx context.Context, id string) (*models.EmergencyRecord, error) {
	return s.emergencyRepo.GetByID(ctx, id)
}

func (s *dispatchService) List(ctx context.Context, filter models.EmergencyFilter) ([]*models.EmergencyRecord, error) {
	return s.emergencyRepo.List(ctx, filter)
}

func (s *dispatchService) AvailableEvents(ctx context.Context, id string, role models.UserType) ([]dispatch.Event, error) {
	record, err := s.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dispatch.Permitted(ctx, record.Status, role), nil
}

func (s *dispatchService) Transition(ctx context.Context, request *TransitionRequest) (*models.EmergencyRecord, error) {
	record, err := s.emergencyRepo.GetByID(ctx, request.EmergencyID)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		metrics.RejectedTransitions.WithLabelValues("closed").Inc()
		return nil, fmt.Errorf("%w: emergency %s is %s", interfaces.ErrRecordClosed, record.ID, record.Status)
	}

	to, err := dispatch.Next(ctx, record.Status, request.Event, request.Role)
	if err != nil {
		metrics.RejectedTransitions.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	fields, err := s.buildFields(record, request, to)
	if err != nil {
		metrics.RejectedTransitions.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}

	updated, err := s.emergencyRepo.CompareAndSwapStatus(ctx, record.ID, record.Status, fields)
	if err != nil {
		if errors.Is(err, interfaces.ErrStatusConflict) {
			metrics.StatusConflicts.Inc()
			s.logger.WithEmergencyID(record.ID).WithFields(map[string]interface{}{
				"expected": record.Status,
				"event":    request.Event,
				"actor_id": request.ActorID,
			}).Warn("Lost status race")
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues(string(record.Status), string(to), string(request.Role)).Inc()
	s.logger.LogDispatchEvent(record.ID, string(record.Status), string(to), string(request.Event), request.ActorID, string(request.Role))

	s.publish(ctx, models.NewEmergencyChange(models.ChangeUpdate, updated, fields))

	t := &Transition{
		Record:           updated,
		From:             record.Status,
		To:               to,
		Event:            request.Event,
		ActorID:          request.ActorID,
		Role:             request.Role,
		HospitalAssigned: record.AssignedHospitalID == "" && updated.AssignedHospitalID != "",
	}
	s.hooksMu.RLock()
	hooks := append([]TransitionHook(nil), s.hooks...)
	s.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, t)
	}

	return updated, nil
}

// buildFields checks that the actor may act on the record and assembles
// the single update written with the status.
func (s *dispatchService) buildFields(record *models.EmergencyRecord, request *TransitionRequest, to models.EmergencyStatus) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(request.Fields)+4)
	for k, v := range request.Fields {
		if !protectedFields[k] {
			fields[k] = v
		}
	}

	switch request.Role {
	case models.UserTypeDriver:
		if record.AssignedDriverID != "" && record.AssignedDriverID != request.ActorID {
			if request.Event == dispatch.EventAccept {
				return nil, ErrDriverAlreadyAssigned
			}
			return nil, ErrNotAssigned
		}
		if record.AssignedDriverID == "" && request.Event != dispatch.EventAccept && request.Event != dispatch.EventAssignHospital {
			return nil, ErrNotAssigned
		}
	case models.UserTypeHospital:
		if request.Event != dispatch.EventAssignHospital && record.AssignedHospitalID != request.ActorID {
			return nil, ErrNotAssigned
		}
	}

	switch request.Event {
	case dispatch.EventAccept:
		fields[models.FieldAssignedDriverID] = request.ActorID

	case dispatch.EventAssignHospital, dispatch.EventStartTransport:
		hospitalID, err := resolveHospital(record, request)
		if err != nil {
			return nil, err
		}
		fields[models.FieldAssignedHospitalID] = hospitalID
	}

	now := time.Now()
	history := make([]models.StatusChange, 0, len(record.StatusHistory)+1)
	history = append(history, record.StatusHistory...)
	history = append(history, models.StatusChange{
		From:      record.Status,
		To:        to,
		Event:     string(request.Event),
		ActorID:   request.ActorID,
		ActorRole: string(request.Role),
		At:        now,
	})

	fields[models.FieldStatus] = to
	fields[models.FieldStatusHistory] = history
	fields[models.FieldUpdatedAt] = now
	return fields, nil
}

// resolveHospital enforces that the assigned hospital is set once. A
// hospital can only assign itself.
func resolveHospital(record *models.EmergencyRecord, request *TransitionRequest) (string, error) {
	hospitalID := strings.TrimSpace(request.HospitalID)
	if request.Role == models.UserTypeHospital {
		if hospitalID != "" && hospitalID != request.ActorID {
			return "", ErrNotAssigned
		}
		hospitalID = request.ActorID
	}
	if hospitalID == "" {
		hospitalID = record.AssignedHospitalID
	}
	if hospitalID == "" {
		return "", ErrHospitalRequired
	}
	if record.AssignedHospitalID != "" && record.AssignedHospitalID != hospitalID {
		return "", ErrHospitalAlreadyAssigned
	}
	return hospitalID, nil
}

func (s *dispatchService) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.EmergencyRecord, error) {
	clean := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		if !protectedFields[k] {
			clean[k] = v
		}
	}
	if len(clean) == 0 {
		return s.emergencyRepo.GetByID(ctx, id)
	}
	clean[models.FieldUpdatedAt] = time.Now()

	updated, err := s.emergencyRepo.UpdateFields(ctx, id, clean)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.NewEmergencyChange(models.ChangeUpdate, updated, clean))
	return updated, nil
}

// publish is a soft side effect: a failed publish never undoes the write.
func (s *dispatchService) publish(ctx context.Context, event models.ChangeEvent) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		metrics.SideEffectFailures.WithLabelValues("realtime_publish").Inc()
		s.logger.WithEmergencyID(event.RecordID).WithError(err).Warn("Failed to publish change event")
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, dispatch.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, dispatch.ErrRoleNotPermitted):
		return "role_not_permitted"
	case errors.Is(err, ErrNotAssigned):
		return "not_assigned"
	case errors.Is(err, ErrHospitalAlreadyAssigned), errors.Is(err, ErrDriverAlreadyAssigned):
		return "already_assigned"
	case errors.Is(err, ErrHospitalRequired):
		return "hospital_required"
	}
	return "other"
}
