package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

var ErrInvalidSavedLocation = errors.New("saved location needs valid coordinates")

type ProfileService interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Update(ctx context.Context, userID string, request *UpdateProfileRequest) (*Profile, error)
	SetSavedLocations(ctx context.Context, userID string, request *SavedLocationsRequest) (*Profile, error)
	LinkIdentity(ctx context.Context, userID string, request *LinkIdentityRequest) (*Profile, error)
	SkipIdentity(ctx context.Context, userID string) (*Profile, error)
	UpsertMedical(ctx context.Context, userID string, profile *models.MedicalProfile) (*Profile, error)
	RegisterDeviceToken(ctx context.Context, role models.UserType, ownerID, token string) error
}

type Profile struct {
	User    *models.UserProfile    `json:"user"`
	Medical *models.MedicalProfile `json:"medical,omitempty"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	FamilyPhone *string `json:"family_phone,omitempty" validate:"omitempty,phone_number"`
}

type SavedLocationsRequest struct {
	Locations        []models.SavedLocation `json:"locations" validate:"dive"`
	ActiveLocationID string                 `json:"active_location_id,omitempty"`
}

type LinkIdentityRequest struct {
	Method models.IdentityMethod `json:"method" validate:"required,oneof=abha aadhaar"`
	Value  string                `json:"value" validate:"required"`
}

type profileService struct {
	userRepo     interfaces.UserRepository
	medicalRepo  interfaces.MedicalProfileRepository
	hospitalRepo interfaces.HospitalRepository
	logger       *logger.Logger
}

func NewProfileService(
	userRepo interfaces.UserRepository,
	medicalRepo interfaces.MedicalProfileRepository,
	hospitalRepo interfaces.HospitalRepository,
	logger *logger.Logger,
) ProfileService {
	return &profileService{
		userRepo:     userRepo,
		medicalRepo:  medicalRepo,
		hospitalRepo: hospitalRepo,
		logger:       logger.WithField("service", "profile"),
	}
}

func (s *profileService) Get(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := &Profile{User: user}
	medical, err := s.medicalRepo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		profile.Medical = medical
	case !errors.Is(err, interfaces.ErrNotFound):
		return nil, err
	}
	return profile, nil
}

func (s *profileService) Update(ctx context.Context, userID string, request *UpdateProfileRequest) (*Profile, error) {
	updates := map[string]interface{}{}
	if request.Name != nil {
		updates["name"] = strings.TrimSpace(*request.Name)
	}
	if request.FamilyPhone != nil {
		updates["family_phone"] = utils.NormalizePhone(*request.FamilyPhone)
	}
	return s.apply(ctx, userID, updates)
}

// SetSavedLocations replaces the whole set. The active location defaults to
// the first entry.
func (s *profileService) SetSavedLocations(ctx context.Context, userID string, request *SavedLocationsRequest) (*Profile, error) {
	locations := make([]models.SavedLocation, 0, len(request.Locations))
	active := ""
	for _, loc := range request.Locations {
		if !usable(loc.Coordinates.Lat, loc.Coordinates.Lng) {
			return nil, ErrInvalidSavedLocation
		}
		if loc.ID == "" {
			loc.ID = uuid.NewString()
		}
		if loc.ID == request.ActiveLocationID {
			active = loc.ID
		}
		locations = append(locations, loc)
	}
	if active == "" && len(locations) > 0 {
		active = locations[0].ID
	}

	return s.apply(ctx, userID, map[string]interface{}{
		"saved_locations":    locations,
		"active_location_id": active,
	})
}

// LinkIdentity stores the identity and marks ABHA verified. A medical
// profile already registered under the same identity is copied to the
// user when they have none.
func (s *profileService) LinkIdentity(ctx context.Context, userID string, request *LinkIdentityRequest) (*Profile, error) {
	link, err := models.NewIdentityLink(request.Method, request.Value)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	verification := user.Verification
	verification.ABHA = models.ABHAVerified
	profile, err := s.apply(ctx, userID, map[string]interface{}{
		"identity":     link,
		"verification": verification,
	})
	if err != nil {
		return nil, err
	}

	if profile.Medical == nil {
		if existing, err := s.medicalRepo.GetByIdentity(ctx, link.Value); err == nil {
			existing.ID = ""
			existing.UserID = userID
			if err := s.medicalRepo.Upsert(ctx, existing); err == nil {
				profile.Medical = existing
			}
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"method":  link.Method,
	}).Info("Identity linked")
	return profile, nil
}

func (s *profileService) SkipIdentity(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	verification := user.Verification
	verification.ABHA = models.ABHASkipped
	return s.apply(ctx, userID, map[string]interface{}{"verification": verification})
}

func (s *profileService) UpsertMedical(ctx context.Context, userID string, medical *models.MedicalProfile) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	medical.UserID = userID
	if user.Identity != nil {
		medical.IdentityValue = user.Identity.Value
	}
	if err := s.medicalRepo.Upsert(ctx, medical); err != nil {
		return nil, fmt.Errorf("failed to save medical profile: %w", err)
	}
	return s.apply(ctx, userID, nil)
}

func (s *profileService) RegisterDeviceToken(ctx context.Context, role models.UserType, ownerID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("device token is required")
	}
	if role == models.UserTypeHospital {
		return s.hospitalRepo.AddDeviceToken(ctx, ownerID, token)
	}

	user, err := s.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, t := range user.DeviceTokens {
		if t == token {
			return nil
		}
	}
	return s.userRepo.Update(ctx, ownerID, map[string]interface{}{
		"device_tokens": append(user.DeviceTokens, token),
	})
}

// apply writes updates, recomputes profile completeness and returns the
// fresh profile.
func (s *profileService) apply(ctx context.Context, userID string, updates map[string]interface{}) (*Profile, error) {
	if len(updates) > 0 {
		if err := s.userRepo.Update(ctx, userID, updates); err != nil {
			return nil, err
		}
	}
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	complete := profile.User.Name != "" && len(profile.User.SavedLocations) > 0 && profile.Medical != nil
	if complete != profile.User.ProfileComplete {
		if err := s.userRepo.Update(ctx, userID, map[string]interface{}{"profile_complete": complete}); err != nil {
			return nil, err
		}
		profile.User.ProfileComplete = complete
	}
	return profile, nil
}
