package handlers

import (
	"github.com/gin-gonic/gin"

	"swiftresponse/internal/middleware"
	"swiftresponse/internal/models"
	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/internal/validators"
	"swiftresponse/pkg/logger"
)

type ProfileHandler struct {
	profileService services.ProfileService
	logger         *logger.Logger
}

func NewProfileHandler(profileService services.ProfileService, logger *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger.WithField("handler", "profile"),
	}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	profile, err := h.profileService.Get(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Profile retrieved", profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var request services.UpdateProfileRequest
	if !bindJSON(c, &request) {
		return
	}
	if errs := validators.ValidateName(request.Name); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Map())
		return
	}
	userID, _ := middleware.CurrentUser(c)
	profile, err := h.profileService.Update(c.Request.Context(), userID, &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Profile updated", profile)
}

// SetSavedLocations replaces the saved locations and the active one
func (h *ProfileHandler) SetSavedLocations(c *gin.Context) {
	var request services.SavedLocationsRequest
	if !bindJSON(c, &request) {
		return
	}

	userID, _ := middleware.CurrentUser(c)
	profile, err := h.profileService.SetSavedLocations(c.Request.Context(), userID, &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Saved locations updated", profile)
}

func (h *ProfileHandler) LinkIdentity(c *gin.Context) {
	var request services.LinkIdentityRequest
	if !bindJSON(c, &request) {
		return
	}

	userID, _ := middleware.CurrentUser(c)
	profile, err := h.profileService.LinkIdentity(c.Request.Context(), userID, &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Identity linked", profile)
}

func (h *ProfileHandler) SkipIdentity(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	profile, err := h.profileService.SkipIdentity(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Identity skipped", profile)
}

func (h *ProfileHandler) UpsertMedical(c *gin.Context) {
	var request models.MedicalProfile
	if !bindJSON(c, &request) {
		return
	}

	userID, _ := middleware.CurrentUser(c)
	profile, err := h.profileService.UpsertMedical(c.Request.Context(), userID, &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Medical profile saved", profile)
}

// RegisterDevice stores a push token for any role
func (h *ProfileHandler) RegisterDevice(c *gin.Context) {
	var request validators.DeviceTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateDeviceToken(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Map())
		return
	}

	userID, role := middleware.CurrentUser(c)
	if err := h.profileService.RegisterDeviceToken(c.Request.Context(), role, userID, request.Token); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Device registered", nil)
}
