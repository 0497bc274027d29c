package handlers

import (
	"github.com/gin-gonic/gin"

	"swiftresponse/internal/middleware"
	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/internal/validators"
	"swiftresponse/pkg/logger"
)

type PatientHandler struct {
	sosService      services.SOSService
	locationService services.LocationService
	realtimeService services.RealtimeService
	dispatchService services.DispatchService
	logger          *logger.Logger
}

func NewPatientHandler(
	sosService services.SOSService,
	locationService services.LocationService,
	realtimeService services.RealtimeService,
	dispatchService services.DispatchService,
	logger *logger.Logger,
) *PatientHandler {
	return &PatientHandler{
		sosService:      sosService,
		locationService: locationService,
		realtimeService: realtimeService,
		dispatchService: dispatchService,
		logger:          logger.WithField("handler", "patient"),
	}
}

// ArmSOS starts the cancellable SOS countdown. The emergency is created when
// it runs out.
func (h *PatientHandler) ArmSOS(c *gin.Context) {
	var request services.SOSRequest
	if !bindJSON(c, &request) {
		return
	}
	request.UserID, _ = middleware.CurrentUser(c)

	armed, err := h.sosService.Arm(c.Request.Context(), &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.AcceptedResponse(c, "SOS armed", armed)
}

func (h *PatientHandler) CancelSOS(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)

	if !h.sosService.Cancel(c.Request.Context(), userID) {
		RespondError(c, h.logger, services.ErrNoCountdownPending)
		return
	}

	utils.SuccessResponse(c, "SOS cancelled", nil)
}

// TriggerSOS creates the emergency immediately
func (h *PatientHandler) TriggerSOS(c *gin.Context) {
	var request services.SOSRequest
	if !bindJSON(c, &request) {
		return
	}
	request.UserID, _ = middleware.CurrentUser(c)

	record, err := h.sosService.Trigger(c.Request.Context(), &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.CreatedResponse(c, "Emergency created", record)
}

// TrackEmergency opens the live trip view for one of the patient's records.
// Updates arrive over the websocket.
func (h *PatientHandler) TrackEmergency(c *gin.Context) {
	userID, role := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	record, err := h.dispatchService.Get(ctx, c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if record.Patient.UserID != userID {
		utils.ForbiddenResponse(c)
		return
	}
	if err := h.realtimeService.OpenTrip(ctx, role, userID, record.ID); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Tracking started", gin.H{
		"record": record,
		"label":  record.Status.Label(),
	})
}

// UpdateLocation feeds the patient's live location broadcaster
func (h *PatientHandler) UpdateLocation(c *gin.Context) {
	var request validators.LocationUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateLocationUpdate(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Map())
		return
	}

	userID, _ := middleware.CurrentUser(c)
	if err := h.locationService.UpdatePatientLocation(c.Request.Context(), userID, request.ToSample()); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.AcceptedResponse(c, "Location received", nil)
}

func (h *PatientHandler) StopLocation(c *gin.Context) {
	userID, _ := middleware.CurrentUser(c)
	h.locationService.StopPatient(userID)
	utils.SuccessResponse(c, "Location sharing stopped", nil)
}
