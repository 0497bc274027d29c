package handlers

import (
	"github.com/gin-gonic/gin"

	"swiftresponse/internal/middleware"
	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/internal/validators"
	"swiftresponse/pkg/logger"
)

type DriverHandler struct {
	sessionService  services.DriverSessionService
	locationService services.LocationService
	realtimeService services.RealtimeService
	logger          *logger.Logger
}

func NewDriverHandler(
	sessionService services.DriverSessionService,
	locationService services.LocationService,
	realtimeService services.RealtimeService,
	logger *logger.Logger,
) *DriverHandler {
	return &DriverHandler{
		sessionService:  sessionService,
		locationService: locationService,
		realtimeService: realtimeService,
		logger:          logger.WithField("handler", "driver"),
	}
}

// GoOnline subscribes the driver to pending alerts
func (h *DriverHandler) GoOnline(c *gin.Context) {
	driverID, _ := middleware.CurrentUser(c)

	session, err := h.sessionService.GoOnline(c.Request.Context(), driverID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Driver online", session)
}

func (h *DriverHandler) GoOffline(c *gin.Context) {
	driverID, _ := middleware.CurrentUser(c)

	if err := h.sessionService.GoOffline(c.Request.Context(), driverID); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Driver offline", nil)
}

func (h *DriverHandler) GetSession(c *gin.Context) {
	driverID, _ := middleware.CurrentUser(c)

	session, err := h.sessionService.Session(c.Request.Context(), driverID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Session retrieved", gin.H{
		"session": session,
		"pending": h.realtimeService.Pending(driverID),
	})
}

func (h *DriverHandler) AcceptAlert(c *gin.Context) {
	driverID, _ := middleware.CurrentUser(c)

	record, err := h.sessionService.AcceptAlert(c.Request.Context(), driverID, c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Alert accepted", record)
}

func (h *DriverHandler) RejectAlert(c *gin.Context) {
	driverID, _ := middleware.CurrentUser(c)

	if err := h.sessionService.RejectAlert(c.Request.Context(), driverID, c.Param("id")); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Alert rejected", nil)
}

// AdvanceTrip moves the driver's active trip to its next phase
func (h *DriverHandler) AdvanceTrip(c *gin.Context) {
	var request validators.TripEventRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateTripEvent(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Map())
		return
	}

	driverID, _ := middleware.CurrentUser(c)
	record, err := h.sessionService.AdvanceTrip(c.Request.Context(), driverID, request.Event, request.HospitalID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Trip updated", record)
}

// UpdateLocation feeds the broadcaster for the driver's active trip
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var request validators.LocationUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateLocationUpdate(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Map())
		return
	}

	driverID, _ := middleware.CurrentUser(c)
	if err := h.locationService.UpdateDriverLocation(c.Request.Context(), driverID, request.ToSample()); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.AcceptedResponse(c, "Location received", nil)
}
