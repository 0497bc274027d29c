package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"swiftresponse/internal/middleware"
	"swiftresponse/internal/models"
	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

const maxListLimit = 100

type EmergencyHandler struct {
	dispatchService services.DispatchService
	advisor         services.HospitalAdvisor
	logger          *logger.Logger
}

func NewEmergencyHandler(dispatchService services.DispatchService, advisor services.HospitalAdvisor, logger *logger.Logger) *EmergencyHandler {
	return &EmergencyHandler{
		dispatchService: dispatchService,
		advisor:         advisor,
		logger:          logger.WithField("handler", "emergency"),
	}
}

// canView reports whether the caller may read the record. Unassigned records
// are visible to every hospital and driver so they can be taken.
func canView(record *models.EmergencyRecord, userID string, role models.UserType) bool {
	switch role {
	case models.UserTypePatient:
		return record.Patient.UserID == userID
	case models.UserTypeHospital:
		return record.AssignedHospitalID == "" || record.AssignedHospitalID == userID
	case models.UserTypeDriver:
		return record.AssignedDriverID == "" || record.AssignedDriverID == userID
	}
	return false
}

// ListEmergencies returns the caller's records, newest first
func (h *EmergencyHandler) ListEmergencies(c *gin.Context) {
	userID, role := middleware.CurrentUser(c)

	filter := models.EmergencyFilter{Limit: maxListLimit}
	switch role {
	case models.UserTypePatient:
		filter.PatientUserID = userID
	case models.UserTypeHospital:
		filter.AssignedHospitalID = userID
	case models.UserTypeDriver:
		filter.AssignedDriverID = userID
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.EmergencyStatus(strings.TrimSpace(s))
			if !status.IsValid() {
				utils.BadRequestResponse(c, "Unknown status: "+s)
				return
			}
			filter.Status = append(filter.Status, status)
		}
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < maxListLimit {
		filter.Limit = limit
	}

	records, err := h.dispatchService.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Emergencies retrieved", records)
}

func (h *EmergencyHandler) GetEmergency(c *gin.Context) {
	record, ok := h.loadVisible(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, "Emergency retrieved", record)
}

// AvailableEvents lists the events the caller's role may fire next
func (h *EmergencyHandler) AvailableEvents(c *gin.Context) {
	record, ok := h.loadVisible(c)
	if !ok {
		return
	}
	_, role := middleware.CurrentUser(c)

	events, err := h.dispatchService.AvailableEvents(c.Request.Context(), record.ID, role)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Events retrieved", gin.H{
		"status": record.Status,
		"events": events,
	})
}

// Transition fires a lifecycle event on behalf of the caller
func (h *EmergencyHandler) Transition(c *gin.Context) {
	var request services.TransitionRequest
	request.EmergencyID = c.Param("id")
	if !bindJSON(c, &request) {
		return
	}
	request.EmergencyID = c.Param("id")
	request.ActorID, request.Role = middleware.CurrentUser(c)

	record, err := h.dispatchService.Transition(c.Request.Context(), &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Status updated", record)
}

// Candidates ranks active hospitals by distance from the optional lat/lng
// origin or the record's location.
func (h *EmergencyHandler) Candidates(c *gin.Context) {
	record, ok := h.loadVisible(c)
	if !ok {
		return
	}

	candidates, err := h.advisor.Candidates(c.Request.Context(), record.ID, originFromQuery(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Hospitals retrieved", candidates)
}

// ConfirmHospital assigns the hospital before dispatch, or starts transport
// when the driver confirms at pickup.
func (h *EmergencyHandler) ConfirmHospital(c *gin.Context) {
	var request services.ConfirmRequest
	if !bindJSON(c, &request) {
		return
	}
	request.EmergencyID = c.Param("id")
	request.ActorID, request.Role = middleware.CurrentUser(c)

	result, err := h.advisor.Confirm(c.Request.Context(), &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Hospital confirmed", result)
}

func (h *EmergencyHandler) Route(c *gin.Context) {
	record, ok := h.loadVisible(c)
	if !ok {
		return
	}

	route, err := h.advisor.Route(c.Request.Context(), record.ID, originFromQuery(c))
	if err != nil && route == nil {
		RespondError(c, h.logger, err)
		return
	}
	if err != nil {
		h.logger.WithEmergencyID(record.ID).WithError(err).Warn("Route computed but not stored")
	}

	utils.SuccessResponse(c, "Route computed", route)
}

func (h *EmergencyHandler) loadVisible(c *gin.Context) (*models.EmergencyRecord, bool) {
	record, err := h.dispatchService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return nil, false
	}
	userID, role := middleware.CurrentUser(c)
	if !canView(record, userID, role) {
		utils.ForbiddenResponse(c)
		return nil, false
	}
	return record, true
}
