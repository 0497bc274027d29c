package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swiftresponse/internal/broadcast"
	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/internal/validators"
	"swiftresponse/pkg/logger"
)

type errorMapping struct {
	err       error
	status    int
	code      string
	retryable bool
}

// Checked in order; the first match wins.
var errorTable = []errorMapping{
	{dispatch.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION", false},
	{dispatch.ErrRoleNotPermitted, http.StatusForbidden, "ROLE_NOT_PERMITTED", false},
	{interfaces.ErrStatusConflict, http.StatusConflict, "STATUS_CONFLICT", true},
	{interfaces.ErrRecordClosed, http.StatusConflict, "RECORD_CLOSED", false},
	{interfaces.ErrDuplicate, http.StatusConflict, "DUPLICATE", false},
	{interfaces.ErrNotFound, http.StatusNotFound, "NOT_FOUND", false},
	{interfaces.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", true},

	{services.ErrLocationRequired, http.StatusUnprocessableEntity, "LOCATION_REQUIRED", false},
	{services.ErrHospitalAlreadyAssigned, http.StatusConflict, "HOSPITAL_ALREADY_ASSIGNED", false},
	{services.ErrDriverAlreadyAssigned, http.StatusConflict, "DRIVER_ALREADY_ASSIGNED", false},
	{services.ErrNotAssigned, http.StatusForbidden, "NOT_ASSIGNED", false},
	{services.ErrHospitalRequired, http.StatusBadRequest, "HOSPITAL_REQUIRED", false},
	{services.ErrHospitalNotFound, http.StatusNotFound, "HOSPITAL_NOT_FOUND", false},
	{services.ErrInvalidConfirmStep, http.StatusConflict, "INVALID_CONFIRM_STEP", false},

	{services.ErrDriverOffline, http.StatusConflict, "DRIVER_OFFLINE", false},
	{services.ErrDriverBusy, http.StatusConflict, "DRIVER_BUSY", false},
	{services.ErrNoActiveTrip, http.StatusConflict, "NO_ACTIVE_TRIP", false},
	{services.ErrAlertNotOffered, http.StatusConflict, "ALERT_NOT_OFFERED", false},
	{services.ErrAlertUnavailable, http.StatusGone, "ALERT_UNAVAILABLE", false},
	{services.ErrNoCountdownPending, http.StatusNotFound, "NO_COUNTDOWN", false},

	{services.ErrInvalidPhone, http.StatusBadRequest, "INVALID_PHONE", false},
	{services.ErrInvalidOTP, http.StatusUnauthorized, "INVALID_OTP", false},
	{services.ErrOTPExpired, http.StatusUnauthorized, "OTP_EXPIRED", false},
	{services.ErrTooManyAttempts, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", false},
	{services.ErrOTPSendFailed, http.StatusBadGateway, "OTP_SEND_FAILED", true},
	{services.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", false},

	{services.ErrInvalidSavedLocation, http.StatusBadRequest, "INVALID_LOCATION", false},
	{models.ErrInvalidIdentityMethod, http.StatusBadRequest, "INVALID_IDENTITY", false},
	{models.ErrInvalidAadhaar, http.StatusBadRequest, "INVALID_IDENTITY", false},
	{models.ErrInvalidABHA, http.StatusBadRequest, "INVALID_IDENTITY", false},

	{broadcast.ErrNoFix, http.StatusUnprocessableEntity, "NO_LOCATION_FIX", false},
	{broadcast.ErrNotBroadcasting, http.StatusConflict, "NOT_BROADCASTING", false},
}

// RespondError writes the API envelope for err. Unknown errors become a 500
// and are logged with the request context.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	var verrs validators.ValidationErrors
	if errors.As(err, &verrs) {
		utils.ValidationErrorResponse(c, verrs.Map())
		return
	}

	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			if m.retryable {
				utils.RetryableErrorResponse(c, m.status, m.code, err.Error())
			} else {
				utils.ErrorResponse(c, m.status, m.code, err.Error())
			}
			return
		}
	}

	_ = c.Error(err)
	log.WithContext(c.Request.Context()).WithError(err).Error("Unhandled request error")
	utils.InternalServerErrorResponse(c)
}
