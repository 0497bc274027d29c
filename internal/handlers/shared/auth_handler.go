package handlers

import (
	"github.com/gin-gonic/gin"

	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/internal/validators"
	"swiftresponse/pkg/logger"
)

type AuthHandler struct {
	otpService services.OTPService
	logger     *logger.Logger
}

func NewAuthHandler(otpService services.OTPService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		otpService: otpService,
		logger:     logger.WithField("handler", "auth"),
	}
}

// SendOTP texts a verification code to the phone number
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var request validators.SendOTPRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateSendOTP(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Map())
		return
	}

	challenge, err := h.otpService.SendOTP(c.Request.Context(), request.Phone)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Verification code sent", challenge)
}

// VerifyOTP checks the code and signs the patient in
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var request services.VerifyOTPRequest
	if !bindJSON(c, &request) {
		return
	}

	result, err := h.otpService.VerifyOTP(c.Request.Context(), &request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	if result.NewUser {
		utils.CreatedResponse(c, "Account created", result)
		return
	}
	utils.SuccessResponse(c, "Signed in", result)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var request validators.RefreshTokenRequest
	if !bindJSON(c, &request) {
		return
	}

	tokens, err := h.otpService.Refresh(c.Request.Context(), request.RefreshToken)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	utils.SuccessResponse(c, "Token refreshed", tokens)
}
