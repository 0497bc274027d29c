package validators

import (
	"strings"

	"swiftresponse/internal/utils"
)

type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required,phone_number"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type DeviceTokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

func ValidateSendOTP(req *SendOTPRequest) ValidationErrors {
	errors := ValidateStruct(req)
	if len(errors) == 0 {
		req.Phone = utils.NormalizePhone(req.Phone)
	}
	return errors
}

func ValidateDeviceToken(req *DeviceTokenRequest) ValidationErrors {
	req.Token = strings.TrimSpace(req.Token)
	return ValidateStruct(req)
}

// ValidateName trims the name and strips markup before length checks.
func ValidateName(name *string) ValidationErrors {
	if name == nil {
		return nil
	}
	*name = SanitizeInput(*name)
	if *name == "" {
		return ValidationErrors{{Field: "name", Tag: "required", Message: "name is required"}}
	}
	if len(*name) > 100 {
		return ValidationErrors{{Field: "name", Tag: "max", Value: *name, Message: "name must be at most 100"}}
	}
	return nil
}
