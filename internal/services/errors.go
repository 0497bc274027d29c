package services

import "errors"

var (
	ErrLocationRequired        = errors.New("no usable location for the emergency")
	ErrHospitalAlreadyAssigned = errors.New("a different hospital is already assigned")
	ErrDriverAlreadyAssigned   = errors.New("a different driver is already assigned")
	ErrNotAssigned             = errors.New("actor is not assigned to this emergency")
	ErrHospitalRequired        = errors.New("hospital id is required")
	ErrHospitalNotFound        = errors.New("hospital not found")
	ErrInvalidConfirmStep      = errors.New("hospital can only be confirmed before dispatch or at pickup")

	ErrDriverOffline      = errors.New("driver is offline")
	ErrDriverBusy         = errors.New("driver already has an active trip")
	ErrNoActiveTrip       = errors.New("driver has no active trip")
	ErrAlertNotOffered    = errors.New("alert is not currently offered to the driver")
	ErrAlertUnavailable   = errors.New("emergency is no longer available")
	ErrNoCountdownPending = errors.New("no countdown pending")

	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidOTP      = errors.New("invalid verification code")
	ErrOTPExpired      = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrOTPSendFailed   = errors.New("failed to send verification code")
	ErrInvalidToken    = errors.New("invalid or expired token")
)
