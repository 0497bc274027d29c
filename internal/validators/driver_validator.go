package validators

import (
	"time"

	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/internal/utils"
)

type LocationUpdateRequest struct {
	Latitude  float64                  `json:"latitude" validate:"latitude"`
	Longitude float64                  `json:"longitude" validate:"longitude"`
	Accuracy  float64                  `json:"accuracy" validate:"omitempty,min=0"`
	Heading   *float64                 `json:"heading" validate:"omitempty,min=0,max=360"`
	Speed     *float64                 `json:"speed" validate:"omitempty,min=0,max=100"` // m/s
	Error     models.LocationErrorCode `json:"error" validate:"omitempty,oneof=permission_denied unavailable timeout"`
}

// ToSample converts the request into a location sample stamped now.
func (r *LocationUpdateRequest) ToSample() models.LocationSample {
	return models.LocationSample{
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Accuracy:   r.Accuracy,
		Heading:    r.Heading,
		Speed:      r.Speed,
		Error:      r.Error,
		RecordedAt: time.Now().UTC(),
	}
}

type TripEventRequest struct {
	Event      dispatch.Event `json:"event" validate:"required,oneof=start_route arrive_pickup start_transport reach_hospital"`
	HospitalID string         `json:"hospital_id"`
}

// ValidateLocationUpdate accepts device error reports without coordinates.
// A sample that claims a fix must not be the (0,0) placeholder.
func ValidateLocationUpdate(req *LocationUpdateRequest) ValidationErrors {
	errors := ValidateStruct(req)
	if req.Error == "" && utils.IsNullIsland(req.Latitude, req.Longitude) {
		errors = append(errors, ValidationError{
			Field:   "latitude",
			Tag:     "not_null_island",
			Message: ErrInvalidCoordinates.Error(),
		})
	}
	return errors
}

func ValidateTripEvent(req *TripEventRequest) ValidationErrors {
	errors := ValidateStruct(req)
	if req.Event == dispatch.EventStartTransport && req.HospitalID == "" {
		errors = append(errors, ValidationError{
			Field:   "hospital_id",
			Tag:     "required",
			Message: "hospital_id is required to start transport",
		})
	}
	return errors
}
