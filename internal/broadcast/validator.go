package broadcast

import (
	"errors"
	"fmt"

	"swiftresponse/internal/models"
	"swiftresponse/internal/utils"
)

// ErrNoFix is matched by every rejection: the sample is treated as if no
// position had been obtained yet.
var ErrNoFix = errors.New("no location fix")

var (
	ErrDeviceError   = fmt.Errorf("%w: device reported an error", ErrNoFix)
	ErrNonFinite     = fmt.Errorf("%w: coordinates are not finite", ErrNoFix)
	ErrNullIsland    = fmt.Errorf("%w: zero coordinates", ErrNoFix)
	ErrOutsideRegion = fmt.Errorf("%w: outside service region", ErrNoFix)
	ErrLowAccuracy   = fmt.Errorf("%w: accuracy too low", ErrNoFix)
)

type Validator struct {
	Region      utils.Bounds
	MaxAccuracy float64 // metres, 0 disables the check
}

func DefaultValidator() Validator {
	return Validator{Region: utils.IndiaBounds, MaxAccuracy: utils.MaxAcceptableAccuracyM}
}

func (v Validator) Check(s models.LocationSample) error {
	switch {
	case s.HasError():
		return ErrDeviceError
	case !utils.IsValidCoordinates(s.Latitude, s.Longitude):
		return ErrNonFinite
	case utils.IsNullIsland(s.Latitude, s.Longitude):
		return ErrNullIsland
	case !v.Region.Contains(utils.Point{Lat: s.Latitude, Lng: s.Longitude}):
		return ErrOutsideRegion
	case v.MaxAccuracy > 0 && s.Accuracy > v.MaxAccuracy:
		return ErrLowAccuracy
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrDeviceError):
		return "device_error"
	case errors.Is(err, ErrNonFinite):
		return "non_finite"
	case errors.Is(err, ErrNullIsland):
		return "null_island"
	case errors.Is(err, ErrOutsideRegion):
		return "outside_region"
	case errors.Is(err, ErrLowAccuracy):
		return "low_accuracy"
	}
	return "unknown"
}
