package validators

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"swiftresponse/internal/models"
	"swiftresponse/internal/utils"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report json names so clients can map errors back to their payload.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validation functions
	validate.RegisterValidation("phone_number", validatePhoneNumber)
	validate.RegisterValidation("emergency_type", validateEmergencyType)
	validate.RegisterValidation("not_null_island", validateNotNullIsland)
}

var ErrInvalidCoordinates = errors.New("invalid GPS coordinates")

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Map flattens the errors into field -> message for API responses.
func (v ValidationErrors) Map() map[string]string {
	out := make(map[string]string, len(v))
	for _, err := range v {
		out[err.Field] = err.Message
	}
	return out
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}
	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: getErrorMessage(fe),
		})
	}

	return validationErrors
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", err.Field(), err.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", err.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "uuid4":
		return "Invalid ID format"
	case "phone_number":
		return "Invalid phone number format"
	case "emergency_type":
		return "Unknown emergency type"
	case "latitude":
		return "Latitude must be between -90 and 90"
	case "longitude":
		return "Longitude must be between -180 and 180"
	case "not_null_island":
		return "Location is required"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

func validatePhoneNumber(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	if phone == "" {
		return true
	}
	return utils.IsValidPhone(phone)
}

func validateEmergencyType(fl validator.FieldLevel) bool {
	return models.IsKnownEmergencyType(fl.Field().String())
}

// validateNotNullIsland rejects the (0,0) fix devices report when they have no position.
func validateNotNullIsland(fl validator.FieldLevel) bool {
	switch p := fl.Field().Interface().(type) {
	case models.GeoPoint:
		return !utils.IsNullIsland(p.Lat, p.Lng)
	case models.EmergencyLocation:
		return !utils.IsNullIsland(p.Latitude, p.Longitude)
	case models.LocationSample:
		return !utils.IsNullIsland(p.Latitude, p.Longitude)
	}
	return true
}

var htmlTags = regexp.MustCompile(`<[^>]*>`)

func SanitizeInput(input string) string {
	return strings.TrimSpace(htmlTags.ReplaceAllString(input, ""))
}
