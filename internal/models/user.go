package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type UserType string
type SavedLocationType string
type IdentityMethod string
type ABHAVerification string
type GPSStatus string

const (
	UserTypePatient  UserType = "patient"
	UserTypeHospital UserType = "hospital"
	UserTypeDriver   UserType = "driver"

	SavedLocationHome     SavedLocationType = "home"
	SavedLocationWork     SavedLocationType = "work"
	SavedLocationFrequent SavedLocationType = "frequent"

	IdentityMethodABHA    IdentityMethod = "abha"
	IdentityMethodAadhaar IdentityMethod = "aadhaar"

	ABHAPending  ABHAVerification = "pending"
	ABHAVerified ABHAVerification = "verified"
	ABHASkipped  ABHAVerification = "skipped"
	ABHAFailed   ABHAVerification = "failed"

	GPSEnabled  GPSStatus = "enabled"
	GPSDisabled GPSStatus = "disabled"
	GPSError    GPSStatus = "error"
)

var (
	ErrInvalidIdentityMethod = errors.New("identity method must be abha or aadhaar")
	ErrInvalidAadhaar        = errors.New("aadhaar number must be 12 digits")
	ErrInvalidABHA           = errors.New("abha number must be 14 digits")

	aadhaarPattern = regexp.MustCompile(`^\d{12}$`)
	abhaPattern    = regexp.MustCompile(`^\d{14}$`)
)

type UserProfile struct {
	ID                 string             `json:"id" bson:"_id"`
	Name               string             `json:"name" bson:"name"`
	Phone              string             `json:"phone" bson:"phone" validate:"required,phone_number"`
	FamilyPhone        string             `json:"family_phone,omitempty" bson:"family_phone,omitempty"`
	SavedLocations     []SavedLocation    `json:"saved_locations" bson:"saved_locations"`
	ActiveLocationID   string             `json:"active_location_id,omitempty" bson:"active_location_id,omitempty"`
	CurrentLatitude    *float64           `json:"current_latitude,omitempty" bson:"current_latitude,omitempty"`
	CurrentLongitude   *float64           `json:"current_longitude,omitempty" bson:"current_longitude,omitempty"`
	CurrentAddress     string             `json:"current_address,omitempty" bson:"current_address,omitempty"`
	LastLocationUpdate *time.Time         `json:"last_location_update,omitempty" bson:"last_location_update,omitempty"`
	Identity           *IdentityLink      `json:"identity,omitempty" bson:"identity,omitempty"`
	Verification       VerificationStatus `json:"verification" bson:"verification"`
	DeviceTokens       []string           `json:"-" bson:"device_tokens,omitempty"`
	ProfileComplete    bool               `json:"profile_complete" bson:"profile_complete"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}

// LiveLocation returns the last broadcast position, if any.
func (t UserType) IsValid() bool {
	return t == UserTypePatient || t == UserTypeHospital || t == UserTypeDriver
}

func (u *UserProfile) LiveLocation() (GeoPoint, bool) {
	if u.CurrentLatitude == nil || u.CurrentLongitude == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: *u.CurrentLatitude, Lng: *u.CurrentLongitude}, true
}

func (u *UserProfile) ActiveLocation() *SavedLocation {
	for i := range u.SavedLocations {
		if u.SavedLocations[i].ID == u.ActiveLocationID {
			return &u.SavedLocations[i]
		}
	}
	if len(u.SavedLocations) > 0 {
		return &u.SavedLocations[0]
	}
	return nil
}

type SavedLocation struct {
	ID          string            `json:"id" bson:"id"`
	Type        SavedLocationType `json:"type" bson:"type" validate:"required,oneof=home work frequent"`
	Label       string            `json:"label" bson:"label"`
	Address     string            `json:"address" bson:"address"`
	Coordinates GeoPoint          `json:"coordinates" bson:"coordinates"`
	Accuracy    *float64          `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
}

// IdentityLink holds exactly one identity method and its value.
type IdentityLink struct {
	Method IdentityMethod `json:"method" bson:"method"`
	Value  string         `json:"value" bson:"value"`
}

func NewIdentityLink(method IdentityMethod, value string) (*IdentityLink, error) {
	link := &IdentityLink{Method: method, Value: strings.ReplaceAll(strings.TrimSpace(value), "-", "")}
	if err := link.Validate(); err != nil {
		return nil, err
	}
	return link, nil
}

func (l IdentityLink) Validate() error {
	switch l.Method {
	case IdentityMethodAadhaar:
		if !aadhaarPattern.MatchString(l.Value) {
			return ErrInvalidAadhaar
		}
	case IdentityMethodABHA:
		if !abhaPattern.MatchString(l.Value) {
			return ErrInvalidABHA
		}
	default:
		return ErrInvalidIdentityMethod
	}
	return nil
}

type VerificationStatus struct {
	ABHA          ABHAVerification `json:"abha" bson:"abha"`
	GPS           GPSStatus        `json:"gps" bson:"gps"`
	DeviceTrusted bool             `json:"device_trusted" bson:"device_trusted"`
}
