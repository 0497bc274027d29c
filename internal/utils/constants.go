package utils

import "time"

// Application Constants
const (
	AppName    = "SwiftResponse"
	AppVersion = "1.0.0"

	DefaultCountryCode = "+91"
	DefaultTimeZone    = "Asia/Kolkata"

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour
	OTPLength          = 6
	OTPExpiry          = 10 * time.Minute

	// Dispatch
	SOSCountdownSeconds         = 10
	DriverAlertCountdownSeconds = 30
	DriverBroadcastInterval     = 5 * time.Second
	PatientBroadcastInterval    = 30 * time.Second
	AlertRecencyWindow          = 5 * time.Minute
	HospitalInitialLoadWindow   = time.Hour
	HospitalInitialLoadLimit    = 3
	DefaultAverageSpeedKMH      = 30.0
	MaxAcceptableAccuracyM      = 500.0

	// Rate Limiting
	SOSRateLimit = "10-M"
	OTPRateLimit = "3-M"
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Cache Keys
const (
	CacheEmergencyPrefix     = "emergency:"
	CacheDriverSessionPrefix = "driver_session:"
	CacheOTPPrefix           = "otp:"
	CacheGeocodePrefix       = "geocode:"
	CacheCandidatesPrefix    = "candidates:"

	GeocodeCacheTTL   = 24 * time.Hour
	CandidateCacheTTL = 30 * time.Second
)

// Collections
const (
	CollectionUsers           = "users"
	CollectionMedicalProfiles = "medical_profiles"
	CollectionDrivers         = "drivers"
	CollectionHospitals       = "hospitals"
)

// Websocket rooms
const (
	RoomUserPrefix      = "user_"
	RoomHospitalPrefix  = "hospital_"
	RoomEmergencyPrefix = "emergency_"
	RoomDriversOnline   = "drivers_online"
)

// Geographic Constants
const (
	EarthRadiusKM = 6371.0
)
