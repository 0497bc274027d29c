package routes

import (
	"github.com/gin-gonic/gin"

	handlers "swiftresponse/internal/handlers/shared"
	"swiftresponse/internal/middleware"
	"swiftresponse/internal/models"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Profile   *handlers.ProfileHandler
	Patient   *handlers.PatientHandler
	Emergency *handlers.EmergencyHandler
	Driver    *handlers.DriverHandler
}

type Limiters struct {
	SOS *middleware.RateLimiter
	OTP *middleware.RateLimiter
}

// SetupAuthRoutes sets up the public phone sign-in routes
func SetupAuthRoutes(r *gin.RouterGroup, h *handlers.AuthHandler, otpLimiter *middleware.RateLimiter) {
	auth := r.Group("/auth")
	{
		auth.POST("/otp/send", otpLimiter.Middleware(), h.SendOTP)
		auth.POST("/otp/verify", otpLimiter.Middleware(), h.VerifyOTP)
		auth.POST("/refresh", h.Refresh)
	}
}

// SetupPatientRoutes sets up profile, SOS and live location routes
func SetupPatientRoutes(r *gin.RouterGroup, profile *handlers.ProfileHandler, patient *handlers.PatientHandler, sosLimiter *middleware.RateLimiter, secret string) {
	me := r.Group("/profile")
	me.Use(middleware.AuthRequired(secret), middleware.PatientRequired())
	{
		me.GET("", profile.GetProfile)
		me.PUT("", profile.UpdateProfile)
		me.PUT("/locations", profile.SetSavedLocations)
		me.POST("/identity", profile.LinkIdentity)
		me.POST("/identity/skip", profile.SkipIdentity)
		me.PUT("/medical", profile.UpsertMedical)
	}

	sos := r.Group("/sos")
	sos.Use(middleware.AuthRequired(secret), middleware.PatientRequired())
	{
		sos.POST("", sosLimiter.Middleware(), patient.TriggerSOS)
		sos.POST("/arm", sosLimiter.Middleware(), patient.ArmSOS)
		sos.DELETE("/arm", patient.CancelSOS)
	}

	location := r.Group("/location")
	location.Use(middleware.AuthRequired(secret), middleware.PatientRequired())
	{
		location.POST("", patient.UpdateLocation)
		location.DELETE("", patient.StopLocation)
	}

	r.POST("/emergencies/:id/track", middleware.AuthRequired(secret), middleware.PatientRequired(), patient.TrackEmergency)
}

// SetupEmergencyRoutes sets up the record routes shared by every role
func SetupEmergencyRoutes(r *gin.RouterGroup, h *handlers.EmergencyHandler, profile *handlers.ProfileHandler, secret string) {
	authed := middleware.AuthRequired(secret)
	staff := middleware.RoleRequired(models.UserTypeHospital, models.UserTypeDriver)

	r.POST("/devices", authed, profile.RegisterDevice)

	emergencies := r.Group("/emergencies")
	emergencies.Use(authed)
	{
		emergencies.GET("", h.ListEmergencies)
		emergencies.GET("/:id", h.GetEmergency)
		emergencies.GET("/:id/events", h.AvailableEvents)
		emergencies.GET("/:id/hospitals", staff, h.Candidates)
		emergencies.POST("/:id/hospital", staff, h.ConfirmHospital)
		emergencies.GET("/:id/route", staff, h.Route)
		emergencies.POST("/:id/events", middleware.HospitalRequired(), h.Transition)
	}
}

// SetupDriverRoutes sets up presence, alert and trip routes
func SetupDriverRoutes(r *gin.RouterGroup, h *handlers.DriverHandler, secret string) {
	driver := r.Group("/driver")
	driver.Use(middleware.AuthRequired(secret), middleware.DriverRequired())
	{
		driver.GET("/session", h.GetSession)
		driver.POST("/online", h.GoOnline)
		driver.POST("/offline", h.GoOffline)
		driver.POST("/alerts/:id/accept", h.AcceptAlert)
		driver.POST("/alerts/:id/reject", h.RejectAlert)
		driver.POST("/trip/events", h.AdvanceTrip)
		driver.POST("/location", h.UpdateLocation)
	}
}

// Setup mounts every API group under /api/v1
func Setup(router *gin.Engine, h Handlers, limiters Limiters, secret string) {
	v1 := router.Group("/api/v1")
	{
		SetupAuthRoutes(v1, h.Auth, limiters.OTP)
		SetupPatientRoutes(v1, h.Profile, h.Patient, limiters.SOS, secret)
		SetupEmergencyRoutes(v1, h.Emergency, h.Profile, secret)
		SetupDriverRoutes(v1, h.Driver, secret)
	}
}
