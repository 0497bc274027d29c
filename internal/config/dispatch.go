package config

import (
	"time"
)

type DispatchConfig struct {
	SOSCountdownSeconds    int           `yaml:"sos_countdown_seconds"`
	AlertCountdownSeconds  int           `yaml:"alert_countdown_seconds"`
	CountdownTick          time.Duration `yaml:"countdown_tick"`
	BroadcastDriverWindow  time.Duration `yaml:"broadcast_driver_window"`
	BroadcastPatientWindow time.Duration `yaml:"broadcast_patient_window"`
	RecencyWindow          time.Duration `yaml:"recency_window"`
	InitialLoadWindow      time.Duration `yaml:"initial_load_window"`
	InitialLoadLimit       int           `yaml:"initial_load_limit"`
	RegionSouth            float64       `yaml:"region_south"`
	RegionWest             float64       `yaml:"region_west"`
	RegionNorth            float64       `yaml:"region_north"`
	RegionEast             float64       `yaml:"region_east"`
	MaxAccuracyMeters      float64       `yaml:"max_accuracy_meters"`
	RoutingTimeout         time.Duration `yaml:"routing_timeout"`
	GeocodeTimeout         time.Duration `yaml:"geocode_timeout"`
	AverageSpeedKMH        float64       `yaml:"average_speed_kmh"`
	StaleAfter             time.Duration `yaml:"stale_after"`
	MonitorSchedule        string        `yaml:"monitor_schedule"`
	DriverSessionTTL       time.Duration `yaml:"driver_session_ttl"`
}

func loadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		SOSCountdownSeconds:    getEnvAsInt("SOS_COUNTDOWN_SECONDS", 10),
		AlertCountdownSeconds:  getEnvAsInt("ALERT_COUNTDOWN_SECONDS", 30),
		CountdownTick:          getEnvAsDuration("COUNTDOWN_TICK", time.Second),
		BroadcastDriverWindow:  getEnvAsDuration("BROADCAST_DRIVER_WINDOW", 5*time.Second),
		BroadcastPatientWindow: getEnvAsDuration("BROADCAST_PATIENT_WINDOW", 30*time.Second),
		RecencyWindow:          getEnvAsDuration("ALERT_RECENCY_WINDOW", 5*time.Minute),
		InitialLoadWindow:      getEnvAsDuration("HOSPITAL_INITIAL_LOAD_WINDOW", time.Hour),
		InitialLoadLimit:       getEnvAsInt("HOSPITAL_INITIAL_LOAD_LIMIT", 3),
		RegionSouth:            getEnvAsFloat64("REGION_SOUTH", 6.0),
		RegionWest:             getEnvAsFloat64("REGION_WEST", 68.0),
		RegionNorth:            getEnvAsFloat64("REGION_NORTH", 37.5),
		RegionEast:             getEnvAsFloat64("REGION_EAST", 97.5),
		MaxAccuracyMeters:      getEnvAsFloat64("MAX_ACCURACY_METERS", 500),
		RoutingTimeout:         getEnvAsDuration("ROUTING_TIMEOUT", 3*time.Second),
		GeocodeTimeout:         getEnvAsDuration("GEOCODE_TIMEOUT", 3*time.Second),
		AverageSpeedKMH:        getEnvAsFloat64("AVERAGE_SPEED_KMH", 30),
		StaleAfter:             getEnvAsDuration("STALE_PENDING_AFTER", 10*time.Minute),
		MonitorSchedule:        getEnv("MONITOR_SCHEDULE", "@every 1m"),
		DriverSessionTTL:       getEnvAsDuration("DRIVER_SESSION_TTL", 12*time.Hour),
	}
}
