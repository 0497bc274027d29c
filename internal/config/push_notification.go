package config

// PushConfig covers hospital device alerts. Provider is fcm, apns or log.
type PushConfig struct {
	Provider string      `yaml:"provider"`
	FCM      *FCMConfig  `yaml:"fcm"`
	APNS     *APNSConfig `yaml:"apns"`
}

type FCMConfig struct {
	ProjectID   string `yaml:"project_id"`
	Credentials string `yaml:"credentials_file"`
}

// APNSConfig uses token based auth with a .p8 key.
type APNSConfig struct {
	KeyFile    string `yaml:"key_file"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	BundleID   string `yaml:"bundle_id"`
	Production bool   `yaml:"production"`
}

func loadPushConfig() *PushConfig {
	cfg := &PushConfig{
		Provider: getEnv("PUSH_PROVIDER", "log"),
		FCM: &FCMConfig{
			ProjectID:   getEnv("FCM_PROJECT_ID", ""),
			Credentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		APNS: &APNSConfig{
			KeyFile:    getEnv("APNS_KEY_FILE", ""),
			KeyID:      getEnv("APNS_KEY_ID", ""),
			TeamID:     getEnv("APNS_TEAM_ID", ""),
			BundleID:   getEnv("APNS_BUNDLE_ID", "in.swiftresponse.hospital"),
			Production: IsProduction(),
		},
	}
	if v := getEnv("APNS_PRODUCTION", ""); v != "" {
		cfg.APNS.Production = getEnvAsBool("APNS_PRODUCTION", cfg.APNS.Production)
	}
	return cfg
}
