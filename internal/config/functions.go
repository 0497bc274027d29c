package config

import (
	"time"
)

// FunctionsConfig points at the hosted send-sms and send-otp functions.
// An empty BaseURL disables them.
type FunctionsConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
	RemoteOTP  bool          `yaml:"remote_otp"`
}

func loadFunctionsConfig() *FunctionsConfig {
	return &FunctionsConfig{
		BaseURL:    getEnv("FUNCTIONS_BASE_URL", ""),
		APIKey:     getEnv("FUNCTIONS_API_KEY", ""),
		Timeout:    getEnvAsDuration("FUNCTIONS_TIMEOUT", 10*time.Second),
		RetryCount: getEnvAsInt("FUNCTIONS_RETRY_COUNT", 1),
		RemoteOTP:  getEnvAsBool("FUNCTIONS_REMOTE_OTP", false),
	}
}
