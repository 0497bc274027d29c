package config

type SMSConfig struct {
	// Provider is twilio, aws, functions or log.
	Provider string        `yaml:"provider"`
	Twilio   *TwilioConfig `yaml:"twilio"`
	AWS      *AWSSNSConfig `yaml:"aws"`
}

type TwilioConfig struct {
	AccountSID          string `yaml:"account_sid"`
	AuthToken           string `yaml:"auth_token"`
	FromNumber          string `yaml:"from_number"`
	MessagingServiceSID string `yaml:"messaging_service_sid"`
}

// AWSSNSConfig takes credentials from the default AWS chain.
type AWSSNSConfig struct {
	Region   string `yaml:"region"`
	SenderID string `yaml:"sender_id"`
	MaxPrice string `yaml:"max_price"`
}

func loadSMSConfig() *SMSConfig {
	return &SMSConfig{
		Provider: getEnv("SMS_PROVIDER", "log"),
		Twilio: &TwilioConfig{
			AccountSID:          getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:           getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber:          getEnv("TWILIO_FROM_NUMBER", ""),
			MessagingServiceSID: getEnv("TWILIO_MESSAGING_SERVICE_SID", ""),
		},
		AWS: &AWSSNSConfig{
			Region:   getEnv("AWS_REGION", "ap-south-1"),
			SenderID: getEnv("SMS_SENDER_ID", "SWIFTR"),
			MaxPrice: getEnv("AWS_SNS_MAX_PRICE", ""),
		},
	}
}
