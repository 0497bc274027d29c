package config

import (
	"time"
)

const (
	RealtimeRedis = "redis"
	RealtimeMQTT  = "mqtt"
	RealtimeLocal = "local"
)

type RealtimeConfig struct {
	Backend string      `yaml:"backend"`
	MQTT    *MQTTConfig `yaml:"mqtt"`
}

type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	QoS            int           `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func loadRealtimeConfig() *RealtimeConfig {
	return &RealtimeConfig{
		Backend: getEnv("REALTIME_BACKEND", RealtimeRedis),
		MQTT: &MQTTConfig{
			Broker:         getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID:       getEnv("MQTT_CLIENT_ID", "swiftresponse"),
			Username:       getEnv("MQTT_USERNAME", ""),
			Password:       getEnv("MQTT_PASSWORD", ""),
			QoS:            getEnvAsInt("MQTT_QOS", 1),
			ConnectTimeout: getEnvAsDuration("MQTT_CONNECT_TIMEOUT", 10*time.Second),
		},
	}
}
