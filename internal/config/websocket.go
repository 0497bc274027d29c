package config

import (
	"time"
)

// WebSocketConfig is served on the API port. Mobile clients on patchy
// networks need a ping well under the usual 60s proxy idle timeout.
type WebSocketConfig struct {
	Path              string        `yaml:"path"`
	ReadBufferSize    int           `yaml:"read_buffer_size"`
	WriteBufferSize   int           `yaml:"write_buffer_size"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	PongTimeout       time.Duration `yaml:"pong_timeout"`
	MaxConnections    int           `yaml:"max_connections"`
	EnableCompression bool          `yaml:"enable_compression"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

func loadWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		Path:              getEnv("WS_PATH", "/ws"),
		ReadBufferSize:    getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
		WriteBufferSize:   getEnvAsInt("WS_WRITE_BUFFER_SIZE", 2048),
		HandshakeTimeout:  getEnvAsDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
		PingInterval:      getEnvAsDuration("WS_PING_INTERVAL", 25*time.Second),
		PongTimeout:       getEnvAsDuration("WS_PONG_TIMEOUT", 30*time.Second),
		MaxConnections:    getEnvAsInt("WS_MAX_CONNECTIONS", 5000),
		EnableCompression: getEnvAsBool("WS_ENABLE_COMPRESSION", false),
		AllowedOrigins:    getEnvAsSlice("WS_ALLOWED_ORIGINS", []string{"*"}),
	}
}
