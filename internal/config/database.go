package config

import (
	"time"
)

type DatabaseConfig struct {
	URI                    string        `yaml:"uri"`
	Database               string        `yaml:"database"`
	Username               string        `yaml:"username"`
	Password               string        `yaml:"password"`
	AuthSource             string        `yaml:"auth_source"`
	MaxPoolSize            int           `yaml:"max_pool_size"`
	MinPoolSize            int           `yaml:"min_pool_size"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout"`
	SocketTimeout          time.Duration `yaml:"socket_timeout"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout"`
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:               getEnv("MONGODB_DATABASE", "swiftresponse"),
		Username:               getEnv("MONGODB_USERNAME", ""),
		Password:               getEnv("MONGODB_PASSWORD", ""),
		AuthSource:             getEnv("MONGODB_AUTH_SOURCE", "admin"),
		MaxPoolSize:            getEnvAsInt("MONGODB_MAX_POOL_SIZE", 50),
		MinPoolSize:            getEnvAsInt("MONGODB_MIN_POOL_SIZE", 2),
		ConnectTimeout:         getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
		SocketTimeout:          getEnvAsDuration("MONGODB_SOCKET_TIMEOUT", 15*time.Second),
		ServerSelectionTimeout: getEnvAsDuration("MONGODB_SERVER_SELECTION_TIMEOUT", 5*time.Second),
	}
}
