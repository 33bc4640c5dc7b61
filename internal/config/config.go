package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the storefront client.
type Config struct {
	App     AppConfig
	API     APIConfig
	Session SessionConfig
	Redis   RedisConfig
	Logger  LoggerConfig
}

// AppConfig controls client-level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// APIConfig locates the marketplace backend.
type APIConfig struct {
	BaseURL               string
	RequestTimeoutSeconds int
}

// SessionConfig controls where the durable session mirror lives.
type SessionConfig struct {
	// Backend is "file" or "redis".
	Backend string
	// Dir is the session directory for the file backend; empty means the
	// user config dir.
	Dir string
	// RedisKey is the hash key for the redis backend.
	RedisKey string
}

// RedisConfig holds Redis connection values for the redis session backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "storefront-client"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		API: APIConfig{
			BaseURL:               getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
			RequestTimeoutSeconds: getEnvAsInt("API_REQUEST_TIMEOUT_SECONDS", 15),
		},
		Session: SessionConfig{
			Backend:  getEnv("SESSION_BACKEND", "file"),
			Dir:      os.Getenv("SESSION_DIR"),
			RedisKey: getEnv("SESSION_REDIS_KEY", "storefront:session"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Session.Backend != "file" && cfg.Session.Backend != "redis" {
		return nil, fmt.Errorf("invalid SESSION_BACKEND: %q", cfg.Session.Backend)
	}

	return cfg, nil
}

// RequestTimeout returns the configured request timeout duration.
func (a APIConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
