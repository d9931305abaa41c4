package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default allowed origins for development
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

type Config struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration

	DatabaseURL string

	JWTSecret    string
	TokenTTL     time.Duration
	CookieDomain string

	AllowedOrigins []string

	RedisURL     string
	RedisChannel string

	LogLevel  string
	LogFormat string

	ReminderInterval time.Duration
	DueSoonWindow    time.Duration
}

// Load reads the optional .env file and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:             getString("PORT", "3000"),
		GinMode:          getString("GIN_MODE", "release"),
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         getDuration("TOKEN_TTL", 168*time.Hour),
		CookieDomain:     os.Getenv("COOKIE_DOMAIN"),
		AllowedOrigins:   allowedOrigins(),
		RedisURL:         os.Getenv("REDIS_URL"),
		RedisChannel:     getString("REDIS_CHANNEL", "taskforge:events"),
		LogLevel:         getString("LOG_LEVEL", "info"),
		LogFormat:        getString("LOG_FORMAT", "text"),
		ReminderInterval: getDuration("REMINDER_INTERVAL", 15*time.Minute),
		DueSoonWindow:    getDuration("DUE_SOON_WINDOW", 24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			getString("DB_HOST", "localhost"),
			getString("DB_PORT", "5432"),
			getString("DB_USER", "taskforge"),
			os.Getenv("DB_PASSWORD"),
			getString("DB_NAME", "taskforge"),
			getString("DB_SSLMODE", "disable"),
		)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}

	return cfg, nil
}

func (c *Config) Address() string {
	return ":" + c.Port
}

func allowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
// Unparsable and non-positive values fall back.
func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(val)
	if err != nil {
		seconds, convErr := strconv.Atoi(val)
		if convErr != nil {
			return fallback
		}
		parsed = time.Duration(seconds) * time.Second
	}

	if parsed <= 0 {
		return fallback
	}
	return parsed
}
