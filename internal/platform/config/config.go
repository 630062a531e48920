package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string

	DatabaseDriver      string
	DatabaseDSN         string
	DatabaseAutoMigrate bool

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ResultsCacheTTL time.Duration

	AdminToken         string
	OutboxPollInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills in variables that are not already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	driver := strings.ToLower(envString("DATABASE_DRIVER", "postgres"))
	if driver != "postgres" && driver != "sqlite" {
		return Config{}, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", driver)
	}

	dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	}

	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := envDuration("RESULTS_CACHE_TTL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	if pollInterval <= 0 {
		return Config{}, errors.New("OUTBOX_POLL_INTERVAL must be positive")
	}

	return Config{
		ServiceName: envString("SERVICE_NAME", "voteboard"),
		HTTPPort:    envString("HTTP_PORT", "8080"),

		DatabaseDriver:      driver,
		DatabaseDSN:         dsn,
		DatabaseAutoMigrate: envBool("DATABASE_AUTO_MIGRATE", true),

		RedisAddr:       strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		ResultsCacheTTL: cacheTTL,

		AdminToken:         strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),
		OutboxPollInterval: pollInterval,

		LogLevel:  strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envString("LOG_FORMAT", "json")),
	}, nil
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", name, err)
	}
	return value, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
