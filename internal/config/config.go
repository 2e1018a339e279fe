package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sh4869221b/niconeon/internal/services/profile"
)

// SQL drivers accepted in DB_SQL_DRIVER
const (
	DriverPgx   = "pgx"
	DriverLibPQ = "postgres"
)

type Config struct {
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DBSQLDriver string

	ServerPort string
	ServerHost string

	// Comment source
	NiconicoBaseURL string
	NiconicoCookie  string
	FetchTimeout    time.Duration

	// Core tuning
	MaxSessions    int
	RuntimeProfile string

	// Observability
	JaegerEndpoint string
	TracingEnabled bool
	LogLevel       string
	LogFormat      string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	fetchSeconds, err := getEnvInt("FETCH_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	maxSessions, err := getEnvInt("MAX_SESSIONS", 256)
	if err != nil {
		return nil, err
	}
	tracing, err := getEnvBool("TRACING_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "niconeon"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		DBSQLDriver: strings.ToLower(getEnv("DB_SQL_DRIVER", DriverPgx)),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "localhost"),

		NiconicoBaseURL: strings.TrimRight(getEnv("NICONICO_BASE_URL", "https://www.nicovideo.jp"), "/"),
		NiconicoCookie:  getEnv("NICONICO_COOKIE", ""),
		FetchTimeout:    time.Duration(fetchSeconds) * time.Second,

		MaxSessions:    maxSessions,
		RuntimeProfile: getEnv("RUNTIME_PROFILE", profile.Balanced),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		TracingEnabled: tracing,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the server cannot start with
func (c *Config) Validate() error {
	if c.DBSQLDriver != DriverPgx && c.DBSQLDriver != DriverLibPQ {
		return fmt.Errorf("DB_SQL_DRIVER must be %q or %q, got %q", DriverPgx, DriverLibPQ, c.DBSQLDriver)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive, got %s", c.FetchTimeout)
	}
	if _, err := profile.Baseline(c.RuntimeProfile); err != nil {
		return fmt.Errorf("RUNTIME_PROFILE: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// ListenAddr is the HTTP listen address
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
