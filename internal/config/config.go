package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Auth     AuthConfig
	Policy   PolicyConfig
	External ExternalConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// AuthConfig holds token verification configuration. Tokens are issued by
// the external identity provider; this service only verifies them.
type AuthConfig struct {
	JWTSecret string
}

// ExternalConfig holds the base URLs of the external collaborators. An empty
// URL selects a local stub at wiring time.
type ExternalConfig struct {
	OCRBaseURL    string
	ExportBaseURL string
}

// ToleranceMode selects how the declared-vs-odometer distance deviation is
// measured.
type ToleranceMode string

const (
	TolerancePercent  ToleranceMode = "percent"
	ToleranceAbsolute ToleranceMode = "absolute"
)

// PolicyConfig holds the compliance policy knobs. The distance matching
// tolerance and external call budgets are policy, not constants.
type PolicyConfig struct {
	ToleranceMode  ToleranceMode
	TolerancePct   float64 // percent mode: allowed deviation, e.g. 5.0
	ToleranceKm    float64 // absolute mode: allowed deviation in km
	OCRTimeout     time.Duration
	ExportTimeout  time.Duration
	ExternalRetry  int // attempts per external call, including the first
	ScopeLockTTL   time.Duration
	AuditListLimit int
}

// Load loads configuration from the environment. A local .env file is
// applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "logbook"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "trip-logbook-core"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		Policy: PolicyConfig{
			ToleranceMode:  ToleranceMode(getEnv("POLICY_TOLERANCE_MODE", string(TolerancePercent))),
			TolerancePct:   getFloatEnv("POLICY_TOLERANCE_PCT", 5.0),
			ToleranceKm:    getFloatEnv("POLICY_TOLERANCE_KM", 2.0),
			OCRTimeout:     getDurationEnv("POLICY_OCR_TIMEOUT", 5*time.Second),
			ExportTimeout:  getDurationEnv("POLICY_EXPORT_TIMEOUT", 15*time.Second),
			ExternalRetry:  getIntEnv("POLICY_EXTERNAL_RETRY", 3),
			ScopeLockTTL:   getDurationEnv("POLICY_SCOPE_LOCK_TTL", 30*time.Second),
			AuditListLimit: getIntEnv("POLICY_AUDIT_LIST_LIMIT", 200),
		},
		External: ExternalConfig{
			OCRBaseURL:    getEnv("OCR_SERVICE_URL", ""),
			ExportBaseURL: getEnv("EXPORT_SERVICE_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
