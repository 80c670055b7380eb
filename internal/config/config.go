package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/opentrusty/storegate/internal/validation"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Store         StoreConfig
	Auth          AuthConfig
	Gateway       GatewayConfig
	Admin         AdminConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `validate:"gt=0"`
	Burst             int     `validate:"gte=1"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           string `validate:"required,numeric"`
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds postgres configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int    `validate:"gte=1"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime time.Duration
}

// StoreConfig selects the storage driver
type StoreConfig struct {
	Driver     string `validate:"oneof=postgres sqlite"`
	SQLitePath string
}

// AuthConfig holds access token verification settings
type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	CookieName string `validate:"required"`
	Leeway     time.Duration
}

// GatewayConfig holds enforcement settings
type GatewayConfig struct {
	RoutePrefix   string `validate:"required,startswith=/"`
	BaseDomains   []string
	LookupTimeout time.Duration `validate:"gt=0"`
	// ReadOnlyOperations may still run during the grace window.
	ReadOnlyOperations []string
	// MutationPrefix is the API prefix guarded by the mutation guard.
	MutationPrefix string `validate:"required,startswith=/"`
}

// AdminConfig holds the platform administrator list
type AdminConfig struct {
	SuperAdminEmails []string `validate:"dive,email"`
}

// CORSConfig holds cross-origin settings for the API surface
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int `validate:"gte=0"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"oneof=debug info warn warning error"`
	LogFormat      string `validate:"oneof=json text"`
	OTELEnabled    bool
	OTELEndpoint   string
	OTELInsecure   bool
	SamplingRate   float64 `validate:"gte=0,lte=1"`
	ServiceName    string  `validate:"required"`
	ServiceVersion string
}

// Load loads configuration from environment variables.
// A .env file in the working directory, when present, is applied first
// without overriding variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv reads the configuration without validating it.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout:   parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:    parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
			RequestTimeout: parseDuration("SERVER_REQUEST_TIMEOUT", "30s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "storegate"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "storegate"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
			SQLitePath: getEnv("SQLITE_PATH", "storegate.db"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			JWTIssuer:  getEnv("JWT_ISSUER", ""),
			CookieName: getEnv("AUTH_COOKIE_NAME", "sb-access-token"),
			Leeway:     parseDuration("JWT_LEEWAY", "30s"),
		},
		Gateway: GatewayConfig{
			RoutePrefix:        getEnv("GATEWAY_ROUTE_PREFIX", "/dashboard"),
			BaseDomains:        parseList("GATEWAY_BASE_DOMAINS"),
			LookupTimeout:      parseDuration("GATEWAY_LOOKUP_TIMEOUT", "3s"),
			ReadOnlyOperations: parseList("GATEWAY_READ_ONLY_OPERATIONS"),
			MutationPrefix:     getEnv("GATEWAY_MUTATION_PREFIX", "/api/v1/stores"),
		},
		Admin: AdminConfig{
			SuperAdminEmails: parseList("SUPER_ADMIN_EMAILS"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   parseList("CORS_ALLOWED_ORIGINS"),
			AllowCredentials: parseBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           parseInt("CORS_MAX_AGE", 300),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: parseFloat("RATELIMIT_RPS", 10),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
		Observability: ObservabilityConfig{
			LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
			LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			OTELEndpoint:   getEnv("OTEL_EXPORTER_ENDPOINT", ""),
			OTELInsecure:   parseBool("OTEL_EXPORTER_INSECURE", false),
			SamplingRate:   parseFloat("OTEL_SAMPLING_RATE", 1),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "storegate"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.Store.Driver == DriverPostgres && c.Database.Password == "" {
		return errors.New("DB_PASSWORD is required")
	}
	if c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}

// parseList splits a comma-separated variable, trimming entries and
// dropping blanks.
func parseList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
