package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Seat reservation configuration
	Reservation ReservationConfig

	// Email verification configuration
	Verification VerificationConfig

	// Redis seat map cache configuration
	Redis RedisConfig

	// RabbitMQ event publishing configuration
	RabbitMQ RabbitMQConfig

	// SMTP configuration
	SMTP SMTPConfig

	// Location sync configuration
	Geo GeoConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	Timezone    string // IANA zone used for calendar dates, e.g. America/Santiago
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
}

// ReservationConfig controls the seat hold lifecycle
type ReservationConfig struct {
	HoldTTL        time.Duration
	DirectConfirm  bool   // legacy flow: create confirmed reservations without a payment step
	ExpirySchedule string // cron spec (with seconds) for the hold expiry sweep
	ExpiryBatch    int
}

// VerificationConfig holds email verification code configuration
type VerificationConfig struct {
	CodeLength              int
	Expiry                  time.Duration
	MaxAttempts             int
	RateLimit               int
	RateWindow              time.Duration
	UnverifiedUserTTL       time.Duration
	CleanupSchedule         string
	ReturnCodeInDevelopment bool
}

// RedisConfig holds the seat map cache connection
type RedisConfig struct {
	URL        string // empty disables the cache
	SeatMapTTL time.Duration
}

// RabbitMQConfig holds reservation event publishing configuration
type RabbitMQConfig struct {
	URL      string // empty disables publishing
	Exchange string
}

// SMTPConfig holds outgoing mail configuration
type SMTPConfig struct {
	Mode     string // "dev" logs messages, "production" sends them
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// GeoConfig holds external location API configuration
type GeoConfig struct {
	RestCountriesURL string
	GeoDBURL         string
	GeoDBHost        string
	GeoDBAPIKey      string
	MinPopulation    int
	RequestTimeout   time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := fromEnv()

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadForTool loads configuration for the command line tools, which only need the
// database and the calendar timezone. A non-empty databaseURL overrides DATABASE_URL.
func LoadForTool(databaseURL string) (*Config, error) {
	config := fromEnv()
	if databaseURL != "" {
		config.Database.URL = databaseURL
	}

	if config.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set and -database-url was not provided")
	}
	if _, err := time.LoadLocation(config.Server.Timezone); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", config.Server.Timezone, err)
	}

	return config, nil
}

func fromEnv() *Config {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Timezone:    getEnv("APP_TIMEZONE", "America/Santiago"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Request-ID"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 10),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Reservation: ReservationConfig{
			HoldTTL:        time.Duration(getEnvAsInt("RESERVATION_HOLD_TTL_MINUTES", 15)) * time.Minute,
			DirectConfirm:  getEnvAsBool("RESERVATION_DIRECT_CONFIRM", false),
			ExpirySchedule: getEnv("RESERVATION_EXPIRY_SCHEDULE", "0 * * * * *"), // every minute
			ExpiryBatch:    getEnvAsInt("RESERVATION_EXPIRY_BATCH", 100),
		},
		Verification: VerificationConfig{
			CodeLength:              getEnvAsInt("VERIFICATION_CODE_LENGTH", 6),
			Expiry:                  time.Duration(getEnvAsInt("VERIFICATION_EXPIRY_MINUTES", 2)) * time.Minute,
			MaxAttempts:             getEnvAsInt("VERIFICATION_MAX_ATTEMPTS", 3),
			RateLimit:               getEnvAsInt("VERIFICATION_RATE_LIMIT", 3),
			RateWindow:              time.Duration(getEnvAsInt("VERIFICATION_RATE_WINDOW_MINUTES", 10)) * time.Minute,
			UnverifiedUserTTL:       time.Duration(getEnvAsInt("UNVERIFIED_USER_TTL_HOURS", 24)) * time.Hour,
			CleanupSchedule:         getEnv("VERIFICATION_CLEANUP_SCHEDULE", "0 0 3 * * *"), // 3 AM daily
			ReturnCodeInDevelopment: getEnvAsBool("VERIFICATION_RETURN_CODE_IN_DEV", true),
		},
		Redis: RedisConfig{
			URL:        getEnv("REDIS_URL", ""),
			SeatMapTTL: time.Duration(getEnvAsInt("SEAT_MAP_CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "reservation_topic"),
		},
		SMTP: SMTPConfig{
			Mode:     getEnv("SMTP_MODE", "dev"),
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@busia.local"),
			FromName: getEnv("SMTP_FROM_NAME", "Busia Pasajes"),
		},
		Geo: GeoConfig{
			RestCountriesURL: getEnv("RESTCOUNTRIES_URL", "https://restcountries.com/v3.1/all"),
			GeoDBURL:         getEnv("GEODB_URL", "https://wft-geo-db.p.rapidapi.com/v1/geo/cities"),
			GeoDBHost:        getEnv("GEODB_HOST", "wft-geo-db.p.rapidapi.com"),
			GeoDBAPIKey:      getEnv("GEODB_API_KEY", ""),
			MinPopulation:    getEnvAsInt("GEODB_MIN_POPULATION", 100000),
			RequestTimeout:   time.Duration(getEnvAsInt("GEO_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Server.Timezone, err)
	}

	if c.Reservation.HoldTTL <= 0 {
		return fmt.Errorf("RESERVATION_HOLD_TTL_MINUTES must be positive")
	}

	if c.Verification.CodeLength < 4 || c.Verification.CodeLength > 10 {
		return fmt.Errorf("VERIFICATION_CODE_LENGTH must be between 4 and 10")
	}

	// SMTP credentials only matter when mail is really sent
	if c.SMTP.Mode == "production" {
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is required in production mode")
		}
	} else if c.SMTP.Mode != "dev" {
		return fmt.Errorf("invalid SMTP mode: %s (must be 'dev' or 'production')", c.SMTP.Mode)
	}

	return nil
}

// Location returns the configured time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
