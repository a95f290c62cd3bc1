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

	// Redis configuration
	Redis RedisConfig

	// Booking configuration
	Booking BookingConfig

	// Queue configuration
	Queue QueueConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BookingConfig holds booking-core tunables
type BookingConfig struct {
	SeatHoldTTL    time.Duration // how long a seat hold shields a pending booking
	LockTTL        time.Duration // scope lock lifetime; must outlive the critical section
	MaxRetries     int           // transient-failure retry budget for createBooking
	RetryBaseDelay time.Duration // first retry delay, doubled per attempt
	RetryMaxDelay  time.Duration // cap on the retry delay
	MaxSeats       int           // max seats per booking request
}

// QueueConfig holds background queue tunables
type QueueConfig struct {
	TickInterval    time.Duration // dispatcher poll interval
	DefaultAttempts int           // default max attempts per job
	DefaultBackoff  time.Duration // default base backoff delay
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Booking: BookingConfig{
			SeatHoldTTL:    time.Duration(getEnvAsInt("SEAT_HOLD_TTL_MINUTES", 15)) * time.Minute,
			LockTTL:        time.Duration(getEnvAsInt("SEAT_LOCK_TTL_SECONDS", 30)) * time.Second,
			MaxRetries:     getEnvAsInt("BOOKING_MAX_RETRIES", 3),
			RetryBaseDelay: time.Duration(getEnvAsInt("BOOKING_RETRY_BASE_MS", 100)) * time.Millisecond,
			RetryMaxDelay:  time.Duration(getEnvAsInt("BOOKING_RETRY_MAX_MS", 2000)) * time.Millisecond,
			MaxSeats:       getEnvAsInt("BOOKING_MAX_SEATS", 10),
		},
		Queue: QueueConfig{
			TickInterval:    time.Duration(getEnvAsInt("QUEUE_TICK_MS", 100)) * time.Millisecond,
			DefaultAttempts: getEnvAsInt("QUEUE_DEFAULT_ATTEMPTS", 3),
			DefaultBackoff:  time.Duration(getEnvAsInt("QUEUE_DEFAULT_BACKOFF_MS", 2000)) * time.Millisecond,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if config.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a fallback default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice gets an environment variable as a comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
