package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server and the operator CLI read from the environment.
type Config struct {
	DatabaseURL string
	ServerAddr  string
	GinMode     string

	JWTSecret string
	TokenTTL  time.Duration

	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxLifetime   time.Duration
	DBConnectRetries    int
	DBConnectRetryDelay time.Duration
	DBAutoMigrate       bool
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET environment variable is required")
)

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] config: no .env file found, using process environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		DBMaxOpenConns:      getEnvInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:      getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime:   getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		DBConnectRetries:    getEnvInt("DB_CONNECT_RETRIES", 10),
		DBConnectRetryDelay: getEnvDuration("DB_CONNECT_RETRY_DELAY", 5*time.Second),
		DBAutoMigrate:       getEnvBool("DB_AUTO_MIGRATE", true),
	}
}

// Validate reports the first required key that is missing.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
