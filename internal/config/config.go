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

type Config struct {
	Port         string
	DBUrl        string
	DBMaxConns   int32
	DBMinConns   int32
	JWTSecret    string
	AppEnv       string
	EnableDocs   bool
	WriteTimeout time.Duration
	TypingExpiry time.Duration
	PollInterval time.Duration
}

// MigrateConfig is the subset the migration runner needs; unlike the
// server it has no use for a JWT secret.
type MigrateConfig struct {
	DBUrl          string
	MigrationsPath string
	AppEnv         string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DBUrl:        getEnv("DB_URL", ""),
		DBMaxConns:   getEnvInt32("DB_MAX_CONNS", 10),
		DBMinConns:   getEnvInt32("DB_MIN_CONNS", 2),
		JWTSecret:    jwtSecret,
		AppEnv:       normalizeEnv(getEnv("APP_ENV", "production")),
		EnableDocs:   getEnvBool("ENABLE_API_DOCS", false),
		WriteTimeout: getEnvDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		TypingExpiry: getEnvDuration("TYPING_EXPIRY", 5*time.Second),
		PollInterval: getEnvDuration("POLL_INTERVAL", 30*time.Second),
	}, nil
}

func LoadMigrateConfig() (*MigrateConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dbUrl := getEnv("DB_URL", "")
	if dbUrl == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}

	return &MigrateConfig{
		DBUrl:          dbUrl,
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		AppEnv:         normalizeEnv(getEnv("APP_ENV", "production")),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt32(key string, fallback int32) int32 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	if parsed, err := strconv.ParseInt(value, 10, 32); err == nil && parsed > 0 {
		return int32(parsed)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}
