package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	TargetingLatest = "latest"
	TargetingRecent = "recent"
)

type Config struct {
	Port             string
	DBUrl            string
	JWTSecret        string
	RedisAddr        string
	RedisPassword    string
	AdminEmail       string
	NotifyTargeting  string
	AppEnv           string
	LogLevel         string
	AllowedOrigins   string
	LiveBufferSize   int
	NotifyRetryTimes int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	targeting, err := normalizeTargeting(getEnv("NOTIFY_TARGETING", TargetingLatest))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DBUrl:            getEnv("DB_URL", ""),
		JWTSecret:        jwtSecret,
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		AdminEmail:       strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),
		NotifyTargeting:  targeting,
		AppEnv:           normalizeEnv(getEnv("APP_ENV", "production")),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins:   getEnv("ALLOWED_ORIGINS", "*"),
		LiveBufferSize:   getEnvInt("LIVE_BUFFER_SIZE", 64),
		NotifyRetryTimes: getEnvInt("NOTIFY_RETRY_ATTEMPTS", 3),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}

	var parsed int
	if _, err := fmt.Sscanf(strings.TrimSpace(value), "%d", &parsed); err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeTargeting(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "latest", "single":
		return TargetingLatest, nil
	case "recent", "multi", "fanout":
		return TargetingRecent, nil
	default:
		return "", fmt.Errorf("NOTIFY_TARGETING must be %q or %q, got %q", TargetingLatest, TargetingRecent, value)
	}
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

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}
