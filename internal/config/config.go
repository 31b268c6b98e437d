package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	ClinicName      string
	ClinicTimezone  string
	HandoffPhone    string
	BookingWindow   int
	ChatDateHorizon int
	SlotInterval    time.Duration
	SlotOccupancy   string

	DatabaseURL        string
	DBMaxConns         int
	DBRetryMaxAttempts int
	DBRetryBaseDelay   time.Duration

	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionBackend     string
	SessionIdleTimeout time.Duration

	ConversationQueue    string
	ConversationQueueURL string
	WorkerCount          int
	WhatsAppVerifyToken  string
	WhatsAppAppSecret    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	CORSAllowedOrigins []string
	ChatRateLimitRPS   float64
	ChatRateLimitBurst int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		ClinicName:      getEnv("CLINIC_NAME", "Agenda Beauty"),
		ClinicTimezone:  getEnv("CLINIC_TIMEZONE", "America/Sao_Paulo"),
		HandoffPhone:    getEnv("HANDOFF_PHONE", ""),
		BookingWindow:   getEnvAsInt("BOOKING_WINDOW_DAYS", 30),
		ChatDateHorizon: getEnvAsInt("CHAT_DATE_HORIZON_DAYS", 7),
		SlotInterval:    getEnvAsMinDuration("SLOT_INTERVAL", 30*time.Minute, time.Minute),
		SlotOccupancy:   strings.ToLower(getEnv("SLOT_OCCUPANCY", "point")),

		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBMaxConns:         getEnvAsInt("DB_MAX_CONNS", 20),
		DBRetryMaxAttempts: getEnvAsInt("DB_RETRY_MAX_ATTEMPTS", 3),
		DBRetryBaseDelay:   getEnvAsDuration("DB_RETRY_BASE_DELAY", 100*time.Millisecond),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheTTL:      getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SessionBackend:     strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

		ConversationQueue:    strings.ToLower(getEnv("CONVERSATION_QUEUE", "memory")),
		ConversationQueueURL: getEnv("CONVERSATION_QUEUE_URL", ""),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 2),
		WhatsAppVerifyToken:  getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:    getEnv("WHATSAPP_APP_SECRET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ChatRateLimitRPS:   getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 5),
		ChatRateLimitBurst: getEnvAsInt("CHAT_RATE_LIMIT_BURST", 10),
	}
}

// Location resolves ClinicTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsMinDuration falls back to the default when the value is below floor.
func getEnvAsMinDuration(key string, defaultValue, floor time.Duration) time.Duration {
	value := getEnvAsDuration(key, defaultValue)
	if value < floor {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
