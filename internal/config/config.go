package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Backend REST contract (diagnosis oracle, recognition, booking)
	BackendBaseURL      string
	BackendTimeout      time.Duration
	PhoneRegion         string
	SmartWelcomeTimeout time.Duration
	EmergencyNumber     string

	// Durable session cache
	SessionBackend      string
	SessionTTL          time.Duration
	SessionTable        string
	OrchestratorIdleTTL time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisTLS            bool

	// Postgres archive + booking ledger
	DatabaseURL string

	// AWS (DynamoDB session backend, SQS booking events, S3 transcripts)
	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSEndpointOverride   string
	BookingEventsQueueURL string
	TranscriptBucket      string

	SessionTokenSecret string
	SessionTokenTTL    time.Duration
	CORSAllowedOrigins []string
	SessionOpenRate    float64
	SessionOpenBurst   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		BackendBaseURL:      getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
		BackendTimeout:      getEnvAsDuration("BACKEND_TIMEOUT", 20*time.Second),
		PhoneRegion:         strings.ToUpper(strings.TrimSpace(getEnv("PHONE_REGION", "IN"))),
		SmartWelcomeTimeout: getEnvAsDuration("SMART_WELCOME_TIMEOUT", 3*time.Second),
		EmergencyNumber:     getEnv("EMERGENCY_NUMBER", "112"),

		SessionBackend:      strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "redis"))),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SessionTable:        getEnv("SESSION_TABLE", "triage_sessions"),
		OrchestratorIdleTTL: getEnvAsDuration("ORCHESTRATOR_IDLE_TTL", 30*time.Minute),
		RedisAddr:           getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:   getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BookingEventsQueueURL: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),
		TranscriptBucket:      getEnv("TRANSCRIPT_BUCKET", ""),

		SessionTokenSecret: getEnv("SESSION_TOKEN_SECRET", ""),
		SessionTokenTTL:    getEnvAsDuration("SESSION_TOKEN_TTL", 24*time.Hour),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		SessionOpenRate:    getEnvAsFloat("SESSION_OPEN_RATE", 0.5),
		SessionOpenBurst:   getEnvAsInt("SESSION_OPEN_BURST", 5),
	}
}

// UsesAWS reports whether any configured component needs an AWS client.
func (c *Config) UsesAWS() bool {
	return c.SessionBackend == "dynamodb" ||
		strings.TrimSpace(c.BookingEventsQueueURL) != "" ||
		strings.TrimSpace(c.TranscriptBucket) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
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

// getEnvAsList splits a comma separated variable, dropping blanks.
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
