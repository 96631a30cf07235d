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
	DatabaseURL   string

	// Session-token auth
	AuthJWTSecret string

	// Payment processor
	StripeSecretKey     string
	StripeDryRun        bool
	Currency            string
	ProcessorRateBps    int
	ProcessorFlatCents  int
	PlatformFeeBps      int
	MaxSessionPriceCts  int

	// Meeting rooms
	DailyAPIKey      string
	DailyBaseURL     string
	MeetingRoomTTL   time.Duration

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string

	// AWS (SES)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Matching assistant
	GeminiAPIKey      string
	GeminiModelID     string
	AssistantHistoryTTL time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// HTTP hardening
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "https://mentoji.com"), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		StripeSecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
		StripeDryRun:       getEnvAsBool("STRIPE_DRY_RUN", false),
		Currency:           strings.ToLower(getEnv("CURRENCY", "usd")),
		ProcessorRateBps:   getEnvAsInt("PROCESSOR_RATE_BPS", 290),
		ProcessorFlatCents: getEnvAsInt("PROCESSOR_FLAT_CENTS", 30),
		PlatformFeeBps:     getEnvAsInt("PLATFORM_FEE_BPS", 1000),
		MaxSessionPriceCts: getEnvAsInt("MAX_SESSION_PRICE_CENTS", 200000),

		DailyAPIKey:    getEnv("DAILY_API_KEY", ""),
		DailyBaseURL:   getEnv("DAILY_BASE_URL", "https://api.daily.co"),
		MeetingRoomTTL: getEnvAsDuration("MEETING_ROOM_TTL", 24*time.Hour),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "bookings@mentoji.com"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MentoJi"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", "bookings@mentoji.com"),
		SESFromName:       getEnv("SES_FROM_NAME", "MentoJi"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		AssistantHistoryTTL: getEnvAsDuration("ASSISTANT_HISTORY_TTL", 24*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),
	}
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
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
