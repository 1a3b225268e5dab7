package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	PublicURL   string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (outbound message delivery)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUUID         string

	// Chat transport
	BotNumber string

	// Payment gateways
	PaystackSecretKey    string
	PaystackBaseURL      string
	FlutterwaveSecretKey string
	FlutterwaveBaseURL   string

	// Admin
	AdminSecret     string
	AdminSecretHash string

	// Timeout configuration
	SessionTTL     time.Duration
	CartTTL        time.Duration
	GatewayTimeout time.Duration
	HealthTimeout  time.Duration

	// Reconciliation configuration
	HealthCacheTTL    time.Duration
	ReconcileInterval time.Duration
	ReconcileWindow   time.Duration

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:8090"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUUID:         getEnv("PUBNUB_UUID", "ticketbot-server"),

		// Chat transport
		BotNumber: getEnv("BOT_NUMBER", "+14155238886"),

		// Gateways
		PaystackSecretKey:    getEnv("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL:      getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		FlutterwaveSecretKey: getEnv("FLW_SECRET_KEY", ""),
		FlutterwaveBaseURL:   getEnv("FLW_BASE_URL", "https://api.flutterwave.com/v3"),

		// Admin
		AdminSecret:     getEnv("ADMIN_SECRET", ""),
		AdminSecretHash: getEnv("ADMIN_SECRET_HASH", ""),

		// Timeouts
		SessionTTL:     getEnvAsDuration("SESSION_TTL", "30m"),
		CartTTL:        getEnvAsDuration("CART_TTL", "20m"),
		GatewayTimeout: getEnvAsDuration("GATEWAY_TIMEOUT", "10s"),
		HealthTimeout:  getEnvAsDuration("HEALTH_TIMEOUT", "5s"),

		// Reconciliation
		HealthCacheTTL:    getEnvAsDuration("HEALTH_CACHE_TTL", "60s"),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", "10m"),
		ReconcileWindow:   getEnvAsDuration("RECONCILE_WINDOW", "24h"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
