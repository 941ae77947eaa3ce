package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	Log         LogConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Notify      NotifyConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// AuthConfig holds bearer token configuration for the local gateway.
// An empty secret disables authentication.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// RateLimitConfig holds local gateway rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// NotifyConfig holds settings of the notify function
type NotifyConfig struct {
	DefaultChannel string
	Username       string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8081")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("JWT_ISSUER", "invocation-adapter")
	v.SetDefault("RATE_LIMIT_RPS", 50.0)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("NOTIFY_DEFAULT_CHANNEL", "#general")
	v.SetDefault("NOTIFY_USERNAME", "notifier")

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Notify: NotifyConfig{
			DefaultChannel: v.GetString("NOTIFY_DEFAULT_CHANNEL"),
			Username:       v.GetString("NOTIFY_USERNAME"),
		},
	}

	return config, nil
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
