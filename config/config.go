// Package config provides configuration management for the application.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Gateway       GatewayConfig
	Conversations ConversationConfig
	Cache         CacheConfig
	Metrics       MetricsConfig
}

// GatewayConfig holds the LLM gateway endpoint configuration
type GatewayConfig struct {
	APIURL       string
	APIKey       string
	DefaultModel string
}

// ConversationConfig bounds the in-memory conversation store
type ConversationConfig struct {
	MaxConversations int
	MaxMessages      int
}

// CacheConfig controls the completion cache
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
	TTL        time.Duration
}

// MetricsConfig controls Prometheus metrics collection
type MetricsConfig struct {
	Enabled bool
}

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	// Best-effort .env load; absence is not an error
	_ = godotenv.Load()

	viper.SetDefault("CHATCORE_API_URL", "https://api.openai.com/v1")
	viper.SetDefault("CHATCORE_DEFAULT_MODEL", "gpt-3.5-turbo")
	viper.SetDefault("CHATCORE_MAX_CONVERSATIONS", 100)
	viper.SetDefault("CHATCORE_MAX_MESSAGES", 100)
	viper.SetDefault("CHATCORE_CACHE_ENABLED", false)
	viper.SetDefault("CHATCORE_CACHE_MAX_ENTRIES", 256)
	viper.SetDefault("CHATCORE_CACHE_TTL", "5m")
	viper.SetDefault("CHATCORE_METRICS_ENABLED", false)

	viper.AutomaticEnv()

	cfg := &Config{
		Gateway: GatewayConfig{
			APIURL:       viper.GetString("CHATCORE_API_URL"),
			APIKey:       viper.GetString("CHATCORE_API_KEY"),
			DefaultModel: viper.GetString("CHATCORE_DEFAULT_MODEL"),
		},
		Conversations: ConversationConfig{
			MaxConversations: viper.GetInt("CHATCORE_MAX_CONVERSATIONS"),
			MaxMessages:      viper.GetInt("CHATCORE_MAX_MESSAGES"),
		},
		Cache: CacheConfig{
			Enabled:    viper.GetBool("CHATCORE_CACHE_ENABLED"),
			MaxEntries: viper.GetInt("CHATCORE_CACHE_MAX_ENTRIES"),
			TTL:        viper.GetDuration("CHATCORE_CACHE_TTL"),
		},
		Metrics: MetricsConfig{
			Enabled: viper.GetBool("CHATCORE_METRICS_ENABLED"),
		},
	}

	return cfg, nil
}
