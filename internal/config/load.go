package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults that make local development work out of the box. Secrets
	// (database URL, API keys) deliberately have no defaults.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("storage.bucket", "storybook")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.url_expiry_hours", 24)
	v.SetDefault("llm.story_model", "gemini-2.0-flash")
	v.SetDefault("llm.illustration_model", "imagen-3.0-generate-002")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("caption.model", "gpt-4o-mini")

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine; environment variables may carry
		// everything we need.
	}

	// Environment variables take precedence: STORYBOOK_DATABASE_URL,
	// STORYBOOK_LLM_GEMINI_API_KEY, etc.
	v.SetEnvPrefix("STORYBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly for Unmarshal to see
	// their environment values.
	for _, key := range []string{
		"database.url",
		"storage.endpoint",
		"storage.access_key",
		"storage.secret_key",
		"llm.gemini_api_key",
		"caption.api_key",
		"caption.base_url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
