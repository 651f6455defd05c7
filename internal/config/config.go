package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Caption  CaptionConfig  `mapstructure:"caption"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// StorageConfig contains the object storage settings for photo and
// illustration binaries.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"   validate:"required"`
	AccessKey string `mapstructure:"access_key" validate:"required"`
	SecretKey string `mapstructure:"secret_key" validate:"required"`
	Bucket    string `mapstructure:"bucket"     validate:"required"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	// URLExpiryHours controls how long presigned GET URLs remain valid.
	URLExpiryHours int `mapstructure:"url_expiry_hours" validate:"gte=0"`
}

// LLMConfig contains the settings for the story and illustration models.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	StoryModel        string `mapstructure:"story_model" validate:"required"`
	IllustrationModel string `mapstructure:"illustration_model" validate:"required"`
	// MaxRetries is the number of retries for transient API failures.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
	// RetryDelaySeconds is the base delay for exponential backoff between retries.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// CaptionConfig contains the settings for the best-effort photo captioning
// call. Captioning is optional; when APIKey is empty the captioning pass is
// skipped entirely.
type CaptionConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}
