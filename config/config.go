// Package config loads service configuration from the environment, with a
// local .env file honored for development. Optional backends (Redis, MinIO)
// are left empty when unconfigured; the wiring layer falls back to in-memory
// stores.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/A-calculus/personalisedU/jobs"
)

// Model provider identifiers accepted by MODEL_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// defaultJobServiceURL is the multiagent execution service endpoint.
const defaultJobServiceURL = "https://multiagent.aixblock.io/api/v1"

// MinioConfig carries the artifact store connection settings. An empty
// Endpoint disables MinIO.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Config is the fully resolved service configuration.
type Config struct {
	ListenAddr string

	TelegramToken string

	ModelProvider   string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string

	JobServiceURL      string
	PlanTemplateID     string
	CalendarTemplateID string
	PollInterval       time.Duration
	PollMaxAttempts    int

	RedisURL string
	Minio    MinioConfig

	ContextTTL time.Duration
	LinkTTL    time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		ModelProvider:   getEnv("MODEL_PROVIDER", ProviderGemini),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),

		JobServiceURL:      getEnv("JOB_SERVICE_URL", defaultJobServiceURL),
		PlanTemplateID:     os.Getenv("PLAN_TEMPLATE_ID"),
		CalendarTemplateID: os.Getenv("CALENDAR_TEMPLATE_ID"),
		PollInterval:       getDuration("JOB_POLL_INTERVAL", jobs.DefaultPollInterval),
		PollMaxAttempts:    getInt("JOB_MAX_ATTEMPTS", jobs.DefaultMaxAttempts),

		RedisURL: os.Getenv("REDIS_URL"),
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "personalisedu"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
		},

		ContextTTL: getDuration("CONTEXT_TTL", time.Hour),
		LinkTTL:    getDuration("CALENDAR_LINK_TTL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	switch c.ModelProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.ModelProvider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", c.ModelProvider)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for provider %q", c.ModelProvider)
		}
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.ModelProvider)
	}
	if c.PlanTemplateID == "" {
		return fmt.Errorf("PLAN_TEMPLATE_ID is required")
	}
	if c.CalendarTemplateID == "" {
		return fmt.Errorf("CALENDAR_TEMPLATE_ID is required")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
