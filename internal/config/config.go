// Package config loads procura's settings from an optional YAML file,
// PROCURA_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted by the provider key.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// ErrMissingCredential is returned by Load when the selected provider has
// no API key.
var ErrMissingCredential = errors.New("missing extraction service credential")

// Config holds all configuration for the application
type Config struct {
	Provider     string             `mapstructure:"provider"`
	Gemini       GeminiConfig       `mapstructure:"gemini"`
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Log          LogConfig          `mapstructure:"log"`
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API configuration
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// OrchestratorConfig bounds fan-out and external call duration.
type OrchestratorConfig struct {
	Concurrency   int           `mapstructure:"concurrency"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	MaxWebsites   int           `mapstructure:"max_websites"`
}

// RateLimitConfig paces calls to the extraction service.
type RateLimitConfig struct {
	RPS    float64 `mapstructure:"rps"`
	Burst  int     `mapstructure:"burst"`
	Jitter float64 `mapstructure:"jitter"`
}

// HTTPConfig configures the client the SDKs talk through.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	Proxies      []string      `mapstructure:"proxies"`
	ProxyFile    string        `mapstructure:"proxy_file"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "none", "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig selects the run journal backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // none, sqlite, postgres, json, csv
	DSN     string `mapstructure:"dsn"`
}

// MetricsConfig enables the Prometheus endpoint when Port > 0.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// SMTPConfig is used by --email.
type SMTPConfig struct {
	Server string   `mapstructure:"server"`
	Port   int      `mapstructure:"port"`
	User   string   `mapstructure:"user"`
	Pass   string   `mapstructure:"pass"`
	From   string   `mapstructure:"from"`
	To     []string `mapstructure:"to"`
}

// Complete reports whether enough is set to send mail.
func (s SMTPConfig) Complete() bool {
	return s.Server != "" && s.Port > 0 && s.From != "" && len(s.To) > 0
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// Load reads configuration. An empty path searches the default locations;
// a missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("procura")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "procura"))
		}
	}

	v.SetEnvPrefix("PROCURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The SDKs' conventional variables are honored too.
	_ = v.BindEnv("gemini.api_key", "PROCURA_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("anthropic.api_key", "PROCURA_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultDSN is the sqlite journal location used when storage.dsn is unset.
func DefaultDSN() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "procura.db"
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "procura", "procura.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("orchestrator.concurrency", 4)
	v.SetDefault("orchestrator.task_timeout", "60s")
	v.SetDefault("orchestrator.upload_timeout", "2m")
	v.SetDefault("orchestrator.max_websites", 8)

	v.SetDefault("ratelimit.rps", 2.0)
	v.SetDefault("ratelimit.burst", 4)
	v.SetDefault("ratelimit.jitter", 0.1)

	v.SetDefault("http.timeout", "90s")
	v.SetDefault("http.max_redirects", 5)
	v.SetDefault("http.proxies", []string{})
	v.SetDefault("http.proxy_file", "")

	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("metrics.port", 0)

	v.SetDefault("smtp.server", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.to", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func validate(cfg *Config) error {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY or PROCURA_GEMINI_API_KEY", ErrMissingCredential)
		}
	case ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return fmt.Errorf("%w: set ANTHROPIC_API_KEY or PROCURA_ANTHROPIC_API_KEY", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("provider must be 'gemini' or 'anthropic', got: %s", cfg.Provider)
	}

	if cfg.Orchestrator.Concurrency < 1 {
		return fmt.Errorf("orchestrator.concurrency must be at least 1, got: %d", cfg.Orchestrator.Concurrency)
	}
	if cfg.Orchestrator.TaskTimeout <= 0 {
		return fmt.Errorf("orchestrator.task_timeout must be positive")
	}
	if cfg.Orchestrator.MaxWebsites < 1 {
		return fmt.Errorf("orchestrator.max_websites must be at least 1, got: %d", cfg.Orchestrator.MaxWebsites)
	}

	switch cfg.Cache.Type {
	case "none", "memory":
	case "redis":
		if cfg.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required when cache type is 'redis'")
		}
	default:
		return fmt.Errorf("cache type must be 'none', 'memory' or 'redis', got: %s", cfg.Cache.Type)
	}

	switch cfg.Storage.Backend {
	case "none":
	case "sqlite":
		if cfg.Storage.DSN == "" {
			cfg.Storage.DSN = DefaultDSN()
		}
	case "postgres", "json", "csv":
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the %s backend", cfg.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json', got: %s", cfg.Log.Format)
	}

	return nil
}
