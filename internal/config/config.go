// Package config reads qscore settings from the environment, dotenv files and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/surveyeval/qscore/internal/llm"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/telemetry"
)

// DefaultFile is read when no --config path is given and it exists in the
// working directory.
const DefaultFile = ".qscore.yaml"

// DefaultOpenAIModel is used for the openai provider when no model is set.
const DefaultOpenAIModel = "gpt-4o"

// Config holds every runtime setting. Environment variables override the
// YAML file, which overrides the env-default tags.
type Config struct {
	Provider string `yaml:"provider" env:"QSCORE_PROVIDER" env-default:"anthropic"`
	Model    string `yaml:"model" env:"QSCORE_MODEL"`

	AnthropicAPIKey  string `yaml:"-" env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `yaml:"anthropic_base_url" env:"ANTHROPIC_BASE_URL"`
	OpenAIAPIKey     string `yaml:"-" env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `yaml:"openai_base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`

	MaxTokens  int           `yaml:"max_tokens" env:"QSCORE_MAX_TOKENS" env-default:"4000"`
	Timeout    time.Duration `yaml:"timeout" env:"QSCORE_TIMEOUT" env-default:"2m"`
	Attributes string        `yaml:"attributes" env:"QSCORE_ATTRIBUTES" env-default:"core"`
	PromptFile string        `yaml:"prompt_file" env:"QSCORE_PROMPT_FILE"`
	ReplayDir  string        `yaml:"replay_dir" env:"QSCORE_REPLAY_DIR"`
	CacheDir   string        `yaml:"cache_dir" env:"QSCORE_CACHE_DIR" env-default:".qscore-cache"`

	// Thresholds override the default eval thresholds by metric name.
	Thresholds map[string]float64 `yaml:"thresholds"`

	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Source is the YAML file that was read, empty when only the
	// environment was used.
	Source string `yaml:"-"`
}

// TelemetryConfig selects trace exporters.
type TelemetryConfig struct {
	Endpoint    string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"qscore"`
	LogSpans    bool   `yaml:"log_spans" env:"QSCORE_TRACE_LOG"`
}

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads the configuration. An explicit path must exist; an empty path
// falls back to DefaultFile when present and otherwise to the environment
// alone. The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, &ConfigError{Field: "file", Err: fmt.Errorf("reading %s: %w", path, err)}
		}
		cfg.Source = path
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, &ConfigError{Field: "env", Err: err}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Model != "" {
		return
	}
	switch c.Provider {
	case llm.ProviderOpenAI:
		c.Model = DefaultOpenAIModel
	case llm.ProviderReplay:
		c.Model = llm.ProviderReplay
	default:
		c.Model = llm.DefaultModel
	}
}

// Validate checks the provider, its credentials and the numeric limits.
func (c *Config) Validate() error {
	switch c.Provider {
	case llm.ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return &ConfigError{Field: "ANTHROPIC_API_KEY", Err: errors.New("not set; export it or add it to .env")}
		}
	case llm.ProviderOpenAI:
		// compatible local servers on a custom base URL may run without a key
		if c.OpenAIAPIKey == "" && strings.TrimRight(c.OpenAIBaseURL, "/") == llm.DefaultOpenAIBaseURL {
			return &ConfigError{Field: "OPENAI_API_KEY", Err: errors.New("not set; export it or add it to .env")}
		}
	case llm.ProviderReplay:
		if c.ReplayDir == "" {
			return &ConfigError{Field: "QSCORE_REPLAY_DIR", Err: errors.New("required by the replay provider")}
		}
	default:
		return &ConfigError{Field: "provider", Err: fmt.Errorf("unknown provider %q (supported: %s, %s, %s)",
			c.Provider, llm.ProviderAnthropic, llm.ProviderOpenAI, llm.ProviderReplay)}
	}

	if c.MaxTokens <= 0 {
		return &ConfigError{Field: "max_tokens", Err: fmt.Errorf("must be positive, got %d", c.MaxTokens)}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Err: fmt.Errorf("must not be negative, got %s", c.Timeout)}
	}
	if _, err := models.AttributeProfile(c.Attributes); err != nil {
		return &ConfigError{Field: "attributes", Err: err}
	}
	for name, v := range c.Thresholds {
		if v < 0 {
			return &ConfigError{Field: "thresholds." + name, Err: fmt.Errorf("must not be negative, got %g", v)}
		}
	}
	return nil
}

// AttributeSet resolves the configured attribute profile.
func (c *Config) AttributeSet() models.AttributeSet {
	attrs, err := models.AttributeProfile(c.Attributes)
	if err != nil {
		return models.CoreAttributes()
	}
	return attrs
}

// LLMOptions maps the settings onto the model client factory.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider:        c.Provider,
		Model:           c.Model,
		MaxTokens:       c.MaxTokens,
		AnthropicAPIKey: c.AnthropicAPIKey,
		AnthropicURL:    c.AnthropicBaseURL,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		OpenAIBaseURL:   c.OpenAIBaseURL,
		ReplayDir:       c.ReplayDir,
	}
}

// TelemetrySettings maps the settings onto the tracer setup.
func (c *Config) TelemetrySettings() telemetry.Config {
	return telemetry.Config{
		Endpoint:    c.Telemetry.Endpoint,
		ServiceName: c.Telemetry.ServiceName,
		LogSpans:    c.Telemetry.LogSpans,
	}
}

// SharedEnvFile is the per-user secrets file loaded before ./.env.
func SharedEnvFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "secrets", "myapps.env")
}

// LoadDotenv loads the shared secrets file without overriding the process
// environment, then ./.env with override. Missing files are skipped.
func LoadDotenv(logger *slog.Logger) error {
	return loadDotenv(SharedEnvFile(), ".env", logger)
}

func loadDotenv(shared, local string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if shared != "" && exists(shared) {
		if err := godotenv.Load(shared); err != nil {
			return &ConfigError{Field: "dotenv", Err: fmt.Errorf("loading %s: %w", shared, err)}
		}
		logger.Debug("loaded dotenv file", "path", shared)
	}
	if local != "" && exists(local) {
		if err := godotenv.Overload(local); err != nil {
			return &ConfigError{Field: "dotenv", Err: fmt.Errorf("loading %s: %w", local, err)}
		}
		logger.Debug("loaded dotenv file", "path", local, "override", true)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
