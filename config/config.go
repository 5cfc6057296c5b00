// Package config loads the gateway configuration from config.yaml, an
// optional .env file and the process environment.
//
// Precedence, lowest first: built-in defaults, YAML file, environment.
// YAML values may reference the environment with ${VAR} or ${VAR:-default}.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBodySizeLimit is the maximum accepted request body (10MB).
	DefaultBodySizeLimit int64 = 10 * 1024 * 1024

	// DefaultAPIBase is the official F5AI endpoint.
	DefaultAPIBase = "https://api.f5ai.ru/v1/"

	// DefaultAPIVersion is sent as api-version in Azure-style deployments.
	DefaultAPIVersion = "2023-07-01-preview"

	// DefaultMaxEmbeddingBatchSize caps the inputs sent in one embeddings call.
	DefaultMaxEmbeddingBatchSize = 128
)

// Provider profiles. See internal/providers/f5ai for what each one changes.
const (
	ProfileClassic   = "classic"
	ProfileDeveloper = "developer"
)

// API types.
const (
	APITypeOpenAI = "openai"
	APITypeAzure  = "azure"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Logging  LogConfig      `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string `yaml:"port"`
	MasterKey     string `yaml:"master_key"`
	BodySizeLimit int64  `yaml:"body_size_limit"`
}

// ProviderConfig describes the upstream F5AI backend.
type ProviderConfig struct {
	Type       string `yaml:"type"`
	APIBase    string `yaml:"api_base"`
	APIKey     string `yaml:"api_key"`
	APIType    string `yaml:"api_type"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`

	// Profile selects the request rewrite rules: "classic" or "developer".
	Profile string `yaml:"profile"`

	// UseLegacyCompletions routes chat requests for non chat-only models to
	// the completions endpoint.
	UseLegacyCompletions bool `yaml:"use_legacy_completions"`

	// MaxStopWords overrides the host-derived stop sequence ceiling.
	MaxStopWords *int `yaml:"max_stop_words"`

	MaxEmbeddingBatchSize int    `yaml:"max_embedding_batch_size"`
	EmbeddingModel        string `yaml:"embedding_model"`

	// OSeriesPreamble is prefixed to the first user message sent to o-series
	// models. Empty disables it.
	OSeriesPreamble string `yaml:"o_series_preamble"`

	// ModelCatalog is an optional YAML file layered over the built-in model
	// catalog used to annotate model listings.
	ModelCatalog string `yaml:"model_catalog"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "json", "pretty" or empty for auto-detection.
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// HTTPConfig holds upstream client timeouts in seconds.
type HTTPConfig struct {
	Timeout               int `yaml:"timeout"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout"`
}

// buildDefaultConfig returns the built-in defaults.
func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: DefaultBodySizeLimit,
		},
		Provider: ProviderConfig{
			Type:                  "f5ai",
			APIBase:               DefaultAPIBase,
			APIType:               APITypeOpenAI,
			APIVersion:            DefaultAPIVersion,
			Profile:               ProfileClassic,
			MaxEmbeddingBatchSize: DefaultMaxEmbeddingBatchSize,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		HTTP: HTTPConfig{
			Timeout:               600,
			ResponseHeaderTimeout: 600,
		},
	}
}

// Load reads configuration from the YAML file at path (missing file is not
// an error), a .env file in the working directory, and the environment.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := buildDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding variables that are
// already set in the process environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} placeholders.
// Unset variables without a default are left untouched so that validation
// can spot them.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if val := os.Getenv(name); val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// applyEnvOverrides overlays environment variables onto cfg.
func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.MasterKey, "F5GATE_MASTER_KEY")

	setString(&cfg.Provider.APIKey, "F5AI_API_KEY")
	setString(&cfg.Provider.APIBase, "F5AI_API_BASE")
	setString(&cfg.Provider.APIType, "F5AI_API_TYPE")
	setString(&cfg.Provider.Deployment, "F5AI_DEPLOYMENT")
	setString(&cfg.Provider.APIVersion, "F5AI_API_VERSION")
	setString(&cfg.Provider.Profile, "F5AI_PROFILE")
	setString(&cfg.Provider.EmbeddingModel, "F5AI_EMBEDDING_MODEL")
	setString(&cfg.Provider.OSeriesPreamble, "F5AI_O_SERIES_PREAMBLE")
	setString(&cfg.Provider.ModelCatalog, "F5AI_MODEL_CATALOG")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Metrics.Endpoint, "METRICS_ENDPOINT")

	if err := setBool(&cfg.Provider.UseLegacyCompletions, "F5AI_USE_LEGACY_COMPLETIONS"); err != nil {
		return err
	}
	if err := setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED"); err != nil {
		return err
	}
	if err := setInt(&cfg.Provider.MaxEmbeddingBatchSize, "F5AI_MAX_EMBEDDING_BATCH_SIZE"); err != nil {
		return err
	}
	if err := setInt(&cfg.HTTP.Timeout, "HTTP_TIMEOUT"); err != nil {
		return err
	}
	if err := setInt(&cfg.HTTP.ResponseHeaderTimeout, "HTTP_RESPONSE_HEADER_TIMEOUT"); err != nil {
		return err
	}
	if v := os.Getenv("F5AI_MAX_STOP_WORDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid F5AI_MAX_STOP_WORDS %q: %w", v, err)
		}
		cfg.Provider.MaxStopWords = &n
	}
	if v := os.Getenv("BODY_SIZE_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid BODY_SIZE_LIMIT %q: %w", v, err)
		}
		cfg.Server.BodySizeLimit = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

// Validate reports configuration that can never produce a working adapter.
func (c *Config) Validate() error {
	switch c.Provider.Profile {
	case ProfileClassic, ProfileDeveloper:
	default:
		return fmt.Errorf("provider.profile must be %q or %q, got %q", ProfileClassic, ProfileDeveloper, c.Provider.Profile)
	}

	switch c.Provider.APIType {
	case "", APITypeOpenAI:
	case APITypeAzure:
		if c.Provider.Deployment == "" {
			return fmt.Errorf("provider.deployment is required when api_type is %q", APITypeAzure)
		}
	default:
		return fmt.Errorf("unknown provider.api_type %q", c.Provider.APIType)
	}

	if strings.Contains(c.Provider.APIKey, "${") {
		return fmt.Errorf("provider.api_key references an unset environment variable: %s", c.Provider.APIKey)
	}
	if c.Provider.MaxStopWords != nil && *c.Provider.MaxStopWords < 0 {
		return fmt.Errorf("provider.max_stop_words must not be negative")
	}
	if c.Provider.MaxEmbeddingBatchSize <= 0 {
		return fmt.Errorf("provider.max_embedding_batch_size must be positive")
	}
	if c.Server.BodySizeLimit <= 0 {
		return fmt.Errorf("server.body_size_limit must be positive")
	}
	return nil
}
