package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestExpandString tests the expandString function with various scenarios
func TestExpandString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			envVars:  map[string]string{},
			expected: "",
		},
		{
			name:     "string without placeholders",
			input:    "simple-string",
			envVars:  map[string]string{},
			expected: "simple-string",
		},
		{
			name:     "simple variable expansion",
			input:    "${API_KEY}",
			envVars:  map[string]string{"API_KEY": "sk-12345"},
			expected: "sk-12345",
		},
		{
			name:     "variable in middle of string",
			input:    "prefix-${API_KEY}-suffix",
			envVars:  map[string]string{"API_KEY": "sk-12345"},
			expected: "prefix-sk-12345-suffix",
		},
		{
			name:     "multiple variables",
			input:    "${SCHEME}://${HOST}:${PORT}",
			envVars:  map[string]string{"SCHEME": "https", "HOST": "api.example.com", "PORT": "8080"},
			expected: "https://api.example.com:8080",
		},
		{
			name:     "variable with default value - env var exists",
			input:    "${API_KEY:-default-key}",
			envVars:  map[string]string{"API_KEY": "sk-real-key"},
			expected: "sk-real-key",
		},
		{
			name:     "variable with default value - env var missing",
			input:    "${API_KEY:-default-key}",
			envVars:  map[string]string{},
			expected: "default-key",
		},
		{
			name:     "variable with default value - env var empty",
			input:    "${API_KEY:-default-key}",
			envVars:  map[string]string{"API_KEY": ""},
			expected: "default-key",
		},
		{
			name:     "unresolved variable - no default",
			input:    "${MISSING_VAR}",
			envVars:  map[string]string{},
			expected: "${MISSING_VAR}",
		},
		{
			name:     "partially resolved string",
			input:    "${RESOLVED}-${UNRESOLVED}",
			envVars:  map[string]string{"RESOLVED": "value1"},
			expected: "value1-${UNRESOLVED}",
		},
		{
			name:     "mixed resolved and unresolved with defaults",
			input:    "${RESOLVED}:${UNRESOLVED:-fallback}:${MISSING}",
			envVars:  map[string]string{"RESOLVED": "value1"},
			expected: "value1:fallback:${MISSING}",
		},
		{
			name:     "default value with special characters",
			input:    "${API_KEY:-https://api.example.com/v1}",
			envVars:  map[string]string{},
			expected: "https://api.example.com/v1",
		},
		{
			name:     "default value with colon in it",
			input:    "${URL:-http://localhost:8080}",
			envVars:  map[string]string{},
			expected: "http://localhost:8080",
		},
		{
			name:     "complex real-world example",
			input:    "${BASE_URL:-https://api.openai.com}/v1/chat/completions",
			envVars:  map[string]string{},
			expected: "https://api.openai.com/v1/chat/completions",
		},
		{
			name:     "environment variable set to empty string (no default)",
			input:    "${EMPTY_VAR}",
			envVars:  map[string]string{"EMPTY_VAR": ""},
			expected: "${EMPTY_VAR}",
		},
		{
			name:     "empty default value - env var missing",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{},
			expected: "",
		},
		{
			name:     "empty default value - env var set",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{"OPTIONAL_VAR": "actual-value"},
			expected: "actual-value",
		},
		{
			name:     "empty default value - env var empty",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{"OPTIONAL_VAR": ""},
			expected: "",
		},
		{
			name:     "master key pattern - not set should be empty",
			input:    "${F5GATE_MASTER_KEY:-}",
			envVars:  map[string]string{},
			expected: "",
		},
		{
			name:     "master key pattern - set to value",
			input:    "${F5GATE_MASTER_KEY:-}",
			envVars:  map[string]string{"F5GATE_MASTER_KEY": "secret-key"},
			expected: "secret-key",
		},
		{
			name:     "multiple placeholders some resolved some not",
			input:    "prefix-${VAR1}-${VAR2}-${VAR3}-suffix",
			envVars:  map[string]string{"VAR1": "a", "VAR3": "c"},
			expected: "prefix-a-${VAR2}-c-suffix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				_ = os.Setenv(k, v)
			}
			defer func() {
				for k := range tt.envVars {
					_ = os.Unsetenv(k)
				}
			}()

			result := expandString(tt.input)
			if result != tt.expected {
				t.Errorf("expandString(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestApplyEnvOverrides tests the applyEnvOverrides function
func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "PORT override",
			envVars: map[string]string{"PORT": "3000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != "3000" {
					t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "3000")
				}
			},
		},
		{
			name:    "F5GATE_MASTER_KEY override",
			envVars: map[string]string{"F5GATE_MASTER_KEY": "my-secret"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.MasterKey != "my-secret" {
					t.Errorf("Server.MasterKey = %q, want %q", cfg.Server.MasterKey, "my-secret")
				}
			},
		},
		{
			name: "provider overrides",
			envVars: map[string]string{
				"F5AI_API_KEY":     "f5-key",
				"F5AI_API_BASE":    "http://localhost:1337/v1",
				"F5AI_API_TYPE":    "azure",
				"F5AI_DEPLOYMENT":  "chat-prod",
				"F5AI_API_VERSION": "2024-02-01",
				"F5AI_PROFILE":     "developer",
			},
			check: func(t *testing.T, cfg *Config) {
				p := cfg.Provider
				if p.APIKey != "f5-key" || p.APIBase != "http://localhost:1337/v1" {
					t.Errorf("APIKey/APIBase = %q/%q", p.APIKey, p.APIBase)
				}
				if p.APIType != APITypeAzure || p.Deployment != "chat-prod" || p.APIVersion != "2024-02-01" {
					t.Errorf("azure settings = %q/%q/%q", p.APIType, p.Deployment, p.APIVersion)
				}
				if p.Profile != ProfileDeveloper {
					t.Errorf("Profile = %q, want %q", p.Profile, ProfileDeveloper)
				}
			},
		},
		{
			name:    "numeric provider overrides",
			envVars: map[string]string{"F5AI_MAX_STOP_WORDS": "2", "F5AI_MAX_EMBEDDING_BATCH_SIZE": "16"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Provider.MaxStopWords == nil || *cfg.Provider.MaxStopWords != 2 {
					t.Errorf("MaxStopWords = %v, want 2", cfg.Provider.MaxStopWords)
				}
				if cfg.Provider.MaxEmbeddingBatchSize != 16 {
					t.Errorf("MaxEmbeddingBatchSize = %d, want 16", cfg.Provider.MaxEmbeddingBatchSize)
				}
			},
		},
		{
			name:    "bool overrides",
			envVars: map[string]string{"METRICS_ENABLED": "true", "F5AI_USE_LEGACY_COMPLETIONS": "1"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.Metrics.Enabled {
					t.Error("Metrics.Enabled should be true")
				}
				if !cfg.Provider.UseLegacyCompletions {
					t.Error("Provider.UseLegacyCompletions should be true")
				}
			},
		},
		{
			name:    "HTTP timeout overrides",
			envVars: map[string]string{"HTTP_TIMEOUT": "30", "HTTP_RESPONSE_HEADER_TIMEOUT": "60"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.HTTP.Timeout != 30 {
					t.Errorf("HTTP.Timeout = %d, want 30", cfg.HTTP.Timeout)
				}
				if cfg.HTTP.ResponseHeaderTimeout != 60 {
					t.Errorf("HTTP.ResponseHeaderTimeout = %d, want 60", cfg.HTTP.ResponseHeaderTimeout)
				}
			},
		},
		{
			name:    "logging overrides",
			envVars: map[string]string{"LOG_LEVEL": "debug", "LOG_FORMAT": "json"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
					t.Errorf("Logging = %+v", cfg.Logging)
				}
			},
		},
		{
			name:    "no env vars set preserves defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != "8080" {
					t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
				}
				if cfg.HTTP.Timeout != 600 {
					t.Errorf("HTTP.Timeout = %d, want 600", cfg.HTTP.Timeout)
				}
				if cfg.Provider.MaxStopWords != nil {
					t.Errorf("MaxStopWords = %v, want nil", *cfg.Provider.MaxStopWords)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := buildDefaultConfig()
			require.NoError(t, applyEnvOverrides(cfg))
			tt.check(t, cfg)
		})
	}
}

func TestApplyEnvOverrides_InvalidValues(t *testing.T) {
	for _, key := range []string{"METRICS_ENABLED", "F5AI_MAX_STOP_WORDS", "HTTP_TIMEOUT", "BODY_SIZE_LIMIT"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "not-a-value")
			err := applyEnvOverrides(buildDefaultConfig())
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}
