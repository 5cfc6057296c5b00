package f5ai

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f5gate/config"
	"f5gate/internal/core"
)

func TestEndpoints_URL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		endpoint string
		want     string
	}{
		{"default base", config.DefaultAPIBase, endpointChat, "https://api.f5ai.ru/v1/chat/completions"},
		{"base without trailing slash", "http://localhost:1337/v1", endpointModels, "http://localhost:1337/v1/models"},
		{"fim", "https://example.com/api/v1/", endpointFIM, "https://example.com/api/v1/fim/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newEndpoints(tt.base, "", "", "").URL(tt.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEndpoints_Azure(t *testing.T) {
	e := newEndpoints("https://corp.openai.azure.com/", config.APITypeAzure, "chat-prod", "")

	for _, endpoint := range []string{endpointChat, endpointCompletion, endpointModels, endpointEmbeddings} {
		got, err := e.URL(endpoint)
		require.NoError(t, err)
		assert.Equal(t, "https://corp.openai.azure.com/openai/deployments/chat-prod/"+endpoint+"?api-version=2023-07-01-preview", got)
	}

	got, err := e.URL(endpointRerank)
	require.NoError(t, err)
	assert.Equal(t, "https://corp.openai.azure.com/rerank", got)

	e = newEndpoints("https://corp.openai.azure.com/", config.APITypeAzure, "d", "2024-02-01")
	got, err = e.URL(endpointEmbeddings)
	require.NoError(t, err)
	assert.Equal(t, "https://corp.openai.azure.com/openai/deployments/d/embeddings?api-version=2024-02-01", got)
}

func TestEndpoints_MissingBaseURL(t *testing.T) {
	for _, base := range []string{"", "   "} {
		_, err := newEndpoints(base, "", "", "").URL(endpointChat)

		var gwErr *core.GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, core.ErrorTypeConfiguration, gwErr.Type)
		assert.Equal(t, "no API base URL provided", gwErr.Message)
		assert.Equal(t, http.StatusInternalServerError, gwErr.HTTPStatusCode())
		assert.True(t, errors.Is(err, core.ErrMissingBaseURL))
	}
}

func TestEndpoints_InvalidBaseURL(t *testing.T) {
	_, err := newEndpoints("not a url", "", "", "").URL(endpointChat)
	var gwErr *core.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, core.ErrorTypeConfiguration, gwErr.Type)
}

func TestEndpoints_Official(t *testing.T) {
	assert.True(t, newEndpoints("https://api.f5ai.ru/v1/", "", "", "").official())
	assert.True(t, newEndpoints("https://api.f5ai.ru/v1", "", "", "").official())
	assert.False(t, newEndpoints("https://dev.api.f5ai.ru/v1/", "", "", "").official())
	assert.False(t, newEndpoints("", "", "", "").official())
}

func TestStopWordCeiling(t *testing.T) {
	two := 2
	tests := []struct {
		name     string
		base     string
		apiType  string
		override *int
		want     int
	}{
		{"deepseek", "https://api.deepseek.com/v1/", "", nil, 16},
		{"local port 1337", "http://localhost:1337/v1/", "", nil, 4},
		{"dev f5ai", "https://dev.api.f5ai.ru/v1/", "", nil, 4},
		{"openai", "https://api.openai.com/v1/", "", nil, 4},
		{"groq", "https://api.groq.com/openai/v1/", "", nil, 4},
		{"azure", "https://corp.openai.azure.com/", config.APITypeAzure, nil, 4},
		{"official f5ai unbounded", config.DefaultAPIBase, "", nil, -1},
		{"override wins", "https://api.deepseek.com/v1/", "", &two, 2},
		{"missing base unbounded", "", "", nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEndpoints(tt.base, tt.apiType, "d", "")
			assert.Equal(t, tt.want, e.stopWordCeiling(tt.override))
		})
	}
}
