package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *GatewayError
		expected string
	}{
		{
			name: "error with provider",
			err: &GatewayError{
				Type:     ErrorTypeProvider,
				Message:  "upstream error",
				Provider: "f5ai",
			},
			expected: "[f5ai] provider_error: upstream error",
		},
		{
			name: "error without provider",
			err: &GatewayError{
				Type:    ErrorTypeInvalidRequest,
				Message: "bad request",
			},
			expected: "invalid_request_error: bad request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestGatewayError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *GatewayError
		expected int
	}{
		{"explicit status code", &GatewayError{Type: ErrorTypeProvider, StatusCode: http.StatusServiceUnavailable}, http.StatusServiceUnavailable},
		{"rate limit default", &GatewayError{Type: ErrorTypeRateLimit}, http.StatusTooManyRequests},
		{"invalid request default", &GatewayError{Type: ErrorTypeInvalidRequest}, http.StatusBadRequest},
		{"authentication default", &GatewayError{Type: ErrorTypeAuthentication}, http.StatusUnauthorized},
		{"not found default", &GatewayError{Type: ErrorTypeNotFound}, http.StatusNotFound},
		{"provider default", &GatewayError{Type: ErrorTypeProvider}, http.StatusBadGateway},
		{"configuration default", &GatewayError{Type: ErrorTypeConfiguration}, http.StatusInternalServerError},
		{"unknown type", &GatewayError{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.HTTPStatusCode())
		})
	}
}

func TestGatewayError_ToJSON(t *testing.T) {
	err := &GatewayError{
		Type:    ErrorTypeRateLimit,
		Message: "too many requests",
	}

	errorData, ok := err.ToJSON()["error"].(map[string]any)
	require.True(t, ok, "ToJSON() should return map with 'error' key")
	assert.Equal(t, ErrorTypeRateLimit, errorData["type"])
	assert.Equal(t, "too many requests", errorData["message"])
}

func TestNewConfigurationError(t *testing.T) {
	err := NewConfigurationError("f5ai", ErrMissingBaseURL)

	assert.Equal(t, ErrorTypeConfiguration, err.Type)
	assert.Equal(t, "f5ai", err.Provider)
	assert.Equal(t, "no API base URL provided", err.Message)
	assert.True(t, errors.Is(err, ErrMissingBaseURL))

	wrapped := fmt.Errorf("building endpoint: %w", err)
	var gwErr *GatewayError
	require.True(t, errors.As(wrapped, &gwErr))
	assert.Equal(t, http.StatusInternalServerError, gwErr.HTTPStatusCode())
}

func TestGatewayError_IsError(t *testing.T) {
	originalErr := errors.New("network error")
	gatewayErr := NewProviderError("f5ai", http.StatusBadGateway, "connection failed", originalErr)

	assert.True(t, errors.Is(gatewayErr, originalErr))
}

func TestParseProviderError(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		body           []byte
		expectedType   ErrorType
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "401 unauthorized",
			statusCode:     http.StatusUnauthorized,
			body:           []byte(`{"error": {"message": "Invalid API key"}}`),
			expectedType:   ErrorTypeAuthentication,
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "Invalid API key",
		},
		{
			name:           "403 is reported as authentication",
			statusCode:     http.StatusForbidden,
			body:           []byte(`{"error": {"message": "Access denied"}}`),
			expectedType:   ErrorTypeAuthentication,
			expectedStatus: http.StatusUnauthorized,
			expectedMsg:    "Access denied",
		},
		{
			name:           "429 rate limit",
			statusCode:     http.StatusTooManyRequests,
			body:           []byte(`{"error": {"message": "Rate limit exceeded"}}`),
			expectedType:   ErrorTypeRateLimit,
			expectedStatus: http.StatusTooManyRequests,
			expectedMsg:    "Rate limit exceeded",
		},
		{
			name:           "404 unknown model",
			statusCode:     http.StatusNotFound,
			body:           []byte(`{"error": {"message": "The model 'gpt-9' does not exist"}}`),
			expectedType:   ErrorTypeNotFound,
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "The model 'gpt-9' does not exist",
		},
		{
			name:           "422 keeps its status",
			statusCode:     http.StatusUnprocessableEntity,
			body:           []byte(`{"error": {"message": "max_tokens is not supported with this model"}}`),
			expectedType:   ErrorTypeInvalidRequest,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "max_tokens is not supported with this model",
		},
		{
			name:           "503 keeps its status",
			statusCode:     http.StatusServiceUnavailable,
			body:           []byte(`{"error": {"message": "Service unavailable"}}`),
			expectedType:   ErrorTypeProvider,
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "Service unavailable",
		},
		{
			name:           "plain text body is used verbatim",
			statusCode:     http.StatusInternalServerError,
			body:           []byte("Internal Server Error"),
			expectedType:   ErrorTypeProvider,
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseProviderError("f5ai", tt.statusCode, tt.body, nil)

			assert.Equal(t, tt.expectedType, err.Type)
			assert.Equal(t, tt.expectedStatus, err.HTTPStatusCode())
			assert.Equal(t, "f5ai", err.Provider)
			assert.Equal(t, tt.expectedMsg, err.Message)
		})
	}
}
