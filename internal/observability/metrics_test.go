package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"f5gate/internal/core"
	"f5gate/internal/llmclient"
)

func TestHooks_RecordSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := m.Hooks()

	info := llmclient.RequestInfo{Provider: "f5ai", Endpoint: "chat/completions", Method: http.MethodPost, Model: "gpt-4o"}
	ctx := hooks.OnRequestStart(context.Background(), info)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight.WithLabelValues("f5ai", "chat/completions")))

	hooks.OnRequestEnd(ctx, llmclient.ResponseInfo{RequestInfo: info, StatusCode: http.StatusOK, Duration: 2 * time.Second})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("f5ai", "chat/completions")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("f5ai", "chat/completions", "gpt-4o", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
	assert.Equal(t, 0, testutil.CollectAndCount(m.errorsVec))
}

func TestHooks_RecordErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := m.Hooks()

	info := llmclient.RequestInfo{Provider: "f5ai", Endpoint: "embeddings", Model: "text-embedding-3-small"}
	ctx := hooks.OnRequestStart(context.Background(), info)
	hooks.OnRequestEnd(ctx, llmclient.ResponseInfo{
		RequestInfo: info,
		StatusCode:  http.StatusTooManyRequests,
		Err:         core.NewRateLimitError("f5ai", "slow down"),
	})

	ctx = hooks.OnRequestStart(context.Background(), info)
	hooks.OnRequestEnd(ctx, llmclient.ResponseInfo{RequestInfo: info, Err: errors.New("dial tcp: refused")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("f5ai", "embeddings", "text-embedding-3-small", "429")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("f5ai", "embeddings", "text-embedding-3-small", "network_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsVec.WithLabelValues("f5ai", "embeddings", string(core.ErrorTypeRateLimit))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsVec.WithLabelValues("f5ai", "embeddings", "unknown")))
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
