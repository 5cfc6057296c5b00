// Package providers builds core.Provider instances from configuration.
package providers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"f5gate/config"
	"f5gate/internal/core"
	"f5gate/internal/llmclient"
)

// ProviderOptions carries process-wide dependencies into provider builders.
type ProviderOptions struct {
	Hooks llmclient.Hooks
	// HTTPClient is shared by all providers; nil means the default client.
	HTTPClient *http.Client
}

// Builder creates a provider instance from configuration.
type Builder func(cfg config.ProviderConfig, opts ProviderOptions) (core.Provider, error)

// Registration ties a provider type name to its builder.
type Registration struct {
	Type string
	New  Builder
}

// ProviderFactory creates providers by type name.
type ProviderFactory struct {
	mu       sync.RWMutex
	builders map[string]Builder
	opts     ProviderOptions
}

// NewProviderFactory returns an empty factory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{builders: make(map[string]Builder)}
}

// Register adds or replaces the builder for providerType.
func (f *ProviderFactory) Register(providerType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[providerType] = builder
}

// Add registers r.
func (f *ProviderFactory) Add(r Registration) {
	f.Register(r.Type, r.New)
}

// SetHooks sets the hooks passed to every provider created afterwards.
func (f *ProviderFactory) SetHooks(hooks llmclient.Hooks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.Hooks = hooks
}

// GetHooks returns the configured hooks.
func (f *ProviderFactory) GetHooks() llmclient.Hooks {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opts.Hooks
}

// SetHTTPClient sets the upstream client passed to every provider created afterwards.
func (f *ProviderFactory) SetHTTPClient(client *http.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts.HTTPClient = client
}

// Create instantiates a provider based on configuration.
func (f *ProviderFactory) Create(cfg config.ProviderConfig) (core.Provider, error) {
	f.mu.RLock()
	builder, ok := f.builders[cfg.Type]
	opts := f.opts
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	return builder(cfg, opts)
}

// ListRegistered returns the registered provider types in sorted order.
func (f *ProviderFactory) ListRegistered() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
