package f5ai

import (
	"fmt"
	"net/url"
	"strings"

	"f5gate/config"
	"f5gate/internal/core"
)

// Upstream endpoint paths, relative to the base URL.
const (
	endpointChat       = "chat/completions"
	endpointCompletion = "completions"
	endpointFIM        = "fim/completions"
	endpointEmbeddings = "embeddings"
	endpointRerank     = "rerank"
	endpointModels     = "models"
)

// deploymentScoped lists the endpoints that move under
// openai/deployments/{deployment}/ in Azure mode.
var deploymentScoped = map[string]bool{
	endpointChat:       true,
	endpointCompletion: true,
	endpointModels:     true,
	endpointEmbeddings: true,
}

// endpoints resolves upstream URLs against the configured base URL.
type endpoints struct {
	base       *url.URL
	baseErr    error
	azure      bool
	deployment string
	apiVersion string
}

func newEndpoints(apiBase string, apiType string, deployment string, apiVersion string) *endpoints {
	e := &endpoints{
		azure:      apiType == config.APITypeAzure,
		deployment: deployment,
		apiVersion: apiVersion,
	}
	if e.apiVersion == "" {
		e.apiVersion = config.DefaultAPIVersion
	}
	e.base, e.baseErr = parseBase(apiBase)
	return e
}

// parseBase parses apiBase and guarantees a trailing slash so relative
// endpoints resolve beneath it rather than replacing its last segment.
func parseBase(apiBase string) (*url.URL, error) {
	if strings.TrimSpace(apiBase) == "" {
		return nil, core.ErrMissingBaseURL
	}
	if !strings.HasSuffix(apiBase, "/") {
		apiBase += "/"
	}
	u, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", apiBase, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme and host are required", apiBase)
	}
	return u, nil
}

// URL returns the absolute URL of endpoint.
func (e *endpoints) URL(endpoint string) (string, error) {
	if e.baseErr != nil {
		return "", core.NewConfigurationError(providerName, e.baseErr)
	}

	path := endpoint
	if e.azure && deploymentScoped[endpoint] {
		path = "openai/deployments/" + url.PathEscape(e.deployment) + "/" + endpoint +
			"?api-version=" + url.QueryEscape(e.apiVersion)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", core.NewConfigurationError(providerName, err)
	}
	return e.base.ResolveReference(ref).String(), nil
}

// official reports whether the base URL is the official F5AI endpoint.
func (e *endpoints) official() bool {
	return e.base != nil && e.base.String() == config.DefaultAPIBase
}

// stopWordCeiling returns the maximum number of stop sequences the target
// backend accepts, or -1 when it is unbounded. override wins when set.
func (e *endpoints) stopWordCeiling(override *int) int {
	if override != nil {
		return *override
	}
	if e.base == nil {
		return -1
	}
	switch {
	case e.base.Host == "api.deepseek.com":
		return 16
	case e.base.Port() == "1337",
		e.base.Host == "dev.api.f5ai.ru",
		e.base.Host == "api.openai.com",
		e.base.Host == "api.groq.com",
		e.azure:
		return 4
	default:
		return -1
	}
}
