// Package f5ai adapts generic chat, completion, FIM, embedding, rerank and
// model-listing requests to the F5AI OpenAI-compatible backend.
//
// The backend never streams. Requests are sent with stream=false and
// streaming-shaped results are synthesized from the single response.
package f5ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"f5gate/config"
	"f5gate/internal/core"
	"f5gate/internal/llmclient"
	"f5gate/internal/modeldata"
	"f5gate/internal/providers"
)

const providerName = "f5ai"

// Registration provides factory registration for the F5AI provider.
var Registration = providers.Registration{
	Type: providerName,
	New:  New,
}

// Provider implements core.Provider for F5AI.
type Provider struct {
	client    *llmclient.Client
	apiKey    string
	endpoints *endpoints
	norm      *normalizer

	useLegacyCompletions bool
	batchSize            int
	embeddingModel       string
	catalog              *modeldata.Catalog
}

// New creates a provider from configuration.
func New(cfg config.ProviderConfig, opts providers.ProviderOptions) (core.Provider, error) {
	return NewWithHTTPClient(cfg, opts.HTTPClient, opts.Hooks)
}

// NewWithHTTPClient creates a provider with a custom HTTP client.
// If httpClient is nil, the shared default client is used.
//
// A missing base URL is not an error here: it is reported by every call,
// before any network I/O.
func NewWithHTTPClient(cfg config.ProviderConfig, httpClient *http.Client, hooks llmclient.Hooks) (*Provider, error) {
	profile, err := LookupProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}

	catalog := modeldata.Default()
	if cfg.ModelCatalog != "" {
		if catalog, err = modeldata.LoadFile(cfg.ModelCatalog); err != nil {
			return nil, err
		}
	}

	ep := newEndpoints(cfg.APIBase, cfg.APIType, cfg.Deployment, cfg.APIVersion)

	batchSize := cfg.MaxEmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultMaxEmbeddingBatchSize
	}

	p := &Provider{
		apiKey:    cfg.APIKey,
		endpoints: ep,
		norm: &normalizer{
			profile:  profile,
			ceiling:  ep.stopWordCeiling(cfg.MaxStopWords),
			official: ep.official(),
			preamble: cfg.OSeriesPreamble,
		},
		useLegacyCompletions: cfg.UseLegacyCompletions,
		batchSize:            batchSize,
		embeddingModel:       cfg.EmbeddingModel,
		catalog:              catalog,
	}

	clientCfg := llmclient.Config{ProviderName: providerName, Hooks: hooks}
	if httpClient == nil {
		p.client = llmclient.New(clientCfg, p.setHeaders)
	} else {
		p.client = llmclient.NewWithHTTPClient(httpClient, clientCfg, p.setHeaders)
	}

	slog.Debug("f5ai provider configured",
		"profile", profile.Name,
		"api_type", cfg.APIType,
		"official_endpoint", p.norm.official,
		"max_stop_words", p.norm.ceiling,
	)
	return p, nil
}

// setHeaders sends the key both as a bearer token and as X-Auth-Token, which
// some gateways in front of the backend expect instead.
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Auth-Token", p.apiKey)

	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set(core.RequestIDHeader, requestID)
	}
}

var acceptJSON = map[string]string{"Accept": "application/json"}

// routesToLegacy reports whether a chat request goes to the completions
// endpoint instead of chat/completions.
func (p *Provider) routesToLegacy(req *core.ChatRequest) bool {
	if isChatOnly(req.Model) {
		return false
	}
	return Classify(req.Model) == FamilyLegacyCompletion || p.useLegacyCompletions || req.Raw
}

// ChatCompletion sends a chat completion request. Requests routed to the
// legacy endpoint are answered with the collected text as one message.
func (p *Provider) ChatCompletion(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	if p.routesToLegacy(req) {
		seq, err := p.legacyChat(ctx, req)
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		for chunk, err := range seq {
			if err != nil {
				return nil, err
			}
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
		return chatFromText(req.Model, sb.String()), nil
	}

	url, err := p.endpoints.URL(endpointChat)
	if err != nil {
		return nil, err
	}

	var resp core.ChatResponse
	err = p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		URL:      url,
		Endpoint: endpointChat,
		Model:    req.Model,
		Body:     p.norm.chat(req),
	}, &resp)
	if err != nil {
		return nil, err
	}

	resp.Provider = providerName
	if resp.Model == "" {
		resp.Model = req.Model
	}
	if resp.Object == "" {
		resp.Object = objectChatCompletion
	}
	return &resp, nil
}

// StreamChat answers a chat request as a chunk sequence. Chat-capable models
// yield exactly one synthetic chunk; legacy-routed models yield one chunk per
// text fragment the backend produced.
func (p *Provider) StreamChat(ctx context.Context, req *core.ChatRequest) (core.ChunkSeq, error) {
	if p.routesToLegacy(req) {
		return p.legacyChat(ctx, req)
	}

	resp, err := p.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	return core.NewSingleChunk(chunkFromChat(resp)).Seq(), nil
}

// legacyChat sends the last message as a prompt to the completions endpoint
// and yields its text fragments.
func (p *Provider) legacyChat(ctx context.Context, req *core.ChatRequest) (core.ChunkSeq, error) {
	url, err := p.endpoints.URL(endpointCompletion)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		URL:      url,
		Endpoint: endpointCompletion,
		Model:    req.Model,
		Body:     p.norm.legacyCompletion(req),
	})
	if err != nil {
		return nil, err
	}

	created := now().Unix()
	return func(yield func(*core.ChatChunk, error) bool) {
		defer func() { _ = resp.Body.Close() }()

		br := bufio.NewReader(resp.Body)
		if !isEventStream(resp.ContentType, br) {
			body, err := io.ReadAll(br)
			if err != nil {
				yield(nil, core.NewProviderError(providerName, http.StatusBadGateway, "failed to read response: "+err.Error(), err))
				return
			}
			if text := legacyFragment(body); text != "" {
				c := textChunk(req.Model, created, text)
				yield(&c, nil)
			}
			return
		}

		for payload, err := range sseEvents(br) {
			if err != nil {
				yield(nil, core.NewProviderError(providerName, http.StatusBadGateway, "failed to read stream: "+err.Error(), err))
				return
			}
			text := legacyFragment(payload)
			if text == "" {
				continue
			}
			c := textChunk(req.Model, created, text)
			if !yield(&c, nil) {
				return
			}
		}
	}, nil
}

// Completion sends a legacy prompt completion request. An SSE-framed answer
// is collected into a single choice.
func (p *Provider) Completion(ctx context.Context, req *core.CompletionRequest) (*core.CompletionResponse, error) {
	url, err := p.endpoints.URL(endpointCompletion)
	if err != nil {
		return nil, err
	}

	raw, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		URL:      url,
		Endpoint: endpointCompletion,
		Model:    req.Model,
		Body:     p.norm.completion(req),
	})
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(bytes.NewReader(raw.Body))
	if isEventStream(raw.ContentType, br) {
		var sb strings.Builder
		for payload, err := range sseEvents(br) {
			if err != nil {
				return nil, err
			}
			sb.WriteString(legacyFragment(payload))
		}
		return &core.CompletionResponse{
			Object:  objectTextCompletion,
			Created: now().Unix(),
			Model:   req.Model,
			Choices: []core.CompletionChoice{{Text: sb.String(), FinishReason: finishStop}},
		}, nil
	}

	var resp core.CompletionResponse
	if err := json.Unmarshal(raw.Body, &resp); err != nil {
		return nil, core.NewProviderError(providerName, http.StatusBadGateway, "failed to unmarshal response: "+err.Error(), err)
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	if resp.Object == "" {
		resp.Object = objectTextCompletion
	}
	return &resp, nil
}

// FIM sends a fill-in-the-middle request to the dedicated endpoint. SSE
// answers are forwarded event by event; a JSON answer becomes one chunk whose
// finish reason defaults to "stop".
func (p *Provider) FIM(ctx context.Context, req *core.FIMRequest) (core.ChunkSeq, error) {
	url, err := p.endpoints.URL(endpointFIM)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		URL:      url,
		Endpoint: endpointFIM,
		Model:    req.Model,
		Body:     p.norm.fim(req),
		Headers:  acceptJSON,
	})
	if err != nil {
		return nil, err
	}

	return func(yield func(*core.ChatChunk, error) bool) {
		defer func() { _ = resp.Body.Close() }()

		br := bufio.NewReader(resp.Body)
		if !isEventStream(resp.ContentType, br) {
			body, err := io.ReadAll(br)
			if err != nil {
				yield(nil, core.NewProviderError(providerName, http.StatusBadGateway, "failed to read response: "+err.Error(), err))
				return
			}
			if !json.Valid(body) {
				yield(nil, core.NewProviderError(providerName, http.StatusBadGateway, "failed to unmarshal response: invalid JSON", nil))
				return
			}
			if chunk, ok := chunkFromFIM(body, req.Model, finishStop); ok {
				yield(&chunk, nil)
			}
			return
		}

		for payload, err := range sseEvents(br) {
			if err != nil {
				yield(nil, core.NewProviderError(providerName, http.StatusBadGateway, "failed to read stream: "+err.Error(), err))
				return
			}
			chunk, ok := chunkFromFIM(payload, req.Model, "")
			if !ok {
				continue
			}
			if !yield(&chunk, nil) {
				return
			}
		}
	}, nil
}

// Embeddings embeds req.Input in batches of at most the configured batch
// size. Results are concatenated in input order. A non-2xx answer fails with
// the raw response body as the message.
func (p *Provider) Embeddings(ctx context.Context, req *core.EmbeddingRequest) (*core.EmbeddingResponse, error) {
	url, err := p.endpoints.URL(endpointEmbeddings)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.embeddingModel
	}

	out := &core.EmbeddingResponse{
		Object:   "list",
		Model:    model,
		Provider: providerName,
		Data:     make([]core.EmbeddingData, 0, len(req.Input)),
	}

	for start := 0; start < len(req.Input); start += p.batchSize {
		end := min(start+p.batchSize, len(req.Input))

		var batch core.EmbeddingResponse
		err := p.client.Do(ctx, llmclient.Request{
			Method:       http.MethodPost,
			URL:          url,
			Endpoint:     endpointEmbeddings,
			Model:        model,
			Body:         core.EmbeddingRequest{Input: req.Input[start:end], Model: model},
			RawErrorBody: true,
		}, &batch)
		if err != nil {
			return nil, err
		}

		for i, d := range batch.Data {
			d.Index = start + i
			if d.Object == "" {
				d.Object = "embedding"
			}
			out.Data = append(out.Data, d)
		}
		if batch.Model != "" {
			out.Model = batch.Model
		}
		if batch.Usage != nil {
			if out.Usage == nil {
				out.Usage = &core.Usage{}
			}
			out.Usage.PromptTokens += batch.Usage.PromptTokens
			out.Usage.CompletionTokens += batch.Usage.CompletionTokens
			out.Usage.TotalTokens += batch.Usage.TotalTokens
		}
	}

	if len(out.Data) != len(req.Input) {
		return nil, core.NewProviderError(providerName, http.StatusBadGateway,
			fmt.Sprintf("expected %d embeddings, got %d", len(req.Input), len(out.Data)), nil)
	}
	return out, nil
}

// Rerank passes the request through to the rerank endpoint.
func (p *Provider) Rerank(ctx context.Context, req *core.RerankRequest) (*core.RerankResponse, error) {
	url, err := p.endpoints.URL(endpointRerank)
	if err != nil {
		return nil, err
	}

	var resp core.RerankResponse
	err = p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		URL:      url,
		Endpoint: endpointRerank,
		Model:    req.Model,
		Body:     req,
		Headers:  acceptJSON,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListModels returns the backend's models in the order it lists them,
// annotated with catalog metadata where known.
func (p *Provider) ListModels(ctx context.Context) (*core.ModelsResponse, error) {
	url, err := p.endpoints.URL(endpointModels)
	if err != nil {
		return nil, err
	}

	var resp core.ModelsResponse
	err = p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodGet,
		URL:      url,
		Endpoint: endpointModels,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Object == "" {
		resp.Object = "list"
	}
	modeldata.Enrich(&resp, p.catalog)
	return &resp, nil
}
