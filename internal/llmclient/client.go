// Package llmclient provides the HTTP client used by providers to talk to
// upstream LLM APIs:
//   - JSON request marshaling and response unmarshaling
//   - standardized error parsing for non-2xx responses
//   - request hooks for metrics
//
// It performs exactly one attempt per call. Failures are returned to the
// caller unchanged; there is no retry and no circuit breaking.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"f5gate/internal/core"
	"f5gate/internal/httpclient"
)

// Config holds configuration for the LLM client
type Config struct {
	// ProviderName identifies the provider for error messages and metrics
	ProviderName string

	// Hooks observe every request; zero value disables them
	Hooks Hooks
}

// RequestInfo describes an outgoing request for hooks.
type RequestInfo struct {
	Provider string
	Endpoint string
	Method   string
	Model    string
	Stream   bool
}

// ResponseInfo describes the outcome of a request for hooks.
type ResponseInfo struct {
	RequestInfo
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Hooks are optional callbacks invoked around each upstream request.
type Hooks struct {
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info ResponseInfo)
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for LLM providers
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// New creates a new LLM client using the shared default transport.
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config, headerSetter)
}

// NewWithHTTPClient creates a new LLM client with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// Request represents an HTTP request to be made
type Request struct {
	Method string
	// URL is the absolute upstream URL
	URL string
	// Endpoint is the logical endpoint name, used for metrics labels
	Endpoint string
	// Model is recorded in hooks only
	Model   string
	Body    any
	Headers map[string]string

	// RawErrorBody reports non-2xx responses with the response body text as
	// the error message instead of parsing an OpenAI error envelope.
	RawErrorBody bool
}

// Response represents an HTTP response
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// StreamResponse is a successful response whose body has not been read yet.
// The caller must close Body.
type StreamResponse struct {
	ContentType string
	Body        io.ReadCloser
}

// Do executes a request and unmarshals the JSON response into result.
func (c *Client) Do(ctx context.Context, req Request, result any) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to unmarshal response: "+err.Error(), err)
		}
	}

	return nil
}

// DoRaw executes a request and returns the fully read response.
// Non-2xx responses are turned into errors.
func (c *Client) DoRaw(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, finish := c.track(ctx, req, false)
	defer func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		finish(status, err)
	}()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to read response: "+err.Error(), err)
	}

	if !isSuccess(httpResp.StatusCode) {
		return &Response{StatusCode: httpResp.StatusCode}, c.statusError(req, httpResp.StatusCode, body)
	}

	return &Response{
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// DoStream executes a request and hands back the unread body so the caller
// can parse it incrementally. The caller must close the returned body.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	ctx, finish := c.track(ctx, req, true)

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		finish(0, err)
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		gwErr := core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to send request: "+err.Error(), err)
		finish(0, gwErr)
		return nil, gwErr
	}

	if !isSuccess(resp.StatusCode) {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close()

		gwErr := c.statusError(req, resp.StatusCode, respBody)
		finish(resp.StatusCode, gwErr)
		return nil, gwErr
	}

	finish(resp.StatusCode, nil)
	return &StreamResponse{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

func (c *Client) statusError(req Request, statusCode int, body []byte) error {
	if req.RawErrorBody {
		return core.NewProviderError(c.config.ProviderName, statusCode, string(body), nil)
	}
	return core.ParseProviderError(c.config.ProviderName, statusCode, body, nil)
}

// track fires OnRequestStart and returns a function that fires OnRequestEnd.
func (c *Client) track(ctx context.Context, req Request, stream bool) (context.Context, func(int, error)) {
	info := RequestInfo{
		Provider: c.config.ProviderName,
		Endpoint: req.Endpoint,
		Method:   req.Method,
		Model:    req.Model,
		Stream:   stream,
	}
	if c.config.Hooks.OnRequestStart != nil {
		ctx = c.config.Hooks.OnRequestStart(ctx, info)
	}
	start := time.Now()
	return ctx, func(status int, err error) {
		if c.config.Hooks.OnRequestEnd == nil {
			return
		}
		c.config.Hooks.OnRequestEnd(ctx, ResponseInfo{
			RequestInfo: info,
			StatusCode:  status,
			Duration:    time.Since(start),
			Err:         err,
		})
	}
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewInvalidRequestError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
