// Package server provides the HTTP front end for the F5AI adapter.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"f5gate/internal/core"
)

// Handler holds the HTTP handlers
type Handler struct {
	provider core.Provider
}

// NewHandler creates a new handler with the given provider
func NewHandler(provider core.Provider) *Handler {
	return &Handler{
		provider: provider,
	}
}

// ChatCompletion handles POST /v1/chat/completions
func (h *Handler) ChatCompletion(c echo.Context) error {
	var req core.ChatRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	if req.Stream {
		seq, err := h.provider.StreamChat(c.Request().Context(), &req)
		if err != nil {
			return handleError(c, err)
		}
		return streamChunks(c, seq)
	}

	resp, err := h.provider.ChatCompletion(c.Request().Context(), &req)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Completion handles POST /v1/completions. With stream=true the complete
// answer is sent as one SSE event.
func (h *Handler) Completion(c echo.Context) error {
	var req core.CompletionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	resp, err := h.provider.Completion(c.Request().Context(), &req)
	if err != nil {
		return handleError(c, err)
	}

	if !req.Stream {
		return c.JSON(http.StatusOK, resp)
	}

	writeSSEHeaders(c)
	if err := writeEvent(c, resp); err != nil {
		return nil
	}
	writeDone(c)
	return nil
}

// FIM handles POST /v1/fim/completions
func (h *Handler) FIM(c echo.Context) error {
	var req core.FIMRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	seq, err := h.provider.FIM(c.Request().Context(), &req)
	if err != nil {
		return handleError(c, err)
	}
	return streamChunks(c, seq)
}

// Embeddings handles POST /v1/embeddings
func (h *Handler) Embeddings(c echo.Context) error {
	var req core.EmbeddingRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if len(req.Input) == 0 {
		return handleError(c, core.NewInvalidRequestError("input is required", nil))
	}

	resp, err := h.provider.Embeddings(c.Request().Context(), &req)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Rerank handles POST /v1/rerank
func (h *Handler) Rerank(c echo.Context) error {
	var req core.RerankRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	resp, err := h.provider.Rerank(c.Request().Context(), &req)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListModels handles GET /v1/models
func (h *Handler) ListModels(c echo.Context) error {
	resp, err := h.provider.ListModels(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// streamChunks writes seq as SSE followed by [DONE]. An error before the
// first chunk is answered as a regular JSON error; later errors are sent as
// a final error event since the status line is already out.
func streamChunks(c echo.Context, seq core.ChunkSeq) error {
	next, stop := iter.Pull2(seq)
	defer stop()

	chunk, err, ok := next()
	if ok && err != nil {
		return handleError(c, err)
	}

	writeSSEHeaders(c)
	for ok {
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "stream failed", "error", err)
			_ = writeEvent(c, errorBody(err))
			return nil
		}
		if writeEvent(c, chunk) != nil {
			// Client went away
			return nil
		}
		chunk, err, ok = next()
	}
	writeDone(c)
	return nil
}

func writeSSEHeaders(c echo.Context) {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
}

func writeEvent(c echo.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

func writeDone(c echo.Context) {
	_, _ = fmt.Fprint(c.Response(), "data: [DONE]\n\n")
	c.Response().Flush()
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	// Errors raised by echo itself, e.g. an oversized body
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return c.JSON(httpErr.Code, map[string]any{
			"error": map[string]any{
				"type":    core.ErrorTypeInvalidRequest,
				"message": fmt.Sprint(httpErr.Message),
			},
		})
	}

	return c.JSON(http.StatusInternalServerError, errorBody(err))
}

func errorBody(err error) map[string]any {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.ToJSON()
	}

	// Fallback for unexpected errors
	return map[string]any{
		"error": map[string]any{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	}
}
