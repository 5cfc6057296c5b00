package server

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/labstack/echo/v4"

	"f5gate/internal/core"
)

// modelRequiredPaths are the routes whose body must name a model.
// Embeddings fall back to the configured embedding model.
var modelRequiredPaths = map[string]bool{
	"/v1/chat/completions": true,
	"/v1/completions":      true,
	"/v1/fim/completions":  true,
	"/v1/rerank":           true,
}

// ModelValidation rejects model-interaction requests that do not name a
// model before they reach the provider. Bodies that are not JSON are left
// for the handler's binder to report.
func ModelValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !modelRequiredPaths[c.Request().URL.Path] {
				return next(c)
			}

			bodyBytes, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return handleError(c, err)
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek struct {
				Model string `json:"model"`
			}
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				return next(c)
			}

			if peek.Model == "" {
				return handleError(c, core.NewInvalidRequestError("model is required", nil))
			}

			return next(c)
		}
	}
}
