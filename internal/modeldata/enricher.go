package modeldata

import (
	"log/slog"

	"f5gate/internal/core"
)

// Resolve returns the metadata for modelID, or nil when the catalog has no
// entry for it.
func Resolve(c *Catalog, modelID string) *core.ModelMetadata {
	if c == nil {
		return nil
	}
	entry, ok := c.Models[modelID]
	if !ok {
		return nil
	}
	return &core.ModelMetadata{
		DisplayName:     entry.DisplayName,
		Modes:           append([]string(nil), entry.Modes...),
		ContextWindow:   entry.ContextWindow,
		MaxOutputTokens: entry.MaxOutputTokens,
	}
}

// Enrich attaches catalog metadata to every listed model the catalog knows.
// Order and membership of resp.Data are left unchanged.
func Enrich(resp *core.ModelsResponse, c *Catalog) {
	if resp == nil || c == nil {
		return
	}

	var enriched int
	for i := range resp.Data {
		if meta := Resolve(c, resp.Data[i].ID); meta != nil {
			resp.Data[i].Metadata = meta
			enriched++
		}
	}

	slog.Debug("enriched models with metadata",
		"enriched", enriched,
		"total", len(resp.Data),
	)
}
