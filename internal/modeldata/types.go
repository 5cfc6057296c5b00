// Package modeldata holds the catalog of known F5AI models and attaches its
// metadata to model listings.
package modeldata

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog maps model IDs to their metadata.
type Catalog struct {
	Version int                   `yaml:"version"`
	Models  map[string]ModelEntry `yaml:"models"`
}

// ModelEntry describes one model.
type ModelEntry struct {
	DisplayName     string   `yaml:"display_name"`
	ContextWindow   *int     `yaml:"context_window"`
	MaxOutputTokens *int     `yaml:"max_output_tokens"`
	Modes           []string `yaml:"modes"`
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if c.Models == nil {
		c.Models = make(map[string]ModelEntry)
	}
	return &c, nil
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads a catalog from path and layers it over the default one.
// Entries in the file replace default entries with the same ID.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog: %w", err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}

	c := Default()
	for id, entry := range override.Models {
		c.Models[id] = entry
	}
	return c, nil
}
