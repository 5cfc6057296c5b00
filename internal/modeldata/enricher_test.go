package modeldata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f5gate/internal/core"
)

func TestDefault_KnownModels(t *testing.T) {
	c := Default()

	o1mini, ok := c.Models["o1-mini"]
	require.True(t, ok)
	assert.Equal(t, "o1 Mini", o1mini.DisplayName)
	require.NotNil(t, o1mini.MaxOutputTokens)
	assert.Equal(t, 65536, *o1mini.MaxOutputTokens)

	_, ok = c.Models["text-embedding-3-large"]
	assert.True(t, ok)
}

func TestEnrich_MatchedAndUnmatched(t *testing.T) {
	resp := &core.ModelsResponse{
		Object: "list",
		Data: []core.Model{
			{ID: "gpt-4o"},
			{ID: "unknown-model"},
			{ID: "o3-mini"},
		},
	}

	Enrich(resp, Default())

	require.Len(t, resp.Data, 3)
	assert.Equal(t, []string{"gpt-4o", "unknown-model", "o3-mini"}, resp.IDs())

	require.NotNil(t, resp.Data[0].Metadata)
	assert.Equal(t, "GPT-4o", resp.Data[0].Metadata.DisplayName)
	assert.Equal(t, 128000, *resp.Data[0].Metadata.ContextWindow)
	assert.Nil(t, resp.Data[1].Metadata)
	assert.Equal(t, []string{"chat"}, resp.Data[2].Metadata.Modes)
}

func TestEnrich_NilSafe(t *testing.T) {
	Enrich(nil, Default())
	resp := &core.ModelsResponse{Data: []core.Model{{ID: "gpt-4o"}}}
	Enrich(resp, nil)
	assert.Nil(t, resp.Data[0].Metadata)
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  gpt-4o:
    display_name: GPT-4o (F5)
    context_window: 64000
  qwen-coder:
    display_name: Qwen Coder
    modes: [chat, fim]
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "GPT-4o (F5)", c.Models["gpt-4o"].DisplayName)
	assert.Equal(t, 64000, *c.Models["gpt-4o"].ContextWindow)
	assert.Equal(t, []string{"chat", "fim"}, c.Models["qwen-coder"].Modes)
	assert.Contains(t, c.Models, "o1")
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("models: [unclosed"))
	require.Error(t, err)
}
