package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/citation-mcp/internal/llm"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range fallbackEnv {
		t.Setenv(env, "")
	}
	for key := range defaults {
		t.Setenv(EnvPrefix+"_"+envKey(key), "")
	}
}

func envKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "citation-mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-5-mini", cfg.OpenAI.Model)
	assert.Equal(t, 5, cfg.OpenAI.MaxWorkers)
	assert.Equal(t, llm.DefaultTokensPerMinute, cfg.OpenAI.TokensPerMinute)
	assert.Equal(t, styles.APA, cfg.Style())
	assert.Equal(t, "A4", cfg.Export.PageSize)
}

func TestNew_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
default_style: oscola
openai:
  model: gpt-5
  max_workers: 2
zotero:
  library_id: "12345"
export:
  page_size: letter
`)
	t.Setenv("OPENAI_API_KEY", "plain-key")
	t.Setenv("ZOTERO_API_KEY", "zot-key")
	t.Setenv("CITATION_MCP_OPENAI_MODEL", "gpt-5-nano")

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, styles.OSCOLA, cfg.Style(), "style names are canonicalised")
	assert.Equal(t, "gpt-5-nano", cfg.OpenAI.Model, "prefixed env beats the file")
	assert.Equal(t, 2, cfg.OpenAI.MaxWorkers)
	assert.Equal(t, "plain-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "zot-key", cfg.ZoteroCredentials().APIKey)
	assert.Equal(t, "12345", cfg.ZoteroCredentials().LibraryID)
	assert.Equal(t, "letter", cfg.Export.PageSize)
}

func TestNew_PrefixedKeyWins(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "plain")
	t.Setenv("CITATION_MCP_OPENAI_API_KEY", "prefixed")

	cfg, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.OpenAI.APIKey)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown style", "default_style: turabian\n"},
		{"zero workers", "openai:\n  max_workers: 0\n"},
		{"bad page size", "export:\n  page_size: A5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := New(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestNew_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := New(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
