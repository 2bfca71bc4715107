package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

func TestDecodeResults(t *testing.T) {
	batch := `{"batch_id":"b","style":"OSCOLA","results":[{"file_name":"a.pdf","citation":"x","footnotes":"1. A."}],"errors":[]}`
	results, style, err := decodeResults([]byte(batch))
	require.NoError(t, err)
	assert.Equal(t, styles.OSCOLA, style)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"1. A."}, results[0].Footnotes.Strings())

	single := `{"file_name":"b.pdf","citation":"Smith (2020).","footnotes":["Smith, J. (2020)."]}`
	results, style, err = decodeResults([]byte(single))
	require.NoError(t, err)
	assert.Empty(t, style)
	assert.Equal(t, "b.pdf", results[0].FileName)

	_, _, err = decodeResults([]byte(`{"results":[]}`))
	assert.Error(t, err)
	_, _, err = decodeResults([]byte(`not json`))
	assert.Error(t, err)
}

func TestCollectSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(path, []byte("A source"), 0o644))

	docs, err := collectSources([]string{path}, []string{"https://example.com/a.pdf"}, []string{"ABCD1234"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "paper.txt", docs[0].FileName)
	assert.Equal(t, []byte("A source"), docs[0].Data)
	assert.Equal(t, "https://example.com/a.pdf", docs[1].URL)
	assert.Equal(t, "ABCD1234", docs[2].ZoteroID)

	_, err = collectSources([]string{filepath.Join(dir, "missing.pdf")}, nil, nil)
	assert.Error(t, err)
}
