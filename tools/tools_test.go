package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/citation-mcp/internal/documents"
	"github.com/Epistemic-Technology/citation-mcp/internal/llm"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/operations"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, req llm.CitationRequest) (*models.CitationResult, error) {
	if strings.Contains(req.Content.Text, "fail") {
		return nil, errors.New("model refused")
	}
	return &models.CitationResult{
		Citation:  "Climate is changing [1].",
		Analysis:  "Found *title*.",
		Footnotes: models.FootnotesText("[1]A. Smith, Climate, 2020."),
	}, nil
}

func TestToolDefinitions(t *testing.T) {
	for _, name := range []string{
		CitationGenerateTool().Name,
		CitationFormatTool().Name,
		CitationExportTool().Name,
		CitationStylesTool().Name,
		ZoteroSearchTool().Name,
	} {
		assert.NotEmpty(t, name)
	}
	assert.Contains(t, CitationGenerateTool().Description, "OSCOLA")
}

func TestCitationGenerateToolHandler(t *testing.T) {
	generator := &operations.Generator{
		Citations: stubGenerator{},
		Limiter:   llm.NewLimiter(llm.DefaultTokensPerMinute, 2),
		Log:       logger.NewNoOpLogger(),
	}
	query := CitationGenerateQuery{
		Style: "ieee",
		Documents: []SourceInput{
			{FileName: "a.txt", Text: "Climate, by A. Smith"},
			{FileName: "b.txt", Text: "please fail"},
		},
	}

	_, resp, err := CitationGenerateToolHandler(context.Background(), nil, query, generator, styles.APA, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, "IEEE", resp.Style)

	require.Len(t, resp.Results, 1)
	result := resp.Results[0]
	assert.Equal(t, "a.txt", result.FileName)
	assert.Equal(t, []string{"[1] A. Smith, Climate, 2020."}, result.Footnotes)
	assert.Contains(t, result.HTML, "citation-marker")
	assert.Contains(t, result.AnalysisHTML, "<em>title</em>")

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CitationFailed{FileName: "b.txt", Error: "model refused"}, resp.Errors[0])
}

func TestCitationGenerateToolHandler_RejectsBadStyle(t *testing.T) {
	generator := &operations.Generator{Citations: stubGenerator{}, Log: logger.NewNoOpLogger()}
	query := CitationGenerateQuery{Style: "Bluebook", Documents: []SourceInput{{Text: "x"}}}

	_, resp, err := CitationGenerateToolHandler(context.Background(), nil, query, generator, styles.APA, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, styles.ErrUnknownStyle)
	assert.Nil(t, resp)
}

func TestCitationFormatToolHandler(t *testing.T) {
	query := CitationFormatQuery{
		Citation:  "Climate is changing.¹",
		Footnotes: []string{"3. Smith, Climate (OUP 2020) 4."},
	}
	_, resp, err := CitationFormatToolHandler(context.Background(), nil, query, styles.Chicago, logger.NewNoOpLogger())
	require.NoError(t, err)

	assert.Equal(t, "Chicago", resp.Style)
	assert.Equal(t, []string{"1. Smith, Climate (OUP 2020) 4."}, resp.Footnotes)
	assert.Equal(t, []string{"1"}, resp.EntryKeys)
	assert.Contains(t, resp.HTML, "<p>")

	_, _, err = CitationFormatToolHandler(context.Background(), nil, CitationFormatQuery{Citation: "x", Style: "nope"}, styles.APA, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, styles.ErrUnknownStyle)
}

func TestCitationExportToolHandler(t *testing.T) {
	log := logger.NewNoOpLogger()

	t.Run("returns data", func(t *testing.T) {
		query := CitationExportQuery{FileName: "paper.pdf", Citation: "Smith (2020).", Footnotes: []string{"Smith, J. (2020). Title."}, Format: "docx"}
		_, resp, err := CitationExportToolHandler(context.Background(), nil, query, styles.APA, ExportSettings{}, log)
		require.NoError(t, err)

		assert.Equal(t, "citation_paper_pdf.docx", resp.FileName)
		assert.Empty(t, resp.Path)
		data, err := base64.StdEncoding.DecodeString(resp.Data)
		require.NoError(t, err)
		assert.Equal(t, resp.Size, len(data))
		assert.True(t, strings.HasPrefix(string(data), "PK"))
	})

	t.Run("saves file", func(t *testing.T) {
		dir := t.TempDir()
		query := CitationExportQuery{
			FileName: "paper.pdf",
			Citation: "Smith (2020).",
			Metadata: &models.ItemMetadata{Title: "Title", Authors: []string{"Smith, John"}, PublicationDate: "2020"},
			Format:   "bibtex",
			Save:     true,
		}
		_, resp, err := CitationExportToolHandler(context.Background(), nil, query, styles.APA, ExportSettings{OutputDir: dir}, log)
		require.NoError(t, err)

		assert.Empty(t, resp.Data)
		assert.Equal(t, "application/x-bibtex", resp.ContentType)
		content, err := os.ReadFile(resp.Path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "title = {Title}")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := CitationExportToolHandler(context.Background(), nil, CitationExportQuery{FileName: "x", Format: "odt"}, styles.APA, ExportSettings{}, log)
		assert.Error(t, err)
	})
}

func TestCitationStylesToolHandler(t *testing.T) {
	log := logger.NewNoOpLogger()

	_, all, err := CitationStylesToolHandler(context.Background(), nil, CitationStylesQuery{}, styles.MLA, log)
	require.NoError(t, err)
	assert.Len(t, all.Styles, len(styles.Names()))
	assert.Equal(t, "MLA", all.Default)

	_, one, err := CitationStylesToolHandler(context.Background(), nil, CitationStylesQuery{Style: "oscola"}, styles.MLA, log)
	require.NoError(t, err)
	require.Len(t, one.Styles, 1)
	assert.Equal(t, styles.FamilyFootnote, one.Styles[0].Family)
}

func TestZoteroSearchToolHandler_MissingCredentials(t *testing.T) {
	_, _, err := ZoteroSearchToolHandler(context.Background(), nil, ZoteroSearchQuery{}, documents.ZoteroCredentials{}, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, documents.ErrZoteroNotConf)
}
