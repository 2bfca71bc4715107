package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/operations"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

type CitationFormatQuery struct {
	Citation  string   `json:"citation"`
	Footnotes []string `json:"footnotes,omitempty"`
	Analysis  string   `json:"analysis,omitempty"`
	Style     string   `json:"style,omitempty"`
	FileName  string   `json:"file_name,omitempty"`
}

type CitationFormatResponse struct {
	Style        string   `json:"style"`
	HTML         string   `json:"html"`
	Markdown     string   `json:"markdown,omitempty"`
	Footnotes    []string `json:"footnotes,omitempty"`
	EntryKeys    []string `json:"entry_keys,omitempty"`
	AnalysisHTML string   `json:"analysis_html,omitempty"`
}

func CitationFormatTool() *mcp.Tool {
	inputschema, err := jsonschema.For[CitationFormatQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name: "citation-format",
		Description: "Format citation text for display without calling a model. Normalizes the footnotes or reference list for the style, " +
			"annotates citation markers with their bibliography entries, italicizes titles and highlights newly inserted citations. " +
			"Returns HTML (<p>, <h3>, <em>, <strong>, annotated <span>) and Markdown.",
		InputSchema: inputschema,
	}
}

func CitationFormatToolHandler(ctx context.Context, req *mcp.CallToolRequest, query CitationFormatQuery, defaultStyle styles.Style, log logger.Logger) (*mcp.CallToolResult, *CitationFormatResponse, error) {
	log.Info("citation-format tool called")

	style, err := resolveStyle(query.Style, defaultStyle)
	if err != nil {
		log.Error("Invalid style: %v", err)
		return nil, nil, err
	}

	formatted := operations.FormatResult(models.CitationResult{
		FileName:  query.FileName,
		Citation:  query.Citation,
		Analysis:  query.Analysis,
		Footnotes: models.FootnotesList(query.Footnotes),
	}, style, log)

	return nil, &CitationFormatResponse{
		Style:        string(style),
		HTML:         formatted.HTML,
		Markdown:     formatted.Markdown,
		Footnotes:    formatted.Footnotes,
		EntryKeys:    formatted.EntryKeys,
		AnalysisHTML: formatted.AnalysisHTML,
	}, nil
}

// resolveStyle validates a requested style, falling back to the configured
// default when none was given.
func resolveStyle(name string, fallback styles.Style) (styles.Style, error) {
	if name == "" {
		return fallback, nil
	}
	return styles.Parse(name)
}
