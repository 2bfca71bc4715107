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

type SourceInput struct {
	FileName string `json:"file_name,omitempty"`
	RawData  []byte `json:"raw_data,omitempty"`
	URL      string `json:"url,omitempty"`
	ZoteroID string `json:"zotero_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

type CitationGenerateQuery struct {
	Documents   []SourceInput `json:"documents"`
	Style       string        `json:"style,omitempty"`       // Defaults to the configured style
	Masterpiece string        `json:"masterpiece,omitempty"` // The user's own text to insert citations into
}

type CitationGenerateResponse struct {
	BatchID string           `json:"batch_id"`
	Style   string           `json:"style"`
	Results []CitationOutput `json:"results"`
	Errors  []CitationFailed `json:"errors"`
}

type CitationOutput struct {
	FileName     string               `json:"file_name"`
	Citation     string               `json:"citation"`
	Analysis     string               `json:"analysis,omitempty"`
	Footnotes    []string             `json:"footnotes,omitempty"`
	Metadata     *models.ItemMetadata `json:"metadata,omitempty"`
	HTML         string               `json:"html"`
	Markdown     string               `json:"markdown,omitempty"`
	AnalysisHTML string               `json:"analysis_html,omitempty"`
}

type CitationFailed struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

func CitationGenerateTool() *mcp.Tool {
	inputschema, err := jsonschema.For[CitationGenerateQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name: "citation-generate",
		Description: "Generate citations for one or more source documents (PDF, HTML, Markdown, plain text or Zotero snapshots) in a citation style. " +
			"Each document is given as raw_data, a url, a zotero_id or pasted text. The first page of each source is read with OpenAI's vision capabilities; " +
			"the result includes the citation, its footnotes or reference list, extracted metadata and a formatted HTML/Markdown rendition. " +
			"Set masterpiece to your own text to get it back with in-text citations inserted. Supported styles: " + joinNames() + ".",
		InputSchema: inputschema,
	}
}

func CitationGenerateToolHandler(ctx context.Context, req *mcp.CallToolRequest, query CitationGenerateQuery, generator *operations.Generator, defaultStyle styles.Style, log logger.Logger) (*mcp.CallToolResult, *CitationGenerateResponse, error) {
	log.Info("citation-generate tool called with %d documents", len(query.Documents))

	styleName := query.Style
	if styleName == "" {
		styleName = string(defaultStyle)
	}

	docs := make([]models.SourceDocument, len(query.Documents))
	for i, d := range query.Documents {
		docs[i] = models.SourceDocument{
			FileName: d.FileName,
			Data:     d.RawData,
			URL:      d.URL,
			ZoteroID: d.ZoteroID,
			Text:     d.Text,
		}
	}

	resp, err := generator.GenerateCitations(ctx, operations.GenerateRequest{
		Documents:   docs,
		Style:       styleName,
		Masterpiece: query.Masterpiece,
	})
	if err != nil {
		log.Error("Citation generation rejected: %v", err)
		return nil, nil, err
	}

	style := styles.Style(resp.Style)
	out := &CitationGenerateResponse{
		BatchID: resp.BatchID,
		Style:   resp.Style,
		Results: make([]CitationOutput, 0, len(resp.Results)),
		Errors:  make([]CitationFailed, 0, len(resp.Errors)),
	}
	for _, result := range resp.Results {
		formatted := operations.FormatResult(result, style, log)
		out.Results = append(out.Results, CitationOutput{
			FileName:     result.FileName,
			Citation:     result.Citation,
			Analysis:     result.Analysis,
			Footnotes:    formatted.Footnotes,
			Metadata:     result.Metadata,
			HTML:         formatted.HTML,
			Markdown:     formatted.Markdown,
			AnalysisHTML: formatted.AnalysisHTML,
		})
	}
	for _, e := range resp.Errors {
		out.Errors = append(out.Errors, CitationFailed{FileName: e.FileName, Error: e.Error})
	}

	log.Info("citation-generate finished: %d results, %d errors", len(out.Results), len(out.Errors))
	return nil, out, nil
}
