package tools

import (
	"context"
	"encoding/base64"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/citation-mcp/internal/export"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/operations"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

type CitationExportQuery struct {
	FileName  string               `json:"file_name"`
	Citation  string               `json:"citation"`
	Footnotes []string             `json:"footnotes,omitempty"`
	Metadata  *models.ItemMetadata `json:"metadata,omitempty"` // Required for format "bib"
	Style     string               `json:"style,omitempty"`
	Format    string               `json:"format"`         // "pdf", "docx" or "bib"
	Save      bool                 `json:"save,omitempty"` // Write the file to the configured output directory
}

type CitationExportResponse struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Data        string `json:"data,omitempty"` // Base64, present unless the file was saved
	Path        string `json:"path,omitempty"`
}

// ExportSettings are the configured defaults the export tool applies.
type ExportSettings struct {
	Options   export.Options
	OutputDir string
}

func CitationExportTool() *mcp.Tool {
	inputschema, err := jsonschema.For[CitationExportQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name: "citation-export",
		Description: "Export a citation and its footnotes or references as a PDF or DOCX document, or its metadata as a BibTeX file. " +
			"Returns the file as base64 data, or writes it to the configured output directory when save is true.",
		InputSchema: inputschema,
	}
}

func CitationExportToolHandler(ctx context.Context, req *mcp.CallToolRequest, query CitationExportQuery, defaultStyle styles.Style, settings ExportSettings, log logger.Logger) (*mcp.CallToolResult, *CitationExportResponse, error) {
	log.Info("citation-export tool called for %s (%s)", query.FileName, query.Format)

	kind, err := export.ParseKind(query.Format)
	if err != nil {
		return nil, nil, err
	}
	style, err := resolveStyle(query.Style, defaultStyle)
	if err != nil {
		return nil, nil, err
	}

	params := operations.ExportParams{Kind: kind, Options: settings.Options}
	if query.Save {
		params.OutputDir = settings.OutputDir
	}
	out, err := operations.ExportCitation(models.CitationResult{
		FileName:  query.FileName,
		Citation:  query.Citation,
		Footnotes: models.FootnotesList(query.Footnotes),
		Metadata:  query.Metadata,
	}, style, params, log)
	if err != nil {
		return nil, nil, err
	}

	resp := &CitationExportResponse{
		FileName:    out.Artifact.FileName,
		ContentType: out.Artifact.ContentType,
		Size:        len(out.Artifact.Data),
		Path:        out.Path,
	}
	if out.Path == "" {
		resp.Data = base64.StdEncoding.EncodeToString(out.Artifact.Data)
	}
	return nil, resp, nil
}
