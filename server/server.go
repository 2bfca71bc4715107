package server

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/citation-mcp/internal/config"
	"github.com/Epistemic-Technology/citation-mcp/internal/export"
	"github.com/Epistemic-Technology/citation-mcp/internal/llm"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/operations"
	"github.com/Epistemic-Technology/citation-mcp/resources"
	"github.com/Epistemic-Technology/citation-mcp/tools"
)

// Version is reported to MCP clients during initialization.
var Version = "v0.1.0"

// CreateServer builds the MCP server. Without an OpenAI API key the
// citation-generate tool is left out and the formatting, export and lookup
// tools still work.
func CreateServer(cfg *config.Config, log logger.Logger) (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{Name: "citation-mcp", Version: Version}, nil)

	defaultStyle := cfg.Style()
	zotero := cfg.ZoteroCredentials()
	exportSettings := tools.ExportSettings{
		Options:   export.Options{PageSize: cfg.Export.PageSize},
		OutputDir: cfg.Export.OutputDir,
	}

	generator, err := NewGenerator(cfg, log)
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		log.Warn("OpenAI API key not configured, citation-generate is disabled")
	case err != nil:
		return nil, err
	default:
		mcp.AddTool(server, tools.CitationGenerateTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.CitationGenerateQuery) (*mcp.CallToolResult, *tools.CitationGenerateResponse, error) {
			return tools.CitationGenerateToolHandler(ctx, req, query, generator, defaultStyle, log)
		})
	}

	mcp.AddTool(server, tools.CitationFormatTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.CitationFormatQuery) (*mcp.CallToolResult, *tools.CitationFormatResponse, error) {
		return tools.CitationFormatToolHandler(ctx, req, query, defaultStyle, log)
	})

	mcp.AddTool(server, tools.CitationExportTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.CitationExportQuery) (*mcp.CallToolResult, *tools.CitationExportResponse, error) {
		return tools.CitationExportToolHandler(ctx, req, query, defaultStyle, exportSettings, log)
	})

	mcp.AddTool(server, tools.CitationStylesTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.CitationStylesQuery) (*mcp.CallToolResult, *tools.CitationStylesResponse, error) {
		return tools.CitationStylesToolHandler(ctx, req, query, defaultStyle, log)
	})

	mcp.AddTool(server, tools.ZoteroSearchTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ZoteroSearchQuery) (*mcp.CallToolResult, *tools.ZoteroSearchResponse, error) {
		return tools.ZoteroSearchToolHandler(ctx, req, query, zotero, log)
	})

	styleResourceHandler := resources.NewStyleResourceHandler()
	for _, res := range styleResourceHandler.ListResources(context.Background()) {
		server.AddResource(res, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return styleResourceHandler.ReadResource(ctx, req.Params.URI)
		})
	}

	// Template for style rules
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "style://{name}",
		Name:        "citation-style",
		Description: "Conventions of a citation style: family, marker form, in-text and reference patterns",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return styleResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	// Template for style examples
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "style://{name}/example",
		Name:        "citation-style-example",
		Description: "An example reference formatted in the style",
		MIMEType:    "text/plain",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return styleResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	return server, nil
}

// NewGenerator wires the OpenAI citation generator, the shared rate limiter
// and Zotero credentials from the configuration.
func NewGenerator(cfg *config.Config, log logger.Logger) (*operations.Generator, error) {
	limiter := llm.NewLimiter(cfg.OpenAI.TokensPerMinute, cfg.OpenAI.MaxWorkers)
	citations, err := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
	}, limiter, log.Named("openai"))
	if err != nil {
		return nil, err
	}
	return &operations.Generator{
		Citations: citations,
		Limiter:   limiter,
		Zotero:    cfg.ZoteroCredentials(),
		Log:       log,
	}, nil
}
