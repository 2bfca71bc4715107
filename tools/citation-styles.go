package tools

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

type CitationStylesQuery struct {
	Style string `json:"style,omitempty"` // Return only this style
}

type CitationStylesResponse struct {
	Styles  []styles.Rule `json:"styles"`
	Default string        `json:"default"`
}

func CitationStylesTool() *mcp.Tool {
	inputschema, err := jsonschema.For[CitationStylesQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "citation-styles",
		Description: "List the supported citation styles with their in-text and reference conventions, marker form and bibliography heading.",
		InputSchema: inputschema,
	}
}

func CitationStylesToolHandler(ctx context.Context, req *mcp.CallToolRequest, query CitationStylesQuery, defaultStyle styles.Style, log logger.Logger) (*mcp.CallToolResult, *CitationStylesResponse, error) {
	log.Info("citation-styles tool called")

	resp := &CitationStylesResponse{Default: string(defaultStyle)}
	if query.Style == "" {
		resp.Styles = styles.All()
		return nil, resp, nil
	}
	rule, err := styles.Lookup(query.Style)
	if err != nil {
		return nil, nil, err
	}
	resp.Styles = []styles.Rule{rule}
	return nil, resp, nil
}

func joinNames() string {
	return strings.Join(styles.Names(), ", ")
}
