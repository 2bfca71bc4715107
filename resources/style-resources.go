package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

const styleScheme = "style://"

// StyleResourceHandler serves the citation style table as resources.
type StyleResourceHandler struct{}

// NewStyleResourceHandler creates a new style resource handler
func NewStyleResourceHandler() *StyleResourceHandler {
	return &StyleResourceHandler{}
}

// ListResources returns one resource per supported style.
func (h *StyleResourceHandler) ListResources(ctx context.Context) []*mcp.Resource {
	var resources []*mcp.Resource
	for _, rule := range styles.All() {
		resources = append(resources, &mcp.Resource{
			URI:         styleScheme + strings.ToLower(string(rule.Name)),
			Name:        string(rule.Name),
			Description: fmt.Sprintf("%s citation style (%s)", rule.Name, rule.Family),
			MIMEType:    "application/json",
		})
	}
	return resources
}

// ReadResource reads style://{name} as the style's rule in JSON, or
// style://{name}/example as its example reference in plain text.
func (h *StyleResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !strings.HasPrefix(uri, styleScheme) {
		return nil, fmt.Errorf("invalid URI scheme, expected %s", styleScheme)
	}
	name, sub, _ := strings.Cut(strings.TrimPrefix(uri, styleScheme), "/")

	rule, err := styles.Lookup(name)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	contents := &mcp.ResourceContents{URI: uri}
	switch sub {
	case "":
		data, err := json.MarshalIndent(rule, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode style %s: %w", rule.Name, err)
		}
		contents.MIMEType = "application/json"
		contents.Text = string(data)
	case "example":
		contents.MIMEType = "text/plain"
		contents.Text = rule.Example
	default:
		return nil, fmt.Errorf("unknown resource type: %s", sub)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{contents}}, nil
}
