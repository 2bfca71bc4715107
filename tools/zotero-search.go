package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/citation-mcp/internal/documents"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/operations"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

type ZoteroSearchQuery struct {
	Query      string   `json:"query,omitempty"`      // Quick search text (searches title, creator, year)
	Tags       []string `json:"tags,omitempty"`       // Filter by tags
	ItemTypes  []string `json:"item_types,omitempty"` // Filter by type (e.g., "book", "journalArticle")
	Collection string   `json:"collection,omitempty"` // Filter by collection key
	Limit      int      `json:"limit,omitempty"`      // Max results (default 25, max 100)
	Sort       string   `json:"sort,omitempty"`       // Sort field (default "dateModified")
}

type ZoteroSearchResponse struct {
	Items []ZoteroItemResult `json:"items"`
	Count int                `json:"count"`
}

type ZoteroItemResult struct {
	Key         string               `json:"key"`
	Metadata    *models.ItemMetadata `json:"metadata,omitempty"`
	Attachments []AttachmentInfo     `json:"attachments,omitempty"`
}

type AttachmentInfo struct {
	Key         string `json:"key"` // Use this as zotero_id in citation-generate
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	LinkMode    string `json:"link_mode"`
	Citable     bool   `json:"citable"`
}

func ZoteroSearchTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ZoteroSearchQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name: "zotero-search",
		Description: "Search a Zotero library for sources to cite. Returns bibliographic metadata and file attachments for each item. " +
			"Pass a citable attachment key as zotero_id to citation-generate; the item's Zotero metadata is used to check the generated citation.",
		InputSchema: inputschema,
	}
}

func ZoteroSearchToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ZoteroSearchQuery, creds documents.ZoteroCredentials, log logger.Logger) (*mcp.CallToolResult, *ZoteroSearchResponse, error) {
	log.Info("zotero-search tool called")

	items, err := operations.SearchZotero(ctx, creds, operations.ZoteroSearchParams{
		Query:      query.Query,
		Tags:       query.Tags,
		ItemTypes:  query.ItemTypes,
		Collection: query.Collection,
		Limit:      query.Limit,
		Sort:       query.Sort,
	}, log)
	if err != nil {
		log.Error("Zotero search failed: %v", err)
		return nil, nil, err
	}

	results := make([]ZoteroItemResult, len(items))
	for i, item := range items {
		results[i] = ZoteroItemResult{Key: item.Key, Metadata: item.Metadata}
		for _, att := range item.Attachments {
			results[i].Attachments = append(results[i].Attachments, AttachmentInfo{
				Key:         att.Key,
				Filename:    att.Filename,
				ContentType: att.ContentType,
				LinkMode:    att.LinkMode,
				Citable:     att.Citable(),
			})
		}
	}
	return nil, &ZoteroSearchResponse{Items: results, Count: len(results)}, nil
}
