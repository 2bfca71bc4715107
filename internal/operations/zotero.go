package operations

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/citation-mcp/internal/documents"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

const (
	defaultSearchLimit = 25
	maxSearchLimit     = 100
)

// ZoteroSearchParams narrows a search for sources to cite.
type ZoteroSearchParams struct {
	Query      string   // matched against title, creator and year
	Tags       []string
	ItemTypes  []string // "book", "-attachment", ...
	Collection string   // collection key
	Limit      int
	Sort       string
}

// ZoteroItem is a citable Zotero item with the files that can be sent to
// citation generation as zotero_id sources.
type ZoteroItem struct {
	Key         string
	Metadata    *models.ItemMetadata
	Attachments []Attachment
}

// Attachment is a file stored under a Zotero item.
type Attachment struct {
	Key         string
	Filename    string
	ContentType string
	LinkMode    string
}

// Citable reports whether the attachment holds a format citation
// generation reads.
func (a Attachment) Citable() bool {
	switch a.ContentType {
	case "application/pdf", "text/html", "text/plain", "text/markdown":
		return true
	}
	return false
}

// SearchZotero finds items in the configured library along with their
// attachments. An item whose attachments cannot be listed is still returned,
// without attachments.
func SearchZotero(ctx context.Context, creds documents.ZoteroCredentials, params ZoteroSearchParams, log logger.Logger) ([]ZoteroItem, error) {
	if !creds.Valid() {
		return nil, documents.ErrZoteroNotConf
	}
	client := zotero.NewClient(creds.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(creds.APIKey))

	query := &zotero.QueryParams{
		Q:        params.Query,
		QMode:    "titleCreatorYear",
		Tag:      params.Tags,
		ItemType: params.ItemTypes,
		Limit:    params.Limit,
		Sort:     params.Sort,
	}
	switch {
	case query.Limit <= 0:
		query.Limit = defaultSearchLimit
	case query.Limit > maxSearchLimit:
		query.Limit = maxSearchLimit
	}
	if query.Sort == "" {
		query.Sort = "dateModified"
	}
	if len(query.ItemType) == 0 {
		query.ItemType = []string{"-attachment"}
	}

	var items []zotero.Item
	var err error
	if params.Collection != "" {
		items, err = client.CollectionItems(ctx, params.Collection, query)
		if err != nil {
			return nil, fmt.Errorf("failed to search collection %s: %w", params.Collection, err)
		}
	} else {
		items, err = client.Items(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to search Zotero library: %w", err)
		}
	}
	log.Info("Found %d items in Zotero library", len(items))

	results := make([]ZoteroItem, 0, len(items))
	for i := range items {
		item := &items[i]
		if item.Data.ItemType == "attachment" || item.Data.ItemType == "note" {
			continue
		}
		result := ZoteroItem{Key: item.Key, Metadata: documents.ZoteroItemMetadata(item)}

		children, err := client.Children(ctx, item.Key, nil)
		if err != nil {
			log.Warn("Failed to list attachments of %s: %v", item.Key, err)
			results = append(results, result)
			continue
		}
		for _, child := range children {
			if child.Data.ItemType != "attachment" {
				continue
			}
			result.Attachments = append(result.Attachments, Attachment{
				Key:         child.Key,
				Filename:    child.Data.Filename,
				ContentType: child.Data.ContentType,
				LinkMode:    child.Data.LinkMode,
			})
		}
		results = append(results, result)
	}
	return results, nil
}
