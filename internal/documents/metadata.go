package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/citation-mcp/models"
	"github.com/Epistemic-Technology/zotero/zotero"
)

// FetchZoteroMetadata returns the bibliographic record behind a Zotero key.
// Attachment keys resolve to their parent item; an orphaned attachment
// yields nil metadata and no error.
func FetchZoteroMetadata(ctx context.Context, zoteroID string, creds ZoteroCredentials) (*models.ItemMetadata, error) {
	if !creds.Valid() {
		return nil, ErrZoteroNotConf
	}
	client := zotero.NewClient(creds.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(creds.APIKey))

	item, err := client.Item(ctx, zoteroID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Zotero item %s: %w", zoteroID, err)
	}
	if item.Data.ItemType == "attachment" && item.Data.ParentItem != "" {
		parent, err := client.Item(ctx, item.Data.ParentItem, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch parent item %s: %w", item.Data.ParentItem, err)
		}
		item = parent
	}
	if item.Data.ItemType == "attachment" {
		return nil, nil
	}
	return ZoteroItemMetadata(item), nil
}

// extraFields maps Zotero field names to metadata setters. Later fields
// win when an item carries several titles for its container.
var extraFields = []struct {
	name string
	set  func(*models.ItemMetadata, string)
}{
	{"date", func(m *models.ItemMetadata, v string) { m.PublicationDate = v }},
	{"publicationTitle", func(m *models.ItemMetadata, v string) { m.Publication = v }},
	{"bookTitle", func(m *models.ItemMetadata, v string) { m.Publication = v }},
	{"websiteTitle", func(m *models.ItemMetadata, v string) { m.Publication = v }},
	{"publisher", func(m *models.ItemMetadata, v string) { m.Publisher = v }},
	{"volume", func(m *models.ItemMetadata, v string) { m.Volume = v }},
	{"issue", func(m *models.ItemMetadata, v string) { m.Issue = v }},
	{"pages", func(m *models.ItemMetadata, v string) { m.Pages = v }},
	{"DOI", func(m *models.ItemMetadata, v string) { m.DOI = v }},
	{"ISBN", func(m *models.ItemMetadata, v string) { m.ISBN = v }},
	{"ISSN", func(m *models.ItemMetadata, v string) { m.ISSN = v }},
	{"url", func(m *models.ItemMetadata, v string) { m.URL = v }},
}

// ZoteroItemMetadata converts a Zotero item into bibliographic metadata.
func ZoteroItemMetadata(item *zotero.Item) *models.ItemMetadata {
	m := &models.ItemMetadata{
		Title:    item.Data.Title,
		ItemType: item.Data.ItemType,
	}
	for _, c := range item.Data.Creators {
		name := c.Name
		if name == "" {
			name = strings.TrimSpace(c.FirstName + " " + c.LastName)
		}
		if name != "" {
			m.Authors = append(m.Authors, name)
		}
	}
	for _, f := range extraFields {
		if v, ok := item.Data.Extra[f.name].(string); ok && v != "" {
			f.set(m, v)
		}
	}
	return m
}

// MergeMetadata combines known metadata with what the model read from the
// source. Known values win field by field; either side may be nil.
func MergeMetadata(known, extracted *models.ItemMetadata) *models.ItemMetadata {
	switch {
	case known.IsEmpty() && extracted.IsEmpty():
		return nil
	case known.IsEmpty():
		out := *extracted
		return &out
	case extracted.IsEmpty():
		out := *known
		return &out
	}

	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	merged := &models.ItemMetadata{
		Title:           pick(known.Title, extracted.Title),
		Authors:         known.Authors,
		ItemType:        pick(known.ItemType, extracted.ItemType),
		PublicationDate: pick(known.PublicationDate, extracted.PublicationDate),
		Publication:     pick(known.Publication, extracted.Publication),
		Publisher:       pick(known.Publisher, extracted.Publisher),
		Volume:          pick(known.Volume, extracted.Volume),
		Issue:           pick(known.Issue, extracted.Issue),
		Pages:           pick(known.Pages, extracted.Pages),
		DOI:             pick(known.DOI, extracted.DOI),
		ISBN:            pick(known.ISBN, extracted.ISBN),
		ISSN:            pick(known.ISSN, extracted.ISSN),
		URL:             pick(known.URL, extracted.URL),
	}
	if len(merged.Authors) == 0 {
		merged.Authors = extracted.Authors
	}
	return merged
}
