package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SourceDocument is one reference document submitted for citation. Exactly
// one of Data, URL, ZoteroID or Text should be set.
type SourceDocument struct {
	FileName string `json:"file_name,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
	ZoteroID string `json:"zotero_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

// DocumentData is raw document content together with its detected type
// ("pdf", "html", "md", "txt", "docx", "zip" or "unknown").
type DocumentData struct {
	Data []byte
	Type string
}

// ItemMetadata is bibliographic metadata known about a source before the
// model sees it, e.g. from Zotero.
type ItemMetadata struct {
	Title           string   `json:"title,omitempty"`
	Authors         []string `json:"authors,omitempty"`
	ItemType        string   `json:"item_type,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Publication     string   `json:"publication,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	Volume          string   `json:"volume,omitempty"`
	Issue           string   `json:"issue,omitempty"`
	Pages           string   `json:"pages,omitempty"`
	DOI             string   `json:"doi,omitempty"`
	ISBN            string   `json:"isbn,omitempty"`
	ISSN            string   `json:"issn,omitempty"`
	URL             string   `json:"url,omitempty"`
}

// IsEmpty reports whether no field is set.
func (m *ItemMetadata) IsEmpty() bool {
	return m == nil || (m.Title == "" && len(m.Authors) == 0 && m.PublicationDate == "" &&
		m.Publication == "" && m.Publisher == "" && m.DOI == "" && m.ISBN == "" && m.URL == "")
}

// CitationResult is the citation generated for one document. Metadata is
// what the model identified, merged with any known hints.
type CitationResult struct {
	FileName  string        `json:"file_name"`
	Citation  string        `json:"citation"`
	Analysis  string        `json:"analysis,omitempty"`
	Footnotes Footnotes     `json:"footnotes,omitzero"`
	Metadata  *ItemMetadata `json:"metadata,omitempty"`
}

// CitationError reports a document that could not be cited.
type CitationError struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// GenerateResponse is the outcome of one generation batch. Results and
// Errors keep the order of the submitted documents.
type GenerateResponse struct {
	BatchID string           `json:"batch_id"`
	Style   string           `json:"style"`
	Results []CitationResult `json:"results"`
	Errors  []CitationError  `json:"errors"`
}

// Footnotes holds footnote text that arrives either as one string or as an
// ordered list of entries. It remembers which form it was decoded from and
// encodes back to the same form.
type Footnotes struct {
	Parts []string
	List  bool
}

// FootnotesText wraps a single footnote string.
func FootnotesText(s string) Footnotes {
	if s == "" {
		return Footnotes{}
	}
	return Footnotes{Parts: []string{s}}
}

// FootnotesList wraps an ordered list of entries.
func FootnotesList(parts []string) Footnotes {
	return Footnotes{Parts: parts, List: true}
}

// IsZero reports whether there are no footnotes.
func (f Footnotes) IsZero() bool {
	for _, p := range f.Parts {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

// Strings returns the entries in order.
func (f Footnotes) Strings() []string {
	return f.Parts
}

func (f Footnotes) MarshalJSON() ([]byte, error) {
	if f.List {
		parts := f.Parts
		if parts == nil {
			parts = []string{}
		}
		return json.Marshal(parts)
	}
	return json.Marshal(strings.Join(f.Parts, "\n\n"))
}

func (f *Footnotes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = Footnotes{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FootnotesText(s)
		return nil
	case len(data) > 0 && data[0] == '[':
		var parts []string
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("footnotes must be a string or a list of strings: %w", err)
		}
		*f = FootnotesList(parts)
		return nil
	}
	return fmt.Errorf("footnotes must be a string or a list of strings, got %s", data)
}
