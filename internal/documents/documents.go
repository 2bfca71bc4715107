package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Epistemic-Technology/citation-mcp/models"
	"github.com/Epistemic-Technology/zotero/zotero"
)

// Detected document types.
const (
	TypePDF            = "pdf"
	TypeHTML           = "html"
	TypeMarkdown       = "md"
	TypeText           = "txt"
	TypeDOCX           = "docx"
	TypeZip            = "zip"
	TypeZoteroSnapshot = "zotero-snapshot"
	TypeUnknown        = "unknown"
)

// maxDownloadSize caps URL and Zotero downloads.
const maxDownloadSize = 64 << 20

var (
	ErrNoSource      = errors.New("document has no data, url, zotero id or text")
	ErrNoData        = errors.New("no data retrieved")
	ErrZoteroNotConf = errors.New("zotero api key and library id are required")
)

// ZoteroCredentials identifies the Zotero library sources are fetched from.
type ZoteroCredentials struct {
	APIKey    string
	LibraryID string
}

func (c ZoteroCredentials) Valid() bool {
	return c.APIKey != "" && c.LibraryID != ""
}

var htmlPrefixes = [][]byte{
	[]byte("<!DOCTYPE html"),
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<HTML"),
}

var markdownHints = [][]byte{[]byte("# "), []byte("## "), []byte("```")}

// DetectDocumentType sniffs the document type from its leading bytes.
func DetectDocumentType(data []byte) string {
	switch {
	case len(data) == 0:
		return TypeUnknown
	case len(data) < 4:
		if isLikelyText(data) {
			return TypeText
		}
		return TypeUnknown
	case bytes.HasPrefix(data, []byte("%PDF")):
		return TypePDF
	}

	trimmed := bytes.TrimSpace(data)
	for _, prefix := range htmlPrefixes {
		if bytes.HasPrefix(trimmed, prefix) {
			return TypeHTML
		}
	}

	head := data[:min(len(data), 1024)]
	if data[0] == 'P' && data[1] == 'K' && (data[2] == 0x03 || data[2] == 0x05 || data[2] == 0x07) {
		switch {
		case bytes.Contains(head, []byte("word/")):
			return TypeDOCX
		case isZoteroSnapshotZip(data):
			return TypeZoteroSnapshot
		default:
			return TypeZip
		}
	}

	if !isLikelyText(data) {
		return TypeUnknown
	}
	for _, hint := range markdownHints {
		if bytes.Contains(head, hint) {
			return TypeMarkdown
		}
	}
	return TypeText
}

// isLikelyText reports whether the first 512 bytes are free of NULs and at
// least 90% printable ASCII or whitespace.
func isLikelyText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data[:min(len(data), 512)]
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	printable := 0
	for _, b := range sample {
		if (b >= 32 && b <= 126) || b == '\n' || b == '\r' || b == '\t' {
			printable++
		}
	}
	return float64(printable)/float64(len(sample)) > 0.9
}

// GetData resolves a source document to bytes and detects their type.
// Inline data wins over text, which wins over a URL, which wins over a
// Zotero key.
func GetData(ctx context.Context, source models.SourceDocument, creds ZoteroCredentials) (models.DocumentData, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case len(source.Data) > 0:
		data = source.Data
	case source.Text != "":
		return models.DocumentData{Data: []byte(source.Text), Type: TypeText}, nil
	case source.URL != "":
		data, err = GetFromURL(ctx, source.URL)
	case source.ZoteroID != "":
		data, err = GetFromZotero(ctx, source.ZoteroID, creds)
	default:
		return models.DocumentData{}, ErrNoSource
	}
	if err != nil {
		return models.DocumentData{}, err
	}
	if len(data) == 0 {
		return models.DocumentData{}, ErrNoData
	}
	return models.DocumentData{Data: data, Type: DetectDocumentType(data)}, nil
}

var httpClient = &http.Client{Timeout: 60 * time.Second}

// GetFromURL downloads a document. Non-2xx responses are errors.
func GetFromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", url, err)
	}
	req.Header.Set("User-Agent", "citation-mcp")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return data, nil
}

// GetFromZotero downloads the file attached to a Zotero item.
func GetFromZotero(ctx context.Context, zoteroID string, creds ZoteroCredentials) ([]byte, error) {
	if !creds.Valid() {
		return nil, ErrZoteroNotConf
	}
	client := zotero.NewClient(creds.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(creds.APIKey))
	data, err := client.File(ctx, zoteroID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Zotero file %s: %w", zoteroID, err)
	}
	return data, nil
}
