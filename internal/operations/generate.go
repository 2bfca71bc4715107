package operations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/citation-mcp/internal/documents"
	"github.com/Epistemic-Technology/citation-mcp/internal/llm"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

var (
	ErrNoDocuments   = errors.New("no documents provided")
	ErrEmptyDocument = errors.New("document has no content")
)

// GenerateRequest is one batch of sources to cite in a single style.
type GenerateRequest struct {
	Documents   []models.SourceDocument
	Style       string
	Masterpiece string
}

// Generator runs citation batches.
type Generator struct {
	Citations llm.CitationGenerator
	Limiter   *llm.Limiter
	Zotero    documents.ZoteroCredentials
	Log       logger.Logger
}

// GenerateCitations validates the request, then cites every document
// concurrently. Per-document failures land in Errors and never fail the
// batch; only validation problems are returned as an error.
func (g *Generator) GenerateCitations(ctx context.Context, req GenerateRequest) (*models.GenerateResponse, error) {
	style, err := styles.Parse(req.Style)
	if err != nil {
		return nil, err
	}
	if len(req.Documents) == 0 {
		return nil, ErrNoDocuments
	}
	names := UniqueNames(req.Documents)
	for i, doc := range req.Documents {
		if isEmpty(doc) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, names[i])
		}
	}

	batchID := uuid.NewString()
	log := g.Log.Named("batch " + batchID[:8])
	log.Info("Generating %s citations for %d documents", style, len(req.Documents))

	outcomes := llm.ParallelProcess(ctx, g.Limiter, req.Documents, log, func(ctx context.Context, i int, doc models.SourceDocument) (*models.CitationResult, error) {
		return g.citeOne(ctx, names[i], doc, style, req.Masterpiece, log)
	})

	resp := &models.GenerateResponse{
		BatchID: batchID,
		Style:   string(style),
		Results: []models.CitationResult{},
		Errors:  []models.CitationError{},
	}
	for i, o := range outcomes {
		if o.Err != nil {
			log.Error("Failed to cite %s: %v", names[i], o.Err)
			resp.Errors = append(resp.Errors, models.CitationError{FileName: names[i], Error: o.Err.Error()})
			continue
		}
		if o.Value == nil {
			log.Error("Failed to cite %s: %v", names[i], llm.ErrEmptyCitation)
			resp.Errors = append(resp.Errors, models.CitationError{FileName: names[i], Error: llm.ErrEmptyCitation.Error()})
			continue
		}
		resp.Results = append(resp.Results, *o.Value)
	}
	log.Info("Batch finished: %d cited, %d failed", len(resp.Results), len(resp.Errors))
	return resp, nil
}

func (g *Generator) citeOne(ctx context.Context, name string, doc models.SourceDocument, style styles.Style, masterpiece string, log logger.Logger) (*models.CitationResult, error) {
	data, err := documents.GetData(ctx, doc, g.Zotero)
	if err != nil {
		return nil, err
	}
	content, err := documents.Prepare(data)
	if err != nil {
		return nil, err
	}

	var hints *models.ItemMetadata
	if doc.ZoteroID != "" {
		hints, err = documents.FetchZoteroMetadata(ctx, doc.ZoteroID, g.Zotero)
		if err != nil {
			log.Warn("No Zotero metadata for %s: %v", name, err)
		}
	}

	log.Debug("Citing %s (%s)", name, data.Type)
	result, err := g.Citations.Generate(ctx, llm.CitationRequest{
		FileName:    name,
		Content:     content,
		Style:       style,
		Hints:       hints,
		Masterpiece: masterpiece,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, llm.ErrEmptyCitation
	}
	result.FileName = name
	result.Metadata = documents.MergeMetadata(hints, result.Metadata)
	return result, nil
}

func isEmpty(doc models.SourceDocument) bool {
	return len(doc.Data) == 0 && strings.TrimSpace(doc.Text) == "" &&
		strings.TrimSpace(doc.URL) == "" && strings.TrimSpace(doc.ZoteroID) == ""
}

// UniqueNames names every document and disambiguates repeats as
// "name (2)", "name (3)" in submission order. Results are keyed by name.
func UniqueNames(docs []models.SourceDocument) []string {
	names := make([]string, len(docs))
	seen := make(map[string]int, len(docs))
	taken := make(map[string]bool, len(docs))
	for i, doc := range docs {
		base := displayName(doc, i)
		name, n := base, seen[base]
		for taken[name] {
			n = max(n, 1) + 1
			name = fmt.Sprintf("%s (%d)", base, n)
		}
		seen[base] = n
		taken[name] = true
		names[i] = name
	}
	return names
}

func displayName(doc models.SourceDocument, i int) string {
	if name := strings.TrimSpace(doc.FileName); name != "" {
		return name
	}
	switch {
	case doc.URL != "":
		if u, err := url.Parse(doc.URL); err == nil {
			if base := path.Base(u.Path); base != "." && base != "/" {
				return base
			}
			if u.Host != "" {
				return u.Host
			}
		}
	case doc.ZoteroID != "":
		return "zotero-" + doc.ZoteroID
	case doc.Text != "":
		return fmt.Sprintf("text-%d.txt", i+1)
	}
	return fmt.Sprintf("document-%d", i+1)
}
