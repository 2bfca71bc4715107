package operations

import (
	"strings"

	"github.com/Epistemic-Technology/citation-mcp/internal/footnotes"
	"github.com/Epistemic-Technology/citation-mcp/internal/format"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

// FormattedCitation is a citation ready for display.
type FormattedCitation struct {
	FileName     string
	HTML         string
	Markdown     string
	Footnotes    []string
	AnalysisHTML string
	EntryKeys    []string
}

// FormatResult normalizes the footnotes of a result and renders the citation
// as markup with the footnotes listed under the style's bibliography title.
// Rendering failures of the secondary forms are logged and leave those
// fields empty.
func FormatResult(result models.CitationResult, style styles.Style, log logger.Logger) FormattedCitation {
	out := FormattedCitation{FileName: result.FileName}

	normalized := footnotes.NormalizeParts(result.Footnotes.Strings(), style)
	out.Footnotes = footnotes.Entries(normalized, style)

	var entries []format.Entry
	out.HTML, entries = format.FormatWithNotes(strings.TrimSpace(result.Citation), out.Footnotes, style)
	for _, e := range entries {
		out.EntryKeys = append(out.EntryKeys, e.Key)
	}

	md, err := format.ToMarkdown(out.HTML)
	if err != nil {
		log.Warn("Failed to convert %s to markdown: %v", result.FileName, err)
	}
	out.Markdown = md

	analysis, err := format.RenderAnalysis(result.Analysis)
	if err != nil {
		log.Warn("Failed to render analysis for %s: %v", result.FileName, err)
	}
	out.AnalysisHTML = analysis
	return out
}
