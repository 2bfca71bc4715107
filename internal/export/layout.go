package export

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Epistemic-Technology/citation-mcp/internal/footnotes"
	"github.com/Epistemic-Technology/citation-mcp/internal/richtext"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileName derives the download name of an export: every non-alphanumeric
// character of the input becomes an underscore, prefixed with "citation_".
func FileName(input, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return "citation_" + unsafeNameRe.ReplaceAllString(input, "_") + ext
}

// document is the format-independent content of an export.
type document struct {
	Title       string
	Style       string
	Meta        string
	Body        []string
	RefsTitle   string
	Entries     []string
	Hanging     bool
	GeneratedOn string
}

func buildDocument(req Request) document {
	generated := req.Generated
	if generated.IsZero() {
		generated = time.Now()
	}
	rule := req.Style.Rule()

	doc := document{
		Title:       req.FileName,
		Style:       string(rule.Name),
		GeneratedOn: generated.Format("2 January 2006"),
		RefsTitle:   rule.BibliographyTitle,
	}
	if doc.Style == "" {
		doc.Style = string(req.Style)
	}
	doc.Meta = "Style: " + doc.Style + " | Generated: " + doc.GeneratedOn

	doc.Body = footnotes.Paragraphs(richtext.StripMarkup(req.Content))

	parts := make([]string, 0, len(req.Footnotes))
	for _, part := range req.Footnotes {
		parts = append(parts, richtext.StripMarkup(part))
	}
	notes := footnotes.Entries(footnotes.NormalizeParts(parts, req.Style), req.Style)
	if len(notes) == 0 {
		return doc
	}
	if rule.Family == styles.FamilyFootnote {
		doc.Entries = []string{strings.Join(notes, "\n")}
		return doc
	}
	doc.Entries = notes
	doc.Hanging = true
	return doc
}

// Paginate decides which blocks start a new page. heights are block sizes
// in lines; a block that would overflow the remaining space of a page that
// already holds content moves to the next page.
func Paginate(heights []int, capacity int) []bool {
	breaks := make([]bool, len(heights))
	if capacity <= 0 {
		return breaks
	}
	used := 0
	for i, h := range heights {
		if used > 0 && used+h > capacity {
			breaks[i] = true
			used = 0
		}
		used += h
		for used > capacity {
			used -= capacity
		}
	}
	return breaks
}

// estimateLines approximates how many lines a paragraph occupies, plus one
// for paragraph spacing.
func estimateLines(text string, charsPerLine int) int {
	lines := 0
	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		lines += max(1, (n+charsPerLine-1)/charsPerLine)
	}
	return lines + 1
}
