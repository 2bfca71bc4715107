// Package footnotes normalizes bibliography and footnote text returned by the
// model into paragraphs separated by a single canonical break.
package footnotes

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

// ParagraphBreak separates paragraphs in normalized text.
const ParagraphBreak = "\n\n"

var (
	trailingBlankRe = regexp.MustCompile(`[ \t]+\n`)
	extraBreaksRe   = regexp.MustCompile(`\n{3,}`)

	// leadingOrdinalRe matches "12. " at the start of a footnote paragraph.
	leadingOrdinalRe = regexp.MustCompile(`^\d{1,3}\.\s+`)

	// leadingBracketRe matches "[12]" and whatever whitespace follows it.
	leadingBracketRe = regexp.MustCompile(`^\[(\d+)\]\s*`)
)

// Normalize collapses line breaks and applies the style's per-paragraph
// rule. Applying it twice yields the same result as applying it once.
func Normalize(text string, style styles.Style) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = trailingBlankRe.ReplaceAllString(text, "\n")
	text = extraBreaksRe.ReplaceAllString(text, ParagraphBreak)

	family := style.Family()
	var paragraphs []string
	for _, para := range strings.Split(text, ParagraphBreak) {
		para = strings.TrimSpace(para)
		switch family {
		case styles.FamilyFootnote:
			para = stripOrdinals(para)
		case styles.FamilyNumeric:
			para = leadingBracketRe.ReplaceAllString(para, "[$1] ")
			para = strings.TrimSpace(para)
		}
		if para == "" {
			continue
		}
		paragraphs = append(paragraphs, para)
	}
	return strings.Join(paragraphs, ParagraphBreak)
}

// NormalizeParts joins an ordered list of entries and normalizes the result.
func NormalizeParts(parts []string, style styles.Style) string {
	return Normalize(strings.Join(parts, ParagraphBreak), style)
}

// Paragraphs splits normalized text on the canonical break. Empty input
// yields no paragraphs.
func Paragraphs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, para := range strings.Split(text, ParagraphBreak) {
		if strings.TrimSpace(para) != "" {
			out = append(out, para)
		}
	}
	return out
}

// Entries returns the display entries of normalized text. Footnote-family
// paragraphs lost their ordinals in Normalize and are renumbered "1. ",
// "2. " in order; other families are returned as is.
func Entries(text string, style styles.Style) []string {
	paras := Paragraphs(text)
	if style.Family() != styles.FamilyFootnote {
		return paras
	}
	for i, para := range paras {
		paras[i] = strconv.Itoa(i+1) + ". " + para
	}
	return paras
}

// stripOrdinals removes leading "N. " markers until none remain, so the
// result no longer starts with one.
func stripOrdinals(para string) string {
	for {
		loc := leadingOrdinalRe.FindStringIndex(para)
		if loc == nil {
			return para
		}
		para = strings.TrimSpace(para[loc[1]:])
	}
}
