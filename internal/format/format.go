// Package format turns citation text returned by the model into markup for a
// rich-text surface: structure for plain text, annotated citation markers,
// style emphasis, a synthesized bibliography and highlighted new citations.
package format

import (
	"html"
	"strings"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Epistemic-Technology/citation-mcp/internal/richtext"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

// HeadingMaxLen is the length below which a period-free line of plain text
// is treated as a sub-heading.
const HeadingMaxLen = 60

// Format renders citation text as markup. It never fails: text it cannot
// process comes back escaped and otherwise untouched.
func Format(text string, style styles.Style) string {
	out, _ := FormatWithEntries(text, style)
	return out
}

// FormatWithEntries is Format that also returns the bibliography entries it
// extracted. Markup input is only highlighted, so it yields no entries.
func FormatWithEntries(text string, style styles.Style) (out string, entries []Entry) {
	defer func() {
		if r := recover(); r != nil {
			out, entries = html.EscapeString(text), nil
		}
	}()

	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if richtext.HasMarkup(text) {
		return highlightMarkup(text), nil
	}
	return formatPlain(text, style, nil)
}

// FormatWithNotes renders a citation followed by a bibliography section
// holding notes, the footnotes or reference list returned alongside it.
// Notes are always rendered as escaped text and every note is listed, even
// one no rule can key. The section is left out when the citation already
// has one; markers still take their hover text from the notes.
func FormatWithNotes(citation string, notes []string, style styles.Style) (out string, entries []Entry) {
	defer func() {
		if r := recover(); r != nil {
			out, entries = html.EscapeString(citation), nil
		}
	}()

	notes = cleanNotes(notes)
	if len(notes) == 0 {
		return FormatWithEntries(citation, style)
	}
	if richtext.HasMarkup(citation) {
		return formatMarkupWithNotes(citation, notes, style)
	}
	return formatPlain(citation, style, notes)
}

func formatMarkupWithNotes(markup string, notes []string, style styles.Style) (string, []Entry) {
	rules := RulesFor(style)
	entries, _ := noteEntries(notes, rules, nil)

	nodes, err := richtext.ParseFragment(markup)
	if err != nil {
		return markup, entries
	}
	if !hasBibliographyHeading(nodes) {
		blocks := append([]*richtext.Node{richtext.Heading(richtext.Text(style.Rule().BibliographyTitle))},
			noteBlocks(notes, style, rules)...)
		nodes = append(nodes, richtext.Document(blocks)...)
	}
	out, err := highlightNodes(nodes)
	if err != nil {
		return markup, entries
	}
	return out, entries
}

// cleanNotes folds each note onto one line and drops blank ones.
func cleanNotes(notes []string) []string {
	var out []string
	for _, note := range notes {
		if folded := strings.Join(strings.Fields(note), " "); folded != "" {
			out = append(out, folded)
		}
	}
	return out
}

// noteEntries keys the notes. A note repeating the key of a known entry
// from the citation text is reported in dup so it is not listed twice.
func noteEntries(notes []string, rules Rules, known []Entry) (entries []Entry, dup map[int]bool) {
	inText := make(map[string]bool, len(known))
	for _, e := range known {
		inText[e.Key] = true
	}
	taken := make(map[string]bool)
	dup = make(map[int]bool)
	for i, note := range notes {
		for _, e := range rules.Extract([]string{note}) {
			if inText[e.Key] {
				dup[i] = true
				continue
			}
			if taken[e.Key] {
				continue
			}
			taken[e.Key] = true
			e.Lines = nil
			entries = append(entries, e)
		}
	}
	return entries, dup
}

func noteBlocks(notes []string, style styles.Style, rules Rules) []*richtext.Node {
	blocks := make([]*richtext.Node, 0, len(notes))
	for _, note := range notes {
		_, entryLine := rules.EntryStart(note)
		blocks = append(blocks, richtext.Paragraph(inlineNodes(note, emphasisSpans(note, style, entryLine))...))
	}
	return blocks
}

// hasBibliographyHeading reports whether parsed markup already contains a
// heading such as "References" or "Footnotes".
func hasBibliographyHeading(nodes []*xhtml.Node) bool {
	var walk func(n *xhtml.Node) bool
	walk = func(n *xhtml.Node) bool {
		if n.Type == xhtml.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				if bibHeaderRe.MatchString(strings.TrimSpace(textContent(n))) {
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	for _, n := range nodes {
		if walk(n) {
			return true
		}
	}
	return false
}

func highlightMarkup(markup string) string {
	nodes, err := richtext.ParseFragment(markup)
	if err != nil {
		return markup
	}
	out, err := highlightNodes(nodes)
	if err != nil {
		return markup
	}
	return out
}

// highlightNodes runs the highlight pass over detached sibling nodes and
// serializes the result.
func highlightNodes(nodes []*xhtml.Node) (string, error) {
	root := &xhtml.Node{Type: xhtml.ElementNode, DataAtom: atom.Div, Data: atom.Div.String()}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	highlightTree(root)

	var children []*xhtml.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	return richtext.RenderNodes(children)
}

func formatPlain(text string, style styles.Style, notes []string) (string, []Entry) {
	rule := style.Rule()
	rules := RulesFor(style)
	lines := splitLines(text)

	inline := rules.Extract(lines)
	fromNotes, dup := noteEntries(notes, rules, inline)
	entries := append(append([]Entry(nil), inline...), fromNotes...)
	index := newEntryIndex(entries)

	section := !bibHeaderRe.MatchString(text)
	moved := make(map[int]bool)
	if section {
		for _, e := range inline {
			for _, i := range e.Lines {
				moved[i] = true
			}
		}
	}

	var blocks []*richtext.Node
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || moved[i] {
			continue
		}
		_, entryLine := rules.EntryStart(trimmed)
		nodes := lineNodes(trimmed, style, rules, index, entryLine)
		if !entryLine && isHeading(trimmed) {
			blocks = append(blocks, richtext.Heading(nodes...))
			continue
		}
		blocks = append(blocks, richtext.Paragraph(nodes...))
	}

	if section && (len(inline) > 0 || len(notes) > 0) {
		blocks = append(blocks, richtext.Heading(richtext.Text(rule.BibliographyTitle)))
		for _, e := range sortEntries(inline, rule.Family) {
			label := rules.Label(e)
			nodes := inlineNodes(e.Text, emphasisSpans(e.Text, style, true))
			if label != "" {
				nodes = append([]*richtext.Node{richtext.Text(label)}, nodes...)
			}
			blocks = append(blocks, richtext.Paragraph(nodes...))
		}
		var listed []string
		for i, note := range notes {
			if !dup[i] {
				listed = append(listed, note)
			}
		}
		blocks = append(blocks, noteBlocks(listed, style, rules)...)
	}

	out, err := highlightNodes(richtext.Document(blocks))
	if err != nil {
		return html.EscapeString(text), entries
	}
	return out, entries
}

// lineNodes builds the inline content of one line: annotated markers and
// style emphasis. Entry lines carry no markers of their own.
func lineNodes(line string, style styles.Style, rules Rules, index entryIndex, entryLine bool) []*richtext.Node {
	spans := emphasisSpans(line, style, entryLine)
	if !entryLine {
		for _, m := range rules.Markers(line) {
			spans = append(spans, span{
				start:    m.Start,
				end:      m.End,
				kind:     richtext.KindAnnotation,
				title:    index.title(m.Keys),
				priority: 2,
			})
		}
	}
	return inlineNodes(line, spans)
}

func isHeading(line string) bool {
	return line != "" && utf8.RuneCountInString(line) < HeadingMaxLen && !strings.Contains(line, ".")
}
