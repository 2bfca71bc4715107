package format

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Epistemic-Technology/citation-mcp/internal/richtext"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

var (
	// caseNameRe matches "Donoghue v Stevenson" and "R v Smith".
	caseNameRe = regexp.MustCompile(`[A-Z][\p{L}'’&.\-]*(?:\s+(?:[A-Z][\p{L}'’&.\-]*|of|and|for|the|&))*\s+v\s+[A-Z][\p{L}'’&\-]*(?:\s+[A-Z][\p{L}'’&\-]*)*`)

	// actRe matches "Human Rights Act 1998".
	actRe = regexp.MustCompile(`[A-Z][\p{L}]*(?:\s+(?:[A-Z][\p{L}]*|\([A-Z][\p{L}\s]*\)|of|and|for|the|on))*\s+Act\s+\d{4}`)

	quotedTitleRe = regexp.MustCompile(`“[^”]+”|"[^"]+"`)
)

// leadingStopWords are capitalized sentence openers that never belong to a
// case name or statute title.
var leadingStopWords = map[string]bool{
	"In": true, "The": true, "See": true, "As": true, "Under": true, "Per": true,
	"Following": true, "Cf": true, "And": true, "But": true, "Also": true,
}

// span is a stretch of a line to wrap in an inline node. Higher priority
// wins on overlap.
type span struct {
	start, end int
	kind       richtext.Kind
	title      string
	priority   int
}

// emphasisSpans returns the italic and bold stretches of a line for the
// style. entryLine marks lines that open a bibliography entry.
func emphasisSpans(line string, style styles.Style, entryLine bool) []span {
	var spans []span
	switch style {
	case styles.OSCOLA:
		spans = append(spans, trimmedMatches(line, caseNameRe)...)
		spans = append(spans, trimmedMatches(line, actRe)...)
	case styles.ASA, styles.IEEE:
		for _, loc := range quotedTitleRe.FindAllStringIndex(line, -1) {
			spans = append(spans, span{start: loc[0], end: loc[1], kind: richtext.KindItalic, priority: 1})
		}
	}

	if entryLine && style.Family() == styles.FamilyAuthorDate {
		if start, end, ok := authorName(line); ok {
			spans = append(spans, span{start: start, end: end, kind: richtext.KindBold, priority: 1})
		}
	}
	return spans
}

func trimmedMatches(line string, re *regexp.Regexp) []span {
	var spans []span
	for _, loc := range re.FindAllStringIndex(line, -1) {
		start, end := loc[0], loc[1]
		for {
			word, rest, found := strings.Cut(line[start:end], " ")
			if !found || !leadingStopWords[word] {
				break
			}
			start = end - len(rest)
		}
		spans = append(spans, span{start: start, end: end, kind: richtext.KindItalic, priority: 1})
	}
	return spans
}

// resolveSpans drops spans that overlap a higher-priority or earlier span
// and returns the survivors in line order.
func resolveSpans(spans []span) []span {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].priority != spans[j].priority {
			return spans[i].priority > spans[j].priority
		}
		return spans[i].start < spans[j].start
	})

	var kept []span
	for _, s := range spans {
		if s.start >= s.end {
			continue
		}
		overlaps := false
		for _, k := range kept {
			if s.start < k.end && k.start < s.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

// inlineNodes cuts a line into text and wrapped nodes.
func inlineNodes(line string, spans []span) []*richtext.Node {
	var nodes []*richtext.Node
	pos := 0
	for _, s := range resolveSpans(spans) {
		if s.start > pos {
			nodes = append(nodes, richtext.Text(line[pos:s.start]))
		}
		inner := richtext.Text(line[s.start:s.end])
		switch s.kind {
		case richtext.KindAnnotation:
			nodes = append(nodes, richtext.Annotation(s.title, inner))
		case richtext.KindBold:
			nodes = append(nodes, richtext.Bold(inner))
		default:
			nodes = append(nodes, richtext.Italic(inner))
		}
		pos = s.end
	}
	if pos < len(line) {
		nodes = append(nodes, richtext.Text(line[pos:]))
	}
	return nodes
}
