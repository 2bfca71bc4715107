package format

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

// Entry is a bibliography entry found in citation text, keyed by footnote
// number or by "surname-year".
type Entry struct {
	Key  string `json:"key"`
	Text string `json:"text"`

	// Lines are the indices of the source lines the entry was read from.
	Lines []int `json:"-"`
}

// Marker is an in-text citation marker located in a single line. A marker
// may cite several entries, e.g. "(Smith, 2020; Jones, 2019)".
type Marker struct {
	Start int
	End   int
	Keys  []string
}

// Rules isolates the extraction and marker patterns of one style family.
type Rules interface {
	// Extract returns the bibliography entries found in the lines, in
	// source order. It never fails; no match means no entries.
	Extract(lines []string) []Entry

	// Markers returns the in-text citation markers of a single line.
	Markers(line string) []Marker

	// EntryStart reports whether the line opens a bibliography entry and,
	// if so, the byte offset where the entry text begins.
	EntryStart(line string) (int, bool)

	// Label is the prefix rendered before an entry in a synthesized
	// bibliography section.
	Label(e Entry) string
}

const (
	// surnamePattern is a capitalized surname with optional lowercase
	// particles in front.
	surnamePattern = `(?:(?:van|von|der|den|de|del|della|da|di|du|le|la|ten|ter)\s+)*[A-Z][\p{L}'’\-]+`

	// corporatePattern is a run of capitalized words joined by short
	// function words, e.g. "Centers for Disease Control and Prevention".
	corporatePattern = `[A-Z][\p{L}'’\-]*(?:\s+(?:[A-Z][\p{L}'’\-]*|of|for|on|and|the|&))*`
)

var (
	bibHeaderRe = regexp.MustCompile(`(?im)^\s*(?:#+\s*)?(?:references|reference list|works cited|bibliography|footnotes|notes|endnotes)\s*:?\s*$`)

	footnoteEntryRe = regexp.MustCompile(`^\s*(?:\[(\d+)\]|(\d{1,3})\.)\s+(\S.*)$`)
	numericEntryRe  = regexp.MustCompile(`^\s*\[(\d+)\]\s*(\S.*)$`)

	bracketMarkerRe     = regexp.MustCompile(`\[(\d+)(?:\s*[,–-]\s*\d+)*\]`)
	superscriptMarkerRe = regexp.MustCompile(`[⁰¹²³⁴⁵⁶⁷⁸⁹]+`)

	// authorEntryRe matches "Surname, I.", "Surname, Given" or
	// "van der Berg, A." at the start of a reference-list line.
	authorEntryRe = regexp.MustCompile(`^\s*(` + surnamePattern + `(?:\s+[A-Z][\p{L}'’\-]+)?),\s+(?:[A-Z]\.|[A-Z][\p{L}\-]+)`)

	// corporateEntryRe matches a group author: "World Health Organization. (2020)".
	corporateEntryRe = regexp.MustCompile(`^\s*(` + corporatePattern + `)\.\s+\(\d{4}[a-z]?[,)]`)
	parenYearRe   = regexp.MustCompile(`\((\d{4})[a-z]?[,)]`)
	bareYearRe    = regexp.MustCompile(`\b(1[6-9]\d{2}|20\d{2})[a-z]?\b`)

	parenGroupRe = regexp.MustCompile(`\([^()]*\)`)
	authorYearRe = regexp.MustCompile(`^\s*(?:(?:see also|see|e\.g\.,?|cf\.)\s+)?(` + surnamePattern + `(?:\s+(?:[A-Z][\p{L}'’\-]+|of|for|on|the))*)(?:\s+(?:et al\.?|and|&)(?:\s+[A-Z][\p{L}'’\-]+)?)?,?\s+(\d{4})[a-z]?(?:[,:]\s*(?:pp?\.\s*)?[\d–-]+)?\s*$`)
	authorPageRe = regexp.MustCompile(`\(([A-Z][\p{L}'’\-]+)(?:\s+(?:et al\.|and\s+[A-Z][\p{L}'’\-]+))?\s+(\d{1,4}(?:[–-]\d+)?)\)`)
)

var superscriptDigits = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
}

// RulesFor returns the extraction rules of a style.
func RulesFor(style styles.Style) Rules {
	rule := style.Rule()
	switch rule.Family {
	case styles.FamilyFootnote:
		return numberedRules{entryRe: footnoteEntryRe, bracketLabel: false}
	case styles.FamilyNumeric:
		return numberedRules{entryRe: numericEntryRe, bracketLabel: true}
	}
	return authorRules{authorPage: rule.MarkerForm == styles.MarkerAuthorPage}
}

// Extract returns the bibliography entries of text for the given style.
func Extract(text string, style styles.Style) []Entry {
	return RulesFor(style).Extract(splitLines(text))
}

// numberedRules serves footnote and bracket-numbered styles.
type numberedRules struct {
	entryRe      *regexp.Regexp
	bracketLabel bool
}

func (r numberedRules) Extract(lines []string) []Entry {
	var entries []Entry
	var current *Entry
	closeEntry := func() {
		if current != nil {
			entries = append(entries, *current)
			current = nil
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || bibHeaderRe.MatchString(trimmed) {
			closeEntry()
			continue
		}
		if m := r.entryRe.FindStringSubmatch(line); m != nil {
			closeEntry()
			key, text := m[1], m[len(m)-1]
			if key == "" && len(m) > 3 {
				key = m[2]
			}
			current = &Entry{Key: key, Text: strings.TrimSpace(text), Lines: []int{i}}
			continue
		}
		if current != nil {
			current.Text += " " + trimmed
			current.Lines = append(current.Lines, i)
		}
	}
	closeEntry()
	return entries
}

func (r numberedRules) Markers(line string) []Marker {
	var markers []Marker
	for _, loc := range bracketMarkerRe.FindAllStringSubmatchIndex(line, -1) {
		markers = append(markers, Marker{Start: loc[0], End: loc[1], Keys: []string{line[loc[2]:loc[3]]}})
	}
	for _, loc := range superscriptMarkerRe.FindAllStringIndex(line, -1) {
		markers = append(markers, Marker{Start: loc[0], End: loc[1], Keys: []string{superscriptKey(line[loc[0]:loc[1]])}})
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].Start < markers[j].Start })
	return markers
}

func (r numberedRules) EntryStart(line string) (int, bool) {
	m := r.entryRe.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, false
	}
	return m[len(m)-2], true
}

func (r numberedRules) Label(e Entry) string {
	if r.bracketLabel {
		return "[" + e.Key + "] "
	}
	return e.Key + ". "
}

// authorRules serves author-date styles; authorPage selects the MLA
// "(Author Page)" marker form.
type authorRules struct {
	authorPage bool
}

func (r authorRules) Extract(lines []string) []Entry {
	var entries []Entry
	for i, line := range lines {
		start, end, ok := authorName(line)
		if !ok {
			continue
		}
		year := entryYear(line)
		if year == "" {
			if !r.authorPage {
				continue
			}
			year = "n.d."
		}
		entries = append(entries, Entry{
			Key:   surnameKey(line[start:end]) + "-" + year,
			Text:  strings.TrimSpace(line),
			Lines: []int{i},
		})
	}
	return entries
}

func (r authorRules) Markers(line string) []Marker {
	if r.authorPage {
		var markers []Marker
		for _, loc := range authorPageRe.FindAllStringSubmatchIndex(line, -1) {
			markers = append(markers, Marker{Start: loc[0], End: loc[1], Keys: []string{surnameKey(line[loc[2]:loc[3]])}})
		}
		return markers
	}

	var markers []Marker
	for _, loc := range parenGroupRe.FindAllStringIndex(line, -1) {
		inner := line[loc[0]+1 : loc[1]-1]
		var keys []string
		for _, part := range strings.Split(inner, ";") {
			if m := authorYearRe.FindStringSubmatch(part); m != nil {
				keys = append(keys, surnameKey(m[1])+"-"+m[2])
			}
		}
		if len(keys) > 0 {
			markers = append(markers, Marker{Start: loc[0], End: loc[1], Keys: keys})
		}
	}
	return markers
}

func (r authorRules) EntryStart(line string) (int, bool) {
	if _, _, ok := authorName(line); !ok {
		return 0, false
	}
	if !r.authorPage && entryYear(line) == "" {
		return 0, false
	}
	return len(line) - len(strings.TrimLeft(line, " \t")), true
}

func (r authorRules) Label(Entry) string { return "" }

// authorName locates the author that opens a reference-list line, either a
// personal surname or a group author.
func authorName(line string) (start, end int, ok bool) {
	if m := authorEntryRe.FindStringSubmatchIndex(line); m != nil {
		return m[2], m[3], true
	}
	if m := corporateEntryRe.FindStringSubmatchIndex(line); m != nil {
		return m[2], m[3], true
	}
	return 0, 0, false
}

// entryIndex resolves marker keys to entry text. Author-page markers carry
// only a surname and match the first entry with that surname.
type entryIndex struct {
	byKey map[string]string
	order []Entry
}

func newEntryIndex(entries []Entry) entryIndex {
	idx := entryIndex{byKey: make(map[string]string, len(entries)), order: entries}
	for _, e := range entries {
		if _, exists := idx.byKey[e.Key]; !exists {
			idx.byKey[e.Key] = e.Text
		}
	}
	return idx
}

func (idx entryIndex) lookup(key string) (string, bool) {
	if text, ok := idx.byKey[key]; ok {
		return text, true
	}
	if !strings.Contains(key, "-") {
		for _, e := range idx.order {
			if strings.HasPrefix(e.Key, key+"-") {
				return e.Text, true
			}
		}
	}
	return "", false
}

// title joins the entry text of every resolvable key; unresolved keys are
// skipped so a marker with no entry gets no hover text.
func (idx entryIndex) title(keys []string) string {
	var parts []string
	for _, key := range keys {
		if text, ok := idx.lookup(key); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// sortEntries orders entries numerically for numbered families and keeps
// extraction order otherwise.
func sortEntries(entries []Entry, family styles.Family) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	if family == styles.FamilyAuthorDate {
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, errA := strconv.Atoi(sorted[i].Key)
		b, errB := strconv.Atoi(sorted[j].Key)
		if errA != nil || errB != nil {
			return errA == nil && errB != nil
		}
		return a < b
	})
	return sorted
}

// surnameKey lowercases a surname and drops everything but letters, so
// "O’Brien" and "O'Brien" share a key.
func surnameKey(surname string) string {
	var b strings.Builder
	for _, r := range surname {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func entryYear(line string) string {
	if m := parenYearRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := bareYearRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

func superscriptKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(superscriptDigits[r])
	}
	return b.String()
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
