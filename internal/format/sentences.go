package format

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// discourseRe matches phrases that introduce a cited source.
var discourseRe = regexp.MustCompile(`(?i)\b(?:according to|suggests? that|argues? that|as noted by|as cited in|as reported by|as argued by|see also|cf\.|in the words of|has shown that|have shown that|demonstrates? that|found that|points? out that|notes? that|claims? that)`)

// abbreviations never end a sentence.
var abbreviations = map[string]bool{
	"al": true, "e.g": true, "i.e": true, "cf": true, "p": true, "pp": true,
	"vol": true, "vols": true, "no": true, "ed": true, "eds": true, "v": true,
	"vs": true, "dr": true, "mr": true, "mrs": true, "ms": true, "st": true,
	"fig": true, "ch": true, "sec": true, "op": true, "cit": true, "n": true,
	"trans": true, "rev": true, "para": true,
}

const sentenceClosers = `"')]”’»`

// sentenceTerminals are the characters that may close a sentence.
const sentenceTerminals = ".!?。！？"

const superscriptChars = "⁰¹²³⁴⁵⁶⁷⁸⁹"

// splitSentences returns the [start, end) byte ranges of the sentences in
// text, trimmed of surrounding whitespace. Boundaries come from UAX 29
// segmentation. Superscript note markers stay with the sentence they
// follow, and a boundary inside parentheses or brackets, after an
// abbreviation or initial, before a lowercase word, or not preceded by
// terminal punctuation is dropped.
func splitSentences(text string) [][2]int {
	var out [][2]int
	start := 0
	seg := sentences.FromString(text)
	for seg.Next() {
		end := seg.End()
		if end >= len(text) {
			break
		}
		end = skipSuperscripts(text, end)
		if end <= start || !sentenceEnds(text[start:end], text[end:]) {
			continue
		}
		out = appendTrimmed(out, text, start, end)
		start = end
	}
	return appendTrimmed(out, text, start, len(text))
}

// skipSuperscripts moves a boundary past note markers that directly follow
// it when whitespace or the end of text comes next.
func skipSuperscripts(text string, end int) int {
	rest := strings.TrimLeft(text[end:], superscriptChars)
	if len(rest) == len(text)-end {
		return end
	}
	if r, _ := utf8.DecodeRuneInString(rest); rest != "" && !unicode.IsSpace(r) {
		return end
	}
	return len(text) - len(rest)
}

func sentenceEnds(sentence, rest string) bool {
	if bracketDepth(sentence) > 0 {
		return false
	}
	body := strings.TrimRightFunc(sentence, unicode.IsSpace)
	if len(body) == len(sentence) {
		if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsSpace(r) {
			return false
		}
	}
	body = strings.TrimRight(body, sentenceClosers+superscriptChars)
	last, size := utf8.DecodeLastRuneInString(body)
	if size == 0 || !strings.ContainsRune(sentenceTerminals, last) {
		return false
	}
	if last == '.' && endsWithAbbreviation(body[:len(body)-size]) {
		return false
	}
	return !startsLowercase(rest)
}

func bracketDepth(s string) int {
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

func endsWithAbbreviation(prefix string) bool {
	word := prefix
	if idx := strings.LastIndexFunc(prefix, unicode.IsSpace); idx >= 0 {
		word = prefix[idx+1:]
	}
	word = strings.TrimLeftFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
	if word == "" {
		return false
	}
	if r, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsUpper(r) {
		return true
	}
	lower := strings.ToLower(word)
	return abbreviations[lower] || strings.HasSuffix(lower, "et al")
}

func startsLowercase(rest string) bool {
	for _, r := range rest {
		if unicode.IsSpace(r) {
			continue
		}
		return unicode.IsLower(r)
	}
	return false
}

func appendTrimmed(out [][2]int, text string, start, end int) [][2]int {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	if start < end {
		out = append(out, [2]int{start, end})
	}
	return out
}

// countMarkers counts in-text citation markers of any style. Each
// author-year citation inside a parenthetical group counts once.
func countMarkers(sentence string) int {
	n := len(bracketMarkerRe.FindAllStringIndex(sentence, -1))
	n += len(superscriptMarkerRe.FindAllStringIndex(sentence, -1))
	for _, group := range parenGroupRe.FindAllString(sentence, -1) {
		found := 0
		for _, part := range strings.Split(group[1:len(group)-1], ";") {
			if authorYearRe.MatchString(part) {
				found++
			}
		}
		if found == 0 && authorPageRe.MatchString(group) {
			found = 1
		}
		n += found
	}
	return n
}

// newCitationSentence reports whether a sentence introduces a citation: it
// uses a discourse marker or carries at least two citation markers.
func newCitationSentence(sentence string) bool {
	return discourseRe.MatchString(sentence) || countMarkers(sentence) >= 2
}
