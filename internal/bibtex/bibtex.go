// Package bibtex renders citation metadata as BibTeX entries with
// pandoc-compatible keys.
package bibtex

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Epistemic-Technology/citation-mcp/models"
)

var entryTypes = map[string]string{
	"article":         "article",
	"journalarticle":  "article",
	"magazinearticle": "article",
	"book":            "book",
	"booksection":     "incollection",
	"bookchapter":     "incollection",
	"incollection":    "incollection",
	"conferencepaper": "inproceedings",
	"inproceedings":   "inproceedings",
	"thesis":          "phdthesis",
	"dissertation":    "phdthesis",
	"report":          "techreport",
	"techreport":      "techreport",
	"case":            "misc",
	"statute":         "misc",
	"webpage":         "online",
}

// EntryType maps a Zotero-style item type to a BibTeX entry type.
func EntryType(itemType string) string {
	if t, ok := entryTypes[strings.ToLower(strings.ReplaceAll(itemType, "-", ""))]; ok {
		return t
	}
	return "misc"
}

func containerField(entryType string) string {
	switch entryType {
	case "incollection", "inproceedings":
		return "booktitle"
	case "book", "phdthesis", "techreport", "online", "misc":
		return "howpublished"
	default:
		return "journal"
	}
}

type field struct {
	name  string
	value string
}

// Entry renders one BibTeX entry. Empty fields are omitted.
func Entry(meta *models.ItemMetadata, key string) string {
	if key == "" {
		key = "unknown"
	}
	entryType := EntryType(meta.ItemType)
	fields := []field{
		{"title", escape(meta.Title)},
		{"author", authors(meta.Authors)},
		{containerField(entryType), escape(meta.Publication)},
		{"year", Year(meta.PublicationDate)},
		{"volume", meta.Volume},
		{"number", meta.Issue},
		{"pages", pages(meta.Pages)},
		{"publisher", escape(meta.Publisher)},
		{"doi", meta.DOI},
		{"isbn", meta.ISBN},
		{"issn", meta.ISSN},
		{"url", meta.URL},
	}

	var lines []string
	for _, f := range fields {
		if f.value != "" {
			lines = append(lines, fmt.Sprintf("  %s = {%s}", f.name, f.value))
		}
	}
	return fmt.Sprintf("@%s{%s,\n%s\n}\n", entryType, key, strings.Join(lines, ",\n"))
}

// File joins entries into a .bib document.
func File(entries []string) string {
	return "% Generated by citation-mcp\n\n" + strings.Join(entries, "\n")
}

// authors renders "Last, First and Last, First". Names without a comma are
// taken as "First Last"; single-token names pass through.
func authors(names []string) string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		switch parts := strings.Fields(name); {
		case name == "":
		case strings.Contains(name, ","), len(parts) == 1:
			out = append(out, escape(name))
		default:
			out = append(out, escape(parts[len(parts)-1]+", "+strings.Join(parts[:len(parts)-1], " ")))
		}
	}
	return strings.Join(out, " and ")
}

var pageRangeRe = regexp.MustCompile(`\s*[-–—]+\s*`)

func pages(p string) string {
	return pageRangeRe.ReplaceAllString(strings.TrimSpace(p), "--")
}

var latexEscapes = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"%", `\%`,
	"&", `\&`,
	"_", `\_`,
	"$", `\$`,
	"#", `\#`,
)

func escape(s string) string {
	return latexEscapes.Replace(strings.TrimSpace(s))
}

var yearRe = regexp.MustCompile(`\b(1[5-9]|20)\d{2}\b`)

// Year finds a four digit year in a free-form date.
func Year(date string) string {
	return yearRe.FindString(date)
}

// Key builds a pandoc citekey: surname + year for one author, both
// surnames for two, "EtAl" beyond that. Keys already in taken get a letter
// suffix, then a number once the letters run out. The new key is added to
// taken.
func Key(meta *models.ItemMetadata, taken map[string]bool) string {
	base := sanitize(authorPart(meta.Authors) + Year(meta.PublicationDate))
	key := base
	for i := 0; taken[key]; i++ {
		if i < 26 {
			key = base + string(rune('a'+i))
		} else {
			key = fmt.Sprintf("%s%d", base, i-25)
		}
	}
	if taken != nil {
		taken[key] = true
	}
	return key
}

func authorPart(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return surname(names[0])
	case 2:
		second := []rune(surname(names[1]))
		if len(second) > 0 {
			second[0] = unicode.ToUpper(second[0])
		}
		return surname(names[0]) + string(second)
	default:
		return surname(names[0]) + "EtAl"
	}
}

// surname lowercases the family name and camel-cases particles:
// "von Neumann, John" becomes "vonNeumann".
func surname(name string) string {
	var last string
	if before, _, ok := strings.Cut(name, ","); ok {
		last = strings.TrimSpace(before)
	} else if parts := strings.Fields(name); len(parts) > 0 {
		last = parts[len(parts)-1]
	}
	parts := strings.Fields(last)
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(parts[0]))
	for _, p := range parts[1:] {
		r := []rune(strings.ToLower(p))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

func sanitize(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	switch {
	case out == "":
		return "unknown"
	case unicode.IsDigit([]rune(out)[0]):
		return "ref" + out
	}
	return out
}
