package llm

import (
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

var footnoteInstructions = map[styles.Family]string{
	styles.FamilyFootnote: `Put each note in "footnotes" as its own string, numbered in order of first use: "1. ...", "2. ...". Mark note references in the citation text with superscript digits (¹, ²).`,
	styles.FamilyNumeric:  `Put each reference in "footnotes" as its own string, numbered in order of first use: "[1] ...", "[2] ...". Mark references in the citation text with the same bracketed numbers.`,
	styles.FamilyAuthorDate: `Put each full reference list entry in "footnotes" as its own string, sorted alphabetically by first author surname. ` +
		`Mark references in the citation text with parenthetical author markers.`,
}

func buildPrompt(req CitationRequest) string {
	rule := req.Style.Rule()
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert academic librarian. Identify the work in the attached source %q and cite it in %s style.\n\n", req.FileName, rule.Name)
	fmt.Fprintf(&b, "%s conventions:\n- In-text: %s\n- %s: %s\n- Example: %s\n\n", rule.Name, rule.InText, rule.BibliographyTitle, rule.Reference, rule.Example)

	if req.Masterpiece != "" {
		b.WriteString(`Insert in-text citations for this source into the user's text below wherever the text draws on it. ` +
			`Return the complete text with the citations added in "citation". Do not rewrite the user's sentences. ` +
			"Separate paragraphs with a blank line.\n\n")
	} else {
		b.WriteString(`Return the in-text citation followed by the full reference in "citation". Use plain text, no HTML and no markdown.` + "\n\n")
	}
	b.WriteString(footnoteInstructions[rule.Family])
	b.WriteString("\n\n")
	b.WriteString(`Fill "metadata" with the bibliographic record of the source itself, using empty strings for anything not shown. ` +
		`Use Zotero item types for "item_type" (journalArticle, book, bookSection, conferencePaper, thesis, report, webpage, case, statute).` + "\n")
	b.WriteString(`In "analysis" briefly list the bibliographic elements you found (authors, title, container, date, identifiers) and flag anything you had to guess. Use markdown.` + "\n")

	if hints := formatHints(req.Hints); hints != "" {
		b.WriteString("\nKnown metadata for this source (prefer it over what you read when they disagree):\n")
		b.WriteString(hints)
	}
	if req.Content.Text != "" {
		b.WriteString("\nSource text:\n")
		b.WriteString(req.Content.Text)
		b.WriteString("\n")
	}
	if req.Masterpiece != "" {
		b.WriteString("\nUser's text:\n")
		b.WriteString(req.Masterpiece)
		b.WriteString("\n")
	}
	return b.String()
}

func formatHints(m *models.ItemMetadata) string {
	if m.IsEmpty() {
		return ""
	}
	var b strings.Builder
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", name, value)
		}
	}
	field("Title", m.Title)
	field("Authors", strings.Join(m.Authors, "; "))
	field("Item type", m.ItemType)
	field("Date", m.PublicationDate)
	field("Published in", m.Publication)
	field("Publisher", m.Publisher)
	field("Volume", m.Volume)
	field("Issue", m.Issue)
	field("Pages", m.Pages)
	field("DOI", m.DOI)
	field("ISBN", m.ISBN)
	field("ISSN", m.ISSN)
	field("URL", m.URL)
	return b.String()
}
