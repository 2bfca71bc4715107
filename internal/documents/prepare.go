package documents

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Epistemic-Technology/citation-mcp/models"
)

// maxTextRunes bounds the text sent for non-PDF sources. Titles, authors and
// publication details sit at the top of a page.
const maxTextRunes = 12000

// Content is what the model is shown for one source: either a single-page
// PDF or plain text.
type Content struct {
	PDF  []byte
	Text string
}

// Prepare reduces a fetched document to model input.
func Prepare(doc models.DocumentData) (Content, error) {
	switch doc.Type {
	case TypePDF:
		page, err := FirstPage(doc.Data)
		if err != nil {
			return Content{}, err
		}
		return Content{PDF: page}, nil
	case TypeHTML:
		md, err := PreprocessHTML(doc.Data)
		if err != nil {
			return Content{}, err
		}
		return textContent(md)
	case TypeZoteroSnapshot:
		page, err := ExtractHTMLFromZip(doc.Data)
		if err != nil {
			return Content{}, err
		}
		md, err := PreprocessHTML(page)
		if err != nil {
			return Content{}, err
		}
		return textContent(md)
	case TypeText, TypeMarkdown:
		return textContent(string(doc.Data))
	default:
		return Content{}, fmt.Errorf("unsupported document type %q", doc.Type)
	}
}

func textContent(s string) (Content, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Content{}, ErrNoData
	}
	if utf8.RuneCountInString(s) > maxTextRunes {
		s = string([]rune(s)[:maxTextRunes])
	}
	return Content{Text: s}, nil
}
