package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

var generated = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func TestFileName(t *testing.T) {
	tests := []struct {
		input string
		ext   string
		want  string
	}{
		{"paper.pdf", ".pdf", "citation_paper_pdf.pdf"},
		{"My Thesis (final).pdf", "docx", "citation_My_Thesis__final__pdf.docx"},
		{"résumé", ".pdf", "citation_r_sum_.pdf"},
		{"", ".pdf", "citation_.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.input, tt.ext))
		})
	}
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, KindPDF, kind)

	_, err = ParseKind("odt")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestPaginate(t *testing.T) {
	assert.Equal(t, []bool{false, false, true, false}, Paginate([]int{2, 2, 2, 2}, 4))
	assert.Equal(t, []bool{false, true, false}, Paginate([]int{1, 5, 1}, 4), "oversized block starts a page and spills over")
	assert.Equal(t, []bool{false, false}, Paginate([]int{3, 3}, 0))
}

func TestBuildDocument(t *testing.T) {
	t.Run("footnote family is one renumbered block", func(t *testing.T) {
		doc := buildDocument(Request{
			FileName:  "case.pdf",
			Content:   "<p>Body <em>text</em>.</p>",
			Footnotes: []string{"1. Donoghue v Stevenson [1932] AC 562.\n\n2. Human Rights Act 1998, s 6."},
			Style:     styles.OSCOLA,
			Generated: generated,
		})
		assert.Equal(t, []string{"Body text."}, doc.Body)
		assert.Equal(t, []string{"1. Donoghue v Stevenson [1932] AC 562.\n2. Human Rights Act 1998, s 6."}, doc.Entries)
		assert.False(t, doc.Hanging)
		assert.Equal(t, "Footnotes", doc.RefsTitle)
		assert.Equal(t, "Style: OSCOLA | Generated: 9 March 2024", doc.Meta)
	})

	t.Run("author-date entries hang", func(t *testing.T) {
		doc := buildDocument(Request{
			FileName:  "a.pdf",
			Content:   "Body.",
			Footnotes: []string{"Smith, J. (2020). Title.", "Doe, K. (2019). Other."},
			Style:     styles.APA,
		})
		assert.Equal(t, []string{"Smith, J. (2020). Title.", "Doe, K. (2019). Other."}, doc.Entries)
		assert.True(t, doc.Hanging)
	})

	t.Run("no footnotes", func(t *testing.T) {
		doc := buildDocument(Request{FileName: "a.pdf", Content: "Body.", Style: styles.MLA})
		assert.Empty(t, doc.Entries)
	})
}

func TestPDF(t *testing.T) {
	var notes []string
	for i := 1; i <= 80; i++ {
		notes = append(notes, fmt.Sprintf("Author%d, A. (20%02d). A fairly long reference title that wraps onto a second line of the page in the rendered document. Journal of Tests, %d(1), 1-20.", i, i%25, i))
	}

	art, err := PDF(Request{
		FileName:  "paper.pdf",
		Content:   "<h3>Citation</h3><p>Smith, J. (2020). <em>Climate</em> models. Journal.</p>",
		Footnotes: notes,
		Style:     styles.APA,
		Generated: generated,
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "citation_paper_pdf.pdf", art.FileName)
	assert.Equal(t, "application/pdf", art.ContentType)
	assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF")))

	pages, err := api.PageCount(bytes.NewReader(art.Data), nil)
	require.NoError(t, err)
	assert.Greater(t, pages, 1)
}

func TestPDF_NoFootnotes(t *testing.T) {
	art, err := Export(KindPDF, Request{
		FileName: "short.pdf",
		Content:  "A citation “with” curly quotes and an em dash — here.",
		Style:    styles.Chicago,
	}, Options{PageSize: "letter"})
	require.NoError(t, err)

	pages, err := api.PageCount(bytes.NewReader(art.Data), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

var showTextRe = regexp.MustCompile(`(?s)\(((?:\\.|[^\\)])*)\)\s*Tj`)

// pdfPageText returns the text drawn on each page, one shown string per
// line. Strings are UTF-16BE, as written for embedded UTF-8 fonts.
func pdfPageText(t *testing.T, data []byte) []string {
	t.Helper()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	require.NoError(t, err)

	var pages []string
	for nr := 1; nr <= ctx.PageCount; nr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, nr)
		require.NoError(t, err)
		content, err := io.ReadAll(r)
		require.NoError(t, err)

		var shown []string
		for _, m := range showTextRe.FindAllSubmatch(content, -1) {
			shown = append(shown, decodeUTF16(unescapePDF(m[1])))
		}
		pages = append(pages, strings.Join(shown, "\n"))
	}
	return pages
}

func unescapePDF(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 == len(b) {
			out = append(out, b[i])
			continue
		}
		i++
		switch b[i] {
		case 'r':
			out = append(out, '\r')
		case 'n':
			out = append(out, '\n')
		default:
			out = append(out, b[i])
		}
	}
	return out
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}

func pageOf(pages []string, word string) int {
	for i, text := range pages {
		if strings.Contains(text, word) {
			return i
		}
	}
	return -1
}

func TestPDF_EntriesKeptOnOnePage(t *testing.T) {
	var notes []string
	for i := 1; i <= 60; i++ {
		notes = append(notes, fmt.Sprintf("Start%02d, A. (20%02d). A fairly long reference title that wraps onto a second line of the page in the rendered document. Journal of Tests, %d(1), 1-20. End%02d.", i, i%25, i, i))
	}

	art, err := PDF(Request{
		FileName:  "paper.pdf",
		Content:   "<p>Smith, J. (2020). Climate models. Journal.</p>",
		Footnotes: notes,
		Style:     styles.APA,
		Generated: generated,
	}, Options{})
	require.NoError(t, err)

	pages := pdfPageText(t, art.Data)
	require.Greater(t, len(pages), 2)
	for i := 1; i <= 60; i++ {
		first := pageOf(pages, fmt.Sprintf("Start%02d", i))
		last := pageOf(pages, fmt.Sprintf("End%02d", i))
		require.NotEqual(t, -1, first, "entry %d", i)
		assert.Equal(t, first, last, "entry %d splits across pages", i)
	}
	assert.Contains(t, pages[1], "paper.pdf", "continuation pages carry the running header")
	assert.Contains(t, pages[len(pages)-1], fmt.Sprintf("Page %d of %d", len(pages), len(pages)))
}

func TestPDF_UnicodeText(t *testing.T) {
	art, err := PDF(Request{
		FileName:  "logic.pdf",
		Content:   "<p>Dvořák and Łukasiewicz (2020) 王小明 Ψ argue.</p>",
		Footnotes: []string{"Łukasiewicz, J. (2020). Logika. Kraków."},
		Style:     styles.APA,
		Generated: generated,
	}, Options{})
	require.NoError(t, err)

	pages := pdfPageText(t, art.Data)
	require.Len(t, pages, 1)
	for _, want := range []string{"Dvořák", "Łukasiewicz", "王小明", "Ψ argue.", "Kraków."} {
		assert.Contains(t, pages[0], want)
	}
	assert.NotContains(t, pages[0], "?")
}

func readDocxPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(body)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func TestDOCX(t *testing.T) {
	req := Request{
		FileName:  "paper.pdf",
		Content:   "<p>J. Smith, “Title,” <em>Journal</em>, 2020.</p>",
		Footnotes: []string{"[1] First ref.", "[2] Second ref."},
		Style:     styles.IEEE,
		Generated: generated,
	}

	art, err := DOCX(req, Options{})
	require.NoError(t, err)
	assert.Equal(t, "citation_paper_pdf.docx", art.FileName)

	doc := readDocxPart(t, art.Data, "word/document.xml")
	first := strings.Index(doc, "[1] First ref.")
	second := strings.Index(doc, "[2] Second ref.")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
	assert.Equal(t, 2, strings.Count(doc, "<w:keepLines/>"))
	assert.Contains(t, doc, `<w:ind w:left="720" w:hanging="720"/>`)
	assert.Contains(t, doc, "<w:pBdr>")
	assert.Contains(t, doc, ">References<")
	assert.NotContains(t, doc, "<w:pageBreakBefore/>")

	header := readDocxPart(t, art.Data, "word/header1.xml")
	assert.Contains(t, header, "IEEE citation")
	footer := readDocxPart(t, art.Data, "word/footer1.xml")
	assert.Contains(t, footer, "Generated 9 March 2024")
	assert.Contains(t, footer, `w:instr="PAGE"`)

	t.Run("small pages push entries to a new page", func(t *testing.T) {
		art, err := DOCX(req, Options{LinesPerPage: 4})
		require.NoError(t, err)
		doc := readDocxPart(t, art.Data, "word/document.xml")
		assert.Contains(t, doc, "<w:pageBreakBefore/>")
	})
}

func TestDOCX_EscapesText(t *testing.T) {
	art, err := DOCX(Request{FileName: "a&b.pdf", Content: "Tom & Jerry <3", Style: styles.APA}, Options{})
	require.NoError(t, err)

	doc := readDocxPart(t, art.Data, "word/document.xml")
	assert.Contains(t, doc, "Tom &amp; Jerry &lt;3")
	assert.Contains(t, doc, "a&amp;b.pdf")
}

func TestExport_UnknownKind(t *testing.T) {
	art, err := Export(Kind("odt"), Request{FileName: "x.pdf", Style: styles.APA}, Options{})

	assert.Nil(t, art)
	var exportErr *Error
	require.True(t, errors.As(err, &exportErr))
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Contains(t, err.Error(), "x.pdf")
}

func TestArtifact_WriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	art := &Artifact{FileName: "citation_a.pdf", Data: []byte("%PDF-1.4")}

	path, err := art.WriteFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "citation_a.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, art.Data, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestBibTeX(t *testing.T) {
	art, err := Export(KindBibTeX, Request{
		FileName: "paper.pdf",
		Style:    styles.APA,
		Metadata: &models.ItemMetadata{Title: "Climate Models", Authors: []string{"Jane Smith"}, PublicationDate: "2020", ItemType: "journalArticle"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "citation_paper_pdf.bib", art.FileName)
	assert.Equal(t, "application/x-bibtex", art.ContentType)
	assert.Contains(t, string(art.Data), "@article{smith2020,")
	assert.Contains(t, string(art.Data), "author = {Smith, Jane}")

	_, err = Export(KindBibTeX, Request{FileName: "x.pdf", Style: styles.APA}, Options{})
	assert.ErrorIs(t, err, ErrNoMetadata)

	kind, err := ParseKind("BibTeX")
	require.NoError(t, err)
	assert.Equal(t, KindBibTeX, kind)
}
