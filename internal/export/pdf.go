package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	pdfMargin     = 20.0
	pdfLineHeight = 6.0
	pdfHangIndent = 10.0
)

// pdfWriter lays out blocks on fixed-size pages. Text is set in the
// primary UTF-8 family; runes it has no glyph for switch to the fallback
// family, which is only loaded when first needed.
type pdfWriter struct {
	pdf   *fpdf.Fpdf
	width float64
	style string
	size  float64

	glyphs      glyphChecker
	fallback    bool
	fallbackErr bool
}

// PDF renders the request as a paginated A4 or Letter document with a title
// line, style and date metadata, the citation text, and a references
// section. Every page carries "Page N of M"; continuation pages repeat the
// file name as a running header.
func PDF(req Request, opts Options) (art *Artifact, err error) {
	defer guard(KindPDF, req, &art, &err)

	doc := buildDocument(req)
	pdf := fpdf.New("P", "mm", pageSize(opts.PageSize), "")
	w := &pdfWriter{pdf: pdf}

	pdf.SetTitle(doc.Title, true)
	pdf.SetSubject(doc.Style+" citation", true)
	pdf.SetCreator("citation-mcp", true)
	if !req.Generated.IsZero() {
		pdf.SetCreationDate(req.Generated)
	}
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AliasNbPages("")
	addFonts(pdf)

	pageW, _ := pdf.GetPageSize()
	w.width = pageW - 2*pdfMargin

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() == 1 {
			return
		}
		defer w.keepFont()()
		w.setFont("I", 8)
		pdf.SetTextColor(110, 110, 110)
		w.line(doc.Title, 5, pdfMargin+w.width-w.textWidth(doc.Title))
		y := pdf.GetY()
		pdf.SetDrawColor(110, 110, 110)
		pdf.Line(pdfMargin, y, pdfMargin+w.width, y)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		defer w.keepFont()()
		pdf.SetY(-15)
		w.setFont("I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	w.setFont("B", 16)
	w.paragraph(doc.Title, 8, 0, false)
	w.setFont("", 10)
	pdf.SetTextColor(90, 90, 90)
	w.paragraph(doc.Meta, 5, 0, false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	w.setFont("", 11)
	for _, para := range doc.Body {
		w.paragraph(para, pdfLineHeight, 0, false)
		pdf.Ln(2)
	}

	if len(doc.Entries) > 0 {
		pdf.Ln(4)
		y := pdf.GetY()
		pdf.SetDrawColor(160, 160, 160)
		pdf.Line(pdfMargin, y, pdfMargin+w.width, y)
		pdf.Ln(4)

		w.setFont("B", 13)
		w.paragraph(doc.RefsTitle, 8, 0, false)
		pdf.Ln(1)

		w.setFont("", 10)
		indent := 0.0
		if doc.Hanging {
			indent = pdfHangIndent
		}
		for _, entry := range doc.Entries {
			w.paragraph(entry, 5.5, indent, true)
			pdf.Ln(2)
		}
	}

	if pdf.Err() {
		return nil, &Error{Kind: KindPDF, FileName: req.FileName, Err: pdf.Error()}
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &Error{Kind: KindPDF, FileName: req.FileName, Err: err}
	}
	if err := api.Validate(bytes.NewReader(buf.Bytes()), model.NewDefaultConfiguration()); err != nil {
		return nil, &Error{Kind: KindPDF, FileName: req.FileName, Err: fmt.Errorf("generated PDF is invalid: %w", err)}
	}

	return &Artifact{
		FileName:    FileName(req.FileName, KindPDF.Ext()),
		ContentType: KindPDF.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func (w *pdfWriter) setFont(style string, size float64) {
	w.style, w.size = style, size
	w.pdf.SetFont(fontFamily, style, size)
}

// keepFont saves the current font and returns a func restoring it. Header
// and footer callbacks run in the middle of other blocks.
func (w *pdfWriter) keepFont() func() {
	style, size := w.style, w.size
	return func() { w.setFont(style, size) }
}

// useFallback switches to the family a run is set in. When the fallback
// family cannot be loaded the primary family draws the run anyway.
func (w *pdfWriter) useFallback(on bool) {
	if on && !w.fallback && !w.fallbackErr {
		if addFallbackFont(w.pdf) {
			w.fallback = true
		} else {
			w.fallbackErr = true
		}
	}
	if on && w.fallback {
		w.pdf.SetFont(fallbackFamily, "", w.size)
		return
	}
	w.pdf.SetFont(fontFamily, w.style, w.size)
}

func (w *pdfWriter) textWidth(text string) float64 {
	total := 0.0
	for _, run := range w.glyphs.runs(text) {
		w.useFallback(run.fallback)
		total += w.pdf.GetStringWidth(run.text)
	}
	w.useFallback(false)
	return total
}

// line writes one line of text starting at x and moves to the next line.
func (w *pdfWriter) line(text string, lineH, x float64) {
	w.pdf.SetX(x)
	for _, run := range w.glyphs.runs(text) {
		w.useFallback(run.fallback)
		w.pdf.CellFormat(w.pdf.GetStringWidth(run.text), lineH, run.text, "", 0, "L", false, 0, "")
	}
	w.useFallback(false)
	w.pdf.Ln(lineH)
}

// paragraph writes text wrapped to the content width. With hang set, lines
// after the first are indented. With keep set, a block that does not fit in
// the remaining space starts a new page, unless it is taller than a page.
func (w *pdfWriter) paragraph(text string, lineH, hang float64, keep bool) {
	var lines []string
	var firsts []bool
	for _, src := range strings.Split(text, "\n") {
		wrapped := w.wrap(src, hang)
		for i, line := range wrapped {
			lines = append(lines, line)
			firsts = append(firsts, i == 0)
		}
	}

	if keep {
		_, pageH := w.pdf.GetPageSize()
		_, top, _, bottom := w.pdf.GetMargins()
		height := float64(len(lines)) * lineH
		room := pageH - bottom - w.pdf.GetY()
		if height > room && height <= pageH-top-bottom {
			w.pdf.AddPage()
		}
	}

	for i, line := range lines {
		x := pdfMargin
		if !firsts[i] {
			x += hang
		}
		w.line(line, lineH, x)
	}
}

// wrap splits a line into pieces that fit the content width; pieces after
// the first are measured against the width left by the hanging indent.
func (w *pdfWriter) wrap(text string, hang float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	limit := w.width
	for _, word := range words[1:] {
		candidate := current + " " + word
		if w.textWidth(candidate) <= limit {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
		limit = w.width - hang
	}
	return append(lines, current)
}

func pageSize(name string) string {
	if strings.EqualFold(name, "letter") {
		return "Letter"
	}
	return "A4"
}
