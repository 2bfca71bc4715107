package export

import (
	_ "embed"
	"sync"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/sfnt"
)

// PDF font families. Text the primary family has no glyph for is set in
// the fallback family, which covers the Basic Multilingual Plane.
const (
	fontFamily     = "DejaVu"
	fallbackFamily = "Unifont"
)

//go:embed fonts/DejaVuSansCondensed.ttf
var dejaVuRegular []byte

//go:embed fonts/DejaVuSansCondensed-Bold.ttf
var dejaVuBold []byte

//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
var dejaVuOblique []byte

//go:embed fonts/unifont-13.0.03.ttf
var unifont []byte

var (
	coverageOnce sync.Once
	coverage     *sfnt.Font
)

// addFonts registers the primary family in every style the writer uses.
func addFonts(pdf *fpdf.Fpdf) {
	pdf.AddUTF8FontFromBytes(fontFamily, "", dejaVuRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", dejaVuBold)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", dejaVuOblique)
}

// addFallbackFont registers the fallback family and reports whether it
// loaded.
func addFallbackFont(pdf *fpdf.Fpdf) bool {
	pdf.AddUTF8FontFromBytes(fallbackFamily, "", unifont)
	return pdf.GetFontDesc(fallbackFamily, "").Ascent != 0
}

// glyphChecker reports whether the primary family can draw a rune. A
// checker is not safe for concurrent use; each writer owns one.
type glyphChecker struct {
	buf sfnt.Buffer
}

func (c *glyphChecker) covers(r rune) bool {
	if r < 0x80 {
		return true
	}
	coverageOnce.Do(func() {
		coverage, _ = sfnt.Parse(dejaVuRegular)
	})
	if coverage == nil {
		return r < 0x100
	}
	idx, err := coverage.GlyphIndex(&c.buf, r)
	return err == nil && idx != 0
}

// textRun is a stretch of a line set in one family.
type textRun struct {
	text     string
	fallback bool
}

func (c *glyphChecker) runs(s string) []textRun {
	var out []textRun
	start := 0
	current := false
	for i, r := range s {
		fb := !c.covers(r)
		if i > 0 && fb != current {
			out = append(out, textRun{text: s[start:i], fallback: current})
			start = i
		}
		current = fb
	}
	if start < len(s) {
		out = append(out, textRun{text: s[start:], fallback: current})
	}
	return out
}
