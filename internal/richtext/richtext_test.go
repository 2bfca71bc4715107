package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	blocks := []*Node{
		Heading(Text("Results")),
		Paragraph(
			Text("As shown "),
			Annotation("Smith, J. (2020). Title.", Text("(Smith, 2020)")),
			Text(", the "),
			Italic(Text("effect")),
			Text(" is "),
			Bold(Text("large")),
			Text("."),
		),
		Paragraph(Highlight(Text("See also [1] & [2].")), Annotation("", Text("[3]"))),
	}

	out, err := Render(blocks)
	require.NoError(t, err)

	assert.Equal(t,
		`<h3>Results</h3>`+
			`<p>As shown <span class="citation-marker" style="`+AnnotationStyle+`" title="Smith, J. (2020). Title.">(Smith, 2020)</span>, the <em>effect</em> is <strong>large</strong>.</p>`+
			`<p><span class="new-citation" style="`+HighlightStyle+`">See also [1] &amp; [2].</span><span class="citation-marker" style="`+AnnotationStyle+`">[3]</span></p>`,
		out)
}

func TestHasMarkup(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"<p>text</p>", true},
		{"line<br/>break", true},
		{`<span class="x">a</span>`, true},
		{"plain text", false},
		{"a < b and c > d", false},
		{"1 <2", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, HasMarkup(tt.text))
		})
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			name:   "paragraphs and headings",
			markup: "<h3>Title</h3><p>First <em>para</em>.</p><p>Second\n   para.</p>",
			want:   "Title\n\nFirst para.\n\nSecond para.",
		},
		{
			name:   "annotation spans keep their text",
			markup: `<p>Claim <span class="citation-marker" title="x">(Smith, 2020)</span>.</p>`,
			want:   "Claim (Smith, 2020).",
		},
		{
			name:   "line breaks",
			markup: "<p>one<br>two</p>",
			want:   "one\ntwo",
		},
		{
			name:   "entities and scripts",
			markup: "<p>A &amp; B</p><script>alert(1)</script>",
			want:   "A & B",
		},
		{
			name:   "plain text passes through",
			markup: "Smith &amp; Jones\r\n\r\nNext",
			want:   "Smith & Jones\n\nNext",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkup(tt.markup))
		})
	}
}

func TestHasClass(t *testing.T) {
	span := HighlightSpan()
	assert.True(t, HasClass(span, HighlightClass))
	assert.False(t, HasClass(span, AnnotationClass))
	assert.False(t, HasClass(nil, HighlightClass))
	assert.False(t, HasClass(Text("x").HTML(), HighlightClass))
}
