package footnotes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
)

var allStyles = []styles.Style{
	styles.APA, styles.MLA, styles.Chicago, styles.Harvard,
	styles.OSCOLA, styles.IEEE, styles.AMA, styles.ASA,
}

func TestNormalize_CollapsesBreaks(t *testing.T) {
	for _, style := range allStyles {
		t.Run(string(style), func(t *testing.T) {
			assert.Equal(t, "a\n\nb", Normalize("a\n\n\n\nb", style))
			assert.Equal(t, "a\n\nb", Normalize("a\r\n\r\n\r\nb", style))
			assert.Equal(t, "a\n\nb", Normalize("a\r\rb", style))
		})
	}
}

func TestNormalize_StyleRules(t *testing.T) {
	tests := []struct {
		name  string
		style styles.Style
		input string
		want  string
	}{
		{
			name:  "oscola strips ordinals",
			style: styles.OSCOLA,
			input: "1. Smith, J. Title.\n\n2. Jones, K. Title.",
			want:  "Smith, J. Title.\n\nJones, K. Title.",
		},
		{
			name:  "chicago strips ordinals and trims",
			style: styles.Chicago,
			input: "  12.   John Smith, Climate (2020), 4.  \n\n\n\n 13. Ibid.",
			want:  "John Smith, Climate (2020), 4.\n\nIbid.",
		},
		{
			name:  "ieee keeps bracket with single space",
			style: styles.IEEE,
			input: "[1]    J. Smith, \"Title,\" 2020.\n\n[2]J. Doe, \"Other,\" 2021.",
			want:  "[1] J. Smith, \"Title,\" 2020.\n\n[2] J. Doe, \"Other,\" 2021.",
		},
		{
			name:  "ama bracket on its own line",
			style: styles.AMA,
			input: "[3]\nSmith J. Title. 2020.",
			want:  "[3] Smith J. Title. 2020.",
		},
		{
			name:  "apa leaves numbers alone",
			style: styles.APA,
			input: "1. Smith, J. (2020). Title.\n\n\n[2] Doe, K. (2021). Other.",
			want:  "1. Smith, J. (2020). Title.\n\n[2] Doe, K. (2021). Other.",
		},
		{
			name:  "whitespace only paragraphs dropped",
			style: styles.MLA,
			input: "\n\n   \n\nSmith, John. Title.\n \t\n\n\n",
			want:  "Smith, John. Title.",
		},
		{
			name:  "empty input",
			style: styles.APA,
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input, tt.style))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"a\n\n\n\nb",
		"1. 2. 3. nested ordinals\n\n\n4. next",
		"[1]\n\n[2]   x\r\n\r\n\r\n[3]y",
		"line one\nline two  \n  \n\nline three",
		"  leading\n\n\n\n\n\ntrailing   \n",
		"\r\n\r\n",
		"Smith, J. (2020).\n \nDoe, K. (2019).",
	}
	for _, style := range allStyles {
		for _, input := range inputs {
			once := Normalize(input, style)
			assert.Equal(t, once, Normalize(once, style), "style %s input %q", style, input)
		}
	}
}

func TestNormalizeParts(t *testing.T) {
	got := NormalizeParts([]string{"[1] First ref.", "[2] Second ref."}, styles.IEEE)
	assert.Equal(t, "[1] First ref.\n\n[2] Second ref.", got)
	assert.Equal(t, []string{"[1] First ref.", "[2] Second ref."}, Paragraphs(got))
}

func TestParagraphs_Empty(t *testing.T) {
	assert.Nil(t, Paragraphs(""))
	assert.Nil(t, Paragraphs("  \n "))
}

func TestEntries(t *testing.T) {
	note := Normalize("3. Donoghue v Stevenson [1932] AC 562.\n\n\n7. Human Rights Act 1998, s 6.", styles.OSCOLA)
	assert.Equal(t, []string{"1. Donoghue v Stevenson [1932] AC 562.", "2. Human Rights Act 1998, s 6."}, Entries(note, styles.OSCOLA))

	refs := Normalize("Smith, J. (2020). Title.\n\nDoe, K. (2019). Other.", styles.APA)
	assert.Equal(t, []string{"Smith, J. (2020). Title.", "Doe, K. (2019). Other."}, Entries(refs, styles.APA))

	assert.Empty(t, Entries("", styles.Chicago))
}
