package styles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantStyle  Style
		wantFamily Family
		wantTitle  string
	}{
		{"apa", "APA", APA, FamilyAuthorDate, "References"},
		{"lower case mla", "mla", MLA, FamilyAuthorDate, "Works Cited"},
		{"chicago with spaces", "  Chicago ", Chicago, FamilyFootnote, "Footnotes"},
		{"oscola", "OSCOLA", OSCOLA, FamilyFootnote, "Footnotes"},
		{"ieee", "ieee", IEEE, FamilyNumeric, "References"},
		{"ama", "AMA", AMA, FamilyNumeric, "References"},
		{"harvard", "Harvard", Harvard, FamilyAuthorDate, "References"},
		{"asa", "asa", ASA, FamilyAuthorDate, "References"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Lookup(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStyle, rule.Name)
			assert.Equal(t, tt.wantFamily, rule.Family)
			assert.Equal(t, tt.wantTitle, rule.BibliographyTitle)
			assert.NotEmpty(t, rule.InText)
			assert.NotEmpty(t, rule.Reference)
			assert.NotEmpty(t, rule.Example)
		})
	}
}

func TestLookup_UnknownStyle(t *testing.T) {
	for _, name := range []string{"Vancouver", "", "APA6", "Bluebook"} {
		t.Run(name, func(t *testing.T) {
			_, err := Lookup(name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnknownStyle))

			var unknown *UnknownStyleError
			require.True(t, errors.As(err, &unknown))
			assert.Equal(t, name, unknown.Name)
		})
	}
}

func TestAll_ReturnsCopies(t *testing.T) {
	rules := All()
	require.Len(t, rules, 8)
	rules[0].BibliographyTitle = "changed"

	again := All()
	assert.NotEqual(t, "changed", again[0].BibliographyTitle)
	assert.Equal(t, Names()[0], string(again[0].Name))
}

func TestStyleRule_UnknownDegrades(t *testing.T) {
	rule := Style("Vancouver").Rule()
	assert.Equal(t, FamilyAuthorDate, rule.Family)
	assert.Equal(t, "References", rule.BibliographyTitle)
}
