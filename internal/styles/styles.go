// Package styles holds the read-only table of supported citation styles and
// their formatting conventions.
package styles

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Style is one of the closed set of supported citation styles.
type Style string

const (
	APA     Style = "APA"
	MLA     Style = "MLA"
	Chicago Style = "Chicago"
	Harvard Style = "Harvard"
	OSCOLA  Style = "OSCOLA"
	IEEE    Style = "IEEE"
	AMA     Style = "AMA"
	ASA     Style = "ASA"
)

// Family groups styles that share normalization and extraction rules.
type Family string

const (
	// FamilyFootnote styles number their notes "1. ..." and render them as
	// one continuous block.
	FamilyFootnote Family = "footnote"
	// FamilyNumeric styles key references by a bracketed number "[1]".
	FamilyNumeric Family = "numeric"
	// FamilyAuthorDate styles cite by author (and year or page).
	FamilyAuthorDate Family = "author-date"
)

// MarkerForm describes the shape of an in-text citation marker.
type MarkerForm string

const (
	MarkerNumeric    MarkerForm = "numeric"
	MarkerAuthorYear MarkerForm = "author-year"
	MarkerAuthorPage MarkerForm = "author-page"
)

// Rule is the formatting contract of a single style.
type Rule struct {
	Name              Style      `yaml:"name" json:"name"`
	Family            Family     `yaml:"family" json:"family"`
	MarkerForm        MarkerForm `yaml:"marker_form" json:"marker_form"`
	BibliographyTitle string     `yaml:"bibliography_title" json:"bibliography_title"`
	InText            string     `yaml:"in_text" json:"in_text"`
	Reference         string     `yaml:"reference" json:"reference"`
	Example           string     `yaml:"example" json:"example"`
}

// ErrUnknownStyle is returned for any style name outside the supported set.
var ErrUnknownStyle = errors.New("unknown citation style")

// UnknownStyleError carries the rejected style name.
type UnknownStyleError struct {
	Name string
}

func (e *UnknownStyleError) Error() string {
	return fmt.Sprintf("%s: %q (supported: %s)", ErrUnknownStyle, e.Name, strings.Join(Names(), ", "))
}

func (e *UnknownStyleError) Unwrap() error {
	return ErrUnknownStyle
}

//go:embed styles.yaml
var tableYAML []byte

// table is populated once at init and never written afterwards.
var (
	table   map[Style]Rule
	ordered []Style
	byLower map[string]Style
)

func init() {
	var doc struct {
		Styles []Rule `yaml:"styles"`
	}
	if err := yaml.Unmarshal(tableYAML, &doc); err != nil {
		panic(fmt.Sprintf("styles: invalid embedded table: %v", err))
	}
	table = make(map[Style]Rule, len(doc.Styles))
	byLower = make(map[string]Style, len(doc.Styles))
	for _, rule := range doc.Styles {
		table[rule.Name] = rule
		byLower[strings.ToLower(string(rule.Name))] = rule.Name
		ordered = append(ordered, rule.Name)
	}
}

// Parse validates a style name. Matching is case-insensitive and ignores
// surrounding whitespace.
func Parse(name string) (Style, error) {
	style, ok := byLower[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", &UnknownStyleError{Name: name}
	}
	return style, nil
}

// Lookup returns the rule for a style name.
func Lookup(name string) (Rule, error) {
	style, err := Parse(name)
	if err != nil {
		return Rule{}, err
	}
	return table[style], nil
}

// Rule returns the rule of an already validated style. An unknown style
// yields the zero Rule with FamilyAuthorDate so callers degrade to the
// least structured formatting.
func (s Style) Rule() Rule {
	rule, ok := table[s]
	if !ok {
		return Rule{Name: s, Family: FamilyAuthorDate, MarkerForm: MarkerAuthorYear, BibliographyTitle: "References"}
	}
	return rule
}

// Family is shorthand for s.Rule().Family.
func (s Style) Family() Family {
	return s.Rule().Family
}

// All returns every rule in table order.
func All() []Rule {
	rules := make([]Rule, 0, len(ordered))
	for _, style := range ordered {
		rules = append(rules, table[style])
	}
	return rules
}

// Names returns the supported style names in table order.
func Names() []string {
	names := make([]string, 0, len(ordered))
	for _, style := range ordered {
		names = append(names, string(style))
	}
	return names
}
