package richtext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaceRunRe   = regexp.MustCompile(`[ \t\n\r\f]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// blockElements start a new paragraph when stripped.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Li: true, atom.Ul: true,
	atom.Ol: true, atom.Blockquote: true, atom.Section: true, atom.Article: true,
	atom.Table: true, atom.Tr: true, atom.Pre: true, atom.Hr: true,
	atom.Header: true, atom.Footer: true,
}

// InlineElement reports whether an element flows with the surrounding text.
func InlineElement(n *html.Node) bool {
	return n.Type == html.ElementNode && !blockElements[n.DataAtom] && n.DataAtom != atom.Br &&
		n.DataAtom != atom.Script && n.DataAtom != atom.Style
}

// BlockElement reports whether an element starts a new paragraph.
func BlockElement(n *html.Node) bool {
	return n.Type == html.ElementNode && blockElements[n.DataAtom]
}

// StripMarkup returns the plain text of markup with paragraphs separated by
// a blank line and <br> turned into a line break. Text without any tags is
// returned with its line endings normalized.
func StripMarkup(markup string) string {
	if !HasMarkup(markup) {
		text := strings.ReplaceAll(markup, "\r\n", "\n")
		return strings.TrimSpace(html.UnescapeString(text))
	}
	nodes, err := ParseFragment(markup)
	if err != nil {
		return strings.TrimSpace(tagRe.ReplaceAllString(markup, ""))
	}

	s := &stripper{}
	for _, n := range nodes {
		s.walk(n)
	}
	s.flush()
	return strings.Join(s.paragraphs, "\n\n")
}

type stripper struct {
	paragraphs []string
	current    strings.Builder
}

func (s *stripper) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		s.current.WriteString(spaceRunRe.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style:
			return
		case atom.Br:
			s.current.WriteString("\n")
			return
		}
	}

	block := BlockElement(n)
	if block {
		s.flush()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(c)
	}
	if block {
		s.flush()
	}
}

func (s *stripper) flush() {
	text := s.current.String()
	s.current.Reset()

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.TrimSpace(blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
	if text != "" {
		s.paragraphs = append(s.paragraphs, text)
	}
}
