// Package richtext is a small typed document tree (paragraphs, headings,
// emphasis, annotations) serialized to HTML for the rich-text editor, plus
// helpers for reading markup back.
package richtext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind identifies a node type.
type Kind int

const (
	KindText Kind = iota
	KindParagraph
	KindHeading
	KindItalic
	KindBold
	KindAnnotation
	KindHighlight
)

// CSS classes and inline styles written into annotation spans. The editor
// only keeps inline style attributes, so the class is for our own guards.
const (
	AnnotationClass = "citation-marker"
	HighlightClass  = "new-citation"

	AnnotationStyle = "background-color: #e7f0fd; border-bottom: 1px dotted #1a56db; cursor: help;"
	HighlightStyle  = "background-color: #fff4c2;"
)

// Node is one element of the tree. Text is only used by KindText; Title only
// by KindAnnotation.
type Node struct {
	Kind     Kind
	Text     string
	Title    string
	Children []*Node
}

// Text creates a text node.
func Text(s string) *Node { return &Node{Kind: KindText, Text: s} }

// Paragraph creates a paragraph holding inline children.
func Paragraph(children ...*Node) *Node { return &Node{Kind: KindParagraph, Children: children} }

// Heading creates a sub-heading holding inline children.
func Heading(children ...*Node) *Node { return &Node{Kind: KindHeading, Children: children} }

// Italic wraps children in emphasis.
func Italic(children ...*Node) *Node { return &Node{Kind: KindItalic, Children: children} }

// Bold wraps children in strong emphasis.
func Bold(children ...*Node) *Node { return &Node{Kind: KindBold, Children: children} }

// Annotation wraps a citation marker. An empty title renders no hover text.
func Annotation(title string, children ...*Node) *Node {
	return &Node{Kind: KindAnnotation, Title: title, Children: children}
}

// Highlight wraps a newly added citation sentence.
func Highlight(children ...*Node) *Node { return &Node{Kind: KindHighlight, Children: children} }

// HTML converts the node into an x/net/html tree.
func (n *Node) HTML() *html.Node {
	switch n.Kind {
	case KindText:
		return &html.Node{Type: html.TextNode, Data: n.Text}
	case KindParagraph:
		return element(atom.P, nil, n.Children)
	case KindHeading:
		return element(atom.H3, nil, n.Children)
	case KindItalic:
		return element(atom.Em, nil, n.Children)
	case KindBold:
		return element(atom.Strong, nil, n.Children)
	case KindAnnotation:
		attrs := []html.Attribute{
			{Key: "class", Val: AnnotationClass},
			{Key: "style", Val: AnnotationStyle},
		}
		if n.Title != "" {
			attrs = append(attrs, html.Attribute{Key: "title", Val: n.Title})
		}
		return element(atom.Span, attrs, n.Children)
	case KindHighlight:
		span := HighlightSpan()
		for _, child := range n.Children {
			span.AppendChild(child.HTML())
		}
		return span
	}
	return &html.Node{Type: html.TextNode}
}

// HighlightSpan returns an empty new-citation span element.
func HighlightSpan() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     atom.Span.String(),
		Attr: []html.Attribute{
			{Key: "class", Val: HighlightClass},
			{Key: "style", Val: HighlightStyle},
		},
	}
}

func element(a atom.Atom, attrs []html.Attribute, children []*Node) *html.Node {
	el := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, child := range children {
		el.AppendChild(child.HTML())
	}
	return el
}

// Document converts a list of block nodes into detached html nodes.
func Document(blocks []*Node) []*html.Node {
	out := make([]*html.Node, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, block.HTML())
	}
	return out
}

// RenderNodes serializes html nodes in order.
func RenderNodes(nodes []*html.Node) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// Render serializes a list of block nodes.
func Render(blocks []*Node) (string, error) {
	return RenderNodes(Document(blocks))
}

// ParseFragment parses markup as the body of a document.
func ParseFragment(markup string) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: atom.Body.String()}
	return html.ParseFragment(strings.NewReader(markup), context)
}

var tagRe = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(?:\s[^<>]*)?/?>`)

// HasMarkup reports whether the text contains at least one HTML tag.
func HasMarkup(text string) bool {
	return tagRe.MatchString(text)
}

// HasClass reports whether an element carries the given class.
func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}
