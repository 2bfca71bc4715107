package format

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Epistemic-Technology/citation-mcp/internal/richtext"
)

// highlightTree wraps new-citation sentences found in the inline runs of a
// tree. Existing highlight spans are opaque: nothing inside them, and no
// run crossing them, is examined again, so the pass is idempotent.
func highlightTree(parent *html.Node) {
	var run []*html.Node
	flush := func() {
		if len(run) > 0 {
			highlightRun(parent, run)
			run = nil
		}
	}

	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.TextNode:
			run = append(run, c)
		case c.Type != html.ElementNode:
			flush()
		case containsHighlight(c):
			flush()
			if !richtext.HasClass(c, richtext.HighlightClass) && !richtext.InlineElement(c) {
				highlightTree(c)
			}
		case richtext.InlineElement(c):
			run = append(run, c)
		default:
			flush()
			if c.DataAtom != atom.Script && c.DataAtom != atom.Style {
				highlightTree(c)
			}
		}
		c = next
	}
	flush()
}

func containsHighlight(n *html.Node) bool {
	if richtext.HasClass(n, richtext.HighlightClass) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsHighlight(c) {
			return true
		}
	}
	return false
}

// segment is one sibling of an inline run and its offset in the run text.
type segment struct {
	node  *html.Node
	start int
}

func (s segment) length() int {
	if s.node.Type == html.TextNode {
		return len(s.node.Data)
	}
	return len(textContent(s.node))
}

func highlightRun(parent *html.Node, run []*html.Node) {
	var b strings.Builder
	segs := make([]segment, 0, len(run))
	for _, n := range run {
		segs = append(segs, segment{node: n, start: b.Len()})
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		} else {
			b.WriteString(textContent(n))
		}
	}
	text := b.String()

	var ranges [][2]int
	for _, s := range splitSentences(text) {
		if !newCitationSentence(text[s[0]:s[1]]) {
			continue
		}
		r := snapToElements(segs, s)
		if n := len(ranges); n > 0 && r[0] < ranges[n-1][1] {
			ranges[n-1][1] = max(ranges[n-1][1], r[1])
			continue
		}
		ranges = append(ranges, r)
	}

	// Back to front, so splitting a text node never moves an earlier range.
	for i := len(ranges) - 1; i >= 0; i-- {
		wrapRange(parent, segs, ranges[i])
	}
}

// snapToElements widens a range so that it never cuts an element in half.
func snapToElements(segs []segment, r [2]int) [2]int {
	if i := segmentAt(segs, r[0]); i >= 0 && segs[i].node.Type != html.TextNode {
		r[0] = segs[i].start
	}
	if j := segmentAt(segs, r[1]-1); j >= 0 && segs[j].node.Type != html.TextNode {
		r[1] = segs[j].start + segs[j].length()
	}
	return r
}

// segmentAt returns the index of the segment holding byte offset pos.
func segmentAt(segs []segment, pos int) int {
	for i, s := range segs {
		if pos >= s.start && pos < s.start+s.length() {
			return i
		}
	}
	return -1
}

func wrapRange(parent *html.Node, segs []segment, r [2]int) {
	i, j := segmentAt(segs, r[0]), segmentAt(segs, r[1]-1)
	if i < 0 || j < 0 || j < i {
		return
	}
	first, last := segs[i].node, segs[j].node

	if last.Type == html.TextNode {
		if off := r[1] - segs[j].start; off < len(last.Data) {
			rest := &html.Node{Type: html.TextNode, Data: last.Data[off:]}
			last.Data = last.Data[:off]
			parent.InsertBefore(rest, last.NextSibling)
		}
	}
	if first.Type == html.TextNode {
		if off := r[0] - segs[i].start; off > 0 {
			tail := &html.Node{Type: html.TextNode, Data: first.Data[off:]}
			first.Data = first.Data[:off]
			parent.InsertBefore(tail, first.NextSibling)
			if first == last {
				last = tail
			}
			first = tail
		}
	}

	span := richtext.HighlightSpan()
	parent.InsertBefore(span, first)
	for n := first; n != nil; {
		next := n.NextSibling
		parent.RemoveChild(n)
		span.AppendChild(n)
		if n == last {
			break
		}
		n = next
	}
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
