package documents

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNoHTMLInZip = errors.New("zip archive contains no html file")

// chrome elements carry no bibliographic content.
var chrome = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Iframe:   true,
	atom.Form:     true,
	atom.Svg:      true,
	atom.Aside:    true,
}

// PreprocessHTML turns a web page into markdown for the model, dropping
// scripts, styles, navigation and other page chrome.
func PreprocessHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	stripChrome(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	md, err := htmltomarkdown.ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("failed to convert html to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

func stripChrome(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && chrome[c.DataAtom]:
			n.RemoveChild(c)
		default:
			stripChrome(c)
		}
		c = next
	}
}

func isHTMLName(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// isZoteroSnapshotZip reports whether data is a zip archive holding at
// least one html file, which is how Zotero stores web page snapshots.
func isZoteroSnapshotZip(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if isHTMLName(f.Name) {
			return true
		}
	}
	return false
}

// ExtractHTMLFromZip returns the main page of a snapshot archive, preferring
// index.html at any depth.
func ExtractHTMLFromZip(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	var pick *zip.File
	for _, f := range zr.File {
		if !isHTMLName(f.Name) {
			continue
		}
		if strings.EqualFold(path.Base(f.Name), "index.html") {
			pick = f
			break
		}
		if pick == nil {
			pick = f
		}
	}
	if pick == nil {
		return nil, ErrNoHTMLInZip
	}
	rc, err := pick.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", pick.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxDownloadSize))
}
