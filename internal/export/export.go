// Package export renders a formatted citation and its footnotes into a
// downloadable PDF or DOCX document, or its metadata into a BibTeX file.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

// Kind is an export format.
type Kind string

const (
	KindPDF    Kind = "pdf"
	KindDOCX   Kind = "docx"
	KindBibTeX Kind = "bib"
)

var (
	// ErrUnknownKind is returned for a format other than pdf, docx or bib.
	ErrUnknownKind = errors.New("unknown export format")
	// ErrNoMetadata is returned when a BibTeX export has nothing to render.
	ErrNoMetadata = errors.New("no bibliographic metadata to export")
)

// ParseKind validates an export format name.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case KindPDF:
		return KindPDF, nil
	case KindDOCX:
		return KindDOCX, nil
	case KindBibTeX, "bibtex":
		return KindBibTeX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Ext returns the file extension of the format, with the leading dot.
func (k Kind) Ext() string { return "." + string(k) }

// ContentType returns the MIME type of the format.
func (k Kind) ContentType() string {
	switch k {
	case KindDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case KindBibTeX:
		return "application/x-bibtex"
	}
	return "application/pdf"
}

// Request is one citation to export. Content may carry markup; Footnotes
// may be a single string or an ordered list of entries. Metadata is only
// read by the BibTeX exporter.
type Request struct {
	FileName  string
	Content   string
	Footnotes []string
	Style     styles.Style
	Generated time.Time
	Metadata  *models.ItemMetadata
}

// Options tune page layout.
type Options struct {
	// PageSize is "A4" (default) or "Letter".
	PageSize string

	// LinesPerPage overrides the DOCX page-capacity estimate.
	LinesPerPage int
}

// Artifact is a finished export.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Error is an export failure. Its message is safe to show to the user.
type Error struct {
	Kind     Kind
	FileName string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to export %s as %s: %v", e.FileName, strings.ToUpper(string(e.Kind)), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Export renders the request in the given format.
func Export(kind Kind, req Request, opts Options) (*Artifact, error) {
	switch kind {
	case KindPDF:
		return PDF(req, opts)
	case KindDOCX:
		return DOCX(req, opts)
	case KindBibTeX:
		return BibTeX(req)
	}
	return nil, &Error{Kind: kind, FileName: req.FileName, Err: ErrUnknownKind}
}

// guard turns a panic inside a serializer into an *Error and drops any
// partial artifact.
func guard(kind Kind, req Request, art **Artifact, err *error) {
	if r := recover(); r != nil {
		*art = nil
		*err = &Error{Kind: kind, FileName: req.FileName, Err: fmt.Errorf("internal error: %v", r)}
	}
}

// WriteFile stores the artifact in dir under its file name. The file only
// appears once it has been written completely.
func (a *Artifact) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	path := filepath.Join(dir, a.FileName)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}
	return path, nil
}
