package export

import (
	"github.com/Epistemic-Technology/citation-mcp/internal/bibtex"
)

// BibTeX renders the request's metadata as a single-entry .bib file.
func BibTeX(req Request) (*Artifact, error) {
	if req.Metadata.IsEmpty() {
		return nil, &Error{Kind: KindBibTeX, FileName: req.FileName, Err: ErrNoMetadata}
	}
	key := bibtex.Key(req.Metadata, nil)
	return &Artifact{
		FileName:    FileName(req.FileName, KindBibTeX.Ext()),
		ContentType: KindBibTeX.ContentType(),
		Data:        []byte(bibtex.File([]string{bibtex.Entry(req.Metadata, key)})),
	}, nil
}
