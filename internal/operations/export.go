package operations

import (
	"time"

	"github.com/Epistemic-Technology/citation-mcp/internal/export"
	"github.com/Epistemic-Technology/citation-mcp/internal/logger"
	"github.com/Epistemic-Technology/citation-mcp/internal/styles"
	"github.com/Epistemic-Technology/citation-mcp/models"
)

// ExportParams selects the format and destination of an export. With an
// empty OutputDir the artifact is only returned.
type ExportParams struct {
	Kind      export.Kind
	Options   export.Options
	OutputDir string
	Generated time.Time
}

// ExportResult is a finished export and, when written, its location.
type ExportResult struct {
	Artifact *export.Artifact
	Path     string
}

// ExportCitation renders one citation result and optionally writes it to
// disk. Nothing is written when rendering fails.
func ExportCitation(result models.CitationResult, style styles.Style, params ExportParams, log logger.Logger) (*ExportResult, error) {
	art, err := export.Export(params.Kind, export.Request{
		FileName:  result.FileName,
		Content:   result.Citation,
		Footnotes: result.Footnotes.Strings(),
		Style:     style,
		Generated: params.Generated,
		Metadata:  result.Metadata,
	}, params.Options)
	if err != nil {
		log.Error("Export of %s failed: %v", result.FileName, err)
		return nil, err
	}
	out := &ExportResult{Artifact: art}
	if params.OutputDir == "" {
		return out, nil
	}

	out.Path, err = art.WriteFile(params.OutputDir)
	if err != nil {
		log.Error("Failed to write %s: %v", art.FileName, err)
		return nil, err
	}
	log.Info("Wrote %s", out.Path)
	return out, nil
}
