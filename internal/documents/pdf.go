package documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrEmptyPDF = errors.New("pdf has no pages")

// FirstPage returns a standalone single-page PDF holding page 1 of data.
// Title pages carry almost everything a citation needs, and one page keeps
// the model request small.
func FirstPage(data []byte) ([]byte, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	if ctx.PageCount == 0 {
		return nil, ErrEmptyPDF
	}
	if ctx.PageCount == 1 {
		return data, nil
	}
	page, err := api.ExtractPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to extract first page: %w", err)
	}
	out, err := io.ReadAll(page)
	if err != nil {
		return nil, fmt.Errorf("failed to read first page: %w", err)
	}
	return out, nil
}

// PageCount returns the number of pages in a PDF.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}
