// Package pdf extracts plain text from PDF documents.
package pdf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

type Extractor struct {
	log *zap.Logger
}

func NewExtractor() *Extractor {
	return &Extractor{
		log: zap.L().With(
			zap.String("component", "pdf_extractor"),
		),
	}
}

// Extract reads the PDF at path and returns its text page by page.
// Pages that fail to extract contribute an empty string.
func (e *Extractor) Extract(path string) (string, error) {
	f, r, err := openReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnsupportedFormat, path, err)
	}
	defer f.Close()

	log := e.log.With(
		zap.String("path", path),
	)

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, err := pageText(r, i)
		if err != nil {
			log.Warn(err.Error(), zap.Int("page", i))
			text = ""
		}

		pages = append(pages, text)
	}

	return strings.Join(pages, PageSeparator), nil
}

type closer interface {
	Close() error
}

// openReader guards pdf.Open, which panics on some malformed inputs.
func openReader(path string) (f closer, r *pdf.Reader, err error) {
	defer func() {
		if v := recover(); v != nil {
			f, r, err = nil, nil, fmt.Errorf("open pdf: %v", v)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		if file != nil {
			file.Close()
		}

		return nil, nil, err
	}

	return file, reader, nil
}

func pageText(r *pdf.Reader, i int) (text string, err error) {
	defer func() {
		if v := recover(); v != nil {
			text, err = "", fmt.Errorf("page %d: %v", i, v)
		}
	}()

	page := r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}

	return page.GetPlainText(nil)
}
