// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionError reports a document that could not be opened or parsed.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Text opens the PDF at path and returns the plain text of every page,
// concatenated in page order. Layout, images and tables are dropped.
func Text(path string) (text string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = &ExtractionError{Path: path, Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	var sb strings.Builder
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Path: path, Err: fmt.Errorf("page %d: %w", i, err)}
		}
		sb.WriteString(content)
	}

	slog.Debug("extracted document text", "path", path, "pages", numPages, "chars", sb.Len())
	return sb.String(), nil
}
