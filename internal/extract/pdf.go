package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls text page by page, concatenated in page order with a
// line break between pages.
func extractPDF(reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read pdf bytes: %w", err)
	}

	document, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	pages := make([]string, 0, document.NumPage())
	for pageNumber := 1; pageNumber <= document.NumPage(); pageNumber++ {
		page := document.Page(pageNumber)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d: %w", pageNumber, err)
		}
		pages = append(pages, strings.TrimSpace(pageText))
	}

	return strings.Join(pages, "\n"), nil
}
