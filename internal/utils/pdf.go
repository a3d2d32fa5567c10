package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDFText returns the plain text of the first maxPages pages.
// Pages that fail to extract are skipped.
func ExtractPDFText(data []byte, maxPages int) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	total := reader.NumPage()
	if total == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= total; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, "\x00", ""))
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
