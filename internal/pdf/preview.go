package pdfutil

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// previewLimit caps the excerpt stored on a catalog entry.
const previewLimit = 600

// Preview extracts plain text from PDF bytes and condenses it into a short
// excerpt suitable for the catalog listing.
func Preview(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	doc, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString(" ")
		if builder.Len() > previewLimit*2 {
			// Enough raw text gathered; later pages cannot change the excerpt.
			break
		}
	}
	return condense(builder.String()), nil
}

// condense collapses runs of whitespace and truncates to the preview limit
// without cutting a word in half.
func condense(text string) string {
	fields := strings.Fields(text)
	var builder strings.Builder
	for _, word := range fields {
		if builder.Len()+len(word)+1 > previewLimit {
			break
		}
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(word)
	}
	return builder.String()
}
