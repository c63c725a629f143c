package loaders

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
)

var _ interfaces.Loader = (*PdfLoader)(nil)

// PdfLoader extracts text from PDF documents page by page.
type PdfLoader struct{}

// NewPdfLoader creates a PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load parses the PDF and concatenates the text of every page. Pages
// that fail to extract are skipped rather than failing the document.
func (l *PdfLoader) Load(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrDocumentParse, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: no extractable text in pdf", schema.ErrDocumentParse)
	}
	return text, nil
}
