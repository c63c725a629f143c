package loaders

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/v2/document"

	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
)

var _ interfaces.Loader = (*DocxLoader)(nil)

// DocxLoader extracts text from Word documents, including table cells.
type DocxLoader struct{}

// NewDocxLoader creates a DocxLoader.
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load parses the document and concatenates paragraph and table text
// in document order.
func (l *DocxLoader) Load(ctx context.Context, data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrDocumentParse, err)
	}
	defer doc.Close()

	var b strings.Builder
	for _, para := range doc.Paragraphs() {
		line := paragraphText(para)
		if line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				var cellText strings.Builder
				for _, para := range cell.Paragraphs() {
					cellText.WriteString(paragraphText(para))
				}
				cells = append(cells, cellText.String())
			}
			b.WriteString(strings.Join(cells, "\t"))
			b.WriteString("\n")
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: no extractable text in docx", schema.ErrDocumentParse)
	}
	return text, nil
}

func paragraphText(para document.Paragraph) string {
	var b strings.Builder
	for _, run := range para.Runs() {
		b.WriteString(run.Text())
	}
	return strings.TrimSpace(b.String())
}
