package loaders

import (
	"context"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
)

var _ interfaces.Loader = (*HTMLLoader)(nil)

// HTMLLoader converts HTML pages to markdown, which keeps headings and
// list structure that plain text stripping would lose.
type HTMLLoader struct{}

// NewHTMLLoader creates an HTMLLoader.
func NewHTMLLoader() *HTMLLoader {
	return &HTMLLoader{}
}

// Load converts the page to markdown text.
func (l *HTMLLoader) Load(ctx context.Context, data []byte) (string, error) {
	markdown, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrDocumentParse, err)
	}

	text := strings.TrimSpace(markdown)
	if text == "" {
		return "", fmt.Errorf("%w: no extractable text in html", schema.ErrDocumentParse)
	}
	return text, nil
}
