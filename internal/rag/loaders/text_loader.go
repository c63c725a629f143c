package loaders

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
)

var _ interfaces.Loader = (*TextLoader)(nil)

// TextLoader passes plain text documents through unchanged.
type TextLoader struct{}

// NewTextLoader creates a TextLoader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load returns the document bytes as text, replacing invalid UTF-8.
func (l *TextLoader) Load(ctx context.Context, data []byte) (string, error) {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: document is empty", schema.ErrDocumentParse)
	}
	return text, nil
}
