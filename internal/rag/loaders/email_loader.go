package loaders

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
)

var _ interfaces.Loader = (*EmailLoader)(nil)

// EmailLoader extracts the headers and body text of RFC 5322 messages.
// Multipart messages prefer the text/plain part; HTML-only messages
// are converted to markdown.
type EmailLoader struct{}

// NewEmailLoader creates an EmailLoader.
func NewEmailLoader() *EmailLoader {
	return &EmailLoader{}
}

// Load parses the message and returns its headers followed by the
// decoded body.
func (l *EmailLoader) Load(ctx context.Context, data []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrDocumentParse, err)
	}

	var b strings.Builder
	for _, header := range []string{"From", "To", "Subject", "Date"} {
		if value := msg.Header.Get(header); value != "" {
			decoded, err := new(mime.WordDecoder).DecodeHeader(value)
			if err != nil {
				decoded = value
			}
			fmt.Fprintf(&b, "%s: %s\n", header, decoded)
		}
	}
	b.WriteString("\n")

	body, err := extractBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrDocumentParse, err)
	}
	b.WriteString(body)

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: no extractable text in email", schema.ErrDocumentParse)
	}
	return text, nil
}

// extractBody decodes one message body or walks a multipart tree. The
// first text/plain part wins; text/html is kept as a fallback.
func extractBody(contentType, encoding string, body io.Reader) (string, error) {
	if contentType == "" {
		return decodeContent(encoding, body)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return decodeContent(encoding, body)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(body, params["boundary"])
	}
	if mediaType == "text/html" {
		raw, err := decodeContent(encoding, body)
		if err != nil {
			return "", err
		}
		markdown, err := htmltomarkdown.ConvertString(raw)
		if err != nil {
			return raw, nil
		}
		return markdown, nil
	}
	return decodeContent(encoding, body)
}

func extractMultipart(body io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", fmt.Errorf("multipart message without boundary")
	}

	var htmlFallback string
	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		// A part without a Content-Type defaults to text/plain.
		partType := "text/plain"
		var partParams map[string]string
		if header := part.Header.Get("Content-Type"); header != "" {
			partType, partParams, err = mime.ParseMediaType(header)
			if err != nil {
				continue
			}
		}
		encoding := part.Header.Get("Content-Transfer-Encoding")

		switch {
		case partType == "text/plain":
			return decodeContent(encoding, part)
		case partType == "text/html" && htmlFallback == "":
			raw, err := decodeContent(encoding, part)
			if err == nil {
				htmlFallback = raw
			}
		case strings.HasPrefix(partType, "multipart/"):
			if nested, err := extractMultipart(part, partParams["boundary"]); err == nil && nested != "" {
				return nested, nil
			}
		}
	}

	if htmlFallback != "" {
		markdown, err := htmltomarkdown.ConvertString(htmlFallback)
		if err != nil {
			return htmlFallback, nil
		}
		return markdown, nil
	}
	return "", nil
}

func decodeContent(encoding string, r io.Reader) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
