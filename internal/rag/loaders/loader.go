// Package loaders fetches source documents and extracts their text.
package loaders

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDocx  Format = "docx"
	FormatHTML  Format = "html"
	FormatEmail Format = "email"
	FormatText  Format = "text"
)

// Fetcher downloads source documents over HTTP.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// NewFetcher creates a Fetcher. maxSize caps the downloaded body in
// bytes; larger documents are rejected.
func NewFetcher(client *http.Client, maxSize int64) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, maxSize: maxSize}
}

// Fetch downloads the document at url. Redirects are followed by the
// underlying client.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrDocumentFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrDocumentFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", schema.ErrDocumentFetch, resp.StatusCode, url)
	}
	if resp.ContentLength > f.maxSize {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", schema.ErrDocumentFetch, f.maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrDocumentFetch, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", schema.ErrDocumentFetch, f.maxSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response from %s", schema.ErrDocumentFetch, url)
	}
	return data, nil
}

// DetectFormat sniffs the document format from its leading bytes,
// falling back to mime detection and then to plain text.
func DetectFormat(data []byte, sourceURL string) Format {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return FormatPDF
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		head := data
		if len(head) > 4096 {
			head = head[:4096]
		}
		if bytes.Contains(head, []byte("word/")) {
			return FormatDocx
		}
	}

	head := bytes.TrimLeft(data, " \t\r\n")
	if len(head) > 0 && head[0] == '<' {
		lower := bytes.ToLower(head)
		if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
			return FormatHTML
		}
	}

	if strings.HasSuffix(strings.ToLower(urlPath(sourceURL)), ".eml") {
		return FormatEmail
	}

	switch mime := mimetype.Detect(data); {
	case mime.Is("application/pdf"):
		return FormatPDF
	case mime.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return FormatDocx
	case mime.Is("text/html"):
		return FormatHTML
	case mime.Is("message/rfc822"):
		return FormatEmail
	}
	return FormatText
}

// ForFormat returns the Loader for the format.
func ForFormat(format Format) (interfaces.Loader, error) {
	switch format {
	case FormatPDF:
		return NewPdfLoader(), nil
	case FormatDocx:
		return NewDocxLoader(), nil
	case FormatHTML:
		return NewHTMLLoader(), nil
	case FormatEmail:
		return NewEmailLoader(), nil
	case FormatText:
		return NewTextLoader(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", schema.ErrDocumentParse, format)
	}
}

func urlPath(sourceURL string) string {
	if i := strings.IndexAny(sourceURL, "?#"); i >= 0 {
		sourceURL = sourceURL[:i]
	}
	return sourceURL
}
