package loaders

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docquery/internal/rag/schema"
)

func TestFetcherDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("document body"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 1<<20)
	data, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "document body" {
		t.Errorf("data = %q", data)
	}
}

func TestFetcherFollowsRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("redirected body"))
	}))
	defer target.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 1<<20)
	data, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "redirected body" {
		t.Errorf("data = %q", data)
	}
}

func TestFetcherRejectsOversizedDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 1024)
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, schema.ErrDocumentFetch) {
		t.Fatalf("err = %v, want ErrDocumentFetch", err)
	}
}

func TestFetcherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 1<<20)
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, schema.ErrDocumentFetch) {
		t.Fatalf("err = %v, want ErrDocumentFetch", err)
	}
}

func TestFetcherRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), 1<<20)
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, schema.ErrDocumentFetch) {
		t.Fatalf("err = %v, want ErrDocumentFetch", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		url  string
		want Format
	}{
		{"pdf magic", []byte("%PDF-1.7 rest of file"), "https://x/doc.pdf", FormatPDF},
		{"docx zip", append([]byte("PK\x03\x04"), []byte("....word/document.xml")...), "https://x/doc.docx", FormatDocx},
		{"html doctype", []byte("<!DOCTYPE html><html><body>hi</body></html>"), "https://x/page", FormatHTML},
		{"html tag with leading space", []byte("  \n<HTML><body>hi</body></HTML>"), "https://x/page", FormatHTML},
		{"eml extension", []byte("From: a@example.com\r\n\r\nbody"), "https://x/message.eml?token=1", FormatEmail},
		{"plain text", []byte("just some ordinary text content"), "https://x/notes.txt", FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data, tt.url); got != tt.want {
				t.Errorf("DetectFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestForFormatCoversAllFormats(t *testing.T) {
	for _, format := range []Format{FormatPDF, FormatDocx, FormatHTML, FormatEmail, FormatText} {
		if _, err := ForFormat(format); err != nil {
			t.Errorf("ForFormat(%q): %v", format, err)
		}
	}
	if _, err := ForFormat(Format("tarball")); !errors.Is(err, schema.ErrDocumentParse) {
		t.Errorf("unknown format err = %v, want ErrDocumentParse", err)
	}
}

func TestTextLoader(t *testing.T) {
	l := NewTextLoader()
	text, err := l.Load(context.Background(), []byte("hello world"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}

	if _, err := l.Load(context.Background(), []byte("   \n ")); !errors.Is(err, schema.ErrDocumentParse) {
		t.Errorf("empty input err = %v, want ErrDocumentParse", err)
	}
}

func TestHTMLLoader(t *testing.T) {
	l := NewHTMLLoader()
	html := `<html><body><h1>Policy</h1><p>Coverage starts <strong>immediately</strong>.</p></body></html>`
	text, err := l.Load(context.Background(), []byte(html))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(text, "Policy") || !strings.Contains(text, "immediately") {
		t.Errorf("converted text missing content: %q", text)
	}
	if strings.Contains(text, "<p>") {
		t.Errorf("tags should be stripped: %q", text)
	}
}

func TestEmailLoaderPlain(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Quarterly report\r\n" +
		"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
		"\r\n" +
		"The report is attached. Revenue grew by 12 percent.\r\n"

	l := NewEmailLoader()
	text, err := l.Load(context.Background(), []byte(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, want := range []string{"Subject: Quarterly report", "alice@example.com", "Revenue grew by 12 percent."} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestEmailLoaderMultipartPrefersPlain(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: Mixed message\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"sep\"\r\n" +
		"\r\n" +
		"--sep\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain text body\r\n" +
		"--sep\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html body</p>\r\n" +
		"--sep--\r\n"

	l := NewEmailLoader()
	text, err := l.Load(context.Background(), []byte(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(text, "plain text body") {
		t.Errorf("expected the text/plain part, got:\n%s", text)
	}
	if strings.Contains(text, "html body") {
		t.Errorf("html alternative should be ignored when plain text exists:\n%s", text)
	}
}

func TestEmailLoaderQuotedPrintable(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: Encoded\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=C3=A9 report\r\n"

	l := NewEmailLoader()
	text, err := l.Load(context.Background(), []byte(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(text, "café report") {
		t.Errorf("quoted-printable body not decoded:\n%s", text)
	}
}

func TestEmailLoaderRejectsGarbage(t *testing.T) {
	l := NewEmailLoader()
	if _, err := l.Load(context.Background(), []byte("not an email at all")); !errors.Is(err, schema.ErrDocumentParse) {
		t.Fatalf("err = %v, want ErrDocumentParse", err)
	}
}
