package splitters

import (
	"strings"
	"testing"
)

func TestSplitEmptyText(t *testing.T) {
	s := NewSentenceSplitter(512, 50)
	if got := s.Split(""); got != nil {
		t.Fatalf("Split(empty) = %v, want nil", got)
	}
	if got := s.Split("   \n  "); got != nil {
		t.Fatalf("Split(whitespace) = %v, want nil", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSentenceSplitter(512, 50)
	text := "This is the first sentence. This is the second sentence."
	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1: %v", len(chunks), chunks)
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q, want original text", chunks[0])
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewSentenceSplitter(100, 20)
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("Here is another reasonably long sentence for the splitter. ")
	}
	chunks := s.Split(b.String())

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 100+20+1 {
			t.Errorf("chunk %d length %d exceeds size plus overlap", i, len(chunk))
		}
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestSplitCarriesOverlap(t *testing.T) {
	s := NewSentenceSplitter(80, 20)
	text := "The quick brown fox jumps over the lazy dog near the river bank today. A second sentence follows with more detail about the fox and the dog."
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	// The second chunk starts with the tail of the first one.
	first := chunks[0]
	tail := first[len(first)-20:]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Errorf("chunk 1 %q does not start with overlap %q", chunks[1], tail)
	}
}

func TestSplitLongUnbrokenText(t *testing.T) {
	s := NewSentenceSplitter(50, 10)
	text := strings.Repeat("wordswithoutanyspacesorsentenceending", 10)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected character fallback to produce multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 50 {
			t.Errorf("chunk %d length %d exceeds chunk size", i, len(chunk))
		}
	}
}

func TestSplitPrefersWordBoundaries(t *testing.T) {
	s := NewSentenceSplitter(50, 0)
	// No sentence punctuation, so the character fallback runs on a
	// text that does contain spaces late in each window.
	text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta ", 5)
	chunks := s.Split(text)
	for i, chunk := range chunks[:len(chunks)-1] {
		if strings.Contains(chunk, "  ") {
			t.Errorf("chunk %d has doubled spaces: %q", i, chunk)
		}
	}
}

func TestClean(t *testing.T) {
	in := "Line one.\r\nLine two.\r\rtabbed\ttext\n\n\n\n\nLine three.  extra   spaces"
	got := Clean(in)

	if strings.Contains(got, "\r") {
		t.Error("carriage returns should be normalized")
	}
	if strings.Contains(got, "\n\n\n") {
		t.Error("runs of blank lines should be collapsed")
	}
	if strings.Contains(got, "  ") {
		t.Error("space runs should be collapsed")
	}
	if !strings.Contains(got, "tabbed text") {
		t.Errorf("tabs should collapse to single spaces, got %q", got)
	}
}

func TestCleanEmpty(t *testing.T) {
	if got := Clean(""); got != "" {
		t.Errorf("Clean(empty) = %q", got)
	}
}
