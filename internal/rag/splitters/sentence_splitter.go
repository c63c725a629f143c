package splitters

import (
	"regexp"
	"strings"
	"unicode"

	"docquery/internal/rag/interfaces"
)

var _ interfaces.Splitter = (*SentenceSplitter)(nil)

// minSentenceLength filters out fragments produced by noisy extraction.
const minSentenceLength = 10

// SentenceSplitter groups sentences into chunks of at most chunkSize
// characters, carrying overlap characters from the tail of each chunk
// into the next so context is not lost at boundaries. Text without
// sentence structure falls back to character splitting at word
// boundaries.
type SentenceSplitter struct {
	chunkSize int
	overlap   int
}

// NewSentenceSplitter creates a SentenceSplitter. chunkSize is the
// maximum chunk length in characters, overlap the number of characters
// carried between adjacent chunks.
func NewSentenceSplitter(chunkSize, overlap int) *SentenceSplitter {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	return &SentenceSplitter{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts text into chunks in document order.
func (s *SentenceSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := extractSentences(text)
	if len(sentences) == 0 {
		return s.splitByCharacters([]rune(text))
	}

	var chunks []string
	current := ""
	for _, sentence := range sentences {
		if len(current)+len(sentence) > s.chunkSize && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))

			if s.overlap > 0 {
				runes := []rune(current)
				tail := runes
				if len(runes) > s.overlap {
					tail = runes[len(runes)-s.overlap:]
				}
				current = string(tail) + " " + sentence
			} else {
				current = sentence
			}
			continue
		}
		if current != "" {
			current += " " + sentence
		} else {
			current = sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	// A single run-on sentence can still exceed the chunk size.
	var final []string
	for _, chunk := range chunks {
		if len(chunk) > s.chunkSize {
			final = append(final, s.splitByCharacters([]rune(chunk))...)
		} else {
			final = append(final, chunk)
		}
	}
	return final
}

// splitByCharacters cuts text into chunkSize pieces, preferring to
// break at a space when one falls in the last fifth of the chunk.
func (s *SentenceSplitter) splitByCharacters(runes []rune) []string {
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			last := strings.TrimSpace(string(runes[start:]))
			if last != "" {
				chunks = append(chunks, last)
			}
			break
		}

		piece := runes[start:end]
		lastSpace := -1
		for i := len(piece) - 1; i >= 0; i-- {
			if piece[i] == ' ' {
				lastSpace = i
				break
			}
		}

		if lastSpace > int(float64(s.chunkSize)*0.8) {
			piece = runes[start : start+lastSpace]
			start += lastSpace + 1
		} else {
			start = end
		}

		trimmed := strings.TrimSpace(string(piece))
		if trimmed != "" {
			chunks = append(chunks, trimmed)
		}

		if start < len(runes) {
			rollback := s.overlap
			if max := s.chunkSize / 4; rollback > max {
				rollback = max
			}
			start -= rollback
			if start < 0 {
				start = 0
			}
		}
	}
	return chunks
}

// extractSentences splits text at sentence-ending punctuation followed
// by whitespace, dropping fragments too short to be real sentences.
func extractSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			sentence := strings.TrimSpace(string(runes[start : i+1]))
			if len(sentence) > minSentenceLength {
				sentences = append(sentences, sentence)
			}
			start = i + 1
		}
	}
	if start < len(runes) {
		sentence := strings.TrimSpace(string(runes[start:]))
		if len(sentence) > minSentenceLength {
			sentences = append(sentences, sentence)
		}
	}
	return sentences
}

var (
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	newlinesRe   = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes extracted document text. Line endings become \n,
// runs of spaces and tabs collapse to a single space, unprintable
// characters are dropped and runs of blank lines are trimmed.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	text = whitespaceRe.ReplaceAllString(b.String(), " ")
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
