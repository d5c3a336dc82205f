// Package chunker splits normalised post text into embedding-sized
// pieces. Paragraphs are packed into windows of a fixed word budget;
// paragraphs longer than the budget are split with a sliding overlap so
// no sentence is stranded at a hard boundary.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultChunkSize is the default word budget per chunk.
const DefaultChunkSize = 500

// DefaultOverlap is the default number of overlapping words between
// consecutive chunks of an oversized paragraph.
const DefaultOverlap = 50

var paragraphSplit = regexp.MustCompile(`\n\n+|\n`)

// Splitter packs text into word-budgeted chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the word budget per chunk.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the word overlap between chunks of a long paragraph.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave the window room to advance.
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split breaks text into chunks. Empty or whitespace-only input
// produces no chunks.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			currentWords = 0
		}
	}

	for _, paragraph := range paragraphSplit.Split(text, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		words := strings.Fields(paragraph)

		switch {
		case len(words) > s.chunkSize:
			// Oversized paragraph: close the current window, then
			// slide over the paragraph with overlap.
			flush()
			step := s.chunkSize - s.overlap
			for start := 0; start < len(words); start += step {
				end := start + s.chunkSize
				if end > len(words) {
					end = len(words)
				}
				chunks = append(chunks, strings.Join(words[start:end], " "))
				if end == len(words) {
					break
				}
			}

		case currentWords+len(words) > s.chunkSize:
			flush()
			current = []string{paragraph}
			currentWords = len(words)

		default:
			current = append(current, paragraph)
			currentWords += len(words)
		}
	}

	flush()
	return chunks
}
