// Package chunker splits normalized documents into bounded, overlapping
// segments suitable for embedding and retrieval.
package chunker

import (
	"fmt"

	"github.com/provetch/phasecheck/internal/document"
)

// Chunk is a bounded slice of a document's text. It inherits the parent
// document's source identifier and content-type tag for provenance display.
type Chunk struct {
	Source string
	Type   string
	Text   string
	Index  int // position within the parent document, 0-based
}

// Splitter produces chunks of at most Size runes, each overlapping its
// predecessor by Overlap runes.
type Splitter struct {
	Size    int
	Overlap int
}

// NewSplitter validates the chunking parameters once. Overlap >= size is a
// configuration error, reported at startup rather than per call.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Splitter{Size: size, Overlap: overlap}, nil
}

// Split chunks each document in order. Every chunk except a document's last
// has exactly Size runes; consecutive chunks from the same document share
// Overlap runes. Empty documents yield no chunks.
func (s *Splitter) Split(docs []document.Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.splitOne(doc)...)
	}
	return chunks
}

func (s *Splitter) splitOne(doc document.Document) []Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil
	}

	step := s.Size - s.Overlap
	var chunks []Chunk
	for start, i := 0, 0; start < len(runes); start, i = start+step, i+1 {
		end := start + s.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Source: doc.Source,
			Type:   doc.Type,
			Text:   string(runes[start:end]),
			Index:  i,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
