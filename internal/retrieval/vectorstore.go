// Package retrieval provides vector storage, embedding, and the retrieval
// gateway that renders ranked chunks into a prompt-ready context string.
package retrieval

import "time"

// VectorStore is the interface for vector storage and similarity search
// backends. The default implementation uses SQLite with brute-force cosine
// similarity; the workload is append-only (new chunks only, no mutation),
// and deletion happens only by clearing the whole index.
type VectorStore interface {
	// Insert adds records to the index.
	Insert(records []Record) error

	// Search returns the top-K records most similar to the query vector.
	// A non-empty sources set restricts candidates to records whose
	// SourceID is in the set; results never include a record outside it.
	Search(vector []float32, topK int, sources []string) ([]ScoredRecord, error)

	// Count returns the number of records in the index.
	Count() (int, error)

	// Clear removes every record from the index.
	Clear() error
}

// Record is a stored chunk with its embedding.
type Record struct {
	ID         string
	SourceID   string // originating file path
	SourceType string // content-type tag
	TextChunk  string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
