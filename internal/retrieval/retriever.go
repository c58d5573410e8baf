package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// EmptyContextPlaceholder is returned by RenderContext when nothing was
// retrieved. Downstream prompt assembly depends on a non-empty context field.
const EmptyContextPlaceholder = "No relevant documents found in the knowledge base."

// ContextChunk is a retrieved context fragment with its similarity score.
type ContextChunk struct {
	ID         string
	SourceID   string
	SourceType string
	Text       string
	Score      float32
	CreatedAt  time.Time
}

// Retriever combines embedding and vector search to find relevant context.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the top-K most similar context
// chunks. A non-empty sources set restricts results to those source IDs.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, sources []string) ([]ContextChunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(vec, topK, sources)
	if err != nil {
		return nil, err
	}

	chunks := make([]ContextChunk, len(scored))
	for i, s := range scored {
		chunks[i] = ContextChunk{
			ID:         s.ID,
			SourceID:   s.SourceID,
			SourceType: s.SourceType,
			Text:       s.TextChunk,
			Score:      s.Score,
			CreatedAt:  s.CreatedAt,
		}
	}
	return chunks, nil
}

// RenderContext concatenates chunks in relevance order, each annotated with
// a 1-based ordinal, display source name, and content-type tag. When
// maxChars > 0, appending stops before the first whole annotated chunk that
// would exceed the budget; annotations are never truncated mid-string.
// An empty input renders the fixed placeholder, never an empty string.
func RenderContext(chunks []ContextChunk, maxChars int) string {
	if len(chunks) == 0 {
		return EmptyContextPlaceholder
	}

	var sb strings.Builder
	for i, ch := range chunks {
		entry := fmt.Sprintf("--- Document %d (Source: %s, Type: %s) ---\n%s\n",
			i+1, filepath.Base(ch.SourceID), ch.SourceType, ch.Text)
		if maxChars > 0 && sb.Len()+len(entry) > maxChars && sb.Len() > 0 {
			break
		}
		sb.WriteString(entry)
	}
	return sb.String()
}
