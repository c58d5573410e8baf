package retrieval

import (
	"testing"
	"time"

	"github.com/provetch/phasecheck/internal/storage"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewSQLiteStore(s.DB())
}

func record(id, source string, embedding []float32) Record {
	return Record{
		ID:         id,
		SourceID:   source,
		SourceType: "text",
		TextChunk:  "chunk " + id,
		Embedding:  embedding,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestSearch_RanksByCosineSimilarity(t *testing.T) {
	store := openTestStore(t)

	err := store.Insert([]Record{
		record("a", "one.txt", []float32{1, 0, 0}),
		record("b", "one.txt", []float32{0.9, 0.1, 0}),
		record("c", "two.txt", []float32{0, 1, 0}),
	})
	if err != nil {
		t.Fatalf("inserting: %v", err)
	}

	results, err := store.Search([]float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("wrong ranking: %s, %s", results[0].ID, results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %f < %f", results[0].Score, results[1].Score)
	}
}

func TestSearch_SourceFilter(t *testing.T) {
	store := openTestStore(t)

	err := store.Insert([]Record{
		record("a", "one.txt", []float32{1, 0, 0}),
		record("b", "two.txt", []float32{1, 0, 0}),
		record("c", "three.txt", []float32{1, 0, 0}),
	})
	if err != nil {
		t.Fatalf("inserting: %v", err)
	}

	results, err := store.Search([]float32{1, 0, 0}, 10, []string{"two.txt"})
	if err != nil {
		t.Fatalf("searching: %v", err)
	}
	for _, r := range results {
		if r.SourceID != "two.txt" {
			t.Errorf("filtered search returned foreign source %q", r.SourceID)
		}
	}
	if len(results) != 1 {
		t.Errorf("expected exactly the filtered record, got %d", len(results))
	}

	// Absent filter may return chunks from any source.
	unfiltered, err := store.Search([]float32{1, 0, 0}, 10, nil)
	if err != nil {
		t.Fatalf("unfiltered search: %v", err)
	}
	if len(unfiltered) != 3 {
		t.Errorf("expected all 3 records without filter, got %d", len(unfiltered))
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	store := openTestStore(t)

	results, err := store.Search([]float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("searching empty index: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestCountAndClear(t *testing.T) {
	store := openTestStore(t)

	if err := store.Insert([]Record{
		record("a", "one.txt", []float32{1, 0}),
		record("b", "one.txt", []float32{0, 1}),
	}); err != nil {
		t.Fatalf("inserting: %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 records, got %d", count)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clearing: %v", err)
	}
	count, _ = store.Count()
	if count != 0 {
		t.Errorf("expected empty index after clear, got %d", count)
	}
}

func TestEncodeDecodeFloat32s(t *testing.T) {
	in := []float32{0.5, -1.25, 3.75}
	out, err := decodeFloat32s(encodeFloat32s(in))
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("element %d: %f != %f", i, in[i], out[i])
		}
	}

	if _, err := decodeFloat32s([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
