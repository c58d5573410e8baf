package chunker

import (
	"strings"
	"testing"

	"github.com/provetch/phasecheck/internal/document"
)

func TestNewSplitter_InvalidParams(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSplitter(tt.size, tt.overlap); err == nil {
				t.Errorf("NewSplitter(%d, %d) should fail", tt.size, tt.overlap)
			}
		})
	}
}

func TestSplit_SizeBoundAndOverlap(t *testing.T) {
	s, err := NewSplitter(10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := "abcdefghijklmnopqrstuvwxyz0123456789"
	chunks := s.Split([]document.Document{{Content: text, Source: "a.txt", Type: "text"}})

	for i, c := range chunks {
		if len(c.Text) > 10 {
			t.Errorf("chunk %d exceeds size bound: %d runes", i, len(c.Text))
		}
		if c.Source != "a.txt" || c.Type != "text" {
			t.Errorf("chunk %d lost provenance: %+v", i, c)
		}
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if i == 0 {
			continue
		}
		prev := chunks[i-1].Text
		if !strings.HasPrefix(c.Text, prev[len(prev)-3:]) {
			t.Errorf("chunk %d does not overlap its predecessor by 3: %q / %q", i, prev, c.Text)
		}
	}
}

func TestSplit_CoverageReconstruction(t *testing.T) {
	s, err := NewSplitter(7, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := "the quick brown fox jumps over the lazy dog"
	chunks := s.Split([]document.Document{{Content: text, Source: "f.txt", Type: "text"}})

	// Concatenating each chunk's non-overlap region reconstructs the source.
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c.Text)
			continue
		}
		sb.WriteString(c.Text[2:])
	}
	if sb.String() != text {
		t.Errorf("reconstruction mismatch:\n got %q\nwant %q", sb.String(), text)
	}
}

func TestSplit_ShortDocumentSingleChunk(t *testing.T) {
	s, _ := NewSplitter(500, 80)
	chunks := s.Split([]document.Document{{Content: "tiny", Source: "t.txt", Type: "text"}})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "tiny" {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
}

func TestSplit_EmptyDocument(t *testing.T) {
	s, _ := NewSplitter(500, 80)
	if chunks := s.Split([]document.Document{{Content: "", Source: "e.txt", Type: "text"}}); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty document, got %d", len(chunks))
	}
}

func TestSplit_MultipleDocumentsKeepSources(t *testing.T) {
	s, _ := NewSplitter(5, 1)
	docs := []document.Document{
		{Content: "aaaaaaa", Source: "one.md", Type: "markdown"},
		{Content: "bbbbbbb", Source: "two.py", Type: "python"},
	}
	chunks := s.Split(docs)

	seen := map[string]bool{}
	for _, c := range chunks {
		seen[c.Source] = true
	}
	if !seen["one.md"] || !seen["two.py"] {
		t.Errorf("expected chunks from both documents, got %v", seen)
	}
}
