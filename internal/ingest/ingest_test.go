package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/provetch/phasecheck/internal/document"
)

type recordingSink struct {
	mu      sync.Mutex
	sources []string
	chunks  int
	err     error
}

func (r *recordingSink) IndexDocuments(_ context.Context, docs []document.Document) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	for _, d := range docs {
		r.sources = append(r.sources, filepath.Base(d.Source))
	}
	r.chunks += len(docs)
	return len(docs), nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunIndexesSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.md", "# hello")
	writeFile(t, dir, "sub/main.go", "package main")
	writeFile(t, dir, "image.png", "not text")
	writeFile(t, dir, ".git/config", "[core]")

	sink := &recordingSink{}
	res, err := New(sink, nil).Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Files != 2 {
		t.Errorf("files = %d, want 2", res.Files)
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 (the png)", res.Skipped)
	}
	if res.Chunks != sink.chunks {
		t.Errorf("chunks = %d, want %d", res.Chunks, sink.chunks)
	}

	seen := map[string]bool{}
	for _, s := range sink.sources {
		seen[s] = true
	}
	if !seen["readme.md"] || !seen["main.go"] {
		t.Errorf("sources = %v, want readme.md and main.go", sink.sources)
	}
	if seen["config"] {
		t.Error("hidden directories should not be descended into")
	}
}

func TestRunSinkErrorAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "content")

	wantErr := errors.New("embed backend down")
	sink := &recordingSink{err: wantErr}
	_, err := New(sink, nil).Run(context.Background(), dir)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped sink error", err)
	}
}

func TestRunMissingRoot(t *testing.T) {
	_, err := New(&recordingSink{}, nil).Run(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("a missing root should error")
	}
}
