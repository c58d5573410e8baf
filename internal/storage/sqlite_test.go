package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigrationsApplied(t *testing.T) {
	s := openTestStore(t)

	// Both tables must exist after migration.
	for _, table := range []string{"context_vectors", "uploads"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second open should not re-apply migrations: %v", err)
	}
	s2.Close()
}

func TestSaveAndListUploads(t *testing.T) {
	s := openTestStore(t)

	u := Upload{
		ID:          "u1",
		SessionID:   "sess-1",
		Filename:    "requirements_v1.txt",
		StoredPath:  "/data/docs/requirements_v1.txt",
		ContentType: "text",
		ChunkCount:  4,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.SaveUpload(u); err != nil {
		t.Fatalf("saving upload: %v", err)
	}

	uploads, err := s.ListUploads(10)
	if err != nil {
		t.Fatalf("listing uploads: %v", err)
	}
	if len(uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(uploads))
	}
	got := uploads[0]
	if got.Filename != u.Filename || got.ChunkCount != 4 || got.SessionID != "sess-1" {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	count, err := s.CountUploads()
	if err != nil {
		t.Fatalf("counting uploads: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestFiles_Save(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFiles(dir)
	if err != nil {
		t.Fatalf("creating files store: %v", err)
	}

	path, err := f.Save("design.md", []byte("# architecture"))
	if err != nil {
		t.Fatalf("saving file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "# architecture" {
		t.Errorf("content mismatch: %q", data)
	}
}

func TestFiles_SaveFlattensPath(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFiles(dir)
	if err != nil {
		t.Fatalf("creating files store: %v", err)
	}

	path, err := f.Save("../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("saving file: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("upload escaped its root: %s", path)
	}
	if filepath.Base(path) != "passwd" {
		t.Errorf("expected flattened base name, got %s", path)
	}
}
