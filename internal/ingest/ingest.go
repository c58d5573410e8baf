// Package ingest walks a directory tree and indexes every supported
// document into the vector store. It runs once at server start when the
// index is empty, and on demand via the index command.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/provetch/phasecheck/internal/document"
)

// workers bounds concurrent file loads; embedding itself is bounded
// separately inside the batch embedder.
const workers = 4

// Sink receives loaded documents for chunking and indexing.
type Sink interface {
	IndexDocuments(ctx context.Context, docs []document.Document) (int, error)
}

// Result summarizes one directory walk.
type Result struct {
	Files   int
	Chunks  int
	Skipped int
}

// Indexer loads files from disk and feeds them to a Sink.
type Indexer struct {
	sink Sink
	log  *slog.Logger
}

// New creates an Indexer writing progress to log.
func New(sink Sink, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{sink: sink, log: log}
}

// Run indexes every supported file under root. Unsupported and unreadable
// files are skipped with a warning; a failed embed or insert aborts the
// walk. Hidden directories are not descended into.
func (in *Indexer) Run(ctx context.Context, root string) (Result, error) {
	var files, chunks, skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !document.Supported(d.Name()) {
			skipped.Add(1)
			in.log.Debug("skipping unsupported file", "path", path)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		g.Go(func() error {
			docs, err := document.Load(path)
			if err != nil {
				skipped.Add(1)
				in.log.Warn("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			n, err := in.sink.IndexDocuments(ctx, docs)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", path, err)
			}
			files.Add(1)
			chunks.Add(int64(n))
			in.log.Info("indexed", "path", path, "chunks", n)
			return nil
		})
		return nil
	})

	err := g.Wait()
	if walkErr != nil && err == nil {
		err = fmt.Errorf("walking %s: %w", root, walkErr)
	}

	return Result{
		Files:   int(files.Load()),
		Chunks:  int(chunks.Load()),
		Skipped: int(skipped.Load()),
	}, err
}
