package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Files saves raw uploaded bytes under a root directory and hands paths
// back for the loader to read.
type Files struct {
	root string
}

// NewFiles creates the upload directory if needed.
func NewFiles(root string) (*Files, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Files{root: root}, nil
}

// Save writes data to a file named after the upload and returns its path.
// The filename is flattened to its base name so a crafted name cannot
// escape the upload root.
func (f *Files) Save(filename string, data []byte) (string, error) {
	base := filepath.Base(filepath.Clean(filename))
	if base == "." || base == string(filepath.Separator) || strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("invalid upload filename %q", filename)
	}

	path := filepath.Join(f.root, base)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("saving upload %s: %w", base, err)
	}
	return path, nil
}
