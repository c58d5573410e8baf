package document

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// loaderFunc converts one file into its Documents.
type loaderFunc func(path string) ([]Document, error)

// loaders is the closed dispatch table from file extension to loader.
// An extension missing from this table means ErrUnsupported, not a skip.
var loaders = map[string]loaderFunc{
	".txt":    loadPlain(TypeText),
	".md":     loadPlain(TypeMarkdown),
	".csv":    loadPlain(TypeCSV),
	".json":   loadPlain(TypeJSON),
	".yaml":   loadPlain(TypeYAML),
	".yml":    loadPlain(TypeYAML),
	".ipynb":  loadNotebook,
	".pdf":    loadPDF,
	".pt":     loadTorchModel,
	".pth":    loadTorchModel,
	".pkl":    loadPickle,
	".pickle": loadPickle,
	".py":     loadCode("python"),
	".js":     loadCode("javascript"),
	".jsx":    loadCode("javascript"),
	".ts":     loadCode("typescript"),
	".tsx":    loadCode("typescript"),
	".java":   loadCode("java"),
	".cpp":    loadCode("cpp"),
	".c":      loadCode("c"),
	".h":      loadCode("c"),
	".rs":     loadCode("rust"),
	".go":     loadCode("go"),
	".rb":     loadCode("ruby"),
	".php":    loadCode("php"),
	".html":   loadCode("html"),
	".css":    loadCode("css"),
	".xml":    loadCode("xml"),
	".sh":     loadCode("shell"),
	".r":      loadCode("r"),
	".sql":    loadCode("sql"),
}

// Load reads the file at path and returns its Documents (normally exactly
// one). Returns ErrUnsupported for extensions outside the dispatch table.
func Load(path string) ([]Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	load, ok := loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	return load(path)
}

// Supported reports whether the loader table covers the given filename.
func Supported(filename string) bool {
	_, ok := loaders[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func loadPlain(contentType string) loaderFunc {
	return func(path string) ([]Document, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return []Document{{Content: string(data), Source: path, Type: contentType}}, nil
	}
}

func loadCode(language string) loaderFunc {
	return func(path string) ([]Document, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return []Document{{Content: string(data), Source: path, Type: language}}, nil
	}
}

// notebook mirrors the nbformat JSON layout, keeping only what we render.
type notebook struct {
	Cells []struct {
		CellType string   `json:"cell_type"`
		Source   []string `json:"source"`
	} `json:"cells"`
}

// loadNotebook concatenates cell bodies in file order, each prefixed with a
// tag identifying it as code or narrative.
func loadNotebook(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("parsing notebook %s: %w", path, err)
	}

	var parts []string
	for _, cell := range nb.Cells {
		body := strings.Join(cell.Source, "")
		switch cell.CellType {
		case "code":
			parts = append(parts, "CODE CELL:\n"+body+"\n")
		case "markdown":
			parts = append(parts, "MARKDOWN:\n"+body+"\n")
		}
	}

	return []Document{{
		Content: strings.Join(parts, "\n"),
		Source:  path,
		Type:    TypeNotebook,
	}}, nil
}

// loadPDF extracts plain text from every page in order.
func loadPDF(path string) ([]Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting text from page %d of %s: %w", i, path, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return []Document{{Content: sb.String(), Source: path, Type: TypePDF}}, nil
}

// summaryPreviewEntries bounds how many archive members a model summary lists.
const summaryPreviewEntries = 10

// loadTorchModel emits a bounded textual summary of a PyTorch checkpoint.
// Modern .pt/.pth files are zip archives; the member listing stands in for
// the checkpoint's declared keys. Introspection failure produces a summary
// noting the error, never a load error.
func loadTorchModel(path string) ([]Document, error) {
	name := filepath.Base(path)

	zr, err := zip.OpenReader(path)
	if err != nil {
		content := fmt.Sprintf("PyTorch Model File: %s\nNote: Model metadata could not be extracted. Error: %v", name, err)
		return []Document{{Content: content, Source: path, Type: TypeTorchModel}}, nil
	}
	defer zr.Close()

	parts := []string{
		fmt.Sprintf("PyTorch Model: %s", name),
		fmt.Sprintf("Archive entries: %d", len(zr.File)),
	}
	for i, entry := range zr.File {
		if i >= summaryPreviewEntries {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("  %s (%d bytes)", entry.Name, entry.UncompressedSize64))
	}

	return []Document{{
		Content: strings.Join(parts, "\n"),
		Source:  path,
		Type:    TypeTorchModel,
	}}, nil
}

// loadPickle emits a bounded summary of a Python pickle: protocol version
// and size, never the raw bytes. Unreadable files produce a summary noting
// the error.
func loadPickle(path string) ([]Document, error) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		content := fmt.Sprintf("Pickle File: %s\nNote: Could not load pickle file. Error: %v", name, err)
		return []Document{{Content: content, Source: path, Type: TypePickle}}, nil
	}

	content := fmt.Sprintf("Pickle File: %s\nSize: %d bytes\n", name, len(data))
	// Protocol >= 2 opens with PROTO (0x80) followed by the version byte.
	if len(data) >= 2 && data[0] == 0x80 {
		content += fmt.Sprintf("Protocol: %d\n", data[1])
	} else {
		content += "Protocol: 0 or 1 (text framing)\n"
	}

	return []Document{{Content: content, Source: path, Type: TypePickle}}, nil
}
