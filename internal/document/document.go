// Package document converts heterogeneous source files into normalized
// text units carrying provenance metadata. It is the ingestion boundary:
// it never writes to the vector index itself.
package document

import "errors"

// ErrUnsupported is returned when a file's extension is not in the loader
// table. Callers must treat it as a reportable, non-fatal outcome.
var ErrUnsupported = errors.New("unsupported file type")

// Content type tags. Source-code files carry their language name instead.
const (
	TypeText       = "text"
	TypeMarkdown   = "markdown"
	TypeCSV        = "csv"
	TypeJSON       = "json"
	TypeYAML       = "yaml"
	TypeNotebook   = "notebook"
	TypePDF        = "pdf"
	TypeTorchModel = "pytorch_model"
	TypePickle     = "pickle"
)

// Document is a single unit of ingested content. Immutable once created.
type Document struct {
	Content string
	Source  string // original file path
	Type    string // content-type tag
}
