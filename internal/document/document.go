package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one emitted artifact: a book, manual or term section.
type Document struct {
	Filename string
	Body     string
}

// Write stores the document inside dir.
func (d Document) Write(dir string) error {
	path := filepath.Join(dir, d.Filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(d.Body), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.Filename, err)
	}
	return nil
}

// HTMLName maps an output filename to the page the converter will produce
// from it, e.g. "01-GEN.md" to "01-GEN.html".
func HTMLName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".html"
}

func lower(s string) string {
	return strings.ToLower(s)
}
