// Package document defines the normalized document form that preprocessors
// emit and templaters consume: the per-file index of titles, chapter
// anchors and book codes, and the recursive table-of-contents tree.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/unfoldingWord/door43-job-handler/internal/schema"
)

// IndexFilename is the serialized index name in an output directory.
const IndexFilename = "index.json"

// ChapterList holds the navigation entries for one output file. Most
// content types list ordered chapter anchor ids; term glossaries map each
// term anchor to its title instead. Exactly one form is set.
type ChapterList struct {
	Anchors []string
	Terms   map[string]string
}

// Anchors builds a list-shaped ChapterList.
func Anchors(ids ...string) ChapterList {
	if ids == nil {
		ids = []string{}
	}
	return ChapterList{Anchors: ids}
}

// Terms builds a term-shaped ChapterList.
func Terms(terms map[string]string) ChapterList {
	if terms == nil {
		terms = map[string]string{}
	}
	return ChapterList{Terms: terms}
}

// IsTerms reports whether the list is term-shaped.
func (c ChapterList) IsTerms() bool {
	return c.Terms != nil
}

// Len returns the number of entries.
func (c ChapterList) Len() int {
	if c.Terms != nil {
		return len(c.Terms)
	}
	return len(c.Anchors)
}

// SortedTerms returns term anchors ordered case-insensitively by title.
func (c ChapterList) SortedTerms() []string {
	keys := make([]string, 0, len(c.Terms))
	for k := range c.Terms {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := lower(c.Terms[keys[i]]), lower(c.Terms[keys[j]])
		if a == b {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}

// MarshalJSON writes a JSON array for anchors or an object for terms.
func (c ChapterList) MarshalJSON() ([]byte, error) {
	if c.Terms != nil {
		return json.Marshal(c.Terms)
	}
	if c.Anchors == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Anchors)
}

// UnmarshalJSON accepts either shape.
func (c *ChapterList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = ChapterList{Anchors: []string{}}
		return nil
	}
	if trimmed[0] == '{' {
		terms := map[string]string{}
		if err := json.Unmarshal(trimmed, &terms); err != nil {
			return err
		}
		*c = ChapterList{Terms: terms}
		return nil
	}
	anchors := []string{}
	if err := json.Unmarshal(trimmed, &anchors); err != nil {
		return err
	}
	*c = ChapterList{Anchors: anchors}
	return nil
}

// Index is the serialized form of the three parallel maps keyed by output
// filename. Every key in Chapters or BookCodes must also be in Titles.
type Index struct {
	Titles    map[string]string      `json:"titles"`
	Chapters  map[string]ChapterList `json:"chapters"`
	BookCodes map[string]string      `json:"book_codes"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		Titles:    map[string]string{},
		Chapters:  map[string]ChapterList{},
		BookCodes: map[string]string{},
	}
}

// Empty reports whether no file has been indexed.
func (ix *Index) Empty() bool {
	return ix == nil || (len(ix.Titles) == 0 && len(ix.Chapters) == 0 && len(ix.BookCodes) == 0)
}

// Merge copies every entry of other into ix, overwriting existing keys.
func (ix *Index) Merge(other *Index) {
	if other == nil {
		return
	}
	ix.ensure()
	for k, v := range other.Titles {
		ix.Titles[k] = v
	}
	for k, v := range other.Chapters {
		ix.Chapters[k] = v
	}
	for k, v := range other.BookCodes {
		ix.BookCodes[k] = v
	}
}

// Validate checks that every indexed filename carries a title.
func (ix *Index) Validate() error {
	var missing []string
	for k := range ix.Chapters {
		if _, ok := ix.Titles[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range ix.BookCodes {
		if _, ok := ix.Titles[k]; !ok {
			if _, seen := ix.Chapters[k]; !seen {
				missing = append(missing, k)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %v", ErrMissingTitle, missing)
	}
	return nil
}

func (ix *Index) ensure() {
	if ix.Titles == nil {
		ix.Titles = map[string]string{}
	}
	if ix.Chapters == nil {
		ix.Chapters = map[string]ChapterList{}
	}
	if ix.BookCodes == nil {
		ix.BookCodes = map[string]string{}
	}
}

// ErrMissingTitle is returned by Validate when a filename has no title.
var ErrMissingTitle = errors.New("indexed file has no title")

// ReadIndex loads an index.json file. A missing file returns an error
// satisfying errors.Is(err, os.ErrNotExist).
func ReadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseIndex(data)
}

// ParseIndex decodes and schema-checks index JSON.
func ParseIndex(data []byte) (*Index, error) {
	if err := schema.Validate(schema.Index, data); err != nil {
		return nil, err
	}
	ix := NewIndex()
	if err := json.Unmarshal(data, ix); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	ix.ensure()
	return ix, nil
}

// Marshal encodes the index after validating it.
func (ix *Index) Marshal() ([]byte, error) {
	ix.ensure()
	if err := ix.Validate(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	if err := schema.Validate(schema.Index, data); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteIndex writes ix as index.json inside dir.
func WriteIndex(dir string, ix *Index) error {
	data, err := ix.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, IndexFilename), data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}
