package preprocess

import (
	"context"
	"path/filepath"

	"github.com/unfoldingWord/door43-job-handler/internal/subject"
)

// Marker lets a caller decorate the text assembled from chapter and chunk
// files. Each hook receives the text so far and returns its replacement.
type Marker interface {
	MarkChapter(project, chapter, text string) string
	MarkChunk(project, chapter, chunk, text string) string
}

type noMarks struct{}

func (noMarks) MarkChapter(_, _, text string) string  { return text }
func (noMarks) MarkChunk(_, _, _, text string) string { return text }

type defaultPreprocessor struct {
	base
	marker Marker
}

// NewDefault returns the generic preprocessor. A nil marker leaves the
// assembled text untouched.
func NewDefault(opts Options, marker Marker) Preprocessor {
	if marker == nil {
		marker = noMarks{}
	}
	return &defaultPreprocessor{base: newBase(subject.Default, opts.withDefaults()), marker: marker}
}

// Run copies a single-file project to its numbered name, copies a
// directory of files with the resource extension, or else concatenates the
// project's chunks chapter by chapter.
func (d *defaultPreprocessor) Run(ctx context.Context) (Result, error) {
	ext := d.rc().Resource().FileExt
	for idx, p := range d.rc().Projects() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		path := d.projectPath(p)
		if isFile(path) {
			if err := d.copyFile(path, numberedName(p.Identifier, idx, ext, false)); err != nil {
				return Result{}, err
			}
			d.written++
			continue
		}

		found, err := d.copyMatching(path, "*."+ext)
		if err != nil {
			return Result{}, err
		}
		if found {
			continue
		}

		chapters := d.rc().Chapters(p.Identifier)
		if len(chapters) == 0 {
			continue
		}
		var text string
		for _, chapter := range chapters {
			text = d.marker.MarkChapter(p.Identifier, chapter, text)
			for _, chunk := range d.rc().Chunks(p.Identifier, chapter) {
				text = d.marker.MarkChunk(p.Identifier, chapter, chunk, text)
				body, err := readText(filepath.Join(path, chapter, chunk))
				if err != nil {
					d.errorf("Error reading %s/%s: %v", chapter, chunk, err)
					continue
				}
				text += body + "\n\n"
			}
		}
		if err := d.emit(numberedName(p.Identifier, idx, ext, false), text); err != nil {
			return Result{}, err
		}
	}
	return d.result(nil), nil
}
