// Package preprocess normalizes repository layouts into the per-book or
// per-section documents the converters and templaters consume. There is
// one variant per content kind; Do routes a resource subject to its
// variant and applies the rules shared by all of them.
package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
	"github.com/unfoldingWord/door43-job-handler/internal/subject"
)

// DefaultHost is the git host links are rewritten to.
const DefaultHost = "git.door43.org"

// MaxWarnings caps the warnings a single run reports.
const MaxWarnings = 1000

// MissingManifest is reported when the container had no manifest file.
const MissingManifest = "Possible missing manifest file in project folder"

// Preprocessor normalizes one source tree into an output directory.
type Preprocessor interface {
	Run(ctx context.Context) (Result, error)
}

// Options configures every variant.
type Options struct {
	SourceDir string
	OutputDir string
	RC        *rc.Container
	Owner     string
	Host      string
	Logger    *slog.Logger
}

// Result is what a run produced. Warnings lists errors first, then
// warnings. Index is nil for variants that do not build one.
type Result struct {
	FilesWritten int
	Warnings     []string
	Index        *document.Index
}

func (o Options) withDefaults() Options {
	if o.SourceDir == "" && o.RC != nil {
		o.SourceDir = o.RC.Path()
	}
	if o.Host == "" {
		o.Host = DefaultHost
	}
	return o
}

// New returns the variant for kind.
func New(kind subject.Kind, opts Options) (Preprocessor, error) {
	if opts.RC == nil {
		return nil, fmt.Errorf("preprocessor needs a resource container")
	}
	opts = opts.withDefaults()
	switch kind {
	case subject.Default:
		return NewDefault(opts, nil), nil
	case subject.OBS:
		return &obs{base: newBase(kind, opts)}, nil
	case subject.ObsNotes:
		return &obsNotes{base: newBase(kind, opts)}, nil
	case subject.Bible:
		return &bibleBooks{base: newBase(kind, opts)}, nil
	case subject.Academy:
		return &academy{base: newBase(kind, opts)}, nil
	case subject.Questions:
		return &questions{base: newBase(kind, opts)}, nil
	case subject.Words:
		return &words{base: newBase(kind, opts)}, nil
	case subject.Notes:
		return &notes{base: newBase(kind, opts)}, nil
	case subject.Lexicon:
		return &lexicon{base: newBase(kind, opts)}, nil
	default:
		return nil, subject.Unknown(kind)
	}
}

// Do runs the preprocessor for a resource subject. It writes manifest.yaml
// first, then the variant output, and finally index.json when the variant
// built one.
func Do(ctx context.Context, resourceSubject string, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	kind, known := subject.Preprocessor(resourceSubject)
	if !known {
		logger.Warn("using default preprocessor", "subject", resourceSubject)
	}
	p, err := New(kind, opts)
	if err != nil {
		return Result{}, err
	}

	var pre []string
	if !opts.RC.LoadedManifestFile() {
		pre = append(pre, MissingManifest)
	}
	if err := writeManifest(opts.OutputDir, opts.RC); err != nil {
		return Result{}, err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to preprocess %s: %w", resourceSubject, err)
	}
	res.Warnings = append(pre, res.Warnings...)
	res.Warnings = append(res.Warnings, opts.RC.ErrorMessages()...)

	if res.FilesWritten == 0 {
		logger.Error("preprocessor wrote no files", "subject", resourceSubject, "kind", kind)
		res.Warnings = append(res.Warnings, fmt.Sprintf("No %ssource files discovered", noun(kind)))
	}
	res.Warnings = capWarnings(res.Warnings)

	if !res.Index.Empty() {
		if err := document.WriteIndex(opts.OutputDir, res.Index); err != nil {
			return Result{}, err
		}
	}
	logger.Info("preprocessed",
		"subject", resourceSubject,
		"kind", kind,
		"files", res.FilesWritten,
		"warnings", len(res.Warnings))
	return res, nil
}

func writeManifest(dir string, c *rc.Container) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := yaml.Marshal(c.AsDict())
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// noun names a kind in the "no source files" message.
func noun(kind subject.Kind) string {
	switch kind {
	case subject.OBS:
		return "OBS "
	case subject.ObsNotes:
		return "OBSNotes "
	case subject.Bible:
		return "Bible "
	case subject.Academy:
		return "tA "
	case subject.Questions:
		return "tQ "
	case subject.Words:
		return "tW "
	case subject.Notes:
		return "tN "
	case subject.Lexicon:
		return "lexicon "
	default:
		return ""
	}
}

// capWarnings keeps the head and tail of an overlong list and notes the
// reduction.
func capWarnings(warnings []string) []string {
	if len(warnings) <= MaxWarnings {
		return warnings
	}
	out := make([]string, 0, MaxWarnings)
	out = append(out, warnings[:MaxWarnings-11]...)
	out = append(out, "…………………………")
	out = append(out, warnings[len(warnings)-9:]...)
	out = append(out, fmt.Sprintf("Preprocessor warnings reduced from %s to %s",
		thousands(len(warnings)), thousands(len(out)+1)))
	return out
}

var printer = message.NewPrinter(language.English)

func thousands(n int) string {
	return printer.Sprintf("%d", n)
}
