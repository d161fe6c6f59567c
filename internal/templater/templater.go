// Package templater injects converted HTML documents into the project page
// shell and builds the per-content-type navigation sidebars.
package templater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
	"github.com/unfoldingWord/door43-job-handler/internal/subject"
)

// bodyClasses is the closed set of variant classes the site stylesheet
// understands.
var bodyClasses = map[string]bool{"obs": true, "ta": true, "tq": true, "tw": true, "tn": true, "bible": true}

// Options configures a templater run.
type Options struct {
	// SourceDir holds the converted *.html files.
	SourceDir string
	// OutputDir receives the templated pages.
	OutputDir string
	// ShellPath is the project page template. Shell, when set, wins.
	ShellPath string
	Shell     *Shell

	// Language and ResourceTitle fill the page heading. When both are
	// empty they are read from the manifest in SourceDir.
	Language      rc.Language
	ResourceTitle string

	// Index holds cached titles, chapters and book codes. When nil, an
	// index.json in SourceDir is used if present.
	Index *document.Index

	// AlreadyTemplated names pages that only need their navigation
	// refreshed.
	AlreadyTemplated []string

	// ExtraClasses are added to <body> after the variant class.
	ExtraClasses []string

	Logger *slog.Logger
}

// Templater applies the shell to every page of one resource.
type Templater struct {
	kind    subject.Kind
	opts    Options
	nav     navigator
	logger  *slog.Logger
	ix      *document.Index
	names   []string
	sources map[string]*source
	errors  map[string]struct{}
}

// New returns the templater for kind.
func New(kind subject.Kind, opts Options) (*Templater, error) {
	var nav navigator
	switch kind {
	case subject.OBS:
		nav = obsNav{}
	case subject.ObsNotes:
		nav = tocNav{css: "obs"}
	case subject.Academy:
		nav = tocNav{css: "ta", headings: true}
	case subject.Questions:
		nav = accordionNav{css: "tq", segment: 3}
	case subject.Notes:
		nav = accordionNav{css: "tn", segment: 3}
	case subject.Bible:
		nav = accordionNav{css: "bible", segment: 2, bible: true}
	case subject.Words:
		nav = wordsNav{}
	default:
		return nil, subject.Unknown(kind)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Templater{
		kind:    kind,
		opts:    opts,
		nav:     nav,
		logger:  opts.Logger,
		sources: map[string]*source{},
		errors:  map[string]struct{}{},
	}, nil
}

// ForSubject routes a resource subject to its templater. Unrecognised
// subjects get the Bible templater and an error log line.
func ForSubject(subj string, opts Options) (*Templater, error) {
	kind, ok := subject.Templater(subj)
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if !ok {
		opts.Logger.Error("unrecognised resource subject, using default templater", "subject", subj, "templater", kind)
	}
	opts.ExtraClasses = append(opts.ExtraClasses, subject.ExtraClasses(subj)...)
	return New(kind, opts)
}

// Kind returns the variant this templater renders.
func (t *Templater) Kind() subject.Kind { return t.kind }

// Index returns the titles, chapters and book codes computed by Run.
func (t *Templater) Index() *document.Index {
	if t.ix == nil {
		return document.NewIndex()
	}
	return t.ix
}

// Errors returns the non-fatal problems met while templating, sorted.
func (t *Templater) Errors() []string {
	out := make([]string, 0, len(t.errors))
	for msg := range t.errors {
		out = append(out, msg)
	}
	sort.Strings(out)
	return out
}

func (t *Templater) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.logger.Error("templater problem", "error", msg)
	t.errors[msg] = struct{}{}
}

func (t *Templater) code(name string) string {
	if code, ok := t.ix.BookCodes[name]; ok {
		return code
	}
	return bookCode(name)
}

// Run templates every page in SourceDir into OutputDir.
func (t *Templater) Run(ctx context.Context) error {
	shell, err := t.shell()
	if err != nil {
		return err
	}
	lang, title := t.resource()
	heading := fmt.Sprintf("%s: %s", lang.Title, title)

	t.loadIndex()
	names, err := htmlFiles(t.opts.SourceDir)
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}
	t.names = t.nav.order(names)
	for _, name := range t.names {
		src, err := readSource(filepath.Join(t.opts.SourceDir, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		t.sources[name] = src
		t.nav.describe(t, src)
	}

	if err := os.MkdirAll(t.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	t.logger.Info("applying template", "class", t.nav.class(), "pages", len(t.names))

	done := map[string]bool{}
	for _, name := range t.opts.AlreadyTemplated {
		done[filepath.Base(name)] = true
	}
	for _, name := range t.names {
		if err := ctx.Err(); err != nil {
			return err
		}
		var page []byte
		if done[name] {
			t.logger.Debug("refreshing navigation", "page", name)
			raw, err := os.ReadFile(t.sources[name].path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			page, err = RefreshRightNav(raw, t.nav.build(t, name))
			if err != nil {
				return fmt.Errorf("failed to refresh %s: %w", name, err)
			}
		} else {
			t.logger.Debug("applying template", "page", name)
			page, err = shell.Render(t.page(name, lang, heading))
			if err != nil {
				return fmt.Errorf("failed to template %s: %w", name, err)
			}
		}
		if err := os.WriteFile(filepath.Join(t.opts.OutputDir, name), page, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// page assembles the render input for one document.
func (t *Templater) page(name string, lang rc.Language, heading string) Page {
	src := t.sources[name]
	title := src.headTitle()
	if title == "" {
		title = t.ix.Titles[name]
	}
	if title == "" {
		title = name
	}
	nav := t.nav.build(t, name)
	return Page{
		Body:     src.body(),
		Lang:     lang.Identifier,
		Dir:      lang.Direction,
		Heading:  heading,
		Title:    title,
		LeftNav:  leftNav,
		RightNav: nav,
	}
}

// shell loads the template and tags its body with the variant classes.
func (t *Templater) shell() (*Shell, error) {
	shell := t.opts.Shell
	if shell == nil {
		var err error
		if shell, err = LoadShell(t.opts.ShellPath); err != nil {
			return nil, err
		}
	}
	class := t.nav.class()
	if !bodyClasses[class] {
		t.logger.Error("unexpected templater class", "class", class)
	}
	classes := []string{class}
	for _, extra := range t.opts.ExtraClasses {
		if extra != class {
			classes = append(classes, extra)
		}
	}
	shell, err := shell.WithBodyClasses(classes...)
	if err != nil {
		return nil, err
	}
	t.logger.Info("template body classes", "classes", shell.BodyClasses())
	return shell, nil
}

// resource returns the page language and resource title, reading the
// manifest in SourceDir when the options carry neither.
func (t *Templater) resource() (rc.Language, string) {
	lang, title := t.opts.Language, t.opts.ResourceTitle
	if lang.Identifier == "" && title == "" {
		if c, err := rc.Load(t.opts.SourceDir, ""); err == nil {
			lang, title = c.Resource().Language, c.Resource().Title
		}
	}
	if lang.Identifier == "" {
		lang.Identifier = rc.English.Identifier
	}
	if lang.Direction == "" {
		lang.Direction = rc.English.Direction
	}
	return lang, title
}

// loadIndex seeds the index from the options or a cached index.json.
func (t *Templater) loadIndex() {
	t.ix = document.NewIndex()
	if t.opts.Index != nil {
		t.ix.Merge(t.opts.Index)
		return
	}
	cached, err := document.ReadIndex(filepath.Join(t.opts.SourceDir, document.IndexFilename))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		t.errorf("Templater found badly formed '%s': %v", document.IndexFilename, err)
	default:
		t.ix.Merge(cached)
	}
}
