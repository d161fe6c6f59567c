package preprocess

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/bible"
	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
	"github.com/unfoldingWord/door43-job-handler/internal/subject"
)

var ignoreDirs = map[string]bool{".apps": true, ".git": true, ".github": true, "00": true}

var ignoreFiles = map[string]bool{
	".DS_Store":     true,
	"reference.txt": true,
	"title.txt":     true,
	"LICENSE.md":    true,
	"README.md":     true,
	"README.rst":    true,
}

// base carries the state every variant shares: options, the message lists
// and the count of written files.
type base struct {
	opts     Options
	logger   *slog.Logger
	written  int
	errors   []string
	warnings []string
	messages []string
}

func newBase(kind subject.Kind, opts Options) base {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return base{opts: opts, logger: logger.With("preprocessor", kind.String())}
}

func (b *base) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

func (b *base) errorf(format string, args ...any) {
	b.errors = append(b.errors, fmt.Sprintf(format, args...))
}

func (b *base) addWarnings(w []string) {
	b.warnings = append(b.warnings, w...)
}

// result reports errors ahead of warnings. Informational messages only
// show when something else was reported.
func (b *base) result(ix *document.Index) Result {
	out := make([]string, 0, len(b.errors)+len(b.warnings)+len(b.messages))
	out = append(out, b.errors...)
	out = append(out, b.warnings...)
	if len(out) > 0 {
		out = append(out, b.messages...)
	}
	b.logger.Debug("preprocessor finished",
		"files", b.written,
		"errors", len(b.errors),
		"warnings", len(b.warnings))
	return Result{FilesWritten: b.written, Warnings: out, Index: ix}
}

func (b *base) rc() *rc.Container { return b.opts.RC }

func (b *base) projectPath(p *rc.Project) string {
	return filepath.Join(b.opts.SourceDir, p.Path)
}

func (b *base) language() string {
	if id := b.rc().Resource().Language.Identifier; id != "" {
		return id
	}
	return "en"
}

func (b *base) links() LinkContext {
	return LinkContext{Owner: b.opts.Owner, Language: b.language(), Host: b.opts.Host}
}

// emit writes an output document and counts it.
func (b *base) emit(name, body string) error {
	if err := b.writeAux(name, body); err != nil {
		return err
	}
	b.written++
	return nil
}

// writeAux writes a companion file that does not count as output.
func (b *base) writeAux(name, body string) error {
	return document.Document{Filename: name, Body: body}.Write(b.opts.OutputDir)
}

func (b *base) outputExists(name string) bool {
	_, err := os.Stat(filepath.Join(b.opts.OutputDir, name))
	return err == nil
}

// copyFile copies src into the output directory as name.
func (b *base) copyFile(src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()
	dst := filepath.Join(b.opts.OutputDir, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", name, err)
	}
	return out.Close()
}

// copyMatching copies every regular, non-ignored file matching pattern in
// dir that is not already in the output directory.
func (b *base) copyMatching(dir, pattern string) (bool, error) {
	matches, _ := filepath.Glob(filepath.Join(dir, pattern))
	sort.Strings(matches)
	for _, m := range matches {
		name := filepath.Base(m)
		if !isFile(m) || ignoreFiles[name] || b.outputExists(name) {
			continue
		}
		if err := b.copyFile(m, name); err != nil {
			return len(matches) > 0, err
		}
		b.written++
	}
	return len(matches) > 0, nil
}

// copyCompanion copies a project's toc.yaml or config.yaml when present.
func (b *base) copyCompanion(p *rc.Project, file, name string) (bool, error) {
	src := filepath.Join(b.projectPath(p), file)
	if !isFile(src) {
		return false, nil
	}
	return true, b.copyFile(src, name)
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// listDir returns the sorted entry names of dir.
func listDir(dir string, dirs bool) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() == dirs {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// numberedName builds the canonical output name for a project: the book
// number and upper-case code for a known book, else the one-based project
// position.
func numberedName(identifier string, idx int, ext string, upper bool) string {
	if name, ok := bible.Filename(identifier, ext); ok {
		return name
	}
	if upper {
		identifier = strings.ToUpper(identifier)
	}
	return fmt.Sprintf("%02d-%s.%s", idx+1, identifier, ext)
}

// frontFirst moves front and intro entries ahead of the rest, keeping the
// remaining order.
func frontFirst(names []string) []string {
	rank := func(n string) int {
		switch stem(n) {
		case "front":
			return 0
		case "intro":
			return 1
		}
		return 2
	}
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	return out
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func trimZeros(s string) string {
	return strings.TrimLeft(s, "0")
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil && !strings.ContainsAny(s, "+-")
}

// demoter pushes every markdown header down by extra levels.
type demoter struct {
	re    *regexp.Regexp
	extra string
}

var headerLine = regexp.MustCompile(`(?m)^(#+) +(.+?) *#*$`)

func demote(levels int) demoter {
	return demoter{re: headerLine, extra: strings.Repeat("#", levels)}
}

func (d demoter) apply(text string) string {
	return d.re.ReplaceAllString(text, "${1}"+d.extra+" ${2}")
}
