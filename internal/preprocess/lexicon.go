package preprocess

import (
	"context"
	"path/filepath"
	"strings"
)

type lexicon struct {
	base
}

func (l *lexicon) Run(ctx context.Context) (Result, error) {
	for _, p := range l.rc().Projects() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		dir := l.projectPath(p)
		for _, name := range listDir(dir, true) {
			if ignoreDirs[name] || strings.HasPrefix(name, ".") {
				continue
			}
			if err := l.entry(filepath.Join(dir, name), name); err != nil {
				return Result{}, err
			}
		}
		for _, name := range listDir(dir, false) {
			if filepath.Ext(name) != ".md" || ignoreFiles[name] || l.outputExists(name) {
				continue
			}
			text, err := readText(filepath.Join(dir, name))
			if err != nil {
				l.errorf("Error reading %s: %v", name, err)
				continue
			}
			// Flat entries are copied as they are. Only the index links
			// point into the entry folders.
			if name == "index.md" {
				text = FixLexiconLinks(text, l.links())
			}
			if err := l.emit(name, text); err != nil {
				return Result{}, err
			}
		}
	}
	return l.result(nil), nil
}

// entry writes {name}.md from the single 01.md inside an entry folder.
func (l *lexicon) entry(dir, name string) error {
	var files []string
	for _, f := range listDir(dir, false) {
		if filepath.Ext(f) == ".md" {
			files = append(files, f)
		}
	}
	if len(files) != 1 || files[0] != "01.md" {
		l.logger.Error("unexpected lexicon entry layout", "entry", name, "files", files)
	}
	text, err := readText(filepath.Join(dir, "01.md"))
	if err != nil {
		l.warnf("Unable to find 01.md for lexicon entry '%s'", name)
		return nil
	}
	return l.emit(name+".md", FixLexiconLinks(text, l.links())+"\n")
}
