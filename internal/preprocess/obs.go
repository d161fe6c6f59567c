package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/rc"
)

// ObsImageURL is the CDN location of the frame pictures.
const ObsImageURL = "https://cdn.door43.org/obs/jpg/360px/obs-en-%s.jpg"

type obs struct {
	base
}

type obsFrame struct {
	id   string
	text string
}

func (o *obs) Run(ctx context.Context) (Result, error) {
	for _, p := range o.rc().Projects() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		path := o.projectPath(p)
		if _, err := o.copyMatching(path, "*.md"); err != nil {
			return Result{}, err
		}
		if o.chunked(p) {
			if err := o.assemble(path); err != nil {
				return Result{}, err
			}
			continue
		}
		for _, chapter := range o.rc().Chapters(p.Identifier) {
			for _, name := range []string{"01.md", "intro.md"} {
				src := filepath.Join(path, chapter, name)
				if !isFile(src) {
					continue
				}
				if err := o.copyFile(src, chapter+".md"); err != nil {
					return Result{}, err
				}
				o.written++
				break
			}
		}
	}
	return o.result(nil), nil
}

// chunked reports whether the first chapter is laid out as title,
// reference and frame files.
func (o *obs) chunked(p *rc.Project) bool {
	chapters := o.rc().Chapters(p.Identifier)
	if len(chapters) == 0 {
		return false
	}
	for _, chunk := range o.rc().Chunks(p.Identifier, chapters[0]) {
		switch filepath.Base(chunk) {
		case "title.txt", "reference.txt", "01.txt":
			return true
		}
	}
	return false
}

// assemble writes one markdown story per chapter directory.
func (o *obs) assemble(path string) error {
	for _, chapter := range listDir(path, true) {
		if ignoreDirs[chapter] || strings.HasPrefix(chapter, ".") {
			continue
		}
		dir := filepath.Join(path, chapter)
		title := fmt.Sprintf("%s. ", trimZeros(chapter))
		if text, err := readText(filepath.Join(dir, "title.txt")); err == nil {
			var warnings []string
			title, warnings = CheckTitle(text, chapter+"/title.txt")
			o.addWarnings(warnings)
		}
		var reference string
		if text, err := readText(filepath.Join(dir, "reference.txt")); err == nil {
			reference = strings.TrimSpace(text)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", title)
		for _, f := range o.frames(dir, chapter) {
			fmt.Fprintf(&b, "![OBS Image]("+ObsImageURL+")\n\n", f.id)
			b.WriteString(f.text + "\n\n")
		}
		fmt.Fprintf(&b, "_%s_\n", reference)
		if err := o.emit(chapter+".md", b.String()); err != nil {
			return err
		}
	}
	return nil
}

func (o *obs) frames(dir, chapter string) []obsFrame {
	var frames []obsFrame
	for _, name := range listDir(dir, false) {
		if ignoreFiles[name] || strings.HasPrefix(name, ".") {
			continue
		}
		text, err := readText(filepath.Join(dir, name))
		if err != nil {
			o.errorf("Error reading %s/%s: %v", chapter, name, err)
			continue
		}
		frames = append(frames, obsFrame{id: chapter + "-" + strings.TrimSuffix(name, ".txt"), text: text})
	}
	return frames
}
