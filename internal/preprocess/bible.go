package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/bible"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
)

type bibleBooks struct {
	base
}

var (
	chapterMarker   = regexp.MustCompile(`(?m)^\\c\s+\d+\s*\n?`)
	trailingNumbers = regexp.MustCompile(`[\s\d]+$`)
)

func (b *bibleBooks) Run(ctx context.Context) (Result, error) {
	for idx, p := range b.rc().Projects() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		path := b.projectPath(p)
		var err error
		switch {
		case isFile(path):
			err = b.writeBook(strings.ToUpper(p.Identifier), numberedName(p.Identifier, idx, "usfm", true), path)
		case len(b.usfmFiles(path)) > 0:
			err = b.copyBooks(path)
		default:
			err = b.assemble(p, idx)
		}
		if err != nil {
			return Result{}, err
		}
	}
	return b.result(nil), nil
}

func (b *bibleBooks) usfmFiles(dir string) []string {
	var files []string
	for _, name := range listDir(dir, false) {
		if strings.EqualFold(filepath.Ext(name), ".usfm") {
			files = append(files, name)
		}
	}
	return files
}

// copyBooks cleans every USFM file in dir. A file whose stem ends in
// "-CODE" for a known book gets the canonical name; others keep theirs.
func (b *bibleBooks) copyBooks(dir string) error {
	for _, name := range b.usfmFiles(dir) {
		parts := strings.Split(stem(name), "-")
		code := strings.ToUpper(parts[len(parts)-1])
		out, ok := bible.Filename(code, "usfm")
		if !ok {
			out = name
		}
		if b.outputExists(out) {
			continue
		}
		if err := b.writeBook(code, out, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (b *bibleBooks) writeBook(code, name, src string) error {
	text, err := readText(src)
	if err != nil {
		b.errorf("Error reading %s: %v", filepath.Base(src), err)
		return nil
	}
	return b.emitClean(code, name, text)
}

func (b *bibleBooks) emitClean(code, name, text string) error {
	cleaned, report := CleanUSFM(code, text)
	b.errors = append(b.errors, report.Errors...)
	b.addWarnings(report.Warnings)
	if strings.Contains(cleaned, `\w `) {
		b.errorf("%s - Unable to remove all \\w fields", code)
	}
	return b.emit(name, cleaned)
}

// assemble rebuilds a book from chapter directories of chunk fragments.
func (b *bibleBooks) assemble(p *rc.Project, idx int) error {
	chapters := b.rc().Chapters(p.Identifier)
	if len(chapters) == 0 {
		return nil
	}
	code := strings.ToUpper(p.Identifier)
	dir := b.projectPath(p)
	title := b.bookTitle(p, dir)

	var u strings.Builder
	fmt.Fprintf(&u, "\\id %s %s\n", code, b.rc().Resource().Title)
	u.WriteString("\\ide UTF-8\n")
	fmt.Fprintf(&u, "\\h %s\n\\toc1 %s\n\\toc2 %s\n\\toc3 %s\n\\mt %s\n",
		title, title, title, strings.ToLower(code), title)

	for _, chapter := range chapters {
		if !isDigits(chapter) {
			continue
		}
		number := trimZeros(chapter)
		label := b.chapterLabel(dir, chapter, title)
		if label != "" && number == "1" {
			fmt.Fprintf(&u, "\\cl %s\n", label)
		}
		fmt.Fprintf(&u, "\n\\c %s\n", number)
		if label != "" && number != "1" {
			fmt.Fprintf(&u, "\\cl %s\n", label)
		}
		for _, chunk := range b.rc().Chunks(p.Identifier, chapter) {
			if ignoreFiles[chunk] {
				continue
			}
			text, err := readText(filepath.Join(dir, chapter, chunk))
			if err != nil {
				b.errorf("Error reading %s/%s: %v", chapter, chunk, err)
				continue
			}
			text = chapterMarker.ReplaceAllString(text, "")
			if verse := stem(chunk); isDigits(verse) && !strings.Contains(text, `\v `) {
				text = fmt.Sprintf("\\v %s %s", trimZeros(verse), text)
			}
			u.WriteString(strings.TrimRight(text, "\n") + "\n")
		}
	}
	return b.emitClean(code, numberedName(p.Identifier, idx, "usfm", true), u.String())
}

func (b *bibleBooks) bookTitle(p *rc.Project, dir string) string {
	if text, err := readText(filepath.Join(dir, "front", "title.txt")); err == nil {
		title, warnings := CheckTitle(text, "front/title.txt")
		b.addWarnings(warnings)
		if title != "" {
			return title
		}
	}
	if p.Title != "" {
		return p.Title
	}
	return bible.Name(p.Identifier)
}

// chapterLabel is the translated chapter heading, when it says more than
// the book title.
func (b *bibleBooks) chapterLabel(dir, chapter, bookTitle string) string {
	text, err := readText(filepath.Join(dir, chapter, "title.txt"))
	if err != nil {
		return ""
	}
	label := strings.TrimSpace(text)
	if strings.TrimSpace(trailingNumbers.ReplaceAllString(label, "")) == bookTitle {
		return ""
	}
	return label
}
