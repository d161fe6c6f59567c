package preprocess

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/bible"
	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
)

// helpsStyle describes how a chapter/chunk helps resource (questions or
// notes) becomes one markdown file per book.
type helpsStyle struct {
	prefix    string
	levels    int
	allowJSON bool
}

// helpsUnit is one record of the legacy JSON chunk format.
type helpsUnit struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// compileBook assembles a book from its chapter directories. It returns
// false when the book has no chapters at all.
func (b *base) compileBook(p *rc.Project, style helpsStyle) (string, []string, bool) {
	code := strings.ToLower(p.Identifier)
	upper := strings.ToUpper(code)
	name := bible.Name(code)
	dir := b.projectPath(p)
	demoter := demote(style.levels)

	var chapters []string
	for _, c := range listDir(dir, true) {
		if !strings.HasPrefix(c, ".") && !ignoreDirs[c] {
			chapters = append(chapters, c)
		}
	}
	if len(chapters) == 0 {
		b.errorf("No chapters found for %s", upper)
		return "", nil, false
	}

	var md strings.Builder
	var anchors []string
	fmt.Fprintf(&md, "# <a id=\"%s-%s\"/> %s\n\n", style.prefix, code, name)
	for _, chapter := range frontFirst(chapters) {
		ccc, label := chapter, chapter
		if isDigits(chapter) {
			ccc, label = zfill(trimZeros(chapter), 3), trimZeros(chapter)
		}
		anchor := fmt.Sprintf("%s-chapter-%s-%s", style.prefix, code, ccc)
		anchors = append(anchors, anchor)
		fmt.Fprintf(&md, "## <a id=\"%s\"/> %s %s\n\n", anchor, name, label)

		chunks := b.chunkFiles(filepath.Join(dir, chapter), style.allowJSON)
		if len(chunks) == 0 {
			b.warnf("No .md chunk files found in %s %s folder", upper, chapter)
			continue
		}
		for i, chunk := range chunks {
			verse := stem(chunk)
			heading := fmt.Sprintf("%s %s %s", name, label, verse)
			vvv := verse
			if isDigits(verse) {
				start := trimZeros(verse)
				if start == "" {
					start = "0"
				}
				vvv = zfill(start, 3)
				heading = fmt.Sprintf("%s %s:%s", name, label, b.verseRange(upper, chapter, start, chunks[i+1:]))
			}
			fmt.Fprintf(&md, "### <a id=\"%s-chunk-%s-%s-%s\"/>%s\n\n", style.prefix, code, ccc, vvv, heading)

			text := b.chunkText(filepath.Join(dir, chapter, chunk), upper)
			md.WriteString(demoter.apply(text) + "\n\n")
		}
	}
	return md.String(), anchors, true
}

// chunkFiles lists the markdown chunks of a chapter. Legacy JSON .txt
// chunks are used only when allowJSON is set and there is no markdown.
func (b *base) chunkFiles(dir string, allowJSON bool) []string {
	var md, txt []string
	for _, name := range listDir(dir, false) {
		if ignoreFiles[name] || name == "manifest.json" || strings.HasPrefix(name, ".") {
			continue
		}
		switch filepath.Ext(name) {
		case ".md":
			md = append(md, name)
		case ".txt":
			txt = append(txt, name)
		}
	}
	if len(md) == 0 && allowJSON {
		return frontFirst(txt)
	}
	return frontFirst(md)
}

// verseRange labels a chunk starting at start. The end comes from the
// next chunk's number, else from the verse table for the last chunk.
func (b *base) verseRange(book, chapter, start string, rest []string) string {
	first, _ := strconv.Atoi(start)
	end := first
	if len(rest) > 0 {
		next := stem(rest[0])
		if n, err := strconv.Atoi(next); err == nil && isDigits(next) {
			end = n - 1
		} else {
			b.warnf("%s %s had a problem handling '%s'", book, chapter, rest[0])
			end = b.lastVerse(book, chapter, first)
		}
	} else {
		end = b.lastVerse(book, chapter, first)
	}
	if end > first {
		return fmt.Sprintf("%d-%d", first, end)
	}
	return start
}

func (b *base) lastVerse(book, chapter string, start int) int {
	n, _ := strconv.Atoi(trimZeros(chapter))
	if count, ok := bible.VerseCount(book, n); ok {
		return count
	}
	b.warnf("%s does not normally contain chapter '%s'", book, chapter)
	return start
}

// chunkText reads a markdown chunk, or renders a legacy JSON chunk as
// titled sections.
func (b *base) chunkText(path, book string) string {
	text, err := readText(path)
	if err != nil {
		b.errorf("Error reading %s: %v", path, err)
		return ""
	}
	if filepath.Ext(path) != ".txt" {
		return text
	}
	var units []helpsUnit
	if err := json.Unmarshal([]byte(text), &units); err != nil {
		b.warnf("Badly formed tN json file '%s' in %s: %v", filepath.Base(path), book, err)
		return ""
	}
	var out strings.Builder
	for _, u := range units {
		fmt.Fprintf(&out, "# %s\n\n%s\n\n", u.Title, u.Body)
	}
	return out.String()
}

// indexBook records an emitted book in ix.
func indexBook(ix *document.Index, name, code string, anchors []string) {
	key := document.HTMLName(name)
	ix.Titles[key] = bible.Name(code)
	ix.BookCodes[key] = strings.ToLower(code)
	if anchors != nil {
		ix.Chapters[key] = document.Anchors(anchors...)
	}
}
