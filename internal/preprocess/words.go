package preprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
)

type wordSection struct {
	id    string
	title string
}

var wordSections = []wordSection{
	{id: "kt", title: "Key Terms"},
	{id: "names", title: "Names"},
	{id: "other", title: "Other"},
}

type term struct {
	id    string
	title string
	body  string
}

var firstH1 = regexp.MustCompile(`(?m)^# +(.+?) *#*$`)

type words struct {
	base
}

func (w *words) Run(ctx context.Context) (Result, error) {
	terms := map[string][]term{}
	if w.legacy() {
		terms["other"] = w.legacyTerms()
	} else {
		for _, p := range w.rc().Projects() {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			for _, s := range wordSections {
				terms[s.id] = append(terms[s.id], w.sectionTerms(filepath.Join(w.projectPath(p), s.id), s.id)...)
			}
			if _, err := w.copyCompanion(p, "config.yaml", "config.yaml"); err != nil {
				return Result{}, err
			}
		}
	}

	ix := document.NewIndex()
	for _, s := range wordSections {
		list := terms[s.id]
		if len(list) == 0 {
			continue
		}
		sort.SliceStable(list, func(i, j int) bool {
			a, b := strings.ToLower(list[i].title), strings.ToLower(list[j].title)
			if a == b {
				return list[i].id < list[j].id
			}
			return a < b
		})
		bodies := make([]string, len(list))
		titles := make(map[string]string, len(list))
		for i, t := range list {
			bodies[i] = t.body
			titles[t.id] = t.title
		}
		md := fmt.Sprintf("# <a id=\"tw-section-%s\"/>%s\n\n", s.id, s.title) + strings.Join(bodies, "<hr>\n\n")
		name := s.id + ".md"
		if err := w.emit(name, FixWordsLinks(md, s.id, w.links())); err != nil {
			return Result{}, err
		}
		key := document.HTMLName(name)
		ix.Titles[key] = s.title
		ix.Chapters[key] = document.Terms(titles)
		ix.BookCodes[key] = s.id
	}
	return w.result(ix), nil
}

// legacy reports the flat 01/ layout of JSON term files.
func (w *words) legacy() bool {
	src := w.opts.SourceDir
	return isDir(filepath.Join(src, "01")) &&
		isFile(filepath.Join(src, "LICENSE.md")) &&
		isFile(filepath.Join(src, "manifest.json"))
}

func (w *words) legacyTerms() []term {
	dir := filepath.Join(w.opts.SourceDir, "01")
	var terms []term
	for _, name := range listDir(dir, false) {
		if filepath.Ext(name) != ".txt" {
			continue
		}
		text, err := readText(filepath.Join(dir, name))
		if err != nil {
			w.errorf("Error reading 01/%s: %v", name, err)
			continue
		}
		var units []helpsUnit
		if err := json.Unmarshal([]byte(text), &units); err != nil {
			w.warnf("Badly formed tW json file '01/%s': %v", name, err)
			continue
		}
		if len(units) != 1 {
			w.warnf("Expected one unit in 01/%s but found %d", name, len(units))
		}
		id := stem(name)
		for _, u := range units {
			terms = append(terms, term{
				id:    id,
				title: u.Title,
				body:  fmt.Sprintf("### <a id=\"%s\"/>%s\n\n%s\n\n", id, u.Title, u.Body),
			})
		}
	}
	return terms
}

// sectionTerms reads the term files of one section directory. Each term's
// first H1 is anchored with the term id and every header moves down a
// level.
func (w *words) sectionTerms(dir, section string) []term {
	var terms []term
	demoter := demote(1)
	for _, name := range listDir(dir, false) {
		if filepath.Ext(name) != ".md" || ignoreFiles[name] {
			continue
		}
		text, err := readText(filepath.Join(dir, name))
		if err != nil {
			w.errorf("Error reading %s/%s: %v", section, name, err)
			continue
		}
		id := stem(name)
		title := id
		anchor := func(t string) string { return fmt.Sprintf("# <a id=\"%s\"/>%s", id, t) }
		if loc := firstH1.FindStringSubmatchIndex(text); loc != nil {
			var warnings []string
			title, warnings = CheckTitle(text[loc[2]:loc[3]], section+"/"+name)
			w.addWarnings(warnings)
			text = text[:loc[0]] + anchor(title) + text[loc[1]:]
		} else {
			text = anchor(title) + "\n\n" + text
		}
		terms = append(terms, term{
			id:    id,
			title: title,
			body:  strings.TrimRight(demoter.apply(text), "\n") + "\n\n",
		})
	}
	return terms
}
