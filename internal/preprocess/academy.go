package preprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
)

var manualTitles = map[string]string{
	"checking":  "Checking Manual",
	"intro":     "Introduction to translationAcademy",
	"process":   "Process Manual",
	"translate": "Translation Manual",
}

// ManualTitle names an academy manual.
func ManualTitle(identifier string) string {
	if t, ok := manualTitles[identifier]; ok {
		return t
	}
	return cases.Title(language.English).String(identifier) + " Manual"
}

type academy struct {
	base
	project    *rc.Project
	containers int
}

func (a *academy) Run(ctx context.Context) (Result, error) {
	ix := document.NewIndex()
	projects := a.rc().Projects()
	manuals := make([]string, len(projects))
	for i, p := range projects {
		manuals[i] = p.Identifier
	}

	for idx, p := range projects {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		toc := a.rc().TOC(p.Identifier)
		if toc == nil {
			a.warnf("Unable to find toc.yaml for '%s' manual", p.Identifier)
			continue
		}
		a.project, a.containers = p, 0

		var md strings.Builder
		var anchors []string
		for _, node := range toc.Sections {
			if node == nil {
				continue
			}
			anchor, text := a.compileSection(node, 1)
			anchors = append(anchors, anchor)
			md.WriteString(text)
		}

		name := numberedName(p.Identifier, idx, "md", false)
		prefix := stem(name)
		if err := a.emit(name, FixAcademyLinks(md.String(), a.links(), manuals)); err != nil {
			return Result{}, err
		}
		if _, err := a.copyCompanion(p, "toc.yaml", prefix+"-toc.yaml"); err != nil {
			return Result{}, err
		}
		found, err := a.copyCompanion(p, "config.yaml", prefix+"-config.yaml")
		if err != nil {
			return Result{}, err
		}
		if !found && p.Path != "./" && p.Path != "." {
			a.warnf("Possible missing config.yaml file in %s folder", p.Path)
		}

		key := document.HTMLName(name)
		ix.Titles[key] = ManualTitle(p.Identifier)
		ix.Chapters[key] = document.Anchors(anchors...)
		ix.BookCodes[key] = p.Identifier
	}
	return a.result(ix), nil
}

// compileSection renders one TOC node and its children. It returns the
// node's anchor and markdown.
func (a *academy) compileSection(node *document.TOCNode, level int) (string, string) {
	link := node.Link
	if link == "" {
		a.containers++
		link = fmt.Sprintf("section-container-%d", a.containers)
	}
	dir := filepath.Join(a.projectPath(a.project), node.Link)

	title := strings.TrimSpace(node.Title)
	if title == "" && node.Link != "" {
		title = a.readTitle(filepath.Join(dir, "title.md"))
	}
	if title == "" {
		a.warnf("Title seems missing for '%s' level %d '%s'", a.project.Identifier, level, link)
		title = "MISSING TITLE???"
	}

	var md strings.Builder
	fmt.Fprintf(&md, "%s <a id=\"%s\"/>%s\n\n", strings.Repeat("#", level), link, title)
	if node.Link != "" {
		if isDir(dir) {
			a.writeArticle(&md, node.Link, dir)
		} else {
			a.warnf("Unable to find '%s' folder in the '%s' manual", node.Link, a.project.Identifier)
		}
	}
	if node.HasSections && len(node.Sections) == 0 {
		a.warnf("'sections' seems empty for '%s' level %d '%s'", a.project.Identifier, level, link)
	}
	for _, child := range node.Sections {
		if child == nil {
			continue
		}
		_, text := a.compileSection(child, level+1)
		md.WriteString(text)
	}
	return link, md.String()
}

func (a *academy) writeArticle(md *strings.Builder, link, dir string) {
	question := ""
	if text, err := readText(filepath.Join(dir, "sub-title.md")); err == nil {
		question = strings.TrimSpace(text)
	}
	cfg, _ := a.rc().Config(a.project.Identifier)[link].(map[string]any)
	dependencies := stringList(cfg["dependencies"])
	recommended := stringList(cfg["recommended"])

	if question != "" || len(dependencies) > 0 {
		md.WriteString("<div class=\"top-box box\" markdown=\"1\">\n")
		if question != "" {
			fmt.Fprintf(md, "This page answers the question: *%s*\n\n", question)
		}
		if len(dependencies) > 0 {
			md.WriteString("In order to understand this topic, it would be good to read:\n\n")
			a.writeRefs(md, dependencies)
		}
		md.WriteString("</div>\n\n")
	}

	if text, err := readText(filepath.Join(dir, "01.md")); err == nil {
		md.WriteString(strings.TrimRight(text, "\n") + "\n\n")
	} else {
		a.warnf("Unable to find '%s/01.md' in the '%s' manual", link, a.project.Identifier)
	}

	if len(recommended) > 0 {
		md.WriteString("<div class=\"bottom-box box\" markdown=\"1\">\n")
		md.WriteString("Next we recommend you learn about:\n\n")
		a.writeRefs(md, recommended)
		md.WriteString("</div>\n\n")
	}
	md.WriteString("---\n\n")
}

func (a *academy) writeRefs(md *strings.Builder, links []string) {
	for _, link := range links {
		title, ref := a.resolve(link)
		fmt.Fprintf(md, "  * *[%s](%s)*\n", title, ref)
	}
	md.WriteString("\n")
}

// resolve finds an article in the current manual first, then in the
// others. An unknown article keeps its link as title.
func (a *academy) resolve(link string) (string, string) {
	projects := a.rc().Projects()
	if dir := filepath.Join(a.projectPath(a.project), link); isDir(dir) {
		return a.titleOr(dir, link), "#" + link
	}
	for i, p := range projects {
		if p == a.project {
			continue
		}
		if dir := filepath.Join(a.projectPath(p), link); isDir(dir) {
			return a.titleOr(dir, link), fmt.Sprintf("%02d-%s.html#%s", i+1, p.Identifier, link)
		}
	}
	a.warnf("Unable to find article '%s' referenced from the '%s' manual", link, a.project.Identifier)
	return link, "#" + link
}

func (a *academy) titleOr(dir, fallback string) string {
	if t := a.readTitle(filepath.Join(dir, "title.md")); t != "" {
		return t
	}
	return fallback
}

func (a *academy) readTitle(path string) string {
	text, err := readText(path)
	if err != nil {
		return ""
	}
	rel, _ := filepath.Rel(a.opts.SourceDir, path)
	title, warnings := CheckTitle(text, rel)
	a.addWarnings(warnings)
	return title
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
