package templater

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
)

// leftNav is the revisions placeholder the site script fills in.
const leftNav = `<nav class="affix-top hidden-print hidden-xs hidden-sm" id="left-sidebar-nav">` +
	`<div class="nav nav-stacked" id="revisions-div"><h1>Revisions</h1>` +
	`<table width="100%" id="revisions"></table></div></nav>`

// skipTitles are page titles left out of navigation listings.
var skipTitles = map[string]bool{
	"":                                    true,
	"Conversion requested…":               true,
	"Conversion started…":                 true,
	"Conversion successful":               true,
	"Conversion successful with warnings": true,
	"Index":                               true,
	"View lexicon entry":                  true,
}

// navigator is the variant-specific half of a templater.
type navigator interface {
	// class is the body CSS class for the variant.
	class() string
	// order arranges the page names for navigation and templating.
	order(names []string) []string
	// describe records the index entries for one page.
	describe(t *Templater, src *source)
	// build renders the right sidebar for the page named current.
	build(t *Templater, current string) string
}

// href links to name from current: pages link to themselves by fragment.
func href(name, current string) string {
	if name == current {
		return ""
	}
	return name
}

// describeTitle records a page title from its first content heading, else
// from its filename. Cached titles win.
func (t *Templater) describeTitle(src *source) {
	if _, ok := t.ix.Titles[src.name]; ok {
		return
	}
	title := src.heading()
	if title == "" {
		title = capitalize(strings.ReplaceAll(stem(src.name), "_", " "))
	}
	t.ix.Titles[src.name] = title
}

// obsNav is a flat list of pages.
type obsNav struct{}

func (obsNav) class() string                      { return "obs" }
func (obsNav) order(names []string) []string      { return names }
func (obsNav) describe(t *Templater, src *source) { t.describeTitle(src) }

func (obsNav) build(t *Templater, current string) string {
	var b strings.Builder
	b.WriteString(`<nav class="affix-top hidden-print hidden-xs hidden-sm content-nav" id="right-sidebar-nav">`)
	b.WriteString(`<ul id="sidebar-nav" class="nav nav-stacked"><li><h1>Navigation</h1></li>`)
	for _, name := range t.names {
		title := t.ix.Titles[name]
		if skipTitles[title] {
			continue
		}
		if name == current {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(title))
		} else {
			fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, html.EscapeString(name), html.EscapeString(title))
		}
	}
	b.WriteString("</ul></nav>")
	return b.String()
}

// tocNav lists pages and expands the current one into its table of
// contents, read from the "{stem}-toc.yaml" file beside it.
type tocNav struct {
	css string
	// headings takes nav titles from page headings rather than filenames.
	headings bool
}

func (n tocNav) class() string                    { return n.css }
func (tocNav) order(names []string) []string      { return names }
func (tocNav) describe(t *Templater, src *source) { t.describeTitle(src) }

func (n tocNav) title(t *Templater, name string) string {
	if n.headings {
		if title := t.ix.Titles[name]; title != "" {
			return title
		}
		if src, ok := t.sources[name]; ok {
			if h := src.heading(); h != "" {
				return h
			}
		}
	}
	return titleCase(stem(name))
}

func (n tocNav) build(t *Templater, current string) string {
	var b strings.Builder
	b.WriteString(`<nav class="hidden-print hidden-xs hidden-sm content-nav" id="right-sidebar-nav">`)
	b.WriteString(`<ul class="nav nav-stacked">`)
	for _, name := range t.names {
		title := n.title(t, name)
		if skipTitles[title] {
			continue
		}
		if name != current {
			fmt.Fprintf(&b, `<h4><a href="%s">%s</a></h4>`, html.EscapeString(name), html.EscapeString(title))
			continue
		}
		fmt.Fprintf(&b, "<h4>%s</h4>", html.EscapeString(title))
		tocName := stem(name) + "-toc.yaml"
		toc, err := document.ReadTOC(filepath.Join(t.opts.SourceDir, tocName))
		if err != nil {
			if errors.Is(err, document.ErrBadTOC) {
				t.errorf("Templater found badly formed '%s': %v", tocName, err)
			} else {
				t.errorf("Templater could not read '%s': %v", tocName, err)
			}
			continue
		}
		if toc == nil {
			continue
		}
		counter := 1
		for _, section := range toc.Sections {
			writeSection(&b, section, &counter)
		}
	}
	b.WriteString("</ul></nav>")
	return b.String()
}

// writeSection renders one TOC node and its children. Nodes without a link
// get a generated section-container id.
func writeSection(b *strings.Builder, node *document.TOCNode, counter *int) {
	if node == nil {
		return
	}
	link := node.Link
	if link == "" {
		link = fmt.Sprintf("section-container-%d", *counter)
		*counter++
	}
	title := node.Title
	if title == "" {
		title = "MISSING TITLE???"
	}
	fmt.Fprintf(b, `<li><a href="#%s">%s</a>`, html.EscapeString(link), html.EscapeString(title))
	if node.HasSections || len(node.Sections) > 0 {
		fmt.Fprintf(b, `<a href="#" data-target="#%s-sub" data-toggle="collapse" class="content-nav-expand collapsed"></a>`, html.EscapeString(link))
		fmt.Fprintf(b, `<ul id="%s-sub" class="collapse">`, html.EscapeString(link))
		for _, child := range node.Sections {
			writeSection(b, child, counter)
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</li>")
}

// accordionNav is one collapsible panel per book listing its chapters.
// The chapter label is the segment-th "-" separated part of each anchor.
type accordionNav struct {
	css     string
	segment int
	bible   bool
}

func (n accordionNav) class() string { return n.css }

func (n accordionNav) order(names []string) []string {
	if n.bible {
		return SortBiblePages(names)
	}
	return names
}

func (n accordionNav) describe(t *Templater, src *source) {
	name := src.name
	if _, ok := t.ix.Titles[name]; !ok {
		code := bookCode(name)
		title := src.heading()
		if title == "" {
			title = code + "."
		}
		t.ix.Titles[name] = title
		t.ix.BookCodes[name] = code
	}
	if cl, ok := t.ix.Chapters[name]; ok && cl.Len() > 0 {
		return
	}
	switch {
	case n.bible && t.code(name) == "frt":
		t.ix.Chapters[name] = document.Anchors("content")
	case n.bible:
		t.ix.Chapters[name] = document.Anchors(src.anchorIDs(atom.H2, "c-num")...)
	default:
		t.ix.Chapters[name] = document.Anchors(src.anchorIDs(atom.H2, "section-header")...)
	}
}

func (n accordionNav) label(anchor string) string {
	parts := strings.Split(anchor, "-")
	if len(parts) <= n.segment {
		return anchor
	}
	return strings.TrimLeft(parts[n.segment], "0")
}

func (n accordionNav) build(t *Templater, current string) string {
	var b strings.Builder
	b.WriteString(`<nav class="hidden-print hidden-xs hidden-sm content-nav" id="right-sidebar-nav">`)
	b.WriteString(`<ul id="sidebar-nav" class="nav nav-stacked books panel-group">`)
	for _, name := range t.names {
		title := t.ix.Titles[name]
		if skipTitles[title] {
			continue
		}
		code := html.EscapeString(t.ix.BookCodes[name])
		in := ""
		if name == current {
			in = " in"
		}
		b.WriteString(`<div class="panel panel-default"><div class="panel-heading"><h4 class="panel-title">`)
		fmt.Fprintf(&b, `<a class="accordion-toggle" data-toggle="collapse" data-parent="#sidebar-nav" href="#collapse%s">%s</a>`, code, html.EscapeString(title))
		b.WriteString(`</h4></div>`)
		fmt.Fprintf(&b, `<div id="collapse%s" class="panel-collapse collapse%s"><ul class="panel-body chapters">`, code, in)
		for _, anchor := range t.ix.Chapters[name].Anchors {
			fmt.Fprintf(&b, `<li class="chapter"><a href="%s#%s">%s</a></li>`,
				html.EscapeString(href(name, current)), html.EscapeString(anchor), html.EscapeString(n.label(anchor)))
		}
		b.WriteString(`</ul></div></div>`)
	}
	b.WriteString("</ul></nav>")
	return b.String()
}

// wordsNav lists each glossary section with its terms sorted by title.
type wordsNav struct{}

func (wordsNav) class() string                      { return "tw" }
func (wordsNav) order(names []string) []string      { return names }
func (wordsNav) describe(t *Templater, src *source) { t.describeTitle(src) }

func (wordsNav) build(t *Templater, current string) string {
	if len(t.names) == 0 || len(t.ix.Titles) == 0 || len(t.ix.Chapters) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<nav class="hidden-print hidden-xs hidden-sm content-nav" id="right-sidebar-nav">`)
	b.WriteString(`<ul class="nav nav-stacked">`)
	for _, name := range t.names {
		section := html.EscapeString(stem(name))
		link := html.EscapeString(href(name, current))
		active := ""
		if name == current {
			active = ` class="active"`
		}
		fmt.Fprintf(&b, `<li%s><a href="%s#tw-section-%s">%s</a>`, active, link, section, html.EscapeString(t.ix.Titles[name]))
		fmt.Fprintf(&b, `<a class="content-nav-expand collapsed" data-target="#section-%s-sub" data-toggle="collapse" href="#"></a>`, section)
		fmt.Fprintf(&b, `<ul class="collapse" id="section-%s-sub">`, section)
		terms := t.ix.Chapters[name]
		if terms.IsTerms() {
			for _, term := range terms.SortedTerms() {
				fmt.Fprintf(&b, `<li><a href="%s#%s">%s</a></li>`, link, html.EscapeString(term), html.EscapeString(terms.Terms[term]))
			}
		}
		b.WriteString("</ul></li>")
	}
	b.WriteString("</ul></nav>")
	return b.String()
}

var (
	_ navigator = obsNav{}
	_ navigator = tocNav{}
	_ navigator = accordionNav{}
	_ navigator = wordsNav{}
)
