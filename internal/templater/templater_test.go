package templater

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/rc"
	"github.com/unfoldingWord/door43-job-handler/internal/subject"
)

const testShell = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Door43</title>
<link rel="canonical" href="https://live.door43.org/templates/project-page.html">
</head>
<body class="page">
<span id="h1">heading</span>
<div id="left-sidebar"></div>
<div id="outer-content"><p>placeholder</p></div>
<div id="right-sidebar"></div>
<footer>("<a xmlns:dct="http://purl.org/dc/terms/" href="https://live.door43.org/templates/project-page.html" rel="dct:source">{{ HEADING }}</a>") by Door43. Page: {{ HEADING }}</footer>
</body>
</html>
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func page(title, h1, body string) string {
	return "<html><head><title>" + title + "</title></head><body><div id=\"content\"><h1>" + h1 + "</h1>" + body + "</div></body></html>"
}

// run templates files with the kind's templater and returns it with the
// output directory.
func run(t *testing.T, kind subject.Kind, files map[string]string, mod func(*Options)) (*Templater, string) {
	t.Helper()
	src, out := t.TempDir(), t.TempDir()
	writeFiles(t, src, files)
	shell, err := ParseShell([]byte(testShell))
	require.NoError(t, err)
	opts := Options{
		SourceDir:     src,
		OutputDir:     out,
		Shell:         shell,
		Language:      rc.Language{Identifier: "en", Title: "English", Direction: "ltr"},
		ResourceTitle: "Open Bible Stories",
	}
	if mod != nil {
		mod(&opts)
	}
	tmpl, err := New(kind, opts)
	require.NoError(t, err)
	require.NoError(t, tmpl.Run(context.Background()))
	return tmpl, out
}

func read(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestParseShellRequiresContentSlot(t *testing.T) {
	_, err := ParseShell([]byte(`<html><body><div id="left-sidebar"></div></body></html>`))
	assert.ErrorIs(t, err, ErrNoContentSlot)
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(subject.Default, Options{})
	assert.ErrorIs(t, err, subject.ErrUnknownKind)
}

func TestForSubjectFallsBackToBible(t *testing.T) {
	tmpl, err := ForSubject("Something_Else", Options{})
	require.NoError(t, err)
	assert.Equal(t, subject.Bible, tmpl.Kind())

	tmpl, err = ForSubject("OBS_Translation_Notes", Options{})
	require.NoError(t, err)
	assert.Equal(t, subject.ObsNotes, tmpl.Kind())
	assert.Equal(t, []string{"tn"}, tmpl.opts.ExtraClasses)
}

func TestOBSPages(t *testing.T) {
	tmpl, out := run(t, subject.OBS, map[string]string{
		"01.html": page("The Creation", "The Creation", "<p>first story</p>"),
		"02.html": page("The Fall", "The Fall", "<p>second story</p>"),
	}, nil)

	first := read(t, out, "01.html")
	assert.Contains(t, first, `<body class="page obs">`)
	assert.Contains(t, first, `lang="en"`)
	assert.Contains(t, first, `dir="ltr"`)
	assert.Contains(t, first, "<title>English: Open Bible Stories - The Creation</title>")
	assert.Contains(t, first, `<span id="h1">English: Open Bible Stories</span>`)
	assert.Contains(t, first, "<p>first story</p>")
	assert.NotContains(t, first, "placeholder")
	assert.Contains(t, first, `<h1>Revisions</h1>`)
	assert.Contains(t, first, "<li>The Creation</li>")
	assert.Contains(t, first, `<li><a href="02.html">The Fall</a></li>`)

	assert.NotContains(t, first, "dct:source")
	assert.Contains(t, first, "<footer>by Door43. Page: The Creation</footer>")
	assert.Contains(t, first, "https://live.door43.org/en/project-page.html")
	assert.NotContains(t, first, "/templates/")

	second := read(t, out, "02.html")
	assert.Contains(t, second, "<p>second story</p>")
	assert.NotContains(t, second, "first story")
	assert.Contains(t, second, `<li><a href="01.html">The Creation</a></li>`)

	assert.Equal(t, map[string]string{"01.html": "The Creation", "02.html": "The Fall"}, tmpl.Index().Titles)
	assert.Empty(t, tmpl.Errors())
}

func TestSkipTitlesLeftOutOfNavigation(t *testing.T) {
	_, out := run(t, subject.OBS, map[string]string{
		"01.html":    page("One", "One", ""),
		"index.html": page("Index", "Index", ""),
	}, nil)
	assert.NotContains(t, read(t, out, "01.html"), `href="index.html"`)
	assert.FileExists(t, filepath.Join(out, "index.html"))
}

func TestFilenameTitleFallback(t *testing.T) {
	tmpl, _ := run(t, subject.OBS, map[string]string{
		"front_matter.html": "<html><body><p>no heading</p></body></html>",
	}, nil)
	assert.Equal(t, "Front matter", tmpl.Index().Titles["front_matter.html"])
}

func TestEmptyBodyGetsPlaceholder(t *testing.T) {
	_, out := run(t, subject.OBS, map[string]string{"01.html": "<html><body></body></html>"}, nil)
	assert.Contains(t, read(t, out, "01.html"), "<div>No content</div>")
}

func TestExtraClasses(t *testing.T) {
	_, out := run(t, subject.ObsNotes, map[string]string{"01.html": page("a", "a", "")}, func(o *Options) {
		o.ExtraClasses = []string{"tn", "obs"}
	})
	assert.Contains(t, read(t, out, "01.html"), `<body class="page obs tn">`)
}

func TestAcademyTOCNavigation(t *testing.T) {
	tmpl, out := run(t, subject.Academy, map[string]string{
		"01-intro.html": page("Intro", "Introduction", ""),
		"01-intro-toc.yaml": `title: Introduction
sections:
  - title: Welcome
    link: ta-intro
  - title: Group
    sections:
      - title: Child
        link: child
  - title: Empty
    sections:
`,
		"02-process.html":     page("Process", "Process Manual", ""),
		"02-process-toc.yaml": "title: [unclosed\n",
	}, nil)

	intro := read(t, out, "01-intro.html")
	assert.Contains(t, intro, `<body class="page ta">`)
	assert.Contains(t, intro, "<h4>Introduction</h4>")
	assert.Contains(t, intro, `<h4><a href="02-process.html">Process Manual</a></h4>`)
	assert.Contains(t, intro, `<a href="#ta-intro">Welcome</a>`)
	assert.Contains(t, intro, `<a href="#section-container-1">Group</a>`)
	assert.Contains(t, intro, `<ul id="section-container-1-sub" class="collapse">`)
	assert.Contains(t, intro, `<a href="#child">Child</a>`)
	assert.Contains(t, intro, `<ul id="section-container-2-sub" class="collapse">`)
	assert.NotContains(t, intro, "ta-intro-sub")

	process := read(t, out, "02-process.html")
	assert.Contains(t, process, "<h4>Process Manual</h4>")
	assert.Contains(t, process, `<h4><a href="01-intro.html">Introduction</a></h4>`)
	assert.NotContains(t, process, "section-container-1")
	assert.NotContains(t, process, "01-Intro")

	require.Len(t, tmpl.Errors(), 1)
	assert.True(t, strings.HasPrefix(tmpl.Errors()[0], "Templater found badly formed '02-process-toc.yaml'"))
}

func TestAcademyNavPrefersIndexTitles(t *testing.T) {
	ix := document.NewIndex()
	ix.Titles["01-intro.html"] = "Introduction to Translation Academy"

	_, out := run(t, subject.Academy, map[string]string{
		"01-intro.html":   page("Intro", "Introduction", ""),
		"02-process.html": page("Process", "Process Manual", ""),
	}, func(o *Options) { o.Index = ix })

	for _, name := range []string{"01-intro.html", "02-process.html"} {
		body := read(t, out, name)
		assert.Contains(t, body, "Introduction to Translation Academy", name)
		assert.Contains(t, body, "Process Manual", name)
	}
	intro := read(t, out, "01-intro.html")
	assert.Contains(t, intro, "<h4>Introduction to Translation Academy</h4>")
	assert.Contains(t, intro, "<h1>Introduction</h1>")
}

func TestObsNotesNavUsesFilenames(t *testing.T) {
	_, out := run(t, subject.ObsNotes, map[string]string{
		"01.html":    page("x", "First Story", ""),
		"intro.html": page("y", "Introduction Heading", ""),
	}, nil)
	body := read(t, out, "01.html")
	assert.Contains(t, body, "<h4>01</h4>")
	assert.Contains(t, body, `<h4><a href="intro.html">Intro</a></h4>`)
}

func TestNotesAccordionFromCachedIndex(t *testing.T) {
	ix := document.NewIndex()
	ix.Titles["01-GEN.html"] = "Genesis"
	ix.BookCodes["01-GEN.html"] = "gen"
	ix.Chapters["01-GEN.html"] = document.Anchors("tn-chapter-gen-001", "tn-chapter-gen-010")
	ix.Titles["02-EXO.html"] = "Exodus"
	ix.BookCodes["02-EXO.html"] = "exo"
	ix.Chapters["02-EXO.html"] = document.Anchors("tn-chapter-exo-001")

	src := map[string]string{
		"01-GEN.html": page("Genesis", "Genesis", ""),
		"02-EXO.html": page("Exodus", "Exodus", ""),
	}
	data, err := ix.Marshal()
	require.NoError(t, err)
	src[document.IndexFilename] = string(data)

	tmpl, out := run(t, subject.Notes, src, nil)
	gen := read(t, out, "01-GEN.html")
	assert.Contains(t, gen, `<body class="page tn">`)
	assert.Contains(t, gen, `<a class="accordion-toggle" data-toggle="collapse" data-parent="#sidebar-nav" href="#collapsegen">Genesis</a>`)
	assert.Contains(t, gen, `<div id="collapsegen" class="panel-collapse collapse in">`)
	assert.Contains(t, gen, `<div id="collapseexo" class="panel-collapse collapse">`)
	assert.Contains(t, gen, `<li class="chapter"><a href="#tn-chapter-gen-010">10</a></li>`)
	assert.Contains(t, gen, `<li class="chapter"><a href="02-EXO.html#tn-chapter-exo-001">1</a></li>`)

	assert.Equal(t, ix.Titles, tmpl.Index().Titles)
	assert.Equal(t, ix.Chapters, tmpl.Index().Chapters)
	assert.Equal(t, ix.BookCodes, tmpl.Index().BookCodes)
}

func TestQuestionsDerivesChaptersFromHeaders(t *testing.T) {
	tmpl, _ := run(t, subject.Questions, map[string]string{
		"41-MAT.html": page("Matthew", "Matthew",
			`<h2 class="section-header" id="tq-chapter-mat-001">1</h2><h2 class="section-header" id="tq-chapter-mat-002">2</h2>`),
		"42-MRK.html": "<html><body><p>x</p></body></html>",
	}, nil)
	ix := tmpl.Index()
	assert.Equal(t, "Matthew", ix.Titles["41-MAT.html"])
	assert.Equal(t, "mat", ix.BookCodes["41-MAT.html"])
	assert.Equal(t, []string{"tq-chapter-mat-001", "tq-chapter-mat-002"}, ix.Chapters["41-MAT.html"].Anchors)
	assert.Equal(t, "mrk.", ix.Titles["42-MRK.html"])
}

func TestBibleOrderingAndChapters(t *testing.T) {
	assert.Equal(t,
		[]string{"A0-FRT.html", "A7-INT.html", "01-GEN.html", "02-EXO.html"},
		SortBiblePages([]string{"02-EXO.html", "A7-INT.html", "01-GEN.html", "A0-FRT.html"}))

	tmpl, out := run(t, subject.Bible, map[string]string{
		"A0-FRT.html": page("Front", "Front Matter", "<p>front</p>"),
		"01-GEN.html": page("Genesis", "Genesis",
			`<h2 class="c-num" id="gen-ch-001">1</h2><h2 class="c-num" id="gen-ch-002">2</h2>`),
	}, nil)
	ix := tmpl.Index()
	assert.Equal(t, []string{"content"}, ix.Chapters["A0-FRT.html"].Anchors)
	assert.Equal(t, []string{"gen-ch-001", "gen-ch-002"}, ix.Chapters["01-GEN.html"].Anchors)

	gen := read(t, out, "01-GEN.html")
	assert.Contains(t, gen, `<body class="page bible">`)
	assert.Contains(t, gen, `<li class="chapter"><a href="#gen-ch-002">2</a></li>`)
	assert.Contains(t, gen, `<li class="chapter"><a href="A0-FRT.html#content">content</a></li>`)
	assert.Less(t, strings.Index(gen, "collapsefrt"), strings.Index(gen, "collapsegen"))
}

func TestWordsSectionsSortTerms(t *testing.T) {
	ix := document.NewIndex()
	ix.Titles["kt.html"] = "Key Terms"
	ix.BookCodes["kt.html"] = "kt"
	ix.Chapters["kt.html"] = document.Terms(map[string]string{"zion": "zion", "god": "God", "abel": "Abel"})
	ix.Titles["names.html"] = "Names"
	ix.Chapters["names.html"] = document.Terms(map[string]string{"adam": "Adam"})

	_, out := run(t, subject.Words, map[string]string{
		"kt.html":    page("Key Terms", "Key Terms", ""),
		"names.html": page("Names", "Names", ""),
	}, func(o *Options) { o.Index = ix })

	kt := read(t, out, "kt.html")
	assert.Contains(t, kt, `<body class="page tw">`)
	assert.Contains(t, kt, `<li class="active"><a href="#tw-section-kt">Key Terms</a>`)
	assert.Contains(t, kt, `<ul class="collapse" id="section-kt-sub">`)
	assert.Contains(t, kt, `<li><a href="names.html#adam">Adam</a></li>`)
	abel, god, zion := strings.Index(kt, "#abel"), strings.Index(kt, "#god"), strings.Index(kt, "#zion")
	assert.True(t, abel < god && god < zion, "terms should be sorted by title")
}

func TestWordsWithoutIndexHasNoNav(t *testing.T) {
	_, out := run(t, subject.Words, map[string]string{"kt.html": page("Key Terms", "Key Terms", "")}, nil)
	assert.NotContains(t, read(t, out, "kt.html"), "right-sidebar-nav")
}

func TestAlreadyTemplatedOnlyRefreshesNav(t *testing.T) {
	templated := `<html><head><title>Kept</title></head><body><div id="outer-content"><p>kept body</p></div>` +
		`<div id="right-sidebar"><nav id="old">stale</nav></div></body></html>`
	noSidebar := `<html><head><title>Bare</title></head><body><div id="outer-content"><p>bare body</p></div></body></html>`
	_, out := run(t, subject.OBS, map[string]string{
		"01.html": templated,
		"02.html": page("Two", "Two", ""),
		"03.html": noSidebar,
	}, func(o *Options) { o.AlreadyTemplated = []string{"01.html", "03.html"} })

	assert.Equal(t, noSidebar, read(t, out, "03.html"))
	assert.Equal(t,
		strings.Replace(templated, `<nav id="old">stale</nav>`, "", 1),
		stripNav(read(t, out, "01.html")))

	body := read(t, out, "01.html")
	assert.Contains(t, body, "<p>kept body</p>")
	assert.Contains(t, body, "<title>Kept</title>")
	assert.NotContains(t, body, "stale")
	assert.Contains(t, body, `<li><a href="02.html">Two</a></li>`)
	assert.NotContains(t, body, `<body class="page obs">`)
}

// stripNav removes the contents of the right sidebar.
func stripNav(page string) string {
	start := strings.Index(page, `<div id="right-sidebar">`)
	if start < 0 {
		return page
	}
	start += len(`<div id="right-sidebar">`)
	end := strings.Index(page[start:], "</div>")
	return page[:start] + page[start+end:]
}

func TestRefreshRightNav(t *testing.T) {
	t.Run("keeps the rest of the page", func(t *testing.T) {
		before := `<html><head><title>Kept</title></head><body>` +
			`<div id="outer-content"><p class="x">kept <b>body</b> &amp; more</p></div>` +
			`<div id="right-sidebar"><nav id="old">stale</nav></div></body></html>`
		got, err := RefreshRightNav([]byte(before), `<nav id="new">fresh</nav>`)
		require.NoError(t, err)
		want := strings.Replace(before, `<nav id="old">stale</nav>`, `<nav id="new">fresh</nav>`, 1)
		assert.Equal(t, want, string(got))
	})

	t.Run("no right sidebar", func(t *testing.T) {
		before := "<p>loose markup<div id=\"content\">kept"
		got, err := RefreshRightNav([]byte(before), `<nav id="new">fresh</nav>`)
		require.NoError(t, err)
		assert.Equal(t, before, string(got))
	})
}

func TestLanguageFromManifest(t *testing.T) {
	_, out := run(t, subject.OBS, map[string]string{
		"manifest.yaml": "dublin_core:\n  identifier: obs\n  title: Hadithi\n  language:\n    identifier: sw\n    title: Kiswahili\n    direction: ltr\n",
		"01.html":       page("One", "One", ""),
	}, func(o *Options) {
		o.Language = rc.Language{}
		o.ResourceTitle = ""
	})
	body := read(t, out, "01.html")
	assert.Contains(t, body, `lang="sw"`)
	assert.Contains(t, body, `<span id="h1">Kiswahili: Hadithi</span>`)
	assert.Contains(t, body, "https://live.door43.org/sw/project-page.html")
}

func TestRunCancelled(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"01.html": page("a", "a", "")})
	shell, err := ParseShell([]byte(testShell))
	require.NoError(t, err)
	tmpl, err := New(subject.OBS, Options{SourceDir: src, OutputDir: t.TempDir(), Shell: shell})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tmpl.Run(ctx), context.Canceled)
}

func TestShellRenderIsFresh(t *testing.T) {
	shell, err := ParseShell([]byte(testShell))
	require.NoError(t, err)
	before := shell.source
	_, err = shell.Render(Page{Lang: "fr", Dir: "ltr", Heading: "h", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, before, shell.source)
	assert.Equal(t, "https://live.door43.org/templates/project-page.html", shell.Canonical())
}
