package templater

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// source is one converted HTML document waiting to be templated.
type source struct {
	name string
	path string
	doc  *html.Node
	// h1 is read before body() detaches the content.
	h1 string
}

func readSource(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}
	s := &source{name: filepath.Base(path), path: path, doc: doc}
	s.h1 = s.firstHeading()
	return s, nil
}

// heading is the text of the first h1 inside div#content, as read.
func (s *source) heading() string { return s.h1 }

func (s *source) firstHeading() string {
	content := findByID(s.doc, atom.Div, "content")
	if content == nil {
		return ""
	}
	h1 := findElement(content, atom.H1)
	if h1 == nil {
		return ""
	}
	return strings.TrimSpace(text(h1))
}

// headTitle is the text of the document's own <title>.
func (s *source) headTitle() string {
	head := findElement(s.doc, atom.Head)
	if head == nil {
		return ""
	}
	t := findElement(head, atom.Title)
	if t == nil {
		return ""
	}
	return strings.TrimSpace(text(t))
}

// anchorIDs returns the ids of every a element with class, in order.
func (s *source) anchorIDs(a atom.Atom, class string) []string {
	ids := []string{}
	for _, n := range findAll(s.doc, a, class) {
		if id := attr(n, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// body detaches the document body. An empty body yields a placeholder.
func (s *source) body() []*html.Node {
	var nodes []*html.Node
	if b := findElement(s.doc, atom.Body); b != nil {
		nodes = children(b)
	}
	if len(nodes) == 0 {
		nodes = []*html.Node{noContent()}
	}
	return nodes
}

func noContent() *html.Node {
	div := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	div.AppendChild(&html.Node{Type: html.TextNode, Data: "No content"})
	return div
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// bookCode derives a lower-case code from "NN-CODE.html" or "CODE.html".
func bookCode(name string) string {
	parts := strings.Split(stem(name), "-")
	if len(parts) == 2 {
		return strings.ToLower(parts[1])
	}
	return strings.ToLower(parts[0])
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	s = cases.Lower(language.Und).String(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

// htmlFiles lists the *.html files directly inside dir, sorted.
func htmlFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// SortBiblePages orders page names alphabetically, except that the front
// matter (A0 FRT) and introductions (A7 INT) pages come first.
func SortBiblePages(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	for _, special := range [][2]string{{"INT", "A7"}, {"FRT", "A0"}} {
		for i, name := range out {
			if strings.Contains(name, special[0]) && strings.Contains(name, special[1]) {
				moved := append([]string{name}, out[:i]...)
				out = append(moved, out[i+1:]...)
				break
			}
		}
	}
	return out
}
