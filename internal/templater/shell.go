package templater

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrNoContentSlot is returned for a shell without div#outer-content.
	ErrNoContentSlot = errors.New(`no div tag with id "outer-content" was found in the template`)

	// ErrNoBody is returned for shell markup that has no <body>.
	ErrNoBody = errors.New("template has no body")
)

// Slot names a point in the shell where per-page content goes.
type Slot int

const (
	SlotContent Slot = iota
	SlotLeft
	SlotRight
	SlotHeading
	SlotTitle
)

// String returns the string representation of the slot.
func (s Slot) String() string {
	switch s {
	case SlotContent:
		return "content"
	case SlotLeft:
		return "left"
	case SlotRight:
		return "right"
	case SlotHeading:
		return "heading"
	case SlotTitle:
		return "title"
	default:
		return "unknown"
	}
}

// headingToken is the shell's page title placeholder.
const headingToken = "{{ HEADING }}"

// Shell is a parsed project page template. It is never mutated: every
// Render works on a tree freshly parsed from the stored source.
type Shell struct {
	source    string
	canonical string
}

// Page is everything Render needs to produce one document.
type Page struct {
	Body     []*html.Node
	Lang     string
	Dir      string
	Heading  string
	Title    string
	LeftNav  string
	RightNav string
}

// LoadShell reads and parses a template file.
func LoadShell(path string) (*Shell, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return ParseShell(data)
}

// ParseShell checks the template markup for its required slots.
func ParseShell(data []byte) (*Shell, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if findElement(doc, atom.Body) == nil {
		return nil, ErrNoBody
	}
	if findByID(doc, atom.Div, "outer-content") == nil {
		return nil, ErrNoContentSlot
	}
	s := &Shell{source: string(data)}
	if head := findElement(doc, atom.Head); head != nil {
		walk(head, func(n *html.Node) bool {
			if n.DataAtom == atom.Link && attr(n, "rel") == "canonical" {
				s.canonical = attr(n, "href")
				return false
			}
			return true
		})
	}
	return s, nil
}

// WithBodyClasses returns a shell whose <body> carries the extra classes.
func (s *Shell) WithBodyClasses(classes ...string) (*Shell, error) {
	doc, err := s.tree()
	if err != nil {
		return nil, err
	}
	body := findElement(doc, atom.Body)
	existing := strings.Fields(attr(body, "class"))
	setAttr(body, "class", strings.Join(append(existing, classes...), " "))
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return &Shell{source: buf.String(), canonical: s.canonical}, nil
}

// BodyClasses returns the classes set on <body>.
func (s *Shell) BodyClasses() []string {
	doc, err := s.tree()
	if err != nil {
		return nil
	}
	return strings.Fields(attr(findElement(doc, atom.Body), "class"))
}

// Canonical returns the href of the template's canonical link, if any.
func (s *Shell) Canonical() string { return s.canonical }

func (s *Shell) tree() (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(s.source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return doc, nil
}

// slots locates every named insertion point in doc. Only the content slot
// is guaranteed to be present.
func slots(doc *html.Node) map[Slot]*html.Node {
	found := map[Slot]*html.Node{}
	if n := findByID(doc, atom.Div, "outer-content"); n != nil {
		found[SlotContent] = n
	}
	if n := findByID(doc, atom.Div, "left-sidebar"); n != nil {
		found[SlotLeft] = n
	}
	if n := findByID(doc, atom.Div, "right-sidebar"); n != nil {
		found[SlotRight] = n
	}
	if n := findByID(doc, atom.Span, "h1"); n != nil {
		found[SlotHeading] = n
	}
	if head := findElement(doc, atom.Head); head != nil {
		if n := findElement(head, atom.Title); n != nil {
			found[SlotTitle] = n
		}
	}
	return found
}

// Render fills a fresh copy of the shell with p and returns the final
// page markup.
func (s *Shell) Render(p Page) ([]byte, error) {
	doc, err := s.tree()
	if err != nil {
		return nil, err
	}
	slot := slots(doc)
	content, ok := slot[SlotContent]
	if !ok {
		return nil, ErrNoContentSlot
	}

	empty(content)
	for _, n := range p.Body {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		content.AppendChild(n)
	}

	if root := findElement(doc, atom.Html); root != nil {
		setAttr(root, "lang", p.Lang)
		setAttr(root, "dir", p.Dir)
	}
	if n, ok := slot[SlotTitle]; ok {
		empty(n)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: p.Heading + " - " + p.Title})
	}
	if n, ok := slot[SlotHeading]; ok {
		empty(n)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: p.Heading})
	}
	if n, ok := slot[SlotLeft]; ok {
		if err := replaceWithNav(n, p.LeftNav); err != nil {
			return nil, err
		}
	}
	if n, ok := slot[SlotRight]; ok {
		if err := replaceWithNav(n, p.RightNav); err != nil {
			return nil, err
		}
	}

	removeFooterCredit(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	out := buf.String()
	if s.canonical != "" && p.Lang != "" {
		out = strings.ReplaceAll(out, s.canonical, strings.ReplaceAll(s.canonical, "/templates/", "/"+p.Lang+"/"))
	}
	out = strings.ReplaceAll(out, headingToken, html.EscapeString(p.Title))
	return []byte(out), nil
}

// RefreshRightNav replaces only the right sidebar of an already templated
// page. Pages without a right sidebar come back unchanged.
func RefreshRightNav(page []byte, nav string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	n := findByID(doc, atom.Div, "right-sidebar")
	if n == nil {
		return page, nil
	}
	if err := replaceWithNav(n, nav); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

// removeFooterCredit drops the shell's source attribution link, which
// wraps the heading placeholder in `("…") ` and is never filled in.
func removeFooterCredit(doc *html.Node) {
	var credit *html.Node
	walk(doc, func(n *html.Node) bool {
		if n.DataAtom == atom.A && attr(n, "rel") == "dct:source" && strings.TrimSpace(text(n)) == headingToken {
			credit = n
			return false
		}
		return true
	})
	if credit == nil {
		return
	}
	if prev := credit.PrevSibling; prev != nil && prev.Type == html.TextNode {
		prev.Data = strings.TrimSuffix(prev.Data, `("`)
	}
	if next := credit.NextSibling; next != nil && next.Type == html.TextNode {
		next.Data = strings.TrimPrefix(strings.TrimPrefix(next.Data, `") `), `")`)
	}
	credit.Parent.RemoveChild(credit)
}

// replaceWithNav empties slot and appends the first <nav> of markup.
func replaceWithNav(slot *html.Node, markup string) error {
	empty(slot)
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return fmt.Errorf("failed to parse navigation: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.Nav {
			slot.AppendChild(n)
			return nil
		}
	}
	return nil
}
