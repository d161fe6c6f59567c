package document

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TOC is a parsed toc.yaml file.
type TOC struct {
	Title    string     `yaml:"title"`
	Sections []*TOCNode `yaml:"sections"`
}

// TOCNode is one section of a table of contents. A node without a Link is
// a pure container; HasSections records that a "sections" key was present
// even when its list was empty or null.
type TOCNode struct {
	Title       string
	Link        string
	Sections    []*TOCNode
	HasSections bool
}

// UnmarshalYAML decodes a section mapping.
func (n *TOCNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("toc section at line %d is not a mapping", value.Line)
	}
	var raw struct {
		Title    string     `yaml:"title"`
		Link     string     `yaml:"link"`
		Sections []*TOCNode `yaml:"sections"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	n.Title = raw.Title
	n.Link = raw.Link
	n.Sections = raw.Sections
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "sections" {
			n.HasSections = true
		}
	}
	return nil
}

// Walk visits every node depth-first. Depth starts at 1 for top-level
// sections.
func (t *TOC) Walk(fn func(n *TOCNode, depth int)) {
	if t == nil {
		return
	}
	var walk func(nodes []*TOCNode, depth int)
	walk = func(nodes []*TOCNode, depth int) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			fn(n, depth)
			walk(n.Sections, depth+1)
		}
	}
	walk(t.Sections, 1)
}

// ParseTOC decodes toc.yaml content.
func ParseTOC(data []byte) (*TOC, error) {
	var toc TOC
	if err := yaml.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTOC, err)
	}
	return &toc, nil
}

// ReadTOC loads a toc.yaml file. A missing file returns (nil, nil).
func ReadTOC(path string) (*TOC, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseTOC(data)
}

// ErrBadTOC is returned for toc.yaml content that does not parse.
var ErrBadTOC = errors.New("badly formed toc")

// MarshalYAML encodes a section, keeping an explicitly empty sections list.
func (n *TOCNode) MarshalYAML() (any, error) {
	if n.HasSections && len(n.Sections) == 0 {
		return struct {
			Title    string     `yaml:"title"`
			Link     string     `yaml:"link,omitempty"`
			Sections []*TOCNode `yaml:"sections"`
		}{n.Title, n.Link, []*TOCNode{}}, nil
	}
	return struct {
		Title    string     `yaml:"title"`
		Link     string     `yaml:"link,omitempty"`
		Sections []*TOCNode `yaml:"sections,omitempty"`
	}{n.Title, n.Link, n.Sections}, nil
}

// Marshal encodes the table of contents as toc.yaml content.
func (t *TOC) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode toc: %w", err)
	}
	return data, nil
}
