package rc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unfoldingWord/door43-job-handler/internal/document"
)

// Language describes the language a resource is written in.
type Language struct {
	Identifier string `yaml:"identifier" json:"identifier"`
	Title      string `yaml:"title" json:"title"`
	Direction  string `yaml:"direction" json:"direction"`
}

// English is assumed when a manifest names no language.
var English = Language{Identifier: "en", Title: "English", Direction: "ltr"}

// Resource is the dublin_core section of a manifest with defaults applied.
type Resource struct {
	Identifier  string
	Title       string
	Subject     string
	Description string
	Type        string
	ConformsTo  string
	Format      string
	FileExt     string
	Language    Language
	Publisher   string
	Issued      string
	Modified    string
	Rights      string
	Creator     string
	Contributor []any
	Source      []any
	Relation    []any
	Version     string
}

// Project is one book or manual inside a container. Path is relative to
// the container directory.
type Project struct {
	Identifier    string
	Title         string
	Path          string
	Sort          string
	Versification string
	Categories    []any

	config    map[string]any
	configSet bool
	toc       *document.TOC
	tocSet    bool
}

// Container is a loaded resource container. It is read-only once loaded.
type Container struct {
	dir      string
	repoName string
	manifest map[string]any
	loaded   bool
	resource *Resource
	projects []*Project
	problems []string
	now      func() time.Time
}

// Load reads the container rooted at dir. An empty repoName defaults to
// the directory name.
func Load(dir, repoName string) (*Container, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open resource container: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resource container %s is not a directory", dir)
	}
	dir = strings.TrimRight(dir, "/")
	if repoName == "" {
		repoName = filepath.Base(dir)
	}
	c := &Container{dir: dir, repoName: repoName, now: time.Now}
	manifest, loaded, problems := loadManifest(dir, repoName)
	c.manifest = manifest
	c.loaded = loaded
	for _, p := range problems {
		c.addProblem(p)
	}
	c.build()
	return c, nil
}

// Path returns the container directory.
func (c *Container) Path() string { return c.dir }

// RepoName returns the repository name the container was loaded for.
func (c *Container) RepoName() string { return c.repoName }

// LoadedManifestFile reports whether a manifest file was found and parsed,
// as opposed to a manifest derived from the repository name.
func (c *Container) LoadedManifestFile() bool { return c.loaded }

// ErrorMessages returns problems met while reading manifest, config and
// toc files, without duplicates.
func (c *Container) ErrorMessages() []string {
	return append([]string(nil), c.problems...)
}

// Resource returns the resource description.
func (c *Container) Resource() *Resource { return c.resource }

// Projects returns the projects in manifest order. There is always at
// least one.
func (c *Container) Projects() []*Project { return c.projects }

// Project finds a project by identifier. An empty identifier selects the
// only project; with several projects it returns nil.
func (c *Container) Project(identifier string) *Project {
	if identifier == "" {
		if len(c.projects) == 1 {
			return c.projects[0]
		}
		return nil
	}
	for _, p := range c.projects {
		if p.Identifier == identifier {
			return p
		}
	}
	return nil
}

// ProjectIDs returns the project identifiers in manifest order.
func (c *Container) ProjectIDs() []string {
	ids := make([]string, 0, len(c.projects))
	for _, p := range c.projects {
		ids = append(ids, p.Identifier)
	}
	return ids
}

// ProjectDir returns the absolute directory of a project.
func (c *Container) ProjectDir(p *Project) string {
	return filepath.Join(c.dir, p.Path)
}

// Chapters lists the chapter directories of a project, ordered as if
// zero-filled to three characters. Directories without chunks are skipped.
func (c *Container) Chapters(identifier string) []string {
	p := c.Project(identifier)
	if p == nil {
		return nil
	}
	entries, err := os.ReadDir(c.ProjectDir(p))
	if err != nil {
		return nil
	}
	var chapters []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if len(c.Chunks(identifier, name)) > 0 {
			chapters = append(chapters, name)
		}
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		return zfill(chapters[i], 3) < zfill(chapters[j], 3)
	})
	return chapters
}

var chunkExts = map[string]bool{"": true, ".txt": true, ".text": true, ".md": true, ".usfm": true}

// Chunks lists the chunk files in a chapter directory, sorted by name.
func (c *Container) Chunks(identifier, chapter string) []string {
	p := c.Project(identifier)
	if p == nil {
		return nil
	}
	entries, err := os.ReadDir(filepath.Join(c.ProjectDir(p), chapter))
	if err != nil {
		return nil
	}
	var chunks []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !chunkExts[filepath.Ext(name)] {
			continue
		}
		chunks = append(chunks, name)
	}
	sort.Strings(chunks)
	return chunks
}

// USFMFiles lists the *.usfm files directly inside a project directory.
func (c *Container) USFMFiles(identifier string) []string {
	p := c.Project(identifier)
	if p == nil {
		return nil
	}
	return c.usfmFiles(p)
}

func (c *Container) usfmFiles(p *Project) []string {
	matches, _ := filepath.Glob(filepath.Join(c.ProjectDir(p), "*.usfm"))
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Base(m))
	}
	return files
}

// Config returns the project's config.yaml content, or nil when absent or
// badly formed. A badly formed file is recorded in ErrorMessages.
func (c *Container) Config(identifier string) map[string]any {
	p := c.Project(identifier)
	if p == nil {
		return nil
	}
	if p.configSet {
		return p.config
	}
	p.configSet = true
	data, err := os.ReadFile(filepath.Join(c.ProjectDir(p), "config.yaml"))
	if err != nil {
		return nil
	}
	cfg := map[string]any{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		c.addProblem(fmt.Sprintf("Badly formed 'config.yaml' in %s: %v", c.repoName, err))
		return nil
	}
	p.config = cfg
	return cfg
}

// TOC returns the project's toc.yaml tree, or nil when absent or badly
// formed. A badly formed file is recorded in ErrorMessages.
func (c *Container) TOC(identifier string) *document.TOC {
	p := c.Project(identifier)
	if p == nil {
		return nil
	}
	if p.tocSet {
		return p.toc
	}
	p.tocSet = true
	toc, err := document.ReadTOC(filepath.Join(c.ProjectDir(p), "toc.yaml"))
	if err != nil {
		c.addProblem(fmt.Sprintf("Badly formed 'toc.yaml' in %s: %v", c.repoName, err))
		return nil
	}
	p.toc = toc
	return toc
}

func (c *Container) addProblem(msg string) {
	for _, p := range c.problems {
		if p == msg {
			return
		}
	}
	c.problems = append(c.problems, msg)
}

func (c *Container) build() {
	res := c.resourceSection()

	r := &Resource{}
	r.Identifier = resourceIdentifier(res)
	r.Title = str(res, "title", "name")
	if r.Title == "" {
		r.Title = r.Identifier
	}
	r.Subject = strOr(res, "subject", r.Title)
	r.Description = strOr(res, "description", r.Title)
	r.ConformsTo = strOr(res, "conformsto", "pre-rc")
	r.Publisher = strOr(res, "publisher", "Door43")
	r.Rights = strOr(res, "rights", "CC BY-SA 4.0")
	r.Creator = strOr(res, "creator", "Unknown Creator")
	r.Version = strOr(res, "version", "1")
	r.Relation = list(res, "relation")
	r.Contributor = contributors(res)
	r.Source = sources(res)
	r.Language = c.language(res)
	today := c.now().UTC().Format("2006-01-02")
	r.Issued = str(res, "issued")
	if r.Issued == "" {
		r.Issued = str(sub(res, "status"), "pub_date")
	}
	if r.Issued == "" {
		r.Issued = today
	}
	r.Modified = strOr(res, "modified", today)
	c.resource = r

	c.projects = c.buildProjects()

	r.Format = c.format(res)
	r.FileExt = fileExt(r.Format, r.Identifier)
	switch t := res["type"].(type) {
	case string:
		r.Type = strings.ToLower(t)
	default:
		r.Type = "book"
		if r.FileExt == "usfm" && len(c.projects) > 0 && len(c.usfmFiles(c.projects[0])) > 0 {
			r.Type = "bundle"
		}
	}
}

func (c *Container) resourceSection() map[string]any {
	if dc := sub(c.manifest, "dublin_core"); len(dc) > 0 {
		return dc
	}
	if res := sub(c.manifest, "resource"); len(res) > 0 {
		_, hasID := res["id"]
		_, hasName := res["name"]
		if len(res) == 2 && hasID && hasName {
			c.manifest["id"] = res["id"]
			c.manifest["name"] = res["name"]
			return c.manifest
		}
		return res
	}
	return c.manifest
}

func resourceIdentifier(res map[string]any) string {
	if id := str(res, "identifier", "id"); id != "" {
		return strings.ToLower(id)
	}
	if id := str(sub(res, "type"), "id"); id != "" {
		return id
	}
	return strings.ToLower(str(res, "slug"))
}

func (c *Container) language(res map[string]any) Language {
	var lang map[string]any
	if l := sub(res, "language"); l != nil {
		lang = l
	} else if l := sub(res, "target_language"); len(l) > 0 {
		lang = l
	} else if l := sub(c.manifest, "target_language"); len(l) > 0 {
		lang = l
	}
	if lang == nil {
		return English
	}
	out := Language{
		Identifier: strings.ToLower(str(lang, "identifier", "slug", "id")),
		Title:      str(lang, "title", "name"),
		Direction:  str(lang, "direction", "dir"),
	}
	if out.Identifier == "" {
		out.Identifier = English.Identifier
	}
	if out.Title == "" {
		out.Title = English.Title
	}
	if out.Direction == "" {
		out.Direction = English.Direction
	}
	return out
}

func (c *Container) format(res map[string]any) string {
	if f := str(res, "format"); f != "" {
		if !strings.Contains(f, "/") {
			return "text/" + strings.ToLower(f)
		}
		return f
	}
	if f := str(res, "content_mime_type"); f != "" {
		return f
	}
	if f := str(c.manifest, "content_mime_type", "format"); f != "" {
		return f
	}
	if len(c.projects) > 0 && len(c.usfmFiles(c.projects[0])) > 0 {
		return "text/usfm"
	}
	return ""
}

func fileExt(format, identifier string) string {
	switch format {
	case "text/usx":
		return "usx"
	case "text/usfm", "text/usfm3":
		return "usfm"
	case "text/markdown":
		return "md"
	case "text/tsv":
		return "tsv"
	case "":
		if identifier == "bible" {
			return "usfm"
		}
	}
	return "txt"
}

func (c *Container) buildProjects() []*Project {
	var raw []map[string]any
	for _, p := range list(c.manifest, "projects") {
		if m, ok := p.(map[string]any); ok {
			raw = append(raw, m)
		}
	}
	if len(raw) == 0 {
		if m := sub(c.manifest, "project"); m != nil {
			raw = append(raw, m)
		}
	}
	if len(raw) == 0 {
		raw = append(raw, map[string]any{})
	}

	projects := make([]*Project, 0, len(raw))
	for _, m := range raw {
		projects = append(projects, c.newProject(m))
	}
	return projects
}

func (c *Container) newProject(m map[string]any) *Project {
	p := &Project{
		Sort:          strOr(m, "sort", "1"),
		Versification: strOr(m, "versification", "kjv"),
		Categories:    list(m, "categories"),
	}
	if p.Categories == nil {
		p.Categories = []any{}
	}
	if id := str(m, "identifier", "id", "project_id"); id != "" {
		p.Identifier = strings.ToLower(id)
	} else {
		p.Identifier = c.resource.Identifier
	}

	switch {
	case str(m, "path") != "":
		p.Path = str(m, "path")
	case isDir(filepath.Join(c.dir, "content")):
		p.Path = "./content"
	default:
		p.Path = "./"
	}

	p.Title = str(m, "title", "name")
	if p.Title == "" {
		p.Title = readTitle(filepath.Join(c.dir, p.Path, "title.txt"))
	}
	if p.Title == "" {
		p.Title = readTitle(filepath.Join(c.dir, "title.txt"))
	}
	if p.Title == "" {
		p.Title = c.resource.Title
	}
	return p
}

func contributors(res map[string]any) []any {
	if c := list(res, "contributor"); len(c) > 0 {
		return c
	}
	var out []any
	for _, t := range list(res, "translators") {
		switch v := t.(type) {
		case map[string]any:
			if name, ok := v["name"]; ok {
				out = append(out, name)
			}
		case string:
			out = append(out, v)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out
}

func sources(res map[string]any) []any {
	if s := list(res, "source"); len(s) > 0 {
		return s
	}
	sts := list(res, "source_translations")
	if len(sts) == 0 {
		sts = list(sub(res, "status"), "source_translations")
	}
	out := []any{}
	for _, st := range sts {
		m, ok := st.(map[string]any)
		if !ok {
			continue
		}
		src := map[string]any{}
		if id := str(m, "resource_id", "resource_slug"); id != "" {
			src["identifier"] = id
		}
		if lang := str(m, "language_id", "language_slug"); lang != "" {
			src["language"] = lang
		}
		if v := str(m, "version"); v != "" {
			src["version"] = v
		}
		if len(src) > 0 {
			out = append(out, src)
		}
	}
	return out
}

func strOr(m map[string]any, key, fallback string) string {
	if v := str(m, key); v != "" {
		return v
	}
	return fallback
}

func readTitle(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
