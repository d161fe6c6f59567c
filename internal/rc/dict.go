package rc

// Manifest is the normalized manifest written next to preprocessed output.
type Manifest struct {
	DublinCore DublinCore        `yaml:"dublin_core" json:"dublin_core"`
	Checking   Checking          `yaml:"checking" json:"checking"`
	Projects   []ManifestProject `yaml:"projects" json:"projects"`
}

// DublinCore is the resource description section of a Manifest.
type DublinCore struct {
	Type        string   `yaml:"type" json:"type"`
	ConformsTo  string   `yaml:"conformsto" json:"conformsto"`
	Format      string   `yaml:"format" json:"format"`
	Identifier  string   `yaml:"identifier" json:"identifier"`
	Title       string   `yaml:"title" json:"title"`
	Subject     string   `yaml:"subject" json:"subject"`
	Description string   `yaml:"description" json:"description"`
	Language    Language `yaml:"language" json:"language"`
	Source      []any    `yaml:"source" json:"source"`
	Rights      string   `yaml:"rights" json:"rights"`
	Creator     string   `yaml:"creator" json:"creator"`
	Contributor []any    `yaml:"contributor" json:"contributor"`
	Relation    []any    `yaml:"relation" json:"relation"`
	Publisher   string   `yaml:"publisher" json:"publisher"`
	Issued      string   `yaml:"issued" json:"issued"`
	Modified    string   `yaml:"modified" json:"modified"`
	Version     string   `yaml:"version" json:"version"`
}

// Checking records who checked the resource and to what level.
type Checking struct {
	CheckingEntity any `yaml:"checking_entity" json:"checking_entity"`
	CheckingLevel  any `yaml:"checking_level" json:"checking_level"`
}

// ManifestProject is one project entry of a Manifest.
type ManifestProject struct {
	Categories    []any  `yaml:"categories" json:"categories"`
	Identifier    string `yaml:"identifier" json:"identifier"`
	Path          string `yaml:"path" json:"path"`
	Sort          string `yaml:"sort" json:"sort"`
	Title         string `yaml:"title" json:"title"`
	Versification string `yaml:"versification" json:"versification"`
}

// AsDict returns the container's manifest with every default filled in.
func (c *Container) AsDict() Manifest {
	r := c.resource
	m := Manifest{
		DublinCore: DublinCore{
			Type:        r.Type,
			ConformsTo:  r.ConformsTo,
			Format:      r.Format,
			Identifier:  r.Identifier,
			Title:       r.Title,
			Subject:     r.Subject,
			Description: r.Description,
			Language:    r.Language,
			Source:      nonNil(r.Source),
			Rights:      r.Rights,
			Creator:     r.Creator,
			Contributor: nonNil(r.Contributor),
			Relation:    nonNil(r.Relation),
			Publisher:   r.Publisher,
			Issued:      r.Issued,
			Modified:    r.Modified,
			Version:     r.Version,
		},
		Checking: Checking{
			CheckingEntity: []any{"Wycliffe Associates"},
			CheckingLevel:  "1",
		},
	}
	if checking := sub(c.manifest, "checking"); checking != nil {
		if v, ok := checking["checking_entity"]; ok {
			m.Checking.CheckingEntity = v
		}
		if v, ok := checking["checking_level"]; ok {
			m.Checking.CheckingLevel = v
		}
	}
	for _, p := range c.projects {
		m.Projects = append(m.Projects, ManifestProject{
			Categories:    p.Categories,
			Identifier:    p.Identifier,
			Path:          p.Path,
			Sort:          p.Sort,
			Title:         p.Title,
			Versification: p.Versification,
		})
	}
	return m
}

func nonNil(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}
