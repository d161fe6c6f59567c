// Package schema holds the JSON Schemas for the objects this system
// persists to the object store and validates documents against them.
package schema

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Names of the registered schemas.
const (
	Index    = "index"
	BuildLog = "build_log"
	Project  = "project"
)

// Schema is a single JSON Schema document.
type Schema struct {
	Name   string // e.g. "build_log"
	Source string // raw JSON Schema
	Order  int
}

var registry = []Schema{
	{Name: Index, Order: 1},
	{Name: BuildLog, Order: 2},
	{Name: Project, Order: 3},
}

// All returns all schemas in registration order.
func All() ([]Schema, error) {
	schemas := make([]Schema, len(registry))
	copy(schemas, registry)

	for i := range schemas {
		content, err := schemaFS.ReadFile(filename(schemas[i].Name))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", schemas[i].Name, err)
		}
		schemas[i].Source = string(content)
	}

	sort.Slice(schemas, func(i, j int) bool {
		return schemas[i].Order < schemas[j].Order
	})
	return schemas, nil
}

// Get returns a single schema by name.
func Get(name string) (*Schema, error) {
	for _, s := range registry {
		if s.Name != name {
			continue
		}
		content, err := schemaFS.ReadFile(filename(s.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", s.Name, err)
		}
		return &Schema{Name: s.Name, Source: string(content), Order: s.Order}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
}

func filename(name string) string {
	return fmt.Sprintf("schemas/%s.json", strings.ToLower(name))
}
