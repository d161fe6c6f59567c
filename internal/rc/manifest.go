// Package rc reads a resource container: a repository directory described
// by a manifest (manifest.yaml, or one of several legacy JSON forms) that
// declares the resource, its language and its projects.
package rc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/unfoldingWord/door43-job-handler/internal/bible"
)

// manifestFiles lists the manifest forms in search order.
var manifestFiles = []string{"manifest.yaml", "manifest.json", "package.json", "project.json", "meta.json"}

// loadManifest returns the first manifest that exists and parses.
// Parse failures are reported in problems and the search continues.
func loadManifest(dir, repoName string) (manifest map[string]any, loaded bool, problems []string) {
	for _, name := range manifestFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("Unable to read '%s' in %s: %v", name, repoName, err))
			continue
		}
		m := map[string]any{}
		if strings.HasSuffix(name, ".yaml") {
			err = yaml.Unmarshal(data, &m)
		} else {
			err = json.Unmarshal(data, &m)
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("Badly formed '%s' in %s: %v", name, repoName, err))
			continue
		}
		if len(m) > 0 {
			return m, true, problems
		}
	}
	return manifestFromRepoName(repoName), false, problems
}

var repoNamePart = regexp.MustCompile(`[A-Za-z0-9]+`)

// manifestFromRepoName guesses a manifest from a name such as "en_gen_tn".
func manifestFromRepoName(repoName string) map[string]any {
	dc := map[string]any{}
	manifest := map[string]any{"dublin_core": dc}
	if repoName == "" {
		return manifest
	}

	var projects []any
	languageSet := false
	for _, part := range repoNamePart.FindAllString(repoName, -1) {
		if !languageSet && part == "en" {
			dc["language"] = map[string]any{"identifier": "en", "title": "English", "direction": "ltr"}
			languageSet = true
			continue
		}
		if b, ok := bible.Lookup(part); ok && b.Verses != nil {
			projects = append(projects, map[string]any{"identifier": b.Code, "title": b.Name})
		}
	}
	if len(projects) > 0 {
		manifest["projects"] = projects
	}

	switch {
	case strings.HasSuffix(repoName, "_ta") || strings.Contains(repoName, "_ta_l"):
		dc["subject"] = "Translation Academy"
	case strings.HasSuffix(repoName, "_tn") || strings.Contains(repoName, "_tn_l"):
		dc["subject"] = "Translation Notes"
	case strings.HasSuffix(repoName, "_tq") || strings.Contains(repoName, "_tq_l"):
		dc["subject"] = "Translation Questions"
		dc["format"] = "text/markdown"
	case strings.HasSuffix(repoName, "_tw") || strings.Contains(repoName, "_tw_l"):
		dc["subject"] = "Translation Words"
		dc["format"] = "text/markdown"
	}
	dc["identifier"] = repoName
	return manifest
}

// str returns the first non-empty string value among keys.
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case int, int64, float64:
			return fmt.Sprint(v)
		case time.Time:
			return v.Format("2006-01-02")
		}
	}
	return ""
}

func sub(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func list(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}
