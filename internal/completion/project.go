package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/unfoldingWord/door43-job-handler/internal/buildlog"
	"github.com/unfoldingWord/door43-job-handler/internal/schema"
	"github.com/unfoldingWord/door43-job-handler/internal/storage"
)

// Commit types recorded in project.json.
const (
	TypeHash     = "hash"
	TypeArtifact = "artifact"
	TypeUnknown  = "unknown"
)

// projectCacheSeconds is the cache lifetime of project.json.
const projectCacheSeconds = 1

// missingJobIDLimit is the number of commits without a job id tolerated
// before it is worth a warning.
const missingJobIDLimit = 10

// Project is the project.json read by the project page to list revisions.
type Project struct {
	User    string   `json:"user"`
	Repo    string   `json:"repo"`
	RepoURL string   `json:"repo_url,omitempty"`
	Commits []Commit `json:"commits"`
}

// Commit is one revision entry in project.json.
type Commit struct {
	ID         string  `json:"id"`
	JobID      string  `json:"job_id,omitempty"`
	Type       string  `json:"type,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
	Status     *string `json:"status"`
	Success    bool    `json:"success"`
	PDFStatus  *string `json:"pdf_status"`
	PDFSuccess bool    `json:"pdf_success"`
	PDFZipURL  *string `json:"pdf_zip_url"`
	CommitHash string  `json:"commit_hash,omitempty"`
}

// commitType guesses the type of a commit entry from its id.
func commitType(id string) string {
	switch {
	case isShortHash(id):
		return TypeHash
	case id == "latest" || id == "OhDear":
		return TypeArtifact
	default:
		return TypeUnknown
	}
}

func isShortHash(s string) bool {
	if len(s) != 10 {
		return false
	}
	return strings.Trim(s, "0123456789abcdef") == ""
}

// ReadProject loads project.json for the repository prefix from the site
// store. A missing file gives an empty project.
func (p *Protocol) ReadProject(ctx context.Context, repoPrefix string) (*Project, error) {
	var proj Project
	data, err := p.site.Get(ctx, path.Join(repoPrefix, ProjectKey))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &proj, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("failed to decode project file: %w", err)
	}
	return &proj, nil
}

// UpdateProjectFile records the commit described by b in the repository's
// project.json and writes it to both stores. The current commit always
// ends up last in the list.
func (p *Protocol) UpdateProjectFile(ctx context.Context, b *buildlog.BuildLog) error {
	repoPrefix := b.RepoPrefix()
	logger := p.logger.With("repo", repoPrefix, "commit", b.CommitID)

	proj, err := p.ReadProject(ctx, repoPrefix)
	if err != nil {
		return err
	}
	proj.User = b.RepoOwnerUsername
	proj.Repo = b.RepoName
	proj.RepoURL = fmt.Sprintf("%s/%s/%s", strings.TrimRight(p.cfg.DCSURL, "/"), b.RepoOwnerUsername, b.RepoName)

	current := Commit{ID: b.CommitID}
	commits := make([]Commit, 0, len(proj.Commits)+1)
	missing := 0
	for _, c := range proj.Commits {
		if c.ID == b.CommitID {
			current = c
			continue
		}
		if c.JobID == "" {
			c.JobID = p.jobIDFromBuildLog(ctx, path.Join(repoPrefix, c.ID))
			if c.JobID == "" {
				missing++
			}
		}
		if c.Type == "" {
			c.Type = commitType(c.ID)
		}
		commits = append(commits, c)
	}
	if missing > missingJobIDLimit {
		logger.Warn("commits without a job id", "missing", missing, "commits", len(commits))
	}

	current.JobID = b.JobID
	current.Type = b.CommitType
	current.CreatedAt = b.CreatedAt
	status := b.Status
	switch b.OutputFormat {
	case "html":
		current.Status = &status
		current.Success = b.Succeeded()
	case "pdf":
		zip := fmt.Sprintf("%s_%s.zip", b.RepoName, b.CommitID)
		current.PDFStatus = &status
		current.PDFSuccess = b.Succeeded()
		current.PDFZipURL = &zip
	}
	if b.CommitHash != "" {
		current.CommitHash = b.CommitHash
	}
	proj.Commits = append(commits, current)

	if err := schema.ValidateValue(schema.Project, proj); err != nil {
		return fmt.Errorf("failed to validate project file: %w", err)
	}
	key := path.Join(repoPrefix, ProjectKey)
	if err := p.site.PutJSON(ctx, key, proj, projectCacheSeconds); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	if p.cdn != p.site {
		if err := p.cdn.PutJSON(ctx, key, proj, projectCacheSeconds); err != nil {
			return fmt.Errorf("failed to write project file: %w", err)
		}
	}
	logger.Info("project file updated", "commits", len(proj.Commits))
	return nil
}

// jobIDFromBuildLog looks up the job id recorded in a commit's published
// build log, or "" when there is none.
func (p *Protocol) jobIDFromBuildLog(ctx context.Context, commitPrefix string) string {
	var b struct {
		JobID string `json:"job_id"`
	}
	if err := p.cdn.GetJSON(ctx, path.Join(commitPrefix, BuildLogKey), &b); err != nil {
		p.logger.Debug("no job id for commit", "prefix", commitPrefix, "error", err)
		return ""
	}
	return b.JobID
}
