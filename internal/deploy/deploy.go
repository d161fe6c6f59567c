// Package deploy publishes one converted revision to the website store:
// it templates the converted pages, uploads them under the commit prefix
// and points the repository paths at the result.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/unfoldingWord/door43-job-handler/internal/buildlog"
	"github.com/unfoldingWord/door43-job-handler/internal/completion"
	"github.com/unfoldingWord/door43-job-handler/internal/document"
	"github.com/unfoldingWord/door43-job-handler/internal/home"
	"github.com/unfoldingWord/door43-job-handler/internal/storage"
	"github.com/unfoldingWord/door43-job-handler/internal/templater"
)

var (
	// ErrIncompleteBuildLog is returned when the build log does not name
	// an owner, repository and commit.
	ErrIncompleteBuildLog = errors.New("build log is missing repository fields")

	// ErrTemplaterPanic wraps a panic recovered from a templater run.
	ErrTemplaterPanic = errors.New("templater panicked")
)

// Object names written by a deploy.
const (
	IndexPage      = "index.html"
	BuildLogKey    = "build_log.json"
	DeployedKey    = "deployed"
	shellFilename  = "project-page.html"
	manifestYAML   = "manifest.yaml"
	manifestJSON   = "manifest.json"
	projectKey     = "project.json"
	projectSeconds = 1
)

// Config holds the deployer settings.
type Config struct {
	// TemplateKey is the website store key of the project page shell.
	TemplateKey string
	// TempRoot holds the per-job working directories. Empty means the
	// system temp directory.
	TempRoot string
	// KeepTemp leaves the working directory behind for debugging.
	KeepTemp bool
	// CacheSeconds is the cache lifetime of uploaded pages.
	CacheSeconds int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{TemplateKey: "templates/project-page.html"}
}

// TemplaterFactory builds the templater for a resource subject.
type TemplaterFactory func(subject string, opts templater.Options) (*templater.Templater, error)

// Deployer publishes converted revisions. The CDN store holds index.json
// and the deployed marker; the site store holds the pages.
type Deployer struct {
	cdn          storage.Store
	site         storage.Store
	cfg          Config
	newTemplater TemplaterFactory
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a deployer. A nil site store means cdn serves both, and a nil
// factory means templater.ForSubject.
func New(cdn, site storage.Store, cfg Config, factory TemplaterFactory, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	if site == nil {
		site = cdn
	}
	if factory == nil {
		factory = templater.ForSubject
	}
	return &Deployer{
		cdn:          cdn,
		site:         site,
		cfg:          cfg,
		newTemplater: factory,
		logger:       logger,
		now:          time.Now,
	}
}

// DeployRevision templates the pages in convertedDir and publishes them
// under b's commit prefix. Templater problems are appended to b.Warnings
// and b.EndedAt is stamped. A templating failure aborts the deploy before
// anything is uploaded.
func (d *Deployer) DeployRevision(ctx context.Context, b *buildlog.BuildLog, convertedDir string) error {
	if b == nil || b.RepoOwnerUsername == "" || b.RepoName == "" || b.CommitID == "" {
		return ErrIncompleteBuildLog
	}
	start := time.Now()
	commitPrefix := b.CommitPrefix()
	repoPrefix := b.RepoPrefix()
	logger := d.logger.With("commit", commitPrefix)

	workDir, err := home.JobDir(d.cfg.TempRoot, "deploy")
	if err != nil {
		return err
	}
	if d.cfg.KeepTemp {
		logger.Info("keeping deploy working directory", "dir", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}
	shellPath := filepath.Join(workDir, "template", shellFilename)
	outputDir := filepath.Join(workDir, "output")

	logger.Info("downloading project page template", "key", d.cfg.TemplateKey)
	if err := storage.Download(ctx, d.site, d.cfg.TemplateKey, shellPath); err != nil {
		return fmt.Errorf("failed to download template: %w", err)
	}

	pages, err := filepath.Glob(filepath.Join(convertedDir, "*.html"))
	if err != nil {
		return fmt.Errorf("failed to list converted pages: %w", err)
	}
	if len(pages) == 0 {
		logger.Warn("no html files to deploy, writing placeholder page")
		if err := writePlaceholder(convertedDir, b); err != nil {
			return err
		}
	}

	t, err := d.newTemplater(b.ResourceType, templater.Options{
		SourceDir: convertedDir,
		OutputDir: outputDir,
		ShellPath: shellPath,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create templater: %w", err)
	}
	err = d.runTemplater(ctx, t)
	b.Warnings = append(b.Warnings, t.Errors()...)
	if err != nil {
		logger.Error("failed to apply template", "resource_type", b.ResourceType, "error", err)
		return fmt.Errorf("failed to apply template: %w", err)
	}

	if err := d.publishIndex(ctx, commitPrefix, outputDir, t.Index()); err != nil {
		return err
	}
	target, err := backfillIndexPage(outputDir)
	if err != nil {
		return err
	}
	if err := copyAssets(convertedDir, outputDir); err != nil {
		return err
	}

	b.Stamp(d.now())
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode build log: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, BuildLogKey), data, 0o644); err != nil {
		return fmt.Errorf("failed to write build log: %w", err)
	}

	logger.Info("replacing published revision")
	if err := d.clearRevision(ctx, commitPrefix); err != nil {
		return fmt.Errorf("failed to clear %s: %w", commitPrefix, err)
	}
	n, err := storage.UploadDir(ctx, d.site, outputDir, commitPrefix, d.cfg.CacheSeconds)
	if err != nil {
		return err
	}

	if err := d.publishPointers(ctx, b.CommitID, commitPrefix, repoPrefix, target); err != nil {
		return err
	}
	if err := d.cdn.Put(ctx, path.Join(commitPrefix, DeployedKey), nil, 0); err != nil {
		return fmt.Errorf("failed to write deployed marker: %w", err)
	}
	logger.Info("revision deployed",
		"files", n,
		"redirect", target,
		"warnings", len(b.Warnings),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// completionObjects are the per-part objects the completion check reads.
// They share the commit prefix with the pages when one store plays both
// roles and must outlive a redeploy.
var completionObjects = map[string]bool{
	completion.FinishedKey:      true,
	completion.ConvertLogKey:    true,
	completion.LintLogKey:       true,
	completion.MergedKey:        true,
	completion.FinalBuildLogKey: true,
	DeployedKey:                 true,
}

// clearRevision removes the previously published files of a revision.
func (d *Deployer) clearRevision(ctx context.Context, commitPrefix string) error {
	if d.cdn != d.site {
		return d.site.DeletePrefix(ctx, commitPrefix+"/")
	}
	keys, err := d.site.List(ctx, commitPrefix+"/")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if completionObjects[path.Base(key)] {
			continue
		}
		if err := d.site.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// runTemplater runs t, turning a panic into an error logged with its stack.
func (d *Deployer) runTemplater(ctx context.Context, t *templater.Templater) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("templater panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrTemplaterPanic, r)
		}
	}()
	return t.Run(ctx)
}

// publishIndex merges the templater's index into the stored one and writes
// the result both to the output tree and the CDN store.
func (d *Deployer) publishIndex(ctx context.Context, commitPrefix, outputDir string, produced *document.Index) error {
	key := path.Join(commitPrefix, document.IndexFilename)
	ix := document.NewIndex()
	data, err := d.cdn.Get(ctx, key)
	switch {
	case err == nil:
		stored, err := document.ParseIndex(data)
		if err != nil {
			d.logger.Warn("ignoring badly formed stored index", "key", key, "error", err)
		} else {
			ix = stored
		}
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	ix.Merge(produced)

	if err := document.WriteIndex(outputDir, ix); err != nil {
		return err
	}
	if err := d.cdn.UploadFile(ctx, filepath.Join(outputDir, document.IndexFilename), key, 0); err != nil {
		return fmt.Errorf("failed to upload index: %w", err)
	}
	return nil
}

// publishPointers copies the repository files and writes the redirects
// that lead to the new revision.
func (d *Deployer) publishPointers(ctx context.Context, commitID, commitPrefix, repoPrefix, target string) error {
	if d.cdn != d.site {
		data, err := d.cdn.Get(ctx, path.Join(repoPrefix, projectKey))
		switch {
		case err == nil:
			if err := d.site.Put(ctx, path.Join(repoPrefix, projectKey), data, projectSeconds); err != nil {
				return fmt.Errorf("failed to copy project file: %w", err)
			}
		case errors.Is(err, storage.ErrNotFound):
			d.logger.Debug("no project file to copy", "repo", repoPrefix)
		default:
			return fmt.Errorf("failed to read project file: %w", err)
		}
	}
	d.copyManifest(ctx, commitPrefix, repoPrefix)

	location := "/" + path.Join(commitPrefix, target)
	masterExists, err := d.site.Exists(ctx, path.Join(repoPrefix, "master", IndexPage))
	if err != nil {
		return fmt.Errorf("failed to check master revision: %w", err)
	}
	mainExists, err := d.site.Exists(ctx, path.Join(repoPrefix, "main", IndexPage))
	if err != nil {
		return fmt.Errorf("failed to check main revision: %w", err)
	}
	redirects := []string{commitPrefix}
	if commitID == "master" || commitID == "main" || (!masterExists && !mainExists) {
		redirects = append(redirects, repoPrefix, path.Join(repoPrefix, IndexPage))
	}
	for _, key := range redirects {
		if err := d.site.Redirect(ctx, key, location); err != nil {
			return fmt.Errorf("failed to redirect %s: %w", key, err)
		}
	}
	return nil
}

// copyManifest copies the revision's manifest up to the repository prefix.
func (d *Deployer) copyManifest(ctx context.Context, commitPrefix, repoPrefix string) {
	for _, name := range []string{manifestYAML, manifestJSON} {
		err := d.site.Copy(ctx, path.Join(commitPrefix, name), path.Join(repoPrefix, name))
		if err == nil {
			return
		}
		if !errors.Is(err, storage.ErrNotFound) {
			d.logger.Warn("failed to copy manifest", "name", name, "error", err)
		}
	}
	d.logger.Debug("no manifest to copy", "commit", commitPrefix)
}

// writePlaceholder writes an index.html explaining why there is nothing
// to show.
func writePlaceholder(dir string, b *buildlog.BuildLog) error {
	var content strings.Builder
	if len(b.Errors) > 0 {
		content.WriteString(`<div style="text-align:center;margin-bottom:20px">`)
		content.WriteString(`<em class="fa fa-times-circle-o" style="font-size: 250px;font-weight: 300;color: red"></em><br/>`)
		content.WriteString(`<h2>Critical!</h2><h3>Here is what went wrong with this build:</h3></div>`)
		content.WriteString("<div><ul>")
		for _, e := range b.Errors {
			fmt.Fprintf(&content, "<li>%s</li>", html.EscapeString(e))
		}
		content.WriteString("</ul></div>")
	} else {
		fmt.Fprintf(&content, "<h1>%s</h1>", html.EscapeString(b.Message))
		fmt.Fprintf(&content, "<p><em>No content is available to show for %s.</em></p>", html.EscapeString(b.RepoName))
	}
	page := fmt.Sprintf(`<html lang="en"><head><title>%s</title></head><body><div id="content">%s</div></body></html>`,
		html.EscapeString(b.RepoName), content.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, IndexPage), []byte(page), 0o644); err != nil {
		return fmt.Errorf("failed to write placeholder page: %w", err)
	}
	return nil
}

// backfillIndexPage makes sure outputDir has an index.html, copying the
// first page in reading order when it does not. It returns the page the
// revision's paths should redirect to.
func backfillIndexPage(outputDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, "*.html"))
	if err != nil {
		return "", fmt.Errorf("failed to list templated pages: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		if name == IndexPage {
			return IndexPage, nil
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return IndexPage, nil
	}
	first := templater.SortBiblePages(names)[0]
	if err := copyFile(filepath.Join(outputDir, first), filepath.Join(outputDir, IndexPage)); err != nil {
		return "", err
	}
	return first, nil
}

// copyAssets copies the files beside the converted pages that templating
// did not produce.
func copyAssets(srcDir, outputDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", srcDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		dst := filepath.Join(outputDir, e.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := copyFile(filepath.Join(srcDir, e.Name()), dst); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
