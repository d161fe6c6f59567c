// Package completion decides when the asynchronous lint and convert results
// for a commit are all present in the object store, merges them into one
// build log, and records the commit in the repository's project.json.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/unfoldingWord/door43-job-handler/internal/buildlog"
	"github.com/unfoldingWord/door43-job-handler/internal/storage"
)

// Object names under a part (or single-part commit) prefix.
const (
	FinishedKey      = "finished"
	ConvertLogKey    = "convert_log.json"
	LintLogKey       = "lint_log.json"
	MergedKey        = "merged.json"
	BuildLogKey      = "build_log.json"
	FinalBuildLogKey = "final_build_log.json"
	ProjectKey       = "project.json"
)

// Outcome is the result of a readiness check. A failure is never an
// Outcome: it is returned as an error alongside NotReady.
type Outcome int

const (
	NotReady Outcome = iota
	Ready
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case NotReady:
		return "not_ready"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Config holds the protocol settings.
type Config struct {
	// LintRetryDelay is how long to wait before looking for a lint log
	// again. The wait is not cut short by cancellation.
	LintRetryDelay time.Duration
	// LintRetryAttempts is the number of extra looks after the first.
	LintRetryAttempts uint
	// BuildLogCacheSeconds is the cache lifetime of published build logs.
	BuildLogCacheSeconds int
	// DCSURL is the git host base URL recorded in project.json.
	DCSURL string
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		LintRetryDelay:       2 * time.Second,
		LintRetryAttempts:    1,
		BuildLogCacheSeconds: 600,
		DCSURL:               "https://git.door43.org",
	}
}

// Protocol merges stage logs found in the converted-output store. The
// site store, when different, also receives project.json.
type Protocol struct {
	cdn    storage.Store
	site   storage.Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a protocol over cdn. A nil site store means cdn serves both.
func New(cdn, site storage.Store, cfg Config, logger *slog.Logger) *Protocol {
	if logger == nil {
		logger = slog.Default()
	}
	if site == nil {
		site = cdn
	}
	return &Protocol{cdn: cdn, site: site, cfg: cfg, logger: logger, now: time.Now}
}

// readLog loads and validates a build log object.
func (p *Protocol) readLog(ctx context.Context, key string) (*buildlog.BuildLog, error) {
	data, err := p.cdn.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return buildlog.Parse(data)
}

// MergeForPart folds the results stored under prefix into cumulative. It
// returns NotReady, with cumulative unchanged, until the part is finished
// and both of its stage logs can be read.
func (p *Protocol) MergeForPart(ctx context.Context, prefix string, cumulative *buildlog.BuildLog) (Outcome, *buildlog.BuildLog, error) {
	logger := p.logger.With("prefix", prefix)

	mergedKey := path.Join(prefix, MergedKey)
	merged, err := p.readLog(ctx, mergedKey)
	switch {
	case err == nil:
		logger.Debug("part already merged")
		return Ready, buildlog.Merge(cumulative, merged, true), nil
	case !errors.Is(err, storage.ErrNotFound):
		logger.Warn("failed to read merged log", "error", err)
		return NotReady, cumulative, nil
	}

	finished, err := p.cdn.Exists(ctx, path.Join(prefix, FinishedKey))
	if err != nil {
		logger.Warn("failed to check finished marker", "error", err)
		return NotReady, cumulative, nil
	}
	if !finished {
		logger.Debug("part not finished")
		return NotReady, cumulative, nil
	}

	convert, err := p.readLog(ctx, path.Join(prefix, ConvertLogKey))
	if err != nil {
		logger.Warn("failed to read convert log", "error", err)
		return NotReady, cumulative, nil
	}
	lint, err := p.lintLog(ctx, path.Join(prefix, LintLogKey))
	if err != nil {
		logger.Warn("failed to read lint log", "error", err)
		return NotReady, cumulative, nil
	}

	merged = buildlog.Merge(convert, lint, false)
	if err := p.cdn.PutJSON(ctx, mergedKey, merged, 0); err != nil {
		return NotReady, cumulative, fmt.Errorf("failed to write merged log: %w", err)
	}
	if err := p.cdn.PutJSON(ctx, path.Join(prefix, BuildLogKey), merged, p.cfg.BuildLogCacheSeconds); err != nil {
		return NotReady, cumulative, fmt.Errorf("failed to write build log: %w", err)
	}
	logger.Info("part merged", "errors", len(merged.Errors), "warnings", len(merged.Warnings))
	return Ready, buildlog.Merge(cumulative, merged, true), nil
}

// lintLog reads the lint log, looking again after the configured delay
// while it is missing. The delay always runs to completion.
func (p *Protocol) lintLog(ctx context.Context, key string) (*buildlog.BuildLog, error) {
	var lint *buildlog.BuildLog
	err := retry.Do(
		func() error {
			var err error
			lint, err = p.readLog(ctx, key)
			return err
		},
		retry.Context(context.WithoutCancel(ctx)),
		retry.Attempts(p.cfg.LintRetryAttempts+1),
		retry.Delay(p.cfg.LintRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, storage.ErrNotFound) }),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug("lint log missing, retrying", "key", key, "attempt", n+1)
		}),
	)
	if err != nil {
		return nil, err
	}
	return lint, nil
}

// DeployIfConversionFinished merges every part of the job identified by
// identifier under commitPrefix into base. Only when all parts are ready
// is the final build log computed and published; otherwise nothing is
// written for the whole.
func (p *Protocol) DeployIfConversionFinished(ctx context.Context, commitPrefix, identifier string, base *buildlog.BuildLog) (Outcome, *buildlog.BuildLog, error) {
	id, err := buildlog.ParseIdentifier(identifier)
	if err != nil {
		return NotReady, nil, err
	}

	final := base.Clone()
	if final == nil {
		final = &buildlog.BuildLog{}
	}
	if id.Multipart {
		var outcome Outcome
		for i := 0; i < id.PartCount; i++ {
			outcome, final, err = p.MergeForPart(ctx, path.Join(commitPrefix, strconv.Itoa(i)), final)
			if err != nil || outcome != Ready {
				p.logger.Info("conversion not finished", "identifier", identifier, "part", i)
				return NotReady, nil, err
			}
		}
	} else {
		var outcome Outcome
		outcome, final, err = p.MergeForPart(ctx, commitPrefix, final)
		if err != nil || outcome != Ready {
			return NotReady, nil, err
		}
	}

	final.FinalizeStatus()
	final.Stamp(p.now())
	if id.Multipart {
		final.Multiple = true
	}
	if err := final.Validate(); err != nil {
		return NotReady, nil, fmt.Errorf("failed to validate final build log: %w", err)
	}
	if err := p.cdn.PutJSON(ctx, path.Join(commitPrefix, FinalBuildLogKey), final, 0); err != nil {
		return NotReady, nil, fmt.Errorf("failed to write final build log: %w", err)
	}
	if !id.Multipart {
		if err := p.cdn.PutJSON(ctx, path.Join(commitPrefix, BuildLogKey), final, p.cfg.BuildLogCacheSeconds); err != nil {
			return NotReady, nil, fmt.Errorf("failed to write build log: %w", err)
		}
	}
	if err := p.UpdateProjectFile(ctx, final); err != nil {
		return NotReady, nil, err
	}
	p.logger.Info("conversion finished",
		"identifier", identifier,
		"status", final.Status,
		"errors", len(final.Errors),
		"warnings", len(final.Warnings))
	return Ready, final, nil
}
