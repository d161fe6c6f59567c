package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/unfoldingWord/door43-job-handler/internal/completion"
	"github.com/unfoldingWord/door43-job-handler/internal/deploy"
	"github.com/unfoldingWord/door43-job-handler/internal/home"
)

// Config holds door43 configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Site       SiteConfig       `mapstructure:"site" yaml:"site"`
	Completion CompletionConfig `mapstructure:"completion" yaml:"completion"`
	Deploy     DeployConfig     `mapstructure:"deploy" yaml:"deploy"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// StorageConfig locates the filesystem object stores. Empty roots fall
// back to the home directory.
type StorageConfig struct {
	CDNRoot    string `mapstructure:"cdn_root" yaml:"cdn_root"`       // converted output, logs and markers (supports ${ENV_VAR})
	Door43Root string `mapstructure:"door43_root" yaml:"door43_root"` // website pages and templates (supports ${ENV_VAR})
}

// SiteConfig describes the git host.
type SiteConfig struct {
	DCSURL string `mapstructure:"dcs_url" yaml:"dcs_url"`
	Host   string `mapstructure:"host" yaml:"host"`
}

// CompletionConfig tunes the completion protocol.
type CompletionConfig struct {
	LintRetryDelay    string `mapstructure:"lint_retry_delay" yaml:"lint_retry_delay"` // Go duration, e.g. "2s"
	LintRetryAttempts uint   `mapstructure:"lint_retry_attempts" yaml:"lint_retry_attempts"`
}

// DeployConfig tunes the deployer.
type DeployConfig struct {
	TemplateKey          string `mapstructure:"template_key" yaml:"template_key"`
	KeepTemp             bool   `mapstructure:"keep_temp" yaml:"keep_temp"`
	BuildLogCacheSeconds int    `mapstructure:"build_log_cache_seconds" yaml:"build_log_cache_seconds"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			DCSURL: "https://git.door43.org",
			Host:   "git.door43.org",
		},
		Completion: CompletionConfig{
			LintRetryDelay:    "2s",
			LintRetryAttempts: 1,
		},
		Deploy: DeployConfig{
			TemplateKey:          "templates/project-page.html",
			BuildLogCacheSeconds: 600,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// StorageRoots returns the CDN and website store roots, resolving
// ${ENV_VAR} references and falling back to the home directory.
func (c *Config) StorageRoots(h *home.Dir) (cdn, site string) {
	cdn = ResolveEnvVars(c.Storage.CDNRoot)
	if cdn == "" {
		cdn = h.CDNPath()
	}
	site = ResolveEnvVars(c.Storage.Door43Root)
	if site == "" {
		site = h.SitePath()
	}
	return cdn, site
}

// ToCompletionConfig converts the completion section for completion.New.
func (c *Config) ToCompletionConfig() (completion.Config, error) {
	cfg := completion.DefaultConfig()
	if c.Completion.LintRetryDelay != "" {
		d, err := time.ParseDuration(c.Completion.LintRetryDelay)
		if err != nil {
			return cfg, fmt.Errorf("invalid completion.lint_retry_delay: %w", err)
		}
		if d < 0 {
			return cfg, fmt.Errorf("invalid completion.lint_retry_delay: negative duration %s", d)
		}
		cfg.LintRetryDelay = d
	}
	cfg.LintRetryAttempts = c.Completion.LintRetryAttempts
	if c.Deploy.BuildLogCacheSeconds > 0 {
		cfg.BuildLogCacheSeconds = c.Deploy.BuildLogCacheSeconds
	}
	if c.Site.DCSURL != "" {
		cfg.DCSURL = c.Site.DCSURL
	}
	return cfg, nil
}

// ToDeployConfig converts the deploy section for deploy.New. Working
// directories go under the home temp path.
func (c *Config) ToDeployConfig(h *home.Dir) deploy.Config {
	cfg := deploy.DefaultConfig()
	if c.Deploy.TemplateKey != "" {
		cfg.TemplateKey = c.Deploy.TemplateKey
	}
	cfg.KeepTemp = c.Deploy.KeepTemp
	if h != nil {
		cfg.TempRoot = h.TempPath()
	}
	return cfg
}

// SlogLevel parses the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
