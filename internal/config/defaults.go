package config

import (
	"errors"
	"fmt"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// Entry is a single configuration key with its default.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns every known configuration key with its default
// value, in the order they appear in the config file.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// Storage
		{
			Key:         "storage.cdn_root",
			Value:       d.Storage.CDNRoot,
			Description: "Root of the converted-output store (empty uses ~/.door43/storage/cdn)",
		},
		{
			Key:         "storage.door43_root",
			Value:       d.Storage.Door43Root,
			Description: "Root of the website store (empty uses ~/.door43/storage/door43)",
		},

		// Site
		{
			Key:         "site.dcs_url",
			Value:       d.Site.DCSURL,
			Description: "Base URL of the git host, recorded in project.json",
		},
		{
			Key:         "site.host",
			Value:       d.Site.Host,
			Description: "Git host name used when rewriting links",
		},

		// Completion
		{
			Key:         "completion.lint_retry_delay",
			Value:       d.Completion.LintRetryDelay,
			Description: "Wait before looking for a missing lint log again",
		},
		{
			Key:         "completion.lint_retry_attempts",
			Value:       d.Completion.LintRetryAttempts,
			Description: "Extra looks for a missing lint log",
		},

		// Deploy
		{
			Key:         "deploy.template_key",
			Value:       d.Deploy.TemplateKey,
			Description: "Website store key of the project page template",
		},
		{
			Key:         "deploy.keep_temp",
			Value:       d.Deploy.KeepTemp,
			Description: "Keep deploy working directories for debugging",
		},
		{
			Key:         "deploy.build_log_cache_seconds",
			Value:       d.Deploy.BuildLogCacheSeconds,
			Description: "Cache lifetime of published build logs",
		},

		// Log
		{
			Key:         "log.level",
			Value:       d.Log.Level,
			Description: "Log level: debug, info, warn or error",
		},
		{
			Key:         "log.format",
			Value:       d.Log.Format,
			Description: "Log format: text or json",
		},
	}
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// DefaultValue returns the default for key or ErrNoDefault.
func DefaultValue(key string) (any, error) {
	def := GetDefault(key)
	if def == nil {
		return nil, fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return def.Value, nil
}
