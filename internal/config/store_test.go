package config

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid simple key", "foo", false},
		{"valid dotted key", "completion.lint_retry_delay", false},
		{"valid with underscore", "deploy.keep_temp", false},
		{"valid with hyphen", "my-setting", false},
		{"valid with numbers", "store1.root2", false},
		{"empty key", "", true},
		{"starts with dot", ".foo", true},
		{"ends with dot", "foo.", true},
		{"contains space", "foo bar", true},
		{"contains special char", "foo@bar", true},
		{"contains slash", "foo/bar", true},
		{"contains colon", "foo:bar", true},
		{"contains quote", "foo\"bar", true},
		{"contains curly brace", "foo{bar}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ValidateKey(%q) error should wrap ErrInvalidKey, got %v", tt.key, err)
			}
		})
	}
}

func TestManager_Value(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "deploy:\n  keep_temp: true\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	t.Run("configured", func(t *testing.T) {
		v, err := mgr.Value("deploy.keep_temp")
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if v != true {
			t.Errorf("Value() = %v, want true", v)
		}
	})

	t.Run("default", func(t *testing.T) {
		v, err := mgr.Value("deploy.template_key")
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if v != "templates/project-page.html" {
			t.Errorf("Value() = %v, want default template key", v)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := mgr.Value("deploy.nothing")
		if !errors.Is(err, ErrUnknownKey) {
			t.Errorf("Value() error = %v, want ErrUnknownKey", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := mgr.Value("deploy/keep_temp")
		if !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Value() error = %v, want ErrInvalidKey", err)
		}
	})
}

func TestManager_All(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  format: json\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	entries := mgr.All()
	if len(entries) != len(DefaultEntries()) {
		t.Fatalf("All() returned %d entries, want %d", len(entries), len(DefaultEntries()))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key > entries[i].Key {
			t.Errorf("All() not sorted at %s", entries[i].Key)
		}
	}
	for _, e := range entries {
		if e.Key == "log.format" && e.Value != "json" {
			t.Errorf("log.format = %v, want json", e.Value)
		}
	}
}

func TestManager_Set(t *testing.T) {
	configFile := writeConfig(t, "log:\n  level: info\n")
	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var seen string
	mgr.OnChange(func(cfg *Config) { seen = cfg.Completion.LintRetryDelay })

	if err := mgr.Set("completion.lint_retry_delay", "3s"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := mgr.Get().Completion.LintRetryDelay; got != "3s" {
		t.Errorf("LintRetryDelay = %s, want 3s", got)
	}
	if seen != "3s" {
		t.Errorf("callback saw %q, want 3s", seen)
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if !strings.Contains(string(data), "3s") {
		t.Errorf("config file not updated:\n%s", data)
	}

	if err := mgr.Reset("completion.lint_retry_delay"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if got := mgr.Get().Completion.LintRetryDelay; got != "2s" {
		t.Errorf("LintRetryDelay after reset = %s, want 2s", got)
	}

	if err := mgr.Set("nope.key", "x"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set() error = %v, want ErrUnknownKey", err)
	}
}

func TestManager_SetWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	mgr, err := NewManager("")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if mgr.ConfigFile() != "" {
		t.Skipf("found config file %s", mgr.ConfigFile())
	}
	if err := mgr.Set("log.level", "debug"); !errors.Is(err, ErrNoConfigFile) {
		t.Errorf("Set() error = %v, want ErrNoConfigFile", err)
	}
}
