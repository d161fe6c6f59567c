package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unfoldingWord/door43-job-handler/internal/home"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Site.DCSURL != "https://git.door43.org" {
		t.Errorf("expected default dcs_url, got %s", cfg.Site.DCSURL)
	}
	if cfg.Deploy.TemplateKey != "templates/project-page.html" {
		t.Errorf("expected default template key, got %s", cfg.Deploy.TemplateKey)
	}

	cc, err := cfg.ToCompletionConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cc.LintRetryDelay != 2*time.Second || cc.LintRetryAttempts != 1 {
		t.Errorf("unexpected completion config: %+v", cc)
	}
	if cc.BuildLogCacheSeconds != 600 {
		t.Errorf("expected 600 cache seconds, got %d", cc.BuildLogCacheSeconds)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_DOOR43_ROOT", "/srv/cdn")

		result := ResolveEnvVars("${TEST_DOOR43_ROOT}/u")
		if result != "/srv/cdn/u" {
			t.Errorf("expected /srv/cdn/u, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_StorageRoots(t *testing.T) {
	h, _ := home.New("/tmp/door43-home")

	t.Run("falls back to home", func(t *testing.T) {
		cdn, site := DefaultConfig().StorageRoots(h)
		if cdn != h.CDNPath() || site != h.SitePath() {
			t.Errorf("expected home store roots, got %s and %s", cdn, site)
		}
	})

	t.Run("resolves configured roots", func(t *testing.T) {
		t.Setenv("TEST_STORE_ROOT", "/srv")
		cfg := DefaultConfig()
		cfg.Storage.CDNRoot = "${TEST_STORE_ROOT}/cdn"
		cfg.Storage.Door43Root = "/srv/site"

		cdn, site := cfg.StorageRoots(h)
		if cdn != "/srv/cdn" || site != "/srv/site" {
			t.Errorf("expected configured roots, got %s and %s", cdn, site)
		}
	})
}

func TestConfig_ToCompletionConfig(t *testing.T) {
	t.Run("invalid delay", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Completion.LintRetryDelay = "soon"
		if _, err := cfg.ToCompletionConfig(); err == nil {
			t.Error("expected error for invalid delay")
		}
	})

	t.Run("negative delay", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Completion.LintRetryDelay = "-1s"
		if _, err := cfg.ToCompletionConfig(); err == nil {
			t.Error("expected error for negative delay")
		}
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Completion.LintRetryDelay = "250ms"
		cfg.Completion.LintRetryAttempts = 3
		cfg.Site.DCSURL = "https://example.org"

		cc, err := cfg.ToCompletionConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cc.LintRetryDelay != 250*time.Millisecond || cc.LintRetryAttempts != 3 || cc.DCSURL != "https://example.org" {
			t.Errorf("unexpected completion config: %+v", cc)
		}
	})
}

func TestConfig_ToDeployConfig(t *testing.T) {
	h, _ := home.New("/tmp/door43-home")
	cfg := DefaultConfig()
	cfg.Deploy.KeepTemp = true

	dc := cfg.ToDeployConfig(h)
	if dc.TemplateKey != "templates/project-page.html" {
		t.Errorf("unexpected template key %s", dc.TemplateKey)
	}
	if !dc.KeepTemp {
		t.Error("expected keep_temp to carry over")
	}
	if dc.TempRoot != h.TempPath() {
		t.Errorf("expected temp root %s, got %s", h.TempPath(), dc.TempRoot)
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "DEBUG",
		"WARN":  "WARN",
		"error": "ERROR",
		"":      "INFO",
		"loud":  "INFO",
	}
	for in, want := range tests {
		cfg := &Config{Log: LogConfig{Level: in}}
		if got := cfg.SlogLevel().String(); got != want {
			t.Errorf("SlogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
site:
  dcs_url: "https://example.org"
completion:
  lint_retry_delay: "5s"
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Site.DCSURL != "https://example.org" {
			t.Errorf("expected https://example.org, got %s", cfg.Site.DCSURL)
		}
		if cfg.Completion.LintRetryDelay != "5s" {
			t.Errorf("expected 5s, got %s", cfg.Completion.LintRetryDelay)
		}
		if cfg.Deploy.BuildLogCacheSeconds != 600 {
			t.Errorf("expected default 600, got %d", cfg.Deploy.BuildLogCacheSeconds)
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("expected config file %s, got %s", configFile, mgr.ConfigFile())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DOOR43_LOG_LEVEL", "debug")
		configFile := writeConfig(t, "log:\n  level: warn\n")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Log.Level; got != "debug" {
			t.Errorf("expected debug from environment, got %s", got)
		}
	})

	t.Run("rejects bad delay", func(t *testing.T) {
		configFile := writeConfig(t, "completion:\n  lint_retry_delay: later\n")
		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for bad delay")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Log.Level
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "log:\n  level: info\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Log.Level)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}
	if got := mgr.Get().Log.Level; got != "debug" {
		t.Errorf("config not updated: expected debug, got %s", got)
	}
	if v := lastValue.Load(); v != "debug" {
		t.Errorf("callback received wrong value: expected debug, got %v", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written config: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Site.Host != "git.door43.org" {
		t.Errorf("expected default host, got %s", cfg.Site.Host)
	}
	if cfg.Completion.LintRetryAttempts != 1 {
		t.Errorf("expected 1 retry, got %d", cfg.Completion.LintRetryAttempts)
	}
}
