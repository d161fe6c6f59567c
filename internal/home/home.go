package home

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// DefaultDirName is the default name for the door43 home directory.
	DefaultDirName = ".door43"

	// StorageDirName is the subdirectory for the filesystem object stores.
	StorageDirName = "storage"

	// TempDirName is the subdirectory for per-job working directories.
	TempDirName = "tmp"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Store subdirectories under StoragePath.
const (
	CDNStoreName  = "cdn"
	SiteStoreName = "door43"
)

// Dir represents the door43 home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.door43).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// StoragePath returns the root of the filesystem object stores.
func (d *Dir) StoragePath() string {
	return filepath.Join(d.path, StorageDirName)
}

// CDNPath is the default root of the converted-output store.
func (d *Dir) CDNPath() string {
	return filepath.Join(d.StoragePath(), CDNStoreName)
}

// SitePath is the default root of the website store.
func (d *Dir) SitePath() string {
	return filepath.Join(d.StoragePath(), SiteStoreName)
}

// TempPath returns the directory holding per-job working directories.
func (d *Dir) TempPath() string {
	return filepath.Join(d.path, TempDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.CDNPath(), d.SitePath(), d.TempPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// NewJobDir creates a fresh working directory under TempPath.
func (d *Dir) NewJobDir(prefix string) (string, error) {
	return JobDir(d.TempPath(), prefix)
}

// JobDir creates root/{prefix}_{uuid}. An empty root means the system
// temp directory.
func JobDir(root, prefix string) (string, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", prefix, uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job directory: %w", err)
	}
	return dir, nil
}
