package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ensure FS implements the interface.
var _ Store = (*FS)(nil)

const metaDir = ".meta"

// FS is a Store backed by a directory. Object bodies live at root/<key>
// and each object has a JSON sidecar at root/.meta/<key>.json. Redirects
// exist only as sidecars so that a redirect key may also be a prefix of
// other objects.
type FS struct {
	root string
}

// NewFS returns a store rooted at root, creating the directory.
func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(filepath.Join(root, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FS{root: root}, nil
}

// Root returns the store directory.
func (s *FS) Root() string { return s.root }

func (s *FS) bodyPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FS) metaPath(key string) string {
	return filepath.Join(s.root, metaDir, filepath.FromSlash(key)+".json")
}

// Meta returns the metadata stored with key.
func (s *FS) Meta(_ context.Context, key string) (Meta, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Meta{}, err
	}
	return s.readMeta(key)
}

func (s *FS) readMeta(key string) (Meta, error) {
	var m Meta
	data, err := os.ReadFile(s.metaPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return m, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return m, fmt.Errorf("failed to read metadata for %s: %w", key, err)
	}
	return m, decodeJSON(key, data, &m)
}

func (s *FS) writeMeta(key string, m Meta) error {
	data, err := encodeJSON(m)
	if err != nil {
		return err
	}
	return writeFile(s.metaPath(key), data)
}

// Get returns the object body. A redirect has an empty body.
func (s *FS) Get(_ context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	m, err := s.readMeta(key)
	if err != nil {
		return nil, err
	}
	if m.Redirect != "" {
		return []byte{}, nil
	}
	data, err := os.ReadFile(s.bodyPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// GetJSON decodes the object body into v.
func (s *FS) GetJSON(ctx context.Context, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return decodeJSON(key, data, v)
}

// Exists reports whether key holds an object.
func (s *FS) Exists(_ context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(s.metaPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return true, nil
}

// List returns the sorted keys under prefix.
func (s *FS) List(_ context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimPrefix(prefix, "/")
	base := filepath.Join(s.root, metaDir)
	var keys []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Put stores data at key.
func (s *FS) Put(_ context.Context, key string, data []byte, cacheSeconds int) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := writeFile(s.bodyPath(key), data); err != nil {
		return err
	}
	return s.writeMeta(key, Meta{ContentType: contentType(key), CacheSeconds: cacheSeconds})
}

// PutJSON encodes v and stores it at key.
func (s *FS) PutJSON(ctx context.Context, key string, v any, cacheSeconds int) error {
	data, err := encodeJSON(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, key, data, cacheSeconds)
}

// UploadFile stores the content of a local file at key.
func (s *FS) UploadFile(ctx context.Context, localPath, key string, cacheSeconds int) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	return s.Put(ctx, key, data, cacheSeconds)
}

// Copy duplicates an object and its metadata.
func (s *FS) Copy(ctx context.Context, fromKey, toKey string) error {
	fromKey, err := cleanKey(fromKey)
	if err != nil {
		return err
	}
	toKey, err = cleanKey(toKey)
	if err != nil {
		return err
	}
	m, err := s.readMeta(fromKey)
	if err != nil {
		return err
	}
	if m.Redirect == "" {
		data, err := s.Get(ctx, fromKey)
		if err != nil {
			return err
		}
		if err := writeFile(s.bodyPath(toKey), data); err != nil {
			return err
		}
	}
	return s.writeMeta(toKey, m)
}

// Redirect records that key points at location.
func (s *FS) Redirect(_ context.Context, key, location string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if info, err := os.Stat(s.bodyPath(key)); err == nil && !info.IsDir() {
		if err := os.Remove(s.bodyPath(key)); err != nil {
			return fmt.Errorf("failed to replace %s: %w", key, err)
		}
	}
	return s.writeMeta(key, Meta{Redirect: location})
}

// DeletePrefix removes every object whose key starts with prefix.
func (s *FS) DeletePrefix(ctx context.Context, prefix string) error {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return err
	}
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.remove(key); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the object at key.
func (s *FS) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return s.remove(key)
}

func (s *FS) remove(key string) error {
	if err := os.Remove(s.metaPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	body := s.bodyPath(key)
	if info, err := os.Stat(body); err == nil && !info.IsDir() {
		if err := os.Remove(body); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
