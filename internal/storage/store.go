// Package storage is the object store the pipeline publishes through.
// Keys are slash-separated paths such as "u/owner/repo/commit/index.html".
// Every object carries a cache lifetime and may instead be a redirect to
// another location.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when a key holds no object.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for empty keys or keys that escape the store.
	ErrInvalidKey = errors.New("invalid object key")
)

// Reader reads objects.
type Reader interface {
	// Get returns the object body or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetJSON decodes the object body into v.
	GetJSON(ctx context.Context, key string, v any) error

	// Exists reports whether key holds an object.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every key starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Writer creates, copies and removes objects. Every write overwrites.
type Writer interface {
	Put(ctx context.Context, key string, data []byte, cacheSeconds int) error
	PutJSON(ctx context.Context, key string, v any, cacheSeconds int) error
	UploadFile(ctx context.Context, localPath, key string, cacheSeconds int) error
	Copy(ctx context.Context, fromKey, toKey string) error
	// Redirect stores an empty object that points browsers at location.
	Redirect(ctx context.Context, key, location string) error
	// Delete removes one object. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Store is a full read/write object store.
type Store interface {
	Reader
	Writer
}

// Meta is the metadata kept beside each object.
type Meta struct {
	ContentType  string `json:"content_type,omitempty"`
	CacheSeconds int    `json:"cache_seconds"`
	Redirect     string `json:"redirect,omitempty"`
}

// CacheControl renders the cache lifetime as an HTTP header value.
func (m Meta) CacheControl() string {
	return fmt.Sprintf("max-age=%d", m.CacheSeconds)
}

// Download copies the object at key into a local file.
func Download(ctx context.Context, r Reader, key, localPath string) error {
	data, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return nil
}

// UploadDir uploads every file below dir to prefix/<relative path>.
func UploadDir(ctx context.Context, w Writer, dir, prefix string, cacheSeconds int) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))
		if err := w.UploadFile(ctx, p, key, cacheSeconds); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to upload %s: %w", dir, err)
	}
	return count, nil
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return key, nil
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func decodeJSON(key string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return data, nil
}
