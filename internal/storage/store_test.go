package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metaStore interface {
	Store
	Meta(ctx context.Context, key string) (Meta, error)
}

func stores(t *testing.T) map[string]metaStore {
	t.Helper()
	fsStore, err := NewFS(t.TempDir())
	require.NoError(t, err)
	return map[string]metaStore{
		"memory": NewMemory(),
		"fs":     fsStore,
	}
}

func TestStorePutGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "u/o/r/c/index.html", []byte("<html/>"), 600))

			data, err := s.Get(ctx, "u/o/r/c/index.html")
			require.NoError(t, err)
			assert.Equal(t, "<html/>", string(data))

			meta, err := s.Meta(ctx, "u/o/r/c/index.html")
			require.NoError(t, err)
			assert.Equal(t, 600, meta.CacheSeconds)
			assert.Equal(t, "max-age=600", meta.CacheControl())
			assert.Contains(t, meta.ContentType, "text/html")

			ok, err := s.Exists(ctx, "u/o/r/c/index.html")
			require.NoError(t, err)
			assert.True(t, ok)

			_, err = s.Get(ctx, "u/o/r/c/missing.html")
			assert.True(t, errors.Is(err, ErrNotFound))
			ok, err = s.Exists(ctx, "u/o/r/c/missing.html")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreJSON(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := map[string]any{"success": true, "log": []any{"a"}}
			require.NoError(t, s.PutJSON(ctx, "p/build_log.json", in, 0))

			var out map[string]any
			require.NoError(t, s.GetJSON(ctx, "p/build_log.json", &out))
			assert.Equal(t, in, out)

			require.NoError(t, s.Put(ctx, "p/bad.json", []byte("{"), 0))
			assert.Error(t, s.GetJSON(ctx, "p/bad.json", &out))
		})
	}
}

func TestStoreRedirectUnderPrefix(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Put(ctx, "u/o/r/master/index.html", []byte("x"), 0))
			require.NoError(t, s.Redirect(ctx, "u/o/r", "/u/o/r/master/index.html"))
			require.NoError(t, s.Redirect(ctx, "u/o/r/index.html", "/u/o/r/master/index.html"))

			meta, err := s.Meta(ctx, "u/o/r")
			require.NoError(t, err)
			assert.Equal(t, "/u/o/r/master/index.html", meta.Redirect)

			data, err := s.Get(ctx, "u/o/r")
			require.NoError(t, err)
			assert.Empty(t, data)

			data, err = s.Get(ctx, "u/o/r/master/index.html")
			require.NoError(t, err)
			assert.Equal(t, "x", string(data))
		})
	}
}

func TestStoreListCopyDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, k := range []string{"u/o/r/c/b.html", "u/o/r/c/a.html", "u/o/r/c/sub/x.css", "u/o/r/d/a.html"} {
				require.NoError(t, s.Put(ctx, k, []byte(k), 0))
			}

			keys, err := s.List(ctx, "u/o/r/c/")
			require.NoError(t, err)
			assert.Equal(t, []string{"u/o/r/c/a.html", "u/o/r/c/b.html", "u/o/r/c/sub/x.css"}, keys)

			require.NoError(t, s.Copy(ctx, "u/o/r/c/a.html", "u/o/r/manifest.html"))
			data, err := s.Get(ctx, "u/o/r/manifest.html")
			require.NoError(t, err)
			assert.Equal(t, "u/o/r/c/a.html", string(data))

			require.NoError(t, s.Delete(ctx, "u/o/r/c/b.html"))
			require.NoError(t, s.Delete(ctx, "u/o/r/c/b.html"))
			keys, err = s.List(ctx, "u/o/r/c/")
			require.NoError(t, err)
			assert.Equal(t, []string{"u/o/r/c/a.html", "u/o/r/c/sub/x.css"}, keys)

			require.NoError(t, s.DeletePrefix(ctx, "u/o/r/c/"))
			keys, err = s.List(ctx, "u/o/r/")
			require.NoError(t, err)
			assert.Equal(t, []string{"u/o/r/d/a.html", "u/o/r/manifest.html"}, keys)

			err = s.Copy(ctx, "u/o/r/c/a.html", "x")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Put(context.Background(), "../etc/passwd", []byte("x"), 0)
			assert.True(t, errors.Is(err, ErrInvalidKey))
			_, err = s.Get(context.Background(), "")
			assert.True(t, errors.Is(err, ErrInvalidKey))
		})
	}
}

func TestUploadDirAndDownload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("home"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "site.css"), []byte("body{}"), 0o644))

	s := NewMemory()
	n, err := UploadDir(ctx, s, dir, "u/o/r/c", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := s.List(ctx, "u/o/r/c")
	require.NoError(t, err)
	assert.Equal(t, []string{"u/o/r/c/css/site.css", "u/o/r/c/index.html"}, keys)

	local := filepath.Join(t.TempDir(), "nested", "site.css")
	require.NoError(t, Download(ctx, s, "u/o/r/c/css/site.css", local))
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))
}
