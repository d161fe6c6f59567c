package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Ensure Memory implements the interface.
var _ Store = (*Memory)(nil)

type object struct {
	data []byte
	meta Meta
}

// Memory is an in-memory Store.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]object
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]object)}
}

// Get returns the object body.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), obj.data...), nil
}

// GetJSON decodes the object body into v.
func (m *Memory) GetJSON(ctx context.Context, key string, v any) error {
	data, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	return decodeJSON(key, data, v)
}

// Exists reports whether key holds an object.
func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// List returns the sorted keys under prefix.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimPrefix(prefix, "/")
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Meta returns the metadata stored with key.
func (m *Memory) Meta(_ context.Context, key string) (Meta, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Meta{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Meta{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return obj.meta, nil
}

// Put stores data at key.
func (m *Memory) Put(_ context.Context, key string, data []byte, cacheSeconds int) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{
		data: append([]byte(nil), data...),
		meta: Meta{ContentType: contentType(key), CacheSeconds: cacheSeconds},
	}
	return nil
}

// PutJSON encodes v and stores it at key.
func (m *Memory) PutJSON(ctx context.Context, key string, v any, cacheSeconds int) error {
	data, err := encodeJSON(v)
	if err != nil {
		return err
	}
	return m.Put(ctx, key, data, cacheSeconds)
}

// UploadFile stores the content of a local file at key.
func (m *Memory) UploadFile(ctx context.Context, localPath, key string, cacheSeconds int) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	return m.Put(ctx, key, data, cacheSeconds)
}

// Copy duplicates an object and its metadata.
func (m *Memory) Copy(_ context.Context, fromKey, toKey string) error {
	fromKey, err := cleanKey(fromKey)
	if err != nil {
		return err
	}
	toKey, err = cleanKey(toKey)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[fromKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, fromKey)
	}
	m.objects[toKey] = object{data: append([]byte(nil), obj.data...), meta: obj.meta}
	return nil
}

// Redirect stores an empty object redirecting to location.
func (m *Memory) Redirect(_ context.Context, key, location string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{meta: Meta{Redirect: location}}
	return nil
}

// Delete removes the object at key.
func (m *Memory) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// DeletePrefix removes every object whose key starts with prefix.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}
