package config

import (
	"errors"
	"fmt"
	"sort"
	"unicode"
)

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrUnknownKey is returned for a well-formed key that is not a setting.
var ErrUnknownKey = errors.New("unknown config key")

// ErrNoConfigFile is returned by Set when there is no file to persist to.
var ErrNoConfigFile = errors.New("no config file in use")

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
// This protects against typos and malformed keys.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	// Don't allow keys starting or ending with dots
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

func checkKey(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if GetDefault(key) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// Value returns the effective value of a setting.
func (cm *Manager) Value(key string) (any, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.v.Get(key), nil
}

// All returns the effective value of every setting, sorted by key.
func (cm *Manager) All() []Entry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	entries := DefaultEntries()
	for i := range entries {
		entries[i].Value = cm.v.Get(entries[i].Key)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Set changes a setting, writes the config file and notifies callbacks.
func (cm *Manager) Set(key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if cm.ConfigFile() == "" {
		return ErrNoConfigFile
	}
	cm.mu.Lock()
	cm.v.Set(key, value)
	err := cm.v.WriteConfig()
	cm.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	cm.reload()
	return nil
}

// Reset restores a setting to its default.
func (cm *Manager) Reset(key string) error {
	value, err := DefaultValue(key)
	if err != nil {
		return err
	}
	return cm.Set(key, value)
}
