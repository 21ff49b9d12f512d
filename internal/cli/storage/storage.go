// Package storage provides the string-keyed persistence the CLI keeps its
// credentials in between invocations.
package storage

import (
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	KindKeyring = "keyring"
	KindFile    = "file"
	KindMemory  = "memory"
)

// Backend is a process-wide key/value store.
type Backend interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// ValidKind reports an error for a backend name Open would reject.
func ValidKind(kind string) error {
	switch strings.ToLower(kind) {
	case KindKeyring, KindFile, KindMemory:
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q (want %s, %s or %s)", kind, KindKeyring, KindFile, KindMemory)
	}
}

// Open returns the backend named kind. path is only used by the file backend;
// an empty path selects the default location.
func Open(kind, path string) (Backend, error) {
	switch strings.ToLower(kind) {
	case KindKeyring:
		return NewKeyring(DefaultKeyringService), nil
	case KindFile:
		if path == "" {
			p, err := DefaultFilePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return NewFile(path), nil
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, ValidKind(kind)
	}
}
