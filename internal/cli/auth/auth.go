// Package auth persists the CLI's bearer credential and the profile of the
// user it belongs to.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/qos-dev/qosdash/internal/cli/storage"
)

// Fixed storage keys. Both are written and cleared together.
const (
	TokenKey = "qos_access_token"
	UserKey  = "qos_user"
)

// ErrCorruptUser marks a stored profile that could not be trusted. It is only
// ever logged: Load recovers by discarding the whole credential.
var ErrCorruptUser = errors.New("stored user record is corrupt")

// TokenStore reads and writes the credential record over a storage backend.
type TokenStore struct {
	backend storage.Backend
	logger  zerolog.Logger
}

// NewTokenStore wraps backend. Corruption reports go to logger.
func NewTokenStore(backend storage.Backend, logger zerolog.Logger) *TokenStore {
	return &TokenStore{backend: backend, logger: logger}
}

// Save persists token and user, overwriting any previous credential.
func (s *TokenStore) Save(token string, user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := s.backend.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := s.backend.Set(UserKey, string(data)); err != nil {
		// Do not leave a token without its profile behind
		_ = s.backend.Remove(TokenKey)
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// Load returns the stored credential, or ("", nil, nil) when there is none.
// A token without a readable profile counts as no credential and both keys
// are erased.
func (s *TokenStore) Load() (string, *User, error) {
	token, ok, err := s.backend.Get(TokenKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load token: %w", err)
	}

	raw, userOK, err := s.backend.Get(UserKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !ok || token == "" {
		if userOK {
			s.discard(errors.New("user record without token"))
		}
		return "", nil, nil
	}

	if !userOK {
		s.discard(fmt.Errorf("%w: missing", ErrCorruptUser))
		return "", nil, nil
	}

	user, err := decodeUser(raw)
	if err != nil {
		s.discard(err)
		return "", nil, nil
	}

	return token, user, nil
}

// Clear removes both keys. Safe to call when nothing is stored.
func (s *TokenStore) Clear() error {
	errToken := s.backend.Remove(TokenKey)
	errUser := s.backend.Remove(UserKey)

	if err := errors.Join(errToken, errUser); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Token implements client.TokenSource straight from storage.
func (s *TokenStore) Token() (string, bool) {
	token, _, err := s.Load()
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

func (s *TokenStore) discard(reason error) {
	s.logger.Warn().Err(reason).Msg("Discarding stored credentials")
	if err := s.Clear(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to discard stored credentials")
	}
}

func decodeUser(raw string) (*User, error) {
	var user *User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptUser, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: null", ErrCorruptUser)
	}
	return user, nil
}
