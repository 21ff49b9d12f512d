package auth

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qos-dev/qosdash/internal/cli/storage"
)

// failingBackend fails writes for one key.
type failingBackend struct {
	*storage.Memory
	failKey string
}

func (f *failingBackend) Set(key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Memory.Set(key, value)
}

func assertEmpty(t *testing.T, backend storage.Backend) {
	t.Helper()

	for _, key := range []string{TokenKey, UserKey} {
		_, ok, err := backend.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, "key %s should be absent", key)
	}
}

func TestTokenStore_SaveLoadRoundTrip(t *testing.T) {
	backend := storage.NewMemory()
	store := NewTokenStore(backend, zerolog.Nop())

	user := User{UserID: "u-1", Email: "admin@example.com", Nickname: "admin"}
	require.NoError(t, store.Save("tok-1", user))

	raw, ok, err := backend.Get(UserKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"user_id":"u-1","email":"admin@example.com","nickname":"admin"}`, raw)

	token, loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, &user, loaded)

	// Save overwrites
	require.NoError(t, store.Save("tok-2", User{UserID: "u-2"}))
	token, loaded, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.Equal(t, UserID("u-2"), loaded.UserID)
}

func TestTokenStore_LoadEmpty(t *testing.T) {
	store := NewTokenStore(storage.NewMemory(), zerolog.Nop())

	token, user, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)

	_, ok := store.Token()
	assert.False(t, ok)
}

func TestTokenStore_CorruptUserClearsBoth(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		setUser bool
	}{
		{"missing user", "", false},
		{"unparsable", "{not json", true},
		{"null", "null", true},
		{"wrong shape", `["u-1"]`, true},
		{"bad user_id type", `{"user_id":{"nested":true}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := storage.NewMemory()
			require.NoError(t, backend.Set(TokenKey, "tok"))
			if tt.setUser {
				require.NoError(t, backend.Set(UserKey, tt.user))
			}

			var logBuf bytes.Buffer
			store := NewTokenStore(backend, zerolog.New(&logBuf))

			token, user, err := store.Load()
			require.NoError(t, err, "corruption is handled, not returned")
			assert.Empty(t, token)
			assert.Nil(t, user)
			assertEmpty(t, backend)
			assert.Contains(t, logBuf.String(), "Discarding stored credentials")
		})
	}
}

func TestTokenStore_OrphanUserIsRemoved(t *testing.T) {
	backend := storage.NewMemory()
	require.NoError(t, backend.Set(UserKey, `{"user_id":"u-1"}`))

	token, user, err := NewTokenStore(backend, zerolog.Nop()).Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)
	assertEmpty(t, backend)
}

func TestTokenStore_EmptyTokenIsAbsent(t *testing.T) {
	backend := storage.NewMemory()
	require.NoError(t, backend.Set(TokenKey, ""))
	require.NoError(t, backend.Set(UserKey, `{"user_id":"u-1"}`))

	token, user, err := NewTokenStore(backend, zerolog.Nop()).Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, user)
}

func TestTokenStore_ClearIsIdempotent(t *testing.T) {
	backend := storage.NewMemory()
	store := NewTokenStore(backend, zerolog.Nop())

	require.NoError(t, store.Save("tok", User{UserID: "u-1"}))
	require.NoError(t, store.Clear())
	assertEmpty(t, backend)

	require.NoError(t, store.Clear())
	assertEmpty(t, backend)
}

func TestTokenStore_SaveUserFailureLeavesNoToken(t *testing.T) {
	backend := &failingBackend{Memory: storage.NewMemory(), failKey: UserKey}
	store := NewTokenStore(backend, zerolog.Nop())

	err := store.Save("tok", User{UserID: "u-1"})
	require.Error(t, err)
	assertEmpty(t, backend)
}

func TestTokenStore_TokenSource(t *testing.T) {
	store := NewTokenStore(storage.NewMemory(), zerolog.Nop())
	require.NoError(t, store.Save("abc", User{UserID: "u-1"}))

	token, ok := store.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}

func TestUserID_Unmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    UserID
		wantErr bool
	}{
		{`{"user_id":"abc"}`, "abc", false},
		{`{"user_id":42}`, "42", false},
		{`{"user_id":null}`, "", false},
		{`{}`, "", false},
		{`{"user_id":true}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			user, err := decodeUser(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCorruptUser)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, user.UserID)
		})
	}
}
