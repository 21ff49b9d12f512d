// Package session owns the CLI's in-memory authentication state and keeps it
// in step with the persisted credential.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/qos-dev/qosdash/internal/cli/auth"
)

// DefaultAPIBaseURL is where the login endpoint lives unless configured.
const DefaultAPIBaseURL = "http://localhost:8000"

// State is the lifecycle position of a Manager.
type State int

const (
	Booting State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Booting:
		return "booting"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// AuthenticationError is returned by Login when the endpoint rejects the
// credentials or answers with something that is not a usable login response.
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// Store is the persistence the manager synchronizes with.
type Store interface {
	Save(token string, user auth.User) error
	Load() (string, *auth.User, error)
	Clear() error
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	UserID      auth.UserID `json:"user_id"`
	Email       string      `json:"email"`
	Nickname    string      `json:"nickname"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

// Manager holds the current token and user. Token and user are always set or
// cleared together. Login and Logout are not serialized against each other;
// concurrent calls resolve as last writer wins.
type Manager struct {
	store      Store
	apiBaseURL string
	httpClient *http.Client
	logger     zerolog.Logger

	bootOnce sync.Once

	mu      sync.RWMutex
	booted  bool
	token   string
	user    *auth.User
	bootErr error
}

// Option configures a Manager.
type Option func(*Manager)

// WithAPIBaseURL sets the base URL of the authentication endpoint.
func WithAPIBaseURL(baseURL string) Option {
	return func(m *Manager) {
		m.apiBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = httpClient
	}
}

// WithLogger sets the logger for login and boot diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New returns a Manager in the Booting state. Call Boot before use.
func New(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		apiBaseURL: DefaultAPIBaseURL,
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Open returns a booted Manager.
func Open(store Store, opts ...Option) *Manager {
	m := New(store, opts...)
	m.Boot()
	return m
}

// Boot reads the stored credential once. Later calls do nothing. A storage
// read error leaves the session anonymous and is kept for BootErr.
func (m *Manager) Boot() {
	m.bootOnce.Do(func() {
		token, user, err := m.store.Load()

		m.mu.Lock()
		defer m.mu.Unlock()

		m.booted = true
		if err != nil {
			m.logger.Error().Err(err).Msg("Failed to read stored credentials")
			m.bootErr = err
			return
		}
		if token != "" && user != nil {
			m.token = token
			m.user = user
		}
	})
}

// BootErr returns the storage error hit during Boot, if any.
func (m *Manager) BootErr() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bootErr
}

// IsLoading is true until Boot has completed.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.booted
}

// IsAuthenticated is false while booting, otherwise whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.booted && m.token != ""
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case !m.booted:
		return Booting
	case m.token != "":
		return Authenticated
	default:
		return Anonymous
	}
}

// Token implements client.TokenSource. No token is handed out before Boot.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.booted || m.token == "" {
		return "", false
	}
	return m.token, true
}

// User returns a copy of the current user, or nil when anonymous.
func (m *Manager) User() *auth.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Login exchanges email and password for a token at POST /auth/login,
// persists the credential and switches to Authenticated. On any error the
// in-memory state is left as it was. Transport errors are returned wrapped;
// rejections and malformed answers are *AuthenticationError.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	jsonData, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiBaseURL+"/auth/login", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Error().Err(err).Msg("Login request failed")
		return fmt.Errorf("failed to send login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		authErr := &AuthenticationError{Status: resp.StatusCode, Message: loginFailureMessage(resp.StatusCode, body)}
		m.logger.Warn().Int("status", resp.StatusCode).Msg("Login rejected")
		return authErr
	}

	var loginResp loginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil || loginResp.AccessToken == "" {
		m.logger.Error().Err(err).Int("status", resp.StatusCode).Msg("Malformed login response")
		return &AuthenticationError{Status: resp.StatusCode, Message: "Login failed: malformed login response"}
	}

	user := auth.User{
		UserID:   loginResp.UserID,
		Email:    loginResp.Email,
		Nickname: loginResp.Nickname,
	}

	if err := m.store.Save(loginResp.AccessToken, user); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	m.mu.Lock()
	m.booted = true
	m.token = loginResp.AccessToken
	m.user = &user
	m.mu.Unlock()

	m.logger.Info().Str("user_id", user.UserID.String()).Msg("User logged in")
	return nil
}

// Logout clears storage and memory. The session ends Anonymous even when
// storage could not be cleared; that error is still returned.
func (m *Manager) Logout() error {
	err := m.store.Clear()

	m.mu.Lock()
	m.booted = true
	m.token = ""
	m.user = nil
	m.mu.Unlock()

	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to clear stored credentials")
		return err
	}
	return nil
}

// loginFailureMessage prefers the endpoint's string "detail" field.
func loginFailureMessage(status int, body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if detail, ok := errResp.Detail.(string); ok && detail != "" {
			return detail
		}
	}
	return fmt.Sprintf("Login failed: %d", status)
}
