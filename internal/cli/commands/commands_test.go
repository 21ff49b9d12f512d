package commands

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/qos-dev/qosdash/internal/cli/auth"
	"github.com/qos-dev/qosdash/internal/cli/storage"
	"github.com/qos-dev/qosdash/internal/cli/userconfig"
)

// setupTestEnvironment points the CLI at a temporary config directory with
// file storage and clears every environment override.
func setupTestEnvironment(t *testing.T) (*Options, string) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv(userconfig.EnvConfigDir, dir)
	for _, key := range []string{
		userconfig.EnvAPIBaseURL, userconfig.EnvGatewayURL, userconfig.EnvStorage, EnvEmail, EnvPassword,
	} {
		t.Setenv(key, "")
	}

	original := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = original })

	return &Options{Storage: storage.KindFile}, dir
}

// storageAt opens the file backend the commands use in dir.
func storageAt(dir string) storage.Backend {
	return storage.NewFile(filepath.Join(dir, "storage.json"))
}

// seedSession stores a credential as a previous login would have.
func seedSession(t *testing.T, dir, token string, user auth.User) {
	t.Helper()
	require.NoError(t, auth.NewTokenStore(storageAt(dir), zerolog.Nop()).Save(token, user))
}

func runCommand(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// mockServer answers every request with status and body and records the
// last request.
type mockServer struct {
	*httptest.Server
	calls    atomic.Int32
	lastReq  *http.Request
	lastBody string
}

func newMockServer(t *testing.T, status int, body string) *mockServer {
	t.Helper()

	m := &mockServer{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		data, _ := io.ReadAll(r.Body)
		m.lastReq = r.Clone(r.Context())
		m.lastBody = string(data)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(m.Close)

	return m
}
