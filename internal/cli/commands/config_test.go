package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SetAndShow(t *testing.T) {
	opts, dir := setupTestEnvironment(t)
	opts.Storage = ""

	out, err := runCommand(NewConfigCmd(opts), "set", "gateway_url", "http://gateway.internal:9090/")
	require.NoError(t, err)
	assert.Contains(t, out, "gateway_url updated")

	_, err = runCommand(NewConfigCmd(opts), "set", "storage", "file")
	require.NoError(t, err)

	out, err = runCommand(NewConfigCmd(opts), "show")
	require.NoError(t, err)

	assert.Regexp(t, `gateway_url\s+http://gateway.internal:9090\n`, out)
	assert.Regexp(t, `api_base_url\s+http://localhost:8000`, out)
	assert.Regexp(t, `storage\s+file`, out)
	assert.Contains(t, out, dir)
}

func TestConfig_FlagsOverrideFile(t *testing.T) {
	opts, _ := setupTestEnvironment(t)

	_, err := runCommand(NewConfigCmd(opts), "set", "api_base_url", "http://from-file:8000")
	require.NoError(t, err)

	opts.APIBaseURL = "http://from-flag:8000"
	out, err := runCommand(NewConfigCmd(opts), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "http://from-flag:8000")
	assert.NotContains(t, out, "from-file")
}

func TestConfig_SetRejectsUnknown(t *testing.T) {
	opts, _ := setupTestEnvironment(t)

	_, err := runCommand(NewConfigCmd(opts), "set", "storage", "localStorage")
	assert.Error(t, err)

	_, err = runCommand(NewConfigCmd(opts), "set", "theme", "dark")
	assert.Error(t, err)

	_, err = runCommand(NewConfigCmd(opts), "set", "gateway_url")
	assert.Error(t, err)
}
