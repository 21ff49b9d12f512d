package commands

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qos-dev/qosdash/internal/cli/auth"
)

var testUser = auth.User{UserID: "7", Email: "ann@example.com", Nickname: "Ann"}

func TestStats_SummaryTable(t *testing.T) {
	opts, dir := setupTestEnvironment(t)
	seedSession(t, dir, "tok-123", testUser)

	gw := newMockServer(t, http.StatusOK, `{"total_visitors": 1234567, "unique_locations": 12, "note": null}`)
	opts.GatewayURL = gw.URL

	out, err := runCommand(NewStatsCmd(opts), "summary")
	require.NoError(t, err)

	assert.Equal(t, "/api/analytics/location-stats/summary", gw.lastReq.URL.Path)
	assert.Equal(t, "Bearer tok-123", gw.lastReq.Header.Get("Authorization"))

	assert.Contains(t, out, "METRIC")
	assert.Regexp(t, `total_visitors\s+1234567`, out)
	assert.Regexp(t, `unique_locations\s+12`, out)
	assert.Regexp(t, `note\s+null`, out)
}

func TestStats_NestedResponsePrintedAsJSON(t *testing.T) {
	opts, dir := setupTestEnvironment(t)
	seedSession(t, dir, "tok-123", testUser)

	gw := newMockServer(t, http.StatusOK, `[{"district":"Jongno","visits":3}]`)
	opts.GatewayURL = gw.URL

	out, err := runCommand(NewStatsCmd(opts), "district")
	require.NoError(t, err)

	assert.Equal(t, "/api/analytics/location-stats/district", gw.lastReq.URL.Path)
	assert.Equal(t, "[\n  {\n    \"district\": \"Jongno\",\n    \"visits\": 3\n  }\n]\n", out)
}

func TestStats_TimeUnit(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantQuery string
	}{
		{"gateway default", []string{"time"}, ""},
		{"hour", []string{"time", "--unit", "hour"}, "unit=hour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, dir := setupTestEnvironment(t)
			seedSession(t, dir, "tok-123", testUser)

			gw := newMockServer(t, http.StatusOK, `{"buckets":[]}`)
			opts.GatewayURL = gw.URL

			_, err := runCommand(NewStatsCmd(opts), tt.args...)
			require.NoError(t, err)

			assert.Equal(t, "/api/analytics/location-stats/time", gw.lastReq.URL.Path)
			assert.Equal(t, tt.wantQuery, gw.lastReq.URL.RawQuery)
		})
	}
}

func TestStats_RequiresLogin(t *testing.T) {
	opts, _ := setupTestEnvironment(t)
	gw := newMockServer(t, http.StatusOK, `{}`)
	opts.GatewayURL = gw.URL

	_, err := runCommand(NewStatsCmd(opts), "quest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
	assert.Zero(t, gw.calls.Load())
}

func TestStats_GatewayErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"Authentication token is required"}`, "Authentication token is required. Please run 'qosdash login' again"},
		{"upstream failure", http.StatusInternalServerError, `{"error":"Failed to fetch quest stats"}`, "Failed to fetch quest stats (status 500)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, dir := setupTestEnvironment(t)
			seedSession(t, dir, "tok-123", testUser)

			gw := newMockServer(t, tt.status, tt.body)
			opts.GatewayURL = gw.URL

			_, err := runCommand(NewStatsCmd(opts), "quest")
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestPrintFlatObject_RejectsNonFlatShapes(t *testing.T) {
	for _, body := range []string{`[]`, `{}`, `{"a":{"b":1}}`, `{"a":[1]}`, `"x"`} {
		var buf bytes.Buffer
		assert.False(t, printFlatObject(&buf, []byte(body)), body)
		assert.Empty(t, buf.String(), body)
	}
}
