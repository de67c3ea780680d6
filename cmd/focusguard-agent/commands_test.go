package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"focusguard/config"
	"focusguard/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name   string
		raw    []string
		want   entity.TargetDevices
		wantOK bool
	}{
		{name: "no flag", raw: nil},
		{name: "all", raw: []string{"all"}},
		{name: "all wins over ids", raw: []string{"d1", "ALL"}},
		{name: "blank entries", raw: []string{" ", ""}},
		{name: "ids", raw: []string{"d1", " d2 "}, want: entity.SpecificDevices("d1", "d2"), wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTargets(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want.DeviceIDs(), got.DeviceIDs())
			}
		})
	}
}

func TestNonNil(t *testing.T) {
	assert.Equal(t, []string{}, nonNil(nil))
	assert.Equal(t, []string{"a"}, nonNil([]string{"a"}))
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"login"}, {"run"}, {"decide"}, {"devices"},
		{"session", "start"}, {"session", "stop"}, {"session", "active"},
		{"config", "get"}, {"config", "set"},
	} {
		cmd, _, err := root.Find(path)
		assert.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

// recordedRequest is one call received by the fake server.
type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

// fakeAPI answers every call with the same data payload and records the calls.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	received []recordedRequest
}

func newFakeAPI(t *testing.T, data string) *fakeAPI {
	t.Helper()

	api := &fakeAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)

		api.mu.Lock()
		api.received = append(api.received, rec)
		api.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":` + data + `,"meta":{"request_id":"r1"}}`))
	}))
	t.Cleanup(api.Close)

	return api
}

func (api *fakeAPI) requests() []recordedRequest {
	api.mu.Lock()
	defer api.mu.Unlock()

	return append([]recordedRequest(nil), api.received...)
}

func executeAgent(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()

	a := &app{loadConfig: func() (*config.AgentConfig, error) {
		cfg := &config.AgentConfig{}
		cfg.Device.ID = "laptop-1"
		cfg.ApplyDefaults()

		return cfg, nil
	}}
	root := newAppCmd(a)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--server", serverURL, "--token", "t0ken"))

	err := root.ExecuteContext(context.Background())

	return out.String(), err
}

func TestConfigSet_SendsOnlyGivenLists(t *testing.T) {
	server := newFakeAPI(t, `{"blocklists":{"apps":[],"sites":["reddit.com"],"keywords":[]},"whitelists":{"apps":[],"sites":[]}}`)

	out, err := executeAgent(t, server.URL, "config", "set", "--block-site", "reddit.com", "--block-keyword=")
	require.NoError(t, err)
	assert.Contains(t, out, "reddit.com")

	require.Len(t, server.requests(), 1)
	req := server.requests()[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/config", req.path)
	assert.Equal(t, "Bearer t0ken", req.auth)
	assert.Equal(t, []any{"reddit.com"}, req.body["blockedWebsites"])
	assert.Equal(t, []any{}, req.body["blockedKeywords"], "an empty flag clears the list")
	assert.Nil(t, req.body["blockedPackages"], "an omitted flag leaves the list unchanged")
	assert.Nil(t, req.body["whitelistedWebsites"])
	assert.Nil(t, req.body["whitelistedPackages"])
}

func TestConfigSet_RequiresAList(t *testing.T) {
	server := newFakeAPI(t, `{}`)

	_, err := executeAgent(t, server.URL, "config", "set")
	require.Error(t, err)
	assert.Empty(t, server.requests())
}

func TestSessionStart_BuildsRequest(t *testing.T) {
	session := `{"session":{"id":"s1","isActive":true,"targetDevices":["laptop-1"],"startTime":"2026-03-01T09:00:00Z"}}`

	tests := []struct {
		name   string
		args   []string
		expect func(t *testing.T, body map[string]any)
	}{
		{
			name: "targets, overrides and duration",
			args: []string{"--target", "laptop-1,phone-2", "--block-app", "com.a", "--block-site=", "--duration", "25m"},
			expect: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{"laptop-1", "phone-2"}, body["targetDevices"])
				assert.Equal(t, []any{"com.a"}, body["blockedPackages"])
				assert.Equal(t, []any{}, body["blockedWebsites"])
				assert.Nil(t, body["blockedKeywords"])
				assert.Equal(t, float64(25*60), body["duration"])
			},
		},
		{
			name: "defaults target every device until stopped",
			args: []string{"--target", "all"},
			expect: func(t *testing.T, body map[string]any) {
				assert.NotContains(t, body, "targetDevices")
				assert.NotContains(t, body, "duration")
				assert.Nil(t, body["blockedPackages"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeAPI(t, session)

			out, err := executeAgent(t, server.URL, append([]string{"session", "start"}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, `"id": "s1"`)

			require.Len(t, server.requests(), 1)
			assert.Equal(t, "/sessions/start", server.requests()[0].path)
			tt.expect(t, server.requests()[0].body)
		})
	}
}

func TestSessionStart_RejectsNegativeDuration(t *testing.T) {
	server := newFakeAPI(t, `{}`)

	_, err := executeAgent(t, server.URL, "session", "start", "--duration", "-1m")
	require.Error(t, err)
	assert.Empty(t, server.requests())
}
