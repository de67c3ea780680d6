package agent

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"focusguard/config"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAgentConfig(serverURL string) *config.AgentConfig {
	cfg := &config.AgentConfig{}
	cfg.Server.URL = serverURL
	cfg.Server.Token = "token-1"
	cfg.Device.ID = "d1"
	cfg.Device.Name = "laptop"
	cfg.Device.Kind = "desktop"
	cfg.Sync.PollInterval = 10 * time.Millisecond
	cfg.Sync.RequestTimeout = time.Second
	cfg.Sync.HeartbeatInterval = 10 * time.Millisecond
	cfg.Sync.MaxStaleness = -1
	cfg.ApplyDefaults()

	return cfg
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": data,
		"meta": map[string]string{"request_id": "req-1"},
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
		"meta":  map[string]string{"request_id": "req-1"},
	})
}

func TestClient_ActiveSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/active", r.URL.Path)
		assert.Equal(t, "d1", r.URL.Query().Get("deviceId"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		writeData(w, http.StatusOK, map[string]any{
			"session": map[string]any{
				"id":                  "s1",
				"isActive":            true,
				"targetDevices":       "all",
				"blockedPackages":     []string{"com.a"},
				"blockedWebsites":     []string{},
				"blockedKeywords":     []string{},
				"whitelistedPackages": []string{"com.focusapp.blocker"},
				"whitelistedWebsites": []string{},
				"startTime":           "2026-03-01T09:00:00Z",
				"endTime":             nil,
			},
		})
	}))
	defer server.Close()

	client := NewClient(newTestAgentConfig(server.URL), newDiscardLogger())

	session, err := client.ActiveSession(context.Background(), "d1")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "s1", session.ID)
	assert.True(t, session.IsActive)
	assert.True(t, session.TargetDevices.IsAll())
	assert.Equal(t, []string{"com.a"}, session.BlockedPackages)
	assert.Nil(t, session.EndTime)
}

func TestClient_NoSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]any{"session": nil})
	}))
	defer server.Close()

	client := NewClient(newTestAgentConfig(server.URL), newDiscardLogger())

	session, err := client.ActiveSession(context.Background(), "d1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		wantTransport bool
		wantCode      string
		wantUnauth    bool
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			},
			wantCode:   "INVALID_TOKEN",
			wantUnauth: true,
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusForbidden, "DEVICE_FORBIDDEN", "Device belongs to another user")
			},
			wantCode: "DEVICE_FORBIDDEN",
		},
		{
			name: "plain 404",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.NotFound(w, nil)
			},
			wantCode: "HTTP_ERROR",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom")
			},
			wantTransport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(newTestAgentConfig(server.URL), newDiscardLogger())
			_, err := client.ActiveSession(context.Background(), "d1")
			require.Error(t, err)

			assert.Equal(t, tt.wantTransport, errors.Is(err, ErrTransport))
			assert.Equal(t, tt.wantUnauth, IsUnauthorized(err))
			if tt.wantCode != "" {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
			}
		})
	}
}

func TestClient_UnreachableServerIsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	client := NewClient(newTestAgentConfig(serverURL), newDiscardLogger())

	_, err := client.ActiveSession(context.Background(), "d1")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_TimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := newTestAgentConfig(server.URL)
	cfg.Sync.RequestTimeout = 50 * time.Millisecond
	client := NewClient(cfg, newDiscardLogger())

	start := time.Now()
	_, err := client.ActiveSession(context.Background(), "d1")
	assert.ErrorIs(t, err, ErrTransport)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_LoginStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a@example.com", body["email"])
			assert.Empty(t, r.Header.Get("Authorization"))
			writeData(w, http.StatusOK, map[string]any{
				"token": "fresh",
				"user":  map[string]string{"id": "u1", "email": "a@example.com", "name": "A"},
			})
		case "/config":
			assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
			writeData(w, http.StatusOK, map[string]any{
				"blocklists": map[string]any{"packages": []string{"com.a"}, "websites": []string{}, "keywords": []string{}},
				"whitelists": map[string]any{"packages": []string{"com.focusapp.blocker"}, "websites": []string{}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := newTestAgentConfig(server.URL)
	cfg.Server.Token = ""
	client := NewClient(cfg, newDiscardLogger())

	result, err := client.Login(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fresh", result.Token)
	assert.Equal(t, "fresh", client.Token())

	lists, err := client.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.a"}, lists.Blocklists.Apps)
	assert.Equal(t, []string{"com.focusapp.blocker"}, lists.Whitelists.Apps)
}

func TestClient_StartAndStopSessionBodies(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()

		switch r.URL.Path {
		case "/sessions/start":
			writeData(w, http.StatusCreated, map[string]any{"session": map[string]any{"id": "s1", "isActive": true, "targetDevices": []string{"d1"}}})
		default:
			writeData(w, http.StatusOK, map[string]any{"ok": true})
		}
	}))
	defer server.Close()

	client := NewClient(newTestAgentConfig(server.URL), newDiscardLogger())
	ctx := context.Background()

	session, err := client.StartSession(ctx, StartRequest{BlockedPackages: []string{"com.a"}, Duration: 1500})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, session.TargetDevices.DeviceIDs())

	require.NoError(t, client.StopSession(ctx, ""))
	require.NoError(t, client.StopSession(ctx, "s1"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 3)
	assert.NotContains(t, bodies[0], "targetDevices", "an absent target lets the server default to all devices")
	assert.Equal(t, float64(1500), bodies[0]["duration"])
	assert.Nil(t, bodies[0]["blockedWebsites"])
	assert.Empty(t, bodies[1])
	assert.Equal(t, "s1", bodies[2]["sessionId"])
}

func TestClient_ListDevices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/devices", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		writeData(w, http.StatusOK, map[string]any{"devices": []map[string]any{
			{"deviceId": "d1", "deviceName": "laptop", "deviceType": "desktop", "isOnline": true},
			{"deviceId": "d2", "deviceName": "phone", "deviceType": "mobile"},
		}})
	}))
	defer server.Close()

	devices, err := NewClient(newTestAgentConfig(server.URL), newDiscardLogger()).ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "d1", devices[0].ID)
	assert.True(t, devices[0].Online)
	assert.Equal(t, "mobile", devices[1].Kind)
}
