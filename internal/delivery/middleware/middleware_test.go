package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"focusguard/config"
	deliverycontext "focusguard/internal/delivery/context"
	domainerrors "focusguard/internal/domain/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	lines := make([]map[string]any, 0)
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}

	return lines
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "client id reused", incoming: "agent-7f3a.poll:42", keep: true},
		{name: "missing id generated", incoming: ""},
		{name: "id with spaces replaced", incoming: "two words"},
		{name: "oversized id replaced", incoming: strings.Repeat("a", 129)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := echo.New()
			mw := NewRequestIDMiddleware(newBufferLogger(&buf))

			req := httptest.NewRequest(http.MethodGet, "/sessions/active", nil)
			if tt.incoming != "" {
				req.Header.Set(deliverycontext.HeaderXRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen string
			err := mw.Process(func(c echo.Context) error {
				seen = deliverycontext.GetRequestIDFromContext(c.Request().Context())
				deliverycontext.GetLogger(c.Request().Context()).Info("handled")

				return nil
			})(c)
			require.NoError(t, err)

			got := rec.Header().Get(deliverycontext.HeaderXRequestID)
			assert.Equal(t, got, seen)
			assert.Equal(t, got, deliverycontext.GetRequestID(c))
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
			} else {
				_, parseErr := uuid.Parse(got)
				assert.NoError(t, parseErr)
			}

			lines := logLines(t, &buf)
			require.Len(t, lines, 1)
			assert.Equal(t, got, lines[0]["request_id"])
			assert.Equal(t, "/sessions/active", lines[0]["path"])
		})
	}
}

func newLoggerConfig(debug bool) *config.Config {
	cfg := &config.Config{}
	cfg.Env.Debug = debug
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	return cfg
}

func serveLogged(t *testing.T, mw *LoggerMiddleware, method, target string, userID uuid.UUID, handler echo.HandlerFunc) {
	t.Helper()

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(method, target, nil), httptest.NewRecorder())
	if userID != uuid.Nil {
		deliverycontext.SetUserID(c, userID)
	}
	_ = mw.Handle(handler)(c)
}

func TestLoggerMiddleware_Levels(t *testing.T) {
	userID := uuid.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	tests := []struct {
		name      string
		method    string
		target    string
		handler   echo.HandlerFunc
		wantLevel string
		wantCode  float64
	}{
		{name: "write at info", method: http.MethodPost, target: "/sessions", handler: ok, wantLevel: "INFO", wantCode: 200},
		{name: "poll at debug", method: http.MethodGet, target: "/sessions/active?deviceId=phone-1", handler: ok, wantLevel: "DEBUG", wantCode: 200},
		{
			name: "domain error at warn", method: http.MethodGet, target: "/me",
			handler:   func(echo.Context) error { return domainerrors.ErrUserNotFound },
			wantLevel: "WARN", wantCode: 404,
		},
		{
			name: "echo error at warn", method: http.MethodGet, target: "/nope",
			handler:   func(echo.Context) error { return echo.ErrMethodNotAllowed },
			wantLevel: "WARN", wantCode: 405,
		},
		{
			name: "unknown error at error", method: http.MethodGet, target: "/devices",
			handler:   func(echo.Context) error { return assert.AnError },
			wantLevel: "ERROR", wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := NewLoggerMiddleware(newBufferLogger(&buf), newLoggerConfig(true))

			serveLogged(t, mw, tt.method, tt.target, userID, tt.handler)

			lines := logLines(t, &buf)
			require.Len(t, lines, 1)
			assert.Equal(t, tt.wantLevel, lines[0]["level"])
			assert.Equal(t, tt.wantCode, lines[0]["status"])
			assert.Equal(t, userID.String(), lines[0]["user_id"])
		})
	}
}

func TestLoggerMiddleware_DeviceID(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggerMiddleware(newBufferLogger(&buf), newLoggerConfig(true))

	serveLogged(t, mw, http.MethodGet, "/sessions/active?deviceId=phone-1", uuid.Nil, func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "phone-1", lines[0]["device_id"])
	assert.NotContains(t, lines[0], "user_id")
}

func TestLoggerMiddleware_Quiet(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	t.Run("health and metrics paths skipped", func(t *testing.T) {
		var buf bytes.Buffer
		mw := NewLoggerMiddleware(newBufferLogger(&buf), newLoggerConfig(true))

		serveLogged(t, mw, http.MethodGet, "/health", uuid.Nil, ok)
		serveLogged(t, mw, http.MethodGet, "/metrics", uuid.Nil, ok)

		assert.Empty(t, buf.String())
	})

	t.Run("nothing logged without debug", func(t *testing.T) {
		var buf bytes.Buffer
		mw := NewLoggerMiddleware(newBufferLogger(&buf), newLoggerConfig(false))

		serveLogged(t, mw, http.MethodPost, "/sessions", uuid.Nil, ok)

		assert.Empty(t, buf.String())
	})
}
