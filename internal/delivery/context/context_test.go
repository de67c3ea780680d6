package context

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeRequestID(t *testing.T) {
	assert.Equal(t, "abc-123", NormalizeRequestID("abc-123"))
	assert.Equal(t, strings.Repeat("x", 128), NormalizeRequestID(strings.Repeat("x", 128)))

	for _, bad := range []string{"", "has space", "tab\tid", "naïve", strings.Repeat("x", 129)} {
		_, err := uuid.Parse(NormalizeRequestID(bad))
		assert.NoError(t, err, "%q should be replaced", bad)
	}
}

func TestWithLogAttrs(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithLogAttrs(ctx, slog.String("k", "v")))

	var buf bytes.Buffer
	ctx = WithLogger(ctx, slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = WithLogAttrs(ctx, slog.String("device_id", "phone-1"))

	GetLoggerOrDefault(ctx, slog.Default()).Info("polled")
	assert.Contains(t, buf.String(), "device_id=phone-1")
}

func TestSetUserID(t *testing.T) {
	var buf bytes.Buffer
	userID := uuid.New()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(WithLogger(req.Context(), slog.New(slog.NewTextHandler(&buf, nil))))
	c := e.NewContext(req, httptest.NewRecorder())

	_, ok := GetUserID(c)
	assert.False(t, ok)

	SetUserID(c, userID)

	got, ok := GetUserID(c)
	assert.True(t, ok)
	assert.Equal(t, userID, got)

	got, ok = GetUserIDFromContext(c.Request().Context())
	assert.True(t, ok)
	assert.Equal(t, userID, got)

	GetLogger(c.Request().Context()).Info("profile loaded")
	assert.Contains(t, buf.String(), "user_id="+userID.String())
}

func TestGetUserIDFromContext_Nil(t *testing.T) {
	_, ok := GetUserIDFromContext(WithUserID(context.Background(), uuid.Nil))
	assert.False(t, ok)
}
