package context

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// KeyUserID is the key for storing the authenticated user ID in context.
const KeyUserID ContextKey = "user_id"

// SetUserID stores the authenticated user ID in echo.Context and tags the
// request context and its logger with it.
func SetUserID(c echo.Context, userID uuid.UUID) {
	c.Set(string(KeyUserID), userID)

	ctx := WithUserID(c.Request().Context(), userID)
	c.SetRequest(c.Request().WithContext(ctx))
}

// GetUserID extracts the authenticated user ID from echo.Context.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(string(KeyUserID)).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}

	return userID, true
}

// WithUserID returns a context carrying userID, with the request logger tagged.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, KeyUserID, userID)

	return WithLogAttrs(ctx, slog.String("user_id", userID.String()))
}

// GetUserIDFromContext returns the user ID stored by WithUserID.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(KeyUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}

	return userID, true
}
