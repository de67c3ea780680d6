package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"focusguard/internal/delivery/api/middleware"
	"focusguard/internal/delivery/api/response"
	"focusguard/internal/domain/constants"
	"focusguard/internal/domain/entity"
	domainerrors "focusguard/internal/domain/errors"
	"focusguard/internal/infra/metrics"
	"focusguard/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Metrics   *metrics.Metrics `optional:"true"`
	Logger    *slog.Logger
}

// SessionHandler holds dependencies for focus session handlers
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		sessionUC: params.SessionUC,
		metrics:   params.Metrics,
		logger:    params.Logger,
	}
}

// StartSessionRequest represents the request body for starting a session.
// An absent targetDevices means every device; duration is in seconds.
type StartSessionRequest struct {
	TargetDevices   *entity.TargetDevices `json:"targetDevices"`
	BlockedWebsites []string              `json:"blockedWebsites"`
	BlockedPackages []string              `json:"blockedPackages"`
	BlockedKeywords []string              `json:"blockedKeywords"`
	Duration        *int64                `json:"duration"`
}

// StopSessionRequest represents the request body for stopping sessions
type StopSessionRequest struct {
	SessionID *string `json:"sessionId"`
}

// StartSession handles starting a focus session
func (h *SessionHandler) StartSession(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", `Invalid session input, targetDevices must be "all" or a list of device IDs`)
	}

	input := &usecase.StartSessionInput{
		Target:           entity.AllDevices(),
		OverrideWebsites: req.BlockedWebsites,
		OverridePackages: req.BlockedPackages,
		OverrideKeywords: req.BlockedKeywords,
	}
	if req.TargetDevices != nil {
		input.Target = *req.TargetDevices
	}
	if req.Duration != nil {
		if *req.Duration > int64(constants.MaxSessionDuration/time.Second) {
			return response.HandleAppError(c, errors.WithStack(
				domainerrors.ErrValidationFailed.WithDetails("duration must not exceed "+constants.MaxSessionDuration.String())))
		}
		input.Duration = time.Duration(*req.Duration) * time.Second
	}

	session, err := h.sessionUC.Start(c.Request().Context(), userID, input)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{"session": toSessionResponse(session)})
}

// StopSession handles stopping one or all sessions of the caller
func (h *SessionHandler) StopSession(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	var req StopSessionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid stop input")
	}

	var sessionID *uuid.UUID
	if req.SessionID != nil && strings.TrimSpace(*req.SessionID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*req.SessionID))
		if err != nil {
			return response.HandleAppError(c, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("sessionId must be a UUID")))
		}
		sessionID = &parsed
	}

	if err := h.sessionUC.Stop(c.Request().Context(), userID, sessionID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]bool{"ok": true})
}

// GetActiveSession returns the session applying to the device named by the deviceId query parameter
func (h *SessionHandler) GetActiveSession(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	session, err := h.sessionUC.GetActiveFor(c.Request().Context(), userID, strings.TrimSpace(c.QueryParam("deviceId")))
	if err != nil {
		return response.HandleAppError(c, err)
	}
	if h.metrics != nil {
		h.metrics.ObservePoll(session != nil)
	}

	return response.Success(c, http.StatusOK, map[string]any{"session": toSessionResponse(session)})
}
