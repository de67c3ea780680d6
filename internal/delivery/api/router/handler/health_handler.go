package handler

import (
	"log/slog"
	"net/http"
	"time"

	"focusguard/internal/delivery/api/response"
	deliverycontext "focusguard/internal/delivery/context"
	"focusguard/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// HealthHandlerParams holds dependencies for HealthHandler, injected by Fx.
type HealthHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// HealthHandler reports liveness together with store counters
type HealthHandler struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

// NewHealthHandler is the constructor for HealthHandler
func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return &HealthHandler{
		sessionUC: params.SessionUC,
		logger:    params.Logger,
	}
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Stats     *usecase.Stats `json:"stats,omitempty"`
}

// HealthCheck reports "ok" with stats, or "degraded" when the store cannot be counted
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	stats, err := h.sessionUC.Stats(c.Request().Context())
	if err != nil {
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).Warn("Health stats unavailable", slog.Any("error", err))

		return response.Success(c, http.StatusServiceUnavailable, &HealthResponse{Status: "degraded", Timestamp: time.Now().UTC()})
	}

	return response.Success(c, http.StatusOK, &HealthResponse{Status: "ok", Timestamp: time.Now().UTC(), Stats: stats})
}
