package handler

import (
	"log/slog"
	"net/http"

	"focusguard/internal/delivery/api/middleware"
	"focusguard/internal/delivery/api/response"
	"focusguard/internal/domain/entity"
	"focusguard/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// DeviceHandlerParams holds dependencies for DeviceHandler, injected by Fx.
type DeviceHandlerParams struct {
	fx.In

	DeviceUC usecase.DeviceUsecase
	Logger   *slog.Logger
}

// DeviceHandler holds dependencies for device-related handlers
type DeviceHandler struct {
	deviceUC usecase.DeviceUsecase
	logger   *slog.Logger
}

// NewDeviceHandler is the constructor for DeviceHandler
func NewDeviceHandler(params DeviceHandlerParams) *DeviceHandler {
	return &DeviceHandler{
		deviceUC: params.DeviceUC,
		logger:   params.Logger,
	}
}

// RegisterDeviceRequest represents the request body for registering a device.
// Required fields are checked by the device registry so the error wording is shared with other callers.
type RegisterDeviceRequest struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"deviceName"`
	Kind     string `json:"deviceType"`
	Platform string `json:"platform"`
}

// HeartbeatRequest represents the request body for a device heartbeat
type HeartbeatRequest struct {
	DeviceID string `json:"deviceId" validate:"required"`
}

// RegisterDevice handles device registration
func (h *DeviceHandler) RegisterDevice(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	var req RegisterDeviceRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid device input")
	}

	device, err := h.deviceUC.Register(c.Request().Context(), userID, &usecase.RegisterDeviceInput{
		DeviceID: req.DeviceID,
		Name:     req.Name,
		Kind:     req.Kind,
		Platform: req.Platform,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{"device": device})
}

// Heartbeat refreshes the last-seen time of a device
func (h *DeviceHandler) Heartbeat(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	var req HeartbeatRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid heartbeat input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.deviceUC.Heartbeat(c.Request().Context(), userID, req.DeviceID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]bool{"ok": true})
}

// ListDevices handles retrieving all devices of the caller
func (h *DeviceHandler) ListDevices(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	devices, err := h.deviceUC.List(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}
	if devices == nil {
		devices = []*entity.Device{}
	}

	return response.Success(c, http.StatusOK, map[string]any{"devices": devices})
}
