package handler

import (
	"log/slog"
	"net/http"

	"focusguard/internal/delivery/api/middleware"
	"focusguard/internal/delivery/api/response"
	"focusguard/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ConfigHandlerParams holds dependencies for ConfigHandler, injected by Fx.
type ConfigHandlerParams struct {
	fx.In

	ConfigUC usecase.ConfigUsecase
	Logger   *slog.Logger
}

// ConfigHandler serves the caller's blocklist and whitelist
type ConfigHandler struct {
	configUC usecase.ConfigUsecase
	logger   *slog.Logger
}

// NewConfigHandler is the constructor for ConfigHandler
func NewConfigHandler(params ConfigHandlerParams) *ConfigHandler {
	return &ConfigHandler{
		configUC: params.ConfigUC,
		logger:   params.Logger,
	}
}

// UpdateConfigRequest carries the lists to replace; absent fields are left unchanged
type UpdateConfigRequest struct {
	BlockedWebsites     []string `json:"blockedWebsites"`
	BlockedPackages     []string `json:"blockedPackages"`
	BlockedKeywords     []string `json:"blockedKeywords"`
	WhitelistedWebsites []string `json:"whitelistedWebsites"`
	WhitelistedPackages []string `json:"whitelistedPackages"`
}

// GetConfig returns the caller's lists
func (h *ConfigHandler) GetConfig(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	output, err := h.configUC.Get(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, toListsResponse(output))
}

// UpdateConfig replaces the provided lists and pushes them into the active session
func (h *ConfigHandler) UpdateConfig(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	var req UpdateConfigRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid config input")
	}

	output, err := h.configUC.Update(c.Request().Context(), userID, &usecase.UpdateConfigInput{
		BlockedWebsites:     req.BlockedWebsites,
		BlockedPackages:     req.BlockedPackages,
		BlockedKeywords:     req.BlockedKeywords,
		WhitelistedWebsites: req.WhitelistedWebsites,
		WhitelistedPackages: req.WhitelistedPackages,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, toListsResponse(output))
}
