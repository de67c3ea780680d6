// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"focusguard/internal/delivery/api/middleware"
	"focusguard/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	UserHandler    *handler.UserHandler
	DeviceHandler  *handler.DeviceHandler
	SessionHandler *handler.SessionHandler
	ConfigHandler  *handler.ConfigHandler
	HealthHandler  *handler.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	userHandler    *handler.UserHandler
	deviceHandler  *handler.DeviceHandler
	sessionHandler *handler.SessionHandler
	configHandler  *handler.ConfigHandler
	healthHandler  *handler.HealthHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		userHandler:    params.UserHandler,
		deviceHandler:  params.DeviceHandler,
		sessionHandler: params.SessionHandler,
		configHandler:  params.ConfigHandler,
		healthHandler:  params.HealthHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", r.healthHandler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.userHandler.Register)
		authGroup.POST("/login", r.userHandler.Login)
		authGroup.GET("/me", r.userHandler.Me, r.authMiddleware.Authenticate)
	}

	// Device registry routes
	devicesGroup := e.Group("/devices", r.authMiddleware.Authenticate)
	{
		devicesGroup.GET("", r.deviceHandler.ListDevices)
		devicesGroup.POST("/register", r.deviceHandler.RegisterDevice)
		devicesGroup.POST("/heartbeat", r.deviceHandler.Heartbeat)
	}

	// Focus session routes
	sessionsGroup := e.Group("/sessions", r.authMiddleware.Authenticate)
	{
		sessionsGroup.POST("/start", r.sessionHandler.StartSession)
		sessionsGroup.POST("/stop", r.sessionHandler.StopSession)
		sessionsGroup.GET("/active", r.sessionHandler.GetActiveSession)
	}

	// Blocklist and whitelist routes
	configGroup := e.Group("/config", r.authMiddleware.Authenticate)
	{
		configGroup.GET("", r.configHandler.GetConfig)
		configGroup.POST("", r.configHandler.UpdateConfig)
	}
}
