// Package agent is the on-device side of focusguard: it keeps a local snapshot of the
// active session in sync with the server and answers blocking decisions from it.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"focusguard/config"
	"focusguard/internal/domain/entity"
	domainerrors "focusguard/internal/domain/errors"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// ErrTransport marks failures that did not produce an authoritative server answer:
// network errors, timeouts and 5xx responses.
var ErrTransport = errors.New("transport failure")

// APIError is a 4xx error envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// User is the account view returned by the server.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthResult is returned by Login.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Lists mirrors the config endpoints' payload.
type Lists struct {
	Blocklists entity.Blocklist `json:"blocklists"`
	Whitelists entity.Whitelist `json:"whitelists"`
}

// ListsUpdate replaces the provided lists. A nil field is left unchanged.
type ListsUpdate struct {
	BlockedWebsites     []string `json:"blockedWebsites"`
	BlockedPackages     []string `json:"blockedPackages"`
	BlockedKeywords     []string `json:"blockedKeywords"`
	WhitelistedWebsites []string `json:"whitelistedWebsites"`
	WhitelistedPackages []string `json:"whitelistedPackages"`
}

// StartRequest starts a session. A nil TargetDevices targets every device, nil lists fall
// back to the stored config and a zero Duration runs until stopped.
type StartRequest struct {
	TargetDevices   *entity.TargetDevices `json:"targetDevices,omitempty"`
	BlockedWebsites []string              `json:"blockedWebsites"`
	BlockedPackages []string              `json:"blockedPackages"`
	BlockedKeywords []string              `json:"blockedKeywords"`
	Duration        int64                 `json:"duration,omitempty"` // seconds
}

// Session is the session payload polled by devices.
type Session struct {
	ID                  string               `json:"id"`
	IsActive            bool                 `json:"isActive"`
	TargetDevices       entity.TargetDevices `json:"targetDevices"`
	BlockedWebsites     []string             `json:"blockedWebsites"`
	BlockedPackages     []string             `json:"blockedPackages"`
	BlockedKeywords     []string             `json:"blockedKeywords"`
	WhitelistedWebsites []string             `json:"whitelistedWebsites"`
	WhitelistedPackages []string             `json:"whitelistedPackages"`
	StartTime           time.Time            `json:"startTime"`
	EndTime             *time.Time           `json:"endTime"`
}

// Device is the registered device payload.
type Device struct {
	ID       string    `json:"deviceId"`
	Name     string    `json:"deviceName"`
	Kind     string    `json:"deviceType"`
	Platform string    `json:"platform"`
	Online   bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// Client talks to the focusguard server. It is safe for concurrent use.
type Client struct {
	http   *resty.Client
	logger *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient builds a client for cfg.Server.URL with the configured request timeout.
func NewClient(cfg *config.AgentConfig, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Server.URL, "/")).
		SetTimeout(cfg.Sync.RequestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "focusguard-agent")

	return &Client{
		http:   httpClient,
		logger: logger,
		token:  cfg.Server.Token,
	}
}

// Token returns the bearer token in use, or "" when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

// Login exchanges credentials for a token and starts using it.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &result); err != nil {
		return nil, err
	}
	c.SetToken(result.Token)

	return &result, nil
}

// RegisterDevice registers or re-registers this device for the current user.
func (c *Client) RegisterDevice(ctx context.Context, device Device) (*Device, error) {
	var result struct {
		Device *Device `json:"device"`
	}
	err := c.do(ctx, http.MethodPost, "/devices/register", map[string]string{
		"deviceId":   device.ID,
		"deviceName": device.Name,
		"deviceType": device.Kind,
		"platform":   device.Platform,
	}, &result)
	if err != nil {
		return nil, err
	}

	return result.Device, nil
}

// Heartbeat marks the device online.
func (c *Client) Heartbeat(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodPost, "/devices/heartbeat", map[string]string{"deviceId": deviceID}, nil)
}

// ListDevices returns the devices registered to the current user.
func (c *Client) ListDevices(ctx context.Context) ([]*Device, error) {
	var result struct {
		Devices []*Device `json:"devices"`
	}
	if err := c.do(ctx, http.MethodGet, "/devices", nil, &result); err != nil {
		return nil, err
	}

	return result.Devices, nil
}

// ActiveSession returns the active session targeting deviceID, or nil when there is none.
func (c *Client) ActiveSession(ctx context.Context, deviceID string) (*Session, error) {
	var result struct {
		Session *Session `json:"session"`
	}
	path := "/sessions/active"
	if deviceID != "" {
		path += "?deviceId=" + url.QueryEscape(deviceID)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	return result.Session, nil
}

// StartSession starts a new session, superseding the current one.
func (c *Client) StartSession(ctx context.Context, req StartRequest) (*Session, error) {
	var result struct {
		Session *Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions/start", req, &result); err != nil {
		return nil, err
	}

	return result.Session, nil
}

// StopSession stops sessionID, or every active session when sessionID is empty.
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	body := map[string]string{}
	if sessionID != "" {
		body["sessionId"] = sessionID
	}

	return c.do(ctx, http.MethodPost, "/sessions/stop", body, nil)
}

// GetConfig returns the stored lists.
func (c *Client) GetConfig(ctx context.Context) (*Lists, error) {
	var result Lists
	if err := c.do(ctx, http.MethodGet, "/config", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// UpdateConfig replaces the provided lists and returns the stored result.
func (c *Client) UpdateConfig(ctx context.Context, update ListsUpdate) (*Lists, error) {
	var result Lists
	if err := c.do(ctx, http.MethodPost, "/config", update, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var env domainerrors.Envelope

	req := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env)
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug("Request failed", slog.String("method", method), slog.String("path", path), slog.Any("error", err))

		return errors.Wrapf(ErrTransport, "%s %s: %v", method, path, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return errors.Wrapf(ErrTransport, "%s %s: %s", method, path, resp.Status())
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Code: "HTTP_ERROR", Message: resp.Status()}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}

		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s %s response", method, path)
	}

	return nil
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
