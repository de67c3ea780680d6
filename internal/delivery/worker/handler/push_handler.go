// Package handler contains the Pub/Sub push handlers of the worker.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"focusguard/config"
	deliverycontext "focusguard/internal/delivery/context"
	"focusguard/internal/domain/constants"
	"focusguard/internal/domain/entity"
	"focusguard/internal/domain/repository"
	"focusguard/internal/domain/service"
	"focusguard/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"google.golang.org/api/idtoken"
)

// Outcomes recorded for each received session event.
const (
	OutcomeProcessed = "processed"
	OutcomeStale     = "stale"
	OutcomeUnknown   = "unknown_session"
	OutcomeRejected  = "rejected"
	OutcomeRetry     = "retry"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// retryableError wraps an error to indicate it should trigger a Pub/Sub retry
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.err)
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func newRetryableError(err error) error {
	return &retryableError{err: err}
}

func isRetryableError(err error) bool {
	var re *retryableError

	return errors.As(err, &re)
}

// PushHandler consumes session lifecycle events and reconciles them with the stored session.
type PushHandler struct {
	verifyPushAuth bool
	logger         *slog.Logger
	sessionRepo    repository.SessionRepository
	metrics        *metrics.Metrics
}

// PushHandlerParams holds dependencies for the PushHandler
type PushHandlerParams struct {
	fx.In

	Config      *config.Config
	Logger      *slog.Logger
	SessionRepo repository.SessionRepository
	Metrics     *metrics.Metrics `optional:"true"`
}

// NewPushHandler creates a new Pub/Sub push handler
func NewPushHandler(params PushHandlerParams) *PushHandler {
	// Only Google push requests carry an OIDC token
	verifyPushAuth := params.Config.PubSub != nil &&
		strings.EqualFold(params.Config.PubSub.Provider, constants.PubSubProviderGoogle) &&
		params.Config.Env.Env != constants.EnvDevelop

	return &PushHandler{
		verifyPushAuth: verifyPushAuth,
		logger:         params.Logger,
		sessionRepo:    params.SessionRepo,
		metrics:        params.Metrics,
	}
}

// HandlePush handles incoming Pub/Sub push messages
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()

	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			h.logger.Warn("[Worker] Invalid Pub/Sub token", slog.Any("error", err))
			h.observe("", OutcomeRejected)

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var pushMsg PubSubMessage
	if err := c.Bind(&pushMsg); err != nil {
		h.logger.Error("[Worker] Failed to parse push message", slog.Any("error", err))
		h.observe("", OutcomeRejected)

		return c.NoContent(http.StatusBadRequest)
	}

	data, err := base64.StdEncoding.DecodeString(pushMsg.Message.Data)
	if err != nil {
		h.logger.Error("[Worker] Failed to decode message data", slog.Any("error", err))
		h.observe("", OutcomeRejected)

		return c.NoContent(http.StatusBadRequest)
	}

	var event service.SessionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Error("[Worker] Failed to parse session event", slog.Any("error", err))
		h.observe("", OutcomeRejected)

		return c.NoContent(http.StatusBadRequest)
	}

	requestID := h.extractRequestID(ctx, &pushMsg, &event)
	reqLogger := h.logger.With(slog.String("request_id", requestID))
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, reqLogger)

	outcome, err := h.processEvent(ctx, &event)
	if err != nil {
		retryable := isRetryableError(err)
		reqLogger.Error("[Worker] Failed to process session event",
			slog.String("type", string(event.Type)),
			slog.String("session_id", event.SessionID),
			slog.Any("error", err),
			slog.Bool("retryable", retryable),
		)
		// 503 asks Pub/Sub to redeliver; 200 drops a message that can never succeed
		if retryable {
			h.observe(event.Type, OutcomeRetry)

			return c.NoContent(http.StatusServiceUnavailable)
		}
		h.observe(event.Type, OutcomeRejected)

		return c.NoContent(http.StatusOK)
	}

	h.observe(event.Type, outcome)

	return c.NoContent(http.StatusOK)
}

// extractRequestID extracts request_id from message attributes, event, or generates a new one
func (h *PushHandler) extractRequestID(ctx context.Context, pushMsg *PubSubMessage, event *service.SessionEvent) string {
	if requestID, ok := pushMsg.Message.Attributes["request_id"]; ok && requestID != "" {
		return requestID
	}
	if event.RequestID != "" {
		return event.RequestID
	}
	if requestID := deliverycontext.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}

	return uuid.New().String()
}

// processEvent compares the event with the stored session and records the transition.
// An event is stale when the stored session has already moved past the state it describes.
func (h *PushHandler) processEvent(ctx context.Context, event *service.SessionEvent) (string, error) {
	logger := deliverycontext.GetLoggerOrDefault(ctx, h.logger)

	sessionID, err := uuid.Parse(event.SessionID)
	if err != nil {
		return "", errors.Wrap(err, "invalid session id")
	}

	session, err := h.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			logger.Warn("[Worker] Event for unknown session",
				slog.String("type", string(event.Type)),
				slog.String("session_id", event.SessionID),
			)

			return OutcomeUnknown, nil
		}

		return "", newRetryableError(errors.WithStack(err))
	}

	outcome := OutcomeProcessed
	if isStale(event.Type, session) {
		outcome = OutcomeStale
	}

	logger.Info("[Worker] Session event",
		slog.String("type", string(event.Type)),
		slog.String("session_id", event.SessionID),
		slog.String("user_id", event.UserID),
		slog.String("target", session.TargetDevices.String()),
		slog.Bool("active", session.Active),
		slog.String("outcome", outcome),
	)

	return outcome, nil
}

// isStale reports whether an event that describes an active session arrives after the session ended.
func isStale(eventType service.SessionEventType, session *entity.Session) bool {
	switch eventType {
	case service.SessionStarted, service.SessionConfigSynced:
		return !session.Active
	default:
		return false
	}
}

func (h *PushHandler) observe(eventType service.SessionEventType, outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveReceivedEvent(string(eventType), outcome)
}

// verifyPubSubToken verifies the JWT token from Google Pub/Sub push requests
// Reference: https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return errors.New("invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)

	// The audience is the URL of this endpoint
	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := idtoken.Validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
