package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-api/internal/events"
)

// AuditService writes an audit trail line for every session and content event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventAccountRegistered,
		events.EventAccountLoggedIn,
		events.EventTokenRefreshed,
		events.EventAccountLoggedOut,
	} {
		a.dispatcher.Subscribe(eventType, a.handleSessionEvent)
	}
	for _, eventType := range []events.EventType{
		events.EventPostCreated,
		events.EventPostUpdated,
		events.EventPostDeleted,
		events.EventCommentCreated,
		events.EventCommentUpdated,
		events.EventCommentDeleted,
	} {
		a.dispatcher.Subscribe(eventType, a.handleContentEvent)
	}
}

func (a *AuditService) handleSessionEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("account_id", event.AccountID),
		zap.String("email", event.Email),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleContentEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("account_id", event.AccountID),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload))
	return nil
}
