package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/media-locator/internal/config"
	"github.com/spec-kit/media-locator/internal/events"
)

// NotificationService handles emitting notifications for account events.
// Actual delivery (email, webhook) is stubbed; the external transport stays
// out of scope.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to account events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSignupActivation, n.handleEvent)
	n.dispatcher.Subscribe(events.EventSignupCompleted, n.handleEvent)
	n.dispatcher.Subscribe(events.EventSignInSuccess, n.handleEvent)
	n.dispatcher.Subscribe(events.EventAccountLocked, n.handleEvent)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handleEvent)
	n.dispatcher.Subscribe(events.EventAccountDeactivated, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("notification event",
		zap.String("type", string(event.Type)),
		zap.String("subject", event.Subject))
	n.sendEmailStub(ctx, event)
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", event.Email),
		zap.String("subject", event.Subject),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)))
}
