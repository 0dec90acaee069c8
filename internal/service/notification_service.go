package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/config"
	"github.com/spec-kit/supportpilot/internal/domain"
	"github.com/spec-kit/supportpilot/internal/events"
	"github.com/spec-kit/supportpilot/internal/repository"
)

// NotificationService records ticket activity and forwards it to the
// configured notification channels.
type NotificationService struct {
	dispatcher events.Dispatcher
	activity   repository.ActivityRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. activity may be nil.
func NewNotificationService(dispatcher events.Dispatcher, activity repository.ActivityRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		activity:   activity,
		logger:     logger,
		cfg:        cfg,
	}
}

// notifyChannels lists which notification stubs fire for each event type.
var notifyChannels = map[events.EventType]struct{ email, webhook bool }{
	events.EventTicketCreated:          {email: true, webhook: true},
	events.EventTicketStatusChanged:    {webhook: true},
	events.EventTicketAIOutputSaved:    {email: true, webhook: true},
	events.EventTicketAIOutputRestored: {},
	events.EventTicketDeleted:          {webhook: true},
	events.EventTicketsCleared:         {webhook: true},
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for eventType := range notifyChannels {
		n.dispatcher.Subscribe(eventType, n.notify)
	}
	if n.activity != nil {
		n.dispatcher.SubscribeAll(n.record)
	}
}

func (n *NotificationService) notify(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload),
	}
	if event.Type == events.EventTicketsCleared {
		n.logger.Warn("ticket event", fields...)
	} else {
		n.logger.Info("ticket event", fields...)
	}

	ch := notifyChannels[event.Type]
	if ch.email {
		n.sendEmailNotificationStub(ctx, event)
	}
	if ch.webhook {
		n.sendWebhookNotificationStub(ctx, event)
	}
	return nil
}

// record appends event to the activity log.
func (n *NotificationService) record(ctx context.Context, event events.Event) error {
	entry := &domain.ActivityEntry{
		EventID:   event.ID,
		TicketID:  event.TicketID,
		Type:      string(event.Type),
		CreatedAt: event.Timestamp,
	}
	if event.Payload != nil {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", event.Type, err)
		}
		entry.Payload = payload
	}
	if err := n.activity.Append(ctx, entry); err != nil {
		return fmt.Errorf("record %s activity: %w", event.Type, err)
	}
	return n.prune(ctx, event)
}

// prune lets a bounded activity log forget tickets that no longer exist.
func (n *NotificationService) prune(ctx context.Context, event events.Event) error {
	pruner, ok := n.activity.(repository.ActivityPruner)
	if !ok {
		return nil
	}
	var err error
	switch event.Type {
	case events.EventTicketDeleted:
		err = pruner.Forget(ctx, event.TicketID)
	case events.EventTicketsCleared:
		err = pruner.ForgetTickets(ctx)
	}
	if err != nil {
		return fmt.Errorf("prune activity after %s: %w", event.Type, err)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
