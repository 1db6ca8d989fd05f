package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/config"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/notify"
)

// financeAlertTimeout bounds one background alert delivery.
const financeAlertTimeout = 10 * time.Second

// NotificationService turns domain events into operator notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	logger     *zap.Logger
	cfg        config.NotificationConfig
	inflight   sync.WaitGroup
}

// NewNotificationService creates the service. mailer may be nil.
func NewNotificationService(dispatcher events.Dispatcher, mailer notify.Mailer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventNoticeConfirmed, n.handleNoticeConfirmed)
	n.dispatcher.Subscribe(events.EventFinanceSyncFailed, n.handleFinanceSyncFailed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("tenant_id", event.TenantID), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("tenant_id", event.TenantID), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleNoticeConfirmed(ctx context.Context, event events.Event) error {
	n.logger.Info("LiabilityNoticeConfirmed",
		zap.String("tenant_id", event.TenantID),
		zap.String("ticket_id", event.TicketID),
		zap.String("notice_id", event.NoticeID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// handleFinanceSyncFailed alerts finance staff; the notice needs manual
// reconciliation.
func (n *NotificationService) handleFinanceSyncFailed(ctx context.Context, event events.Event) error {
	n.logger.Warn("FinanceSyncFailed",
		zap.String("tenant_id", event.TenantID),
		zap.String("ticket_id", event.TicketID),
		zap.String("notice_id", event.NoticeID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	n.alertInBackground(ctx, event)
	return nil
}

// alertInBackground mails finance without holding up the request that
// published the event. The delivery keeps the request's values but not its
// cancellation.
func (n *NotificationService) alertInBackground(ctx context.Context, event events.Event) {
	if n.mailer == nil || strings.TrimSpace(n.cfg.FinanceAlertEmail) == "" {
		return
	}
	alertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), financeAlertTimeout)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error("finance alert panicked", zap.Any("panic", r), zap.String("notice_id", event.NoticeID))
			}
		}()
		if err := n.sendFinanceAlert(alertCtx, event); err != nil {
			n.logger.Error("finance alert failed",
				zap.String("tenant_id", event.TenantID),
				zap.String("notice_id", event.NoticeID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until queued alerts have been delivered or have timed out.
func (n *NotificationService) Wait() {
	n.inflight.Wait()
}

func (n *NotificationService) sendFinanceAlert(ctx context.Context, event events.Event) error {
	if n.mailer == nil || strings.TrimSpace(n.cfg.FinanceAlertEmail) == "" {
		return nil
	}
	noticeNo := event.NoticeID
	reason := ""
	if payload, ok := event.Payload.(events.FinanceSyncPayload); ok {
		if payload.NoticeNo != "" {
			noticeNo = payload.NoticeNo
		}
		reason = payload.Error
	}
	subject := fmt.Sprintf("Finance sync failed for liability notice %s", noticeNo)
	text := fmt.Sprintf("Liability notice %s (tenant %s, ticket %s) was confirmed but could not be synced to finance: %s. Reconcile it manually or retry the sync.",
		noticeNo, event.TenantID, event.TicketID, reason)
	body := fmt.Sprintf("<p>Liability notice <strong>%s</strong> was confirmed but could not be synced to finance.</p><p>%s</p>",
		html.EscapeString(noticeNo), html.EscapeString(reason))

	if err := n.mailer.Send(ctx, notify.Message{
		To:        n.cfg.FinanceAlertEmail,
		ToName:    "Finance",
		Subject:   subject,
		PlainText: text,
		HTML:      body,
	}); err != nil {
		return fmt.Errorf("send finance alert: %w", err)
	}
	return nil
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
