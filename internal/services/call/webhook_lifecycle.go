package call

import (
	"context"
	"fmt"

	adapterhttp "github.com/ClareAI/astra-dialer-service/internal/adapters/http"
	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"go.uber.org/zap"
)

// WebhookAPI is the slice of the webhook registry the lifecycle needs.
type WebhookAPI interface {
	CreateWebhook(ctx context.Context, callbackURL string, events []string) (*adapterhttp.Webhook, error)
	DeleteWebhook(ctx context.Context, webhookID string) error
}

// WebhookLifecycle registers and tears down per-call webhooks. Both
// directions are best-effort: a failed registration degrades the session
// instead of failing the dial, and unregistration never propagates errors.
type WebhookLifecycle struct {
	hooks       WebhookAPI
	callbackURL string
	events      []string
}

func NewWebhookLifecycle(hooks WebhookAPI, callbackBaseURL string) *WebhookLifecycle {
	return &WebhookLifecycle{
		hooks:       hooks,
		callbackURL: fmt.Sprintf("%s/webhooks/call-events", callbackBaseURL),
		events: []string{
			domain.EventCallStarted,
			domain.EventCallAnswered,
			domain.EventCallEnded,
		},
	}
}

// Register creates a webhook pointing at the inbound event endpoint. On
// failure it logs and returns an empty id; the caller proceeds degraded.
func (w *WebhookLifecycle) Register(ctx context.Context, roomID string) string {
	hook, err := w.hooks.CreateWebhook(ctx, w.callbackURL, w.events)
	if err != nil {
		logger.Base().Warn("Webhook registration failed, continuing without call events",
			zap.String("room_id", roomID),
			zap.Error(err))
		return ""
	}

	logger.Base().Info("Webhook registered",
		zap.String("room_id", roomID),
		zap.String("webhook_id", hook.ID))
	return hook.ID
}

// Unregister deletes a webhook. Empty ids are a no-op; deletion failures are
// logged and swallowed so cleanup keeps going.
func (w *WebhookLifecycle) Unregister(ctx context.Context, webhookID string) {
	if webhookID == "" {
		return
	}
	if err := w.hooks.DeleteWebhook(ctx, webhookID); err != nil {
		logger.Base().Warn("Webhook unregistration failed",
			zap.String("webhook_id", webhookID),
			zap.Error(err))
		return
	}
	logger.Base().Info("Webhook unregistered", zap.String("webhook_id", webhookID))
}
