package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"skirent/internal/app/handlers/payments"
	"skirent/internal/app/handlers/refunds"
)

// Deduper suppresses event re-deliveries across consumer rebalances.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// GatewayEventHandler consumes payment gateway events from a broker feed.
// Some gateways deliver events over a queue bridge in addition to webhooks;
// both feeds converge on the same reconciliation services, which own all
// duplicate detection at the state level.
type GatewayEventHandler struct {
	Reconciler *payments.Reconciler
	Refunds    *refunds.Service
	Inbox      Deduper
	Logger     *slog.Logger
}

type gatewayEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"object"`
	} `json:"data"`
}

func (h GatewayEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event gatewayEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.ID == "" {
		if h.Logger != nil {
			h.Logger.Warn("gateway event malformed", "topic", msg.Topic, "offset", msg.Offset)
		}
		// Malformed events are acked; replaying them cannot help.
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, event.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	switch {
	case event.Type == "payment_intent.succeeded":
		return h.Reconciler.HandlePaymentSucceeded(ctx, event.Data.Object.ID)
	case strings.HasPrefix(event.Type, "payment_intent."):
		return h.Reconciler.HandlePaymentStatus(ctx, event.Data.Object.ID, event.Data.Object.Status)
	case strings.HasSuffix(event.Type, "refund.updated"):
		return h.Refunds.OnStatusChanged(ctx, event.Data.Object.ID, event.Data.Object.Status)
	default:
		if h.Logger != nil {
			h.Logger.Debug("gateway event ignored", "type", event.Type)
		}
		return nil
	}
}
