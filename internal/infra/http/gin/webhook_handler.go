package ginserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"skirent/internal/app/handlers/payments"
	"skirent/internal/app/handlers/refunds"
	"skirent/internal/app/middleware"
	"skirent/internal/infra/payment"
)

const signatureHeader = "Gateway-Signature"

type WebhookHTTP interface {
	Handle(c *gin.Context)
}

// webhookEvent is the gateway's event envelope.
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type intentObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type refundObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// WebhookHandler terminates gateway webhooks: signature check, duplicate
// suppression by event id, then dispatch to the reconciliation services.
// Every accepted event is answered 200 even when it maps to nothing, so
// the gateway stops retrying.
type WebhookHandler struct {
	Verifier   payment.Verifier
	Reconciler *payments.Reconciler
	Refunds    *refunds.Service
	Events     middleware.IdempotencyStore
	Logger     *slog.Logger
}

func (h WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if err := h.Verifier.Verify(c.GetHeader(signatureHeader), body, time.Now().UTC()); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("webhook signature rejected", "error", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	if h.Events != nil {
		if _, seen, err := h.Events.Get(c.Request.Context(), eventKey(event.ID)); err == nil && seen {
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
	}

	if err := h.dispatch(c, event); err != nil {
		if h.Logger != nil {
			h.Logger.Error("webhook processing failed", "event_id", event.ID, "type", event.Type, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	if h.Events != nil {
		rec := middleware.IdempotencyRecord{Key: eventKey(event.ID), OccurredAt: time.Now().UTC()}
		if err := h.Events.Save(c.Request.Context(), rec); err != nil && h.Logger != nil {
			h.Logger.Warn("webhook event record not saved", "event_id", event.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h WebhookHandler) dispatch(c *gin.Context, event webhookEvent) error {
	ctx := c.Request.Context()
	switch {
	case event.Type == "payment_intent.succeeded":
		var intent intentObject
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			return err
		}
		return h.Reconciler.HandlePaymentSucceeded(ctx, intent.ID)
	case strings.HasPrefix(event.Type, "payment_intent."):
		var intent intentObject
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			return err
		}
		return h.Reconciler.HandlePaymentStatus(ctx, intent.ID, intent.Status)
	case strings.HasSuffix(event.Type, "refund.updated"):
		var ref refundObject
		if err := json.Unmarshal(event.Data.Object, &ref); err != nil {
			return err
		}
		return h.Refunds.OnStatusChanged(ctx, ref.ID, ref.Status)
	default:
		if h.Logger != nil {
			h.Logger.Debug("webhook event ignored", "type", event.Type)
		}
		return nil
	}
}

func eventKey(eventID string) string {
	return "webhook:" + eventID
}

var _ WebhookHTTP = (*WebhookHandler)(nil)
