package razorpay

import (
	"encoding/json"
	"fmt"

	xerrors "paywall-service/internal/pkg/errors"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// WebhookEvent is a Razorpay webhook body reduced to what confirmation needs.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment,omitempty"`
		Order *struct {
			Entity OrderEntity `json:"entity"`
		} `json:"order,omitempty"`
	} `json:"payload"`
}

type PaymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
}

type OrderEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, xerrors.Invalid("malformed webhook body: %v", err)
	}
	if ev.Event == "" {
		return nil, xerrors.Invalid("webhook body has no event")
	}
	return &ev, nil
}

// OrderID returns the order the event is about, preferring the order entity.
func (e *WebhookEvent) OrderID() string {
	if e.Payload.Order != nil && e.Payload.Order.Entity.ID != "" {
		return e.Payload.Order.Entity.ID
	}
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.OrderID
	}
	return ""
}

// PaymentID returns the payment id carried by the event, if any.
func (e *WebhookEvent) PaymentID() string {
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.ID
	}
	return ""
}

func (e *WebhookEvent) String() string {
	return fmt.Sprintf("%s order=%s payment=%s", e.Event, e.OrderID(), e.PaymentID())
}
