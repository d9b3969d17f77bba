package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Webhook event types the processor acts on.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
	EventOrderPaid       = "order.paid"
)

var ErrMalformedWebhook = errors.New("malformed webhook payload")

// WebhookEvent is a decoded provider notification. Only the entities present
// in the payload are set.
type WebhookEvent struct {
	Type      string
	AccountID string
	CreatedAt time.Time
	Payment   *Payment
	Refund    *Refund
	Order     *Order
}

// ParseWebhook decodes a raw notification body. Signature validation must
// happen before this is called.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var raw struct {
		Event     string `json:"event"`
		AccountID string `json:"account_id"`
		CreatedAt int64  `json:"created_at"`
		Payload   struct {
			Payment *struct {
				Entity razorpayPayment `json:"entity"`
			} `json:"payment"`
			Refund *struct {
				Entity razorpayRefund `json:"entity"`
			} `json:"refund"`
			Order *struct {
				Entity razorpayOrder `json:"entity"`
			} `json:"order"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if raw.Event == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedWebhook)
	}

	evt := &WebhookEvent{
		Type:      raw.Event,
		AccountID: raw.AccountID,
		CreatedAt: unixTime(raw.CreatedAt),
	}
	var err error
	if raw.Payload.Payment != nil {
		if evt.Payment, err = raw.Payload.Payment.Entity.toPayment(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedWebhook, err)
		}
	}
	if raw.Payload.Refund != nil {
		if evt.Refund, err = raw.Payload.Refund.Entity.toRefund(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedWebhook, err)
		}
	}
	if raw.Payload.Order != nil {
		if evt.Order, err = raw.Payload.Order.Entity.toOrder(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedWebhook, err)
		}
	}
	return evt, nil
}

// BuildWebhook encodes an event in the provider's wire format. Used by the
// mock gateway and tests to produce deliverable notifications.
func BuildWebhook(eventType string, payment *Payment, refund *Refund, order *Order) ([]byte, error) {
	payload := map[string]any{}
	if payment != nil {
		payload["payment"] = map[string]any{"entity": fromPayment(payment)}
	}
	if refund != nil {
		payload["refund"] = map[string]any{"entity": fromRefund(refund)}
	}
	if order != nil {
		payload["order"] = map[string]any{"entity": fromOrder(order)}
	}
	return json.Marshal(map[string]any{
		"entity":     "event",
		"event":      eventType,
		"payload":    payload,
		"created_at": time.Now().Unix(),
	})
}

func fromPayment(p *Payment) razorpayPayment {
	return razorpayPayment{
		ID:               p.ID,
		OrderID:          p.OrderID,
		Amount:           p.Amount * minorPerMajor,
		AmountRefunded:   p.AmountRefunded * minorPerMajor,
		Currency:         p.Currency,
		Status:           p.Status,
		Method:           p.Method,
		Notes:            p.Notes,
		ErrorDescription: p.ErrorReason,
		CreatedAt:        unixSeconds(p.CreatedAt),
	}
}

func fromRefund(r *Refund) razorpayRefund {
	return razorpayRefund{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Amount:    r.Amount * minorPerMajor,
		Currency:  r.Currency,
		Status:    r.Status,
		Notes:     r.Notes,
		CreatedAt: unixSeconds(r.CreatedAt),
	}
}

func fromOrder(o *Order) razorpayOrder {
	return razorpayOrder{
		ID:         o.ID,
		Amount:     o.Amount * minorPerMajor,
		AmountPaid: o.AmountPaid * minorPerMajor,
		Currency:   o.Currency,
		Receipt:    o.Receipt,
		Status:     o.Status,
		Notes:      o.Notes,
		CreatedAt:  unixSeconds(o.CreatedAt),
	}
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
