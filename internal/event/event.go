// Package event carries domain events from the booking engine to downstream
// collaborators (notifications, provider counters, analytics).
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	BookingCreated       Type = "booking.created"
	BookingStatusChanged Type = "booking.status_changed"
	RefundSuggested      Type = "booking.refund_suggested"
	PaymentCaptured      Type = "payment.captured"
	PaymentFailed        Type = "payment.failed"
	PaymentRefunded      Type = "payment.refunded"
	PaymentConflict      Type = "payment.conflict"
)

type Event struct {
	ID            uuid.UUID      `json:"id"`
	Type          Type           `json:"type"`
	BookingID     uuid.UUID      `json:"bookingId"`
	BookingNumber string         `json:"bookingNumber"`
	Actor         string         `json:"actor"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Data          map[string]any `json:"data,omitempty"`
}

func New(t Type, bookingID uuid.UUID, bookingNumber, actor string, at time.Time, data map[string]any) Event {
	return Event{
		ID:            uuid.New(),
		Type:          t,
		BookingID:     bookingID,
		BookingNumber: bookingNumber,
		Actor:         actor,
		OccurredAt:    at.UTC(),
		Data:          data,
	}
}

// Publisher delivers events after the change that produced them has been
// committed. Delivery is at-least-once from the caller's point of view.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}
