package entity

import "time"

type WebhookEventStatus string

const (
	WebhookEventReceived  WebhookEventStatus = "received"
	WebhookEventProcessed WebhookEventStatus = "processed"
	WebhookEventFailed    WebhookEventStatus = "failed"
)

// WebhookEvent is the inbox record of a gateway delivery, kept for audit and
// for cross-instance de-duplication.
type WebhookEvent struct {
	ID         string             `dynamodbav:"event_id"`
	Provider   string             `dynamodbav:"provider"`
	Type       string             `dynamodbav:"event_type"`
	Status     WebhookEventStatus `dynamodbav:"status"`
	Attempts   int                `dynamodbav:"attempts"`
	LastError  string             `dynamodbav:"last_error,omitempty"`
	RawBody    string             `dynamodbav:"raw_body"`
	ReceivedAt time.Time          `dynamodbav:"received_at"`
	UpdatedAt  time.Time          `dynamodbav:"updated_at"`
}
