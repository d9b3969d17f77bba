// Package gateway is the narrow boundary to the payment provider. Amounts
// cross it in major currency units; conversion to the provider's minor units
// happens inside the adapters.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPaymentUnavailable means the adapter has no credentials configured.
	ErrPaymentUnavailable = errors.New("payment gateway is not configured")
	// ErrCommunication covers timeouts, transport failures, an open breaker and 5xx answers.
	ErrCommunication = errors.New("payment gateway communication failed")
	// ErrRejected is returned when the provider refuses a well-formed request.
	ErrRejected = errors.New("payment gateway rejected the request")
)

// Payment states as reported by the provider.
const (
	PaymentCreated    = "created"
	PaymentAuthorized = "authorized"
	PaymentCaptured   = "captured"
	PaymentRefunded   = "refunded"
	PaymentFailed     = "failed"
)

// NoteBookingID is the notes key that ties a gateway object back to a booking.
const NoteBookingID = "booking_id"

type OrderRequest struct {
	Amount         int64
	Currency       string
	Receipt        string
	Notes          Notes
	IdempotencyKey string
}

type Order struct {
	ID         string
	Amount     int64
	AmountPaid int64
	Currency   string
	Receipt    string
	Status     string
	Notes      Notes
	CreatedAt  time.Time
}

type Payment struct {
	ID             string
	OrderID        string
	Amount         int64
	AmountRefunded int64
	Currency       string
	Status         string
	Method         string
	Notes          Notes
	ErrorReason    string
	CreatedAt      time.Time
}

// BookingID returns the correlation id recorded at order creation.
func (p Payment) BookingID() string {
	return p.Notes[NoteBookingID]
}

type RefundRequest struct {
	PaymentID string
	// Amount nil refunds the full captured amount.
	Amount         *int64
	Notes          Notes
	IdempotencyKey string
}

type Refund struct {
	ID        string
	PaymentID string
	Amount    int64
	Currency  string
	Status    string
	Notes     Notes
	CreatedAt time.Time
}

type Gateway interface {
	IsAvailable() bool
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	Capture(ctx context.Context, paymentID string, amount int64, currency string) (*Payment, error)
	Refund(ctx context.Context, req RefundRequest) (*Refund, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	FetchOrderPayments(ctx context.Context, orderID string) ([]Payment, error)
	ValidateWebhookSignature(body []byte, signature, secret string) bool
}

// APIError is an error answer from the provider.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error %d %s: %s", e.StatusCode, e.Code, e.Description)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 || e.StatusCode == 429 {
		return ErrCommunication
	}
	return ErrRejected
}
