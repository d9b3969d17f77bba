package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusNoShow     BookingStatus = "no_show"
)

func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

type Charge struct {
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	AddedBy     string    `json:"addedBy"`
	AddedAt     time.Time `json:"addedAt"`
}

// Pricing amounts are whole currency units; fractional units are never stored.
type Pricing struct {
	BaseAmount        int64    `db:"base_amount" json:"baseAmount"`
	AdditionalCharges []Charge `db:"additional_charges" json:"additionalCharges"`
	Discount          int64    `db:"discount" json:"discount"`
	TaxAmount         int64    `db:"tax_amount" json:"taxAmount"`
	TotalAmount       int64    `db:"total_amount" json:"totalAmount"`
	Currency          string   `db:"currency" json:"currency"`
}

func (p Pricing) AdditionalTotal() int64 {
	var sum int64
	for _, c := range p.AdditionalCharges {
		sum += c.Amount
	}
	return sum
}

type Cancellation struct {
	CancelledAt     *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy     *string    `db:"cancelled_by" json:"cancelledBy,omitempty"`
	Reason          *string    `db:"cancellation_reason" json:"reason,omitempty"`
	SuggestedRefund int64      `db:"suggested_refund" json:"suggestedRefund"`
}

type WorkSummary struct {
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
	BeforeEvidence []string   `json:"beforeEvidence,omitempty"`
	AfterEvidence  []string   `json:"afterEvidence,omitempty"`
	Narrative      string     `json:"narrative,omitempty"`
}

type Booking struct {
	Base
	Versioned
	BookingNumber       string        `db:"booking_number"`
	CustomerID          uuid.UUID     `db:"customer_id"`
	ProviderID          uuid.UUID     `db:"provider_id"`
	ServiceID           uuid.UUID     `db:"service_id"`
	ScheduledDate       time.Time     `db:"scheduled_date"`
	EstimatedDuration   int           `db:"estimated_duration"`
	ActualDuration      *int          `db:"actual_duration"`
	Address             string        `db:"address"`
	ContactPhone        *string       `db:"contact_phone"`
	SpecialInstructions *string       `db:"special_instructions"`
	Status              BookingStatus `db:"status"`
	Pricing             Pricing
	Payment             Payment
	Cancellation        Cancellation
	WorkSummary         *WorkSummary  `db:"work_summary"`
	StatusHistory       StatusHistory `db:"status_history"`
}

var ErrInvariantViolated = errors.New("booking invariant violated")

// CheckInvariants reports the first broken data-model rule, if any. The
// repositories refuse to persist a booking that fails it.
func (b *Booking) CheckInvariants() error {
	p := b.Pricing
	expected := p.BaseAmount + p.AdditionalTotal() + p.TaxAmount - p.Discount
	if expected < 0 {
		expected = 0
	}
	if p.TotalAmount != expected {
		return fmt.Errorf("%w: total %d != %d", ErrInvariantViolated, p.TotalAmount, expected)
	}
	if b.Payment.RefundAmount < 0 || b.Payment.RefundAmount > p.TotalAmount {
		return fmt.Errorf("%w: refund %d outside [0, %d]", ErrInvariantViolated, b.Payment.RefundAmount, p.TotalAmount)
	}
	if b.Payment.Status == PaymentStatusPaid && (b.Payment.TransactionID == nil || b.Payment.PaidAt == nil) {
		return fmt.Errorf("%w: paid without transaction id or paid-at", ErrInvariantViolated)
	}
	last, ok := b.StatusHistory.Last()
	if !ok {
		return fmt.Errorf("%w: empty status history", ErrInvariantViolated)
	}
	if last.Status != b.Status {
		return fmt.Errorf("%w: status %s != ledger %s", ErrInvariantViolated, b.Status, last.Status)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate freely before a
// compare-and-set write.
func (b *Booking) Clone() *Booking {
	cp := *b
	cp.Pricing.AdditionalCharges = append([]Charge(nil), b.Pricing.AdditionalCharges...)
	cp.StatusHistory = RestoreStatusHistory(b.StatusHistory.Entries())
	cp.ActualDuration = clonePtr(b.ActualDuration)
	cp.ContactPhone = clonePtr(b.ContactPhone)
	cp.SpecialInstructions = clonePtr(b.SpecialInstructions)
	cp.Payment.GatewayOrderID = clonePtr(b.Payment.GatewayOrderID)
	cp.Payment.TransactionID = clonePtr(b.Payment.TransactionID)
	cp.Payment.PaidAt = clonePtr(b.Payment.PaidAt)
	cp.Payment.RefundTransactionID = clonePtr(b.Payment.RefundTransactionID)
	cp.Payment.RefundedAt = clonePtr(b.Payment.RefundedAt)
	cp.Payment.FailureReason = clonePtr(b.Payment.FailureReason)
	cp.Cancellation.CancelledAt = clonePtr(b.Cancellation.CancelledAt)
	cp.Cancellation.CancelledBy = clonePtr(b.Cancellation.CancelledBy)
	cp.Cancellation.Reason = clonePtr(b.Cancellation.Reason)
	if b.WorkSummary != nil {
		ws := *b.WorkSummary
		ws.StartedAt = clonePtr(ws.StartedAt)
		ws.EndedAt = clonePtr(ws.EndedAt)
		ws.BeforeEvidence = append([]string(nil), ws.BeforeEvidence...)
		ws.AfterEvidence = append([]string(nil), ws.AfterEvidence...)
		cp.WorkSummary = &ws
	}
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
