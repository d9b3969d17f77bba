package usecase

import (
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/lifecycle"

	"go.uber.org/zap"
)

type applyOutcome string

const (
	outcomeApplied   applyOutcome = "applied"
	outcomeDuplicate applyOutcome = "duplicate"
	outcomeIgnored   applyOutcome = "ignored"
	outcomeConflict  applyOutcome = "conflict"
)

// capturedPayment is a successful payment as reported by the client callback,
// a webhook or the reconciler.
type capturedPayment struct {
	PaymentID string
	Amount    int64
	At        time.Time
	Actor     entity.Actor
	Source    string
}

// applyCapture records a captured payment and confirms a pending booking.
// Reports for a payment that is already recorded are no-ops. A second,
// different payment for a settled booking is flagged and left alone.
func (s *bookingStore) applyCapture(current *entity.Booking, p capturedPayment) (*entity.Booking, []event.Event, applyOutcome, error) {
	log := s.log.With(
		zap.String("booking_id", current.ID.String()),
		zap.String("payment_id", p.PaymentID),
		zap.String("source", p.Source),
	)

	if current.Payment.IsSettled() {
		if current.Payment.HasTransaction(p.PaymentID) {
			return nil, nil, outcomeDuplicate, nil
		}
		existing := ""
		if current.Payment.TransactionID != nil {
			existing = *current.Payment.TransactionID
		}
		log.Error("Conflicting payment report for settled booking",
			zap.String("recorded_payment_id", existing),
			zap.String("payment_status", string(current.Payment.Status)),
		)
		s.metrics.PaymentConflicts.Inc()
		evt := event.New(event.PaymentConflict, current.ID, current.BookingNumber, p.Actor.ID, p.At, map[string]any{
			"recordedPaymentId": existing,
			"reportedPaymentId": p.PaymentID,
			"reportedAmount":    p.Amount,
			"source":            p.Source,
		})
		return nil, []event.Event{evt}, outcomeConflict, nil
	}

	if p.Amount != current.Pricing.TotalAmount {
		log.Warn("Captured amount differs from booking total",
			zap.Int64("amount", p.Amount),
			zap.Int64("total", current.Pricing.TotalAmount),
		)
	}

	at := p.At.UTC()
	paymentID := p.PaymentID
	next := current.Clone()
	next.Payment.Status = entity.PaymentStatusPaid
	next.Payment.TransactionID = &paymentID
	next.Payment.PaidAmount = p.Amount
	next.Payment.PaidAt = &at
	next.Payment.FailureReason = nil
	next.UpdatedAt = at

	events := []event.Event{
		event.New(event.PaymentCaptured, next.ID, next.BookingNumber, p.Actor.ID, at, map[string]any{
			"paymentId": paymentID,
			"amount":    p.Amount,
			"currency":  next.Pricing.Currency,
			"source":    p.Source,
		}),
	}

	switch next.Status {
	case entity.BookingStatusPending:
		confirmed, transitionEvents, err := s.machine.Transition(next, lifecycle.Request{
			Target: entity.BookingStatusConfirmed,
			Actor:  p.Actor,
			Reason: "payment captured",
			At:     at,
		})
		if err != nil {
			return nil, nil, "", err
		}
		next = confirmed
		events = append(events, transitionEvents...)
	case entity.BookingStatusCancelled:
		log.Warn("Payment captured for a cancelled booking, recording without transition")
	}

	return next, events, outcomeApplied, nil
}

// applyFailure marks the payment failed. A settled payment is never downgraded.
func (s *bookingStore) applyFailure(current *entity.Booking, paymentID, reason string, actor entity.Actor, at time.Time) (*entity.Booking, []event.Event, applyOutcome) {
	if current.Payment.IsSettled() {
		s.log.Info("Ignoring failure report for settled payment",
			zap.String("booking_id", current.ID.String()),
			zap.String("payment_id", paymentID),
		)
		return nil, nil, outcomeIgnored
	}
	if current.Payment.Status == entity.PaymentStatusFailed && current.Payment.HasTransaction(paymentID) {
		return nil, nil, outcomeDuplicate
	}

	at = at.UTC()
	if reason == "" {
		reason = "payment failed"
	}
	next := current.Clone()
	next.Payment.Status = entity.PaymentStatusFailed
	next.Payment.TransactionID = &paymentID
	next.Payment.FailureReason = &reason
	next.UpdatedAt = at

	evt := event.New(event.PaymentFailed, next.ID, next.BookingNumber, actor.ID, at, map[string]any{
		"paymentId": paymentID,
		"reason":    reason,
	})
	return next, []event.Event{evt}, outcomeApplied
}

// applyRefund records the provider's running refunded total for the payment.
// refunded is absolute, so replays and out-of-order deliveries of older
// refunds never add up twice.
func (s *bookingStore) applyRefund(current *entity.Booking, refundID string, refunded, captured int64, actor entity.Actor, at time.Time) (*entity.Booking, []event.Event, applyOutcome) {
	log := s.log.With(
		zap.String("booking_id", current.ID.String()),
		zap.String("refund_id", refundID),
	)

	if !current.Payment.IsSettled() {
		log.Warn("Refund reported for a booking without a captured payment",
			zap.String("payment_status", string(current.Payment.Status)),
		)
		return nil, nil, outcomeIgnored
	}
	if refunded <= current.Payment.RefundAmount {
		return nil, nil, outcomeDuplicate
	}
	if refunded > current.Pricing.TotalAmount {
		log.Error("Refunded amount exceeds booking total",
			zap.Int64("refunded", refunded),
			zap.Int64("total", current.Pricing.TotalAmount),
		)
		s.metrics.PaymentConflicts.Inc()
		evt := event.New(event.PaymentConflict, current.ID, current.BookingNumber, actor.ID, at, map[string]any{
			"refundId": refundID,
			"refunded": refunded,
			"total":    current.Pricing.TotalAmount,
		})
		return nil, []event.Event{evt}, outcomeConflict
	}

	if captured <= 0 {
		captured = current.Payment.PaidAmount
	}
	at = at.UTC()
	next := current.Clone()
	next.Payment.RefundTransactionID = &refundID
	next.Payment.RefundAmount = refunded
	next.Payment.RefundedAt = &at
	next.Payment.Status = entity.PaymentStatusPartiallyRefunded
	if refunded >= captured {
		next.Payment.Status = entity.PaymentStatusRefunded
	}
	next.UpdatedAt = at

	evt := event.New(event.PaymentRefunded, next.ID, next.BookingNumber, actor.ID, at, map[string]any{
		"refundId": refundID,
		"amount":   refunded - current.Payment.RefundAmount,
		"refunded": refunded,
		"status":   string(next.Payment.Status),
	})
	return next, []event.Event{evt}, outcomeApplied
}
