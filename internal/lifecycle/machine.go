// Package lifecycle is the only place a booking's status changes and the only
// place transition legality is decided.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/event"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("actor is not allowed to perform this transition")
)

var transitions = map[entity.BookingStatus][]entity.BookingStatus{
	entity.BookingStatusPending:    {entity.BookingStatusConfirmed, entity.BookingStatusCancelled},
	entity.BookingStatusConfirmed:  {entity.BookingStatusInProgress, entity.BookingStatusCancelled, entity.BookingStatusNoShow},
	entity.BookingStatusInProgress: {entity.BookingStatusCompleted, entity.BookingStatusCancelled},
	entity.BookingStatusCompleted:  {},
	entity.BookingStatusCancelled:  {},
	entity.BookingStatusNoShow:     {},
}

// AllowedTargets lists the statuses reachable from the given one.
func AllowedTargets(from entity.BookingStatus) []entity.BookingStatus {
	return append([]entity.BookingStatus(nil), transitions[from]...)
}

func CanTransition(from, to entity.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RefundQuoter computes, without applying, the refund owed on cancellation.
type RefundQuoter interface {
	Refund(total int64, scheduled, cancelledAt time.Time) int64
	RefundPercent(scheduled, cancelledAt time.Time) int64
}

type Machine struct {
	refunds RefundQuoter
}

func NewMachine(refunds RefundQuoter) *Machine {
	return &Machine{refunds: refunds}
}

type Request struct {
	Target   entity.BookingStatus
	Actor    entity.Actor
	Reason   string
	Comments string
	At       time.Time
	// Work is merged into the work summary when starting or completing.
	Work *WorkNotes
}

type WorkNotes struct {
	BeforeEvidence []string
	AfterEvidence  []string
	Narrative      string
}

// Open starts the ledger of a freshly created booking.
func Open(b *entity.Booking, actor entity.Actor, at time.Time) {
	b.Status = entity.BookingStatusPending
	b.StatusHistory.Append(entity.StatusHistoryEntry{
		Status:    entity.BookingStatusPending,
		Actor:     actor.ID,
		Timestamp: at,
		Reason:    "booking created",
	})
}

// Transition returns an updated copy of b moved to req.Target, along with the
// events downstream collaborators should receive once the copy is persisted.
// The input booking is never modified.
func (m *Machine) Transition(b *entity.Booking, req Request) (*entity.Booking, []event.Event, error) {
	from := b.Status
	if !CanTransition(from, req.Target) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, req.Target)
	}
	if err := authorize(b, req.Target, req.Actor); err != nil {
		return nil, nil, err
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	next := b.Clone()
	next.StatusHistory.Append(entity.StatusHistoryEntry{
		Status:    req.Target,
		Actor:     req.Actor.ID,
		Timestamp: at,
		Reason:    req.Reason,
		Comments:  req.Comments,
	})
	next.Status = req.Target
	next.UpdatedAt = at

	events := []event.Event{
		event.New(event.BookingStatusChanged, next.ID, next.BookingNumber, req.Actor.ID, at, map[string]any{
			"from":       string(from),
			"to":         string(req.Target),
			"reason":     req.Reason,
			"customerId": next.CustomerID.String(),
			"providerId": next.ProviderID.String(),
		}),
	}

	switch req.Target {
	case entity.BookingStatusInProgress:
		ws := workSummary(next)
		if ws.StartedAt == nil {
			ws.StartedAt = &at
		}
		mergeWork(ws, req.Work)
	case entity.BookingStatusCompleted:
		ws := workSummary(next)
		ws.EndedAt = &at
		mergeWork(ws, req.Work)
		if ws.StartedAt != nil {
			minutes := int(ws.EndedAt.Sub(*ws.StartedAt) / time.Minute)
			next.ActualDuration = &minutes
		}
	case entity.BookingStatusCancelled:
		actorID := req.Actor.ID
		next.Cancellation.CancelledAt = &at
		next.Cancellation.CancelledBy = &actorID
		if req.Reason != "" {
			reason := req.Reason
			next.Cancellation.Reason = &reason
		}
		if m.refunds != nil {
			next.Cancellation.SuggestedRefund = m.refunds.Refund(next.Pricing.TotalAmount, next.ScheduledDate, at)
			events = append(events, event.New(event.RefundSuggested, next.ID, next.BookingNumber, req.Actor.ID, at, map[string]any{
				"amount":        next.Cancellation.SuggestedRefund,
				"percent":       m.refunds.RefundPercent(next.ScheduledDate, at),
				"paymentStatus": string(next.Payment.Status),
			}))
		}
	}

	return next, events, nil
}

func workSummary(b *entity.Booking) *entity.WorkSummary {
	if b.WorkSummary == nil {
		b.WorkSummary = &entity.WorkSummary{}
	}
	return b.WorkSummary
}

func mergeWork(ws *entity.WorkSummary, notes *WorkNotes) {
	if notes == nil {
		return
	}
	ws.BeforeEvidence = append(ws.BeforeEvidence, notes.BeforeEvidence...)
	ws.AfterEvidence = append(ws.AfterEvidence, notes.AfterEvidence...)
	if notes.Narrative != "" {
		ws.Narrative = notes.Narrative
	}
}
