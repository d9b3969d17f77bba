package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/dto/response"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/pkg/metrics"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	defaultWebhookProvider = "razorpay"
	defaultDedupTTL        = 24 * time.Hour
)

// Webhook outcomes reported back to the caller and to metrics.
const (
	WebhookApplied   = "applied"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
	WebhookUnmatched = "unmatched"
	WebhookConflict  = "conflict"
	WebhookFailed    = "failed"
	WebhookRejected  = "rejected"
)

type WebhookService interface {
	// HandleWebhook authenticates, de-duplicates and applies one delivery.
	// A returned error other than a rejection means the gateway should
	// redeliver.
	HandleWebhook(ctx context.Context, provider string, body []byte, signature, eventID string) (*response.WebhookResponse, error)
}

type WebhookConfig struct {
	Provider string
	Secret   string
	DedupTTL time.Duration
}

type webhookService struct {
	store     *bookingStore
	gateway   gateway.Gateway
	inbox     repository.WebhookInbox
	processed *cache.Cache
	metrics   *metrics.Metrics
	cfg       WebhookConfig
	log       *zap.Logger
}

func newWebhookService(
	store *bookingStore,
	gw gateway.Gateway,
	inbox repository.WebhookInbox,
	m *metrics.Metrics,
	cfg WebhookConfig,
	log *zap.Logger,
) WebhookService {
	if cfg.Provider == "" {
		cfg.Provider = defaultWebhookProvider
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = defaultDedupTTL
	}
	return &webhookService{
		store:     store,
		gateway:   gw,
		inbox:     inbox,
		processed: cache.New(cfg.DedupTTL, cfg.DedupTTL*2),
		metrics:   m,
		cfg:       cfg,
		log:       log.With(zap.String("service", "webhook")),
	}
}

func (s *webhookService) HandleWebhook(ctx context.Context, provider string, body []byte, signature, eventID string) (*response.WebhookResponse, error) {
	if provider != s.cfg.Provider {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, provider)
	}
	if !s.gateway.ValidateWebhookSignature(body, signature, s.cfg.Secret) {
		s.log.Warn("Webhook signature verification failed", zap.String("provider", provider), zap.Int("size", len(body)))
		s.record("unknown", WebhookRejected)
		return nil, ErrSignatureInvalid
	}

	evt, err := gateway.ParseWebhook(body)
	if err != nil {
		s.log.Warn("Malformed webhook payload", zap.Error(err))
		s.record("unknown", WebhookRejected)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if eventID == "" {
		sum := sha256.Sum256(body)
		eventID = "sha256:" + hex.EncodeToString(sum[:])
	}
	log := s.log.With(zap.String("event_id", eventID), zap.String("event_type", evt.Type))

	if _, seen := s.processed.Get(eventID); seen {
		s.record(evt.Type, WebhookDuplicate)
		return &response.WebhookResponse{EventID: eventID, Outcome: WebhookDuplicate}, nil
	}

	claimed := true
	_, err = s.inbox.Claim(ctx, &entity.WebhookEvent{
		ID:         eventID,
		Provider:   provider,
		Type:       evt.Type,
		Status:     entity.WebhookEventReceived,
		RawBody:    string(body),
		ReceivedAt: time.Now().UTC(),
	})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		s.processed.SetDefault(eventID, struct{}{})
		s.record(evt.Type, WebhookDuplicate)
		log.Info("Webhook already processed")
		return &response.WebhookResponse{EventID: eventID, Outcome: WebhookDuplicate}, nil
	case err != nil:
		// handlers re-check booking state, so a missing inbox only costs audit
		claimed = false
		log.Warn("Webhook inbox unavailable, processing without it", zap.Error(err))
	}

	outcome, err := s.dispatch(ctx, evt)
	if err != nil {
		log.Error("Webhook processing failed", zap.Error(err))
		s.record(evt.Type, WebhookFailed)
		if claimed {
			if markErr := s.inbox.MarkFailed(ctx, eventID, err.Error()); markErr != nil {
				log.Warn("Failed to mark webhook as failed", zap.Error(markErr))
			}
		}
		return nil, err
	}

	if claimed {
		if markErr := s.inbox.MarkProcessed(ctx, eventID); markErr != nil {
			log.Warn("Failed to mark webhook as processed", zap.Error(markErr))
		}
	}
	s.processed.SetDefault(eventID, struct{}{})
	s.record(evt.Type, outcome)
	log.Info("Webhook processed", zap.String("outcome", outcome))

	return &response.WebhookResponse{EventID: eventID, Outcome: outcome}, nil
}

func (s *webhookService) dispatch(ctx context.Context, evt *gateway.WebhookEvent) (string, error) {
	switch evt.Type {
	case gateway.EventPaymentCaptured:
		if evt.Payment == nil {
			return "", fmt.Errorf("%w: payment entity missing", ErrValidation)
		}
		return s.onCaptured(ctx, evt.Payment)
	case gateway.EventPaymentFailed:
		if evt.Payment == nil {
			return "", fmt.Errorf("%w: payment entity missing", ErrValidation)
		}
		return s.onFailed(ctx, evt.Payment)
	case gateway.EventRefundCreated:
		if evt.Refund == nil {
			return "", fmt.Errorf("%w: refund entity missing", ErrValidation)
		}
		return s.onRefund(ctx, evt.Refund)
	case gateway.EventOrderPaid:
		if evt.Order != nil {
			s.log.Info("Order paid notification",
				zap.String("order_id", evt.Order.ID),
				zap.Int64("amount_paid", evt.Order.AmountPaid),
			)
		}
		return WebhookIgnored, nil
	default:
		s.log.Debug("Ignoring unhandled webhook type", zap.String("event_type", evt.Type))
		return WebhookIgnored, nil
	}
}

func (s *webhookService) onCaptured(ctx context.Context, p *gateway.Payment) (string, error) {
	var outcome applyOutcome
	return s.apply(ctx, p.BookingID(), p.OrderID, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		next, events, o, err := s.store.applyCapture(current, capturedPayment{
			PaymentID: p.ID,
			Amount:    p.Amount,
			At:        s.store.now(),
			Actor:     entity.ActorWebhook,
			Source:    "webhook",
		})
		outcome = o
		return next, events, err
	}, &outcome)
}

func (s *webhookService) onFailed(ctx context.Context, p *gateway.Payment) (string, error) {
	var outcome applyOutcome
	return s.apply(ctx, p.BookingID(), p.OrderID, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		next, events, o := s.store.applyFailure(current, p.ID, p.ErrorReason, entity.ActorWebhook, s.store.now())
		outcome = o
		return next, events, nil
	}, &outcome)
}

func (s *webhookService) onRefund(ctx context.Context, r *gateway.Refund) (string, error) {
	// the refund entity does not carry the booking reference; the payment does
	payment, err := s.gateway.FetchPayment(ctx, r.PaymentID)
	if err != nil {
		return "", fmt.Errorf("fetch refunded payment %s: %w", r.PaymentID, err)
	}

	var outcome applyOutcome
	return s.apply(ctx, payment.BookingID(), payment.OrderID, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		refunded := payment.AmountRefunded
		if refunded <= 0 {
			if current.Payment.HasRefund(r.ID) {
				outcome = outcomeDuplicate
				return nil, nil, nil
			}
			refunded = current.Payment.RefundAmount + r.Amount
		}
		next, events, o := s.store.applyRefund(current, r.ID, refunded, payment.Amount, entity.ActorWebhook, s.store.now())
		outcome = o
		return next, events, nil
	}, &outcome)
}

// apply resolves the booking from the payment notes, falling back to the
// gateway order, and runs fn through the compare-and-set loop.
func (s *webhookService) apply(ctx context.Context, bookingRef, orderID string, fn mutation, outcome *applyOutcome) (string, error) {
	id, err := s.resolveBooking(ctx, bookingRef, orderID)
	if err == nil {
		_, err = s.store.mutate(ctx, id, fn)
	}
	if errors.Is(err, ErrBookingNotFound) {
		s.log.Warn("Webhook does not match any booking",
			zap.String("booking_ref", bookingRef),
			zap.String("order_id", orderID),
		)
		return WebhookUnmatched, nil
	}
	if err != nil {
		return "", err
	}
	return webhookOutcome(*outcome), nil
}

func (s *webhookService) resolveBooking(ctx context.Context, bookingRef, orderID string) (uuid.UUID, error) {
	if id, err := uuid.Parse(bookingRef); err == nil {
		return id, nil
	}
	if orderID == "" {
		return uuid.Nil, ErrBookingNotFound
	}
	b, err := s.store.repo.FindByGatewayOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, ErrBookingNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return b.ID, nil
}

func (s *webhookService) record(eventType, outcome string) {
	switch eventType {
	case gateway.EventPaymentCaptured, gateway.EventPaymentFailed, gateway.EventRefundCreated, gateway.EventOrderPaid:
	default:
		eventType = "other"
	}
	s.metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func webhookOutcome(o applyOutcome) string {
	switch o {
	case outcomeApplied:
		return WebhookApplied
	case outcomeDuplicate:
		return WebhookDuplicate
	case outcomeConflict:
		return WebhookConflict
	default:
		return WebhookIgnored
	}
}
