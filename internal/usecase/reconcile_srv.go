package usecase

import (
	"context"
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/dto/response"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/pkg/metrics"

	"go.uber.org/zap"
)

type ReconcileConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
}

// ReconcileService asks the gateway about payments that never reported back,
// for example after a verify call timed out or a webhook was lost.
type ReconcileService interface {
	ReconcileOnce(ctx context.Context) (*response.ReconcileResponse, error)
	Run(ctx context.Context)
}

type reconcileService struct {
	store   *bookingStore
	gateway gateway.Gateway
	metrics *metrics.Metrics
	cfg     ReconcileConfig
	log     *zap.Logger
}

func newReconcileService(store *bookingStore, gw gateway.Gateway, m *metrics.Metrics, cfg ReconcileConfig, log *zap.Logger) ReconcileService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &reconcileService{
		store:   store,
		gateway: gw,
		metrics: m,
		cfg:     cfg,
		log:     log.With(zap.String("service", "reconcile")),
	}
}

// Run reconciles on every tick until ctx is cancelled.
func (s *reconcileService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("Starting payment reconciler", zap.Duration("interval", s.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Shutting down payment reconciler")
			return
		case <-ticker.C:
			if _, err := s.ReconcileOnce(ctx); err != nil {
				s.log.Error("Reconciliation pass failed", zap.Error(err))
			}
		}
	}
}

func (s *reconcileService) ReconcileOnce(ctx context.Context) (*response.ReconcileResponse, error) {
	if !s.gateway.IsAvailable() {
		return nil, gateway.ErrPaymentUnavailable
	}

	cutoff := s.store.now().Add(-s.cfg.StaleAfter)
	bookings, err := s.store.repo.FindPendingPayments(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("find pending payments: %w", err)
	}

	result := &response.ReconcileResponse{Scanned: len(bookings)}
	for _, b := range bookings {
		outcome, err := s.reconcile(ctx, b)
		if err != nil {
			s.log.Warn("Failed to reconcile booking",
				zap.Error(err),
				zap.String("booking_id", b.ID.String()),
				zap.String("order_id", b.Payment.OrderID()),
			)
			outcome = "error"
		}
		s.metrics.ReconciledPayments.WithLabelValues(outcome).Inc()

		switch outcome {
		case WebhookApplied:
			result.Applied++
		case "error":
			result.Failed++
		default:
			result.Skipped++
		}
	}

	if result.Scanned > 0 {
		s.log.Info("Reconciliation pass finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("applied", result.Applied),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
		)
	}
	return result, nil
}

// reconcile only ever moves a payment forward. A missing or unfinished
// payment at the gateway is left for a later pass.
func (s *reconcileService) reconcile(ctx context.Context, b *entity.Booking) (string, error) {
	payments, err := s.gateway.FetchOrderPayments(ctx, b.Payment.OrderID())
	if err != nil {
		return "", err
	}

	var captured *gateway.Payment
	for i := range payments {
		if payments[i].Status == gateway.PaymentCaptured {
			captured = &payments[i]
			break
		}
	}
	if captured == nil {
		return "pending", nil
	}

	var outcome applyOutcome
	_, err = s.store.mutate(ctx, b.ID, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		next, events, o, err := s.store.applyCapture(current, capturedPayment{
			PaymentID: captured.ID,
			Amount:    captured.Amount,
			At:        s.store.now(),
			Actor:     entity.ActorReconciler,
			Source:    "reconciler",
		})
		outcome = o
		return next, events, err
	})
	if err != nil {
		return "", err
	}
	return webhookOutcome(outcome), nil
}
