package usecase

import (
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/lifecycle"
	"marketplace-booking/internal/pricing"
	"marketplace-booking/pkg/metrics"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking   BookingService
	Payment   PaymentService
	Webhook   WebhookService
	Reconcile ReconcileService
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Repo      *repository.Repository
	Gateway   gateway.Gateway
	Pricing   *pricing.Calculator
	Publisher event.Publisher
	Metrics   *metrics.Metrics
}

func NewService(deps Deps, config *utils.Config, log *zap.Logger) *Service {
	store := newBookingStore(
		deps.Repo.Booking,
		lifecycle.NewMachine(deps.Pricing),
		deps.Publisher,
		deps.Metrics,
		config.Booking.MaxUpdateRetries,
		log,
	)

	return &Service{
		Booking: newBookingService(store, deps.Repo.Service, deps.Pricing, log),
		Payment: newPaymentService(store, deps.Gateway, config.Gateway.KeyID, log),
		Webhook: newWebhookService(store, deps.Gateway, deps.Repo.Inbox, deps.Metrics, WebhookConfig{
			Provider: config.Gateway.Provider,
			Secret:   config.Gateway.WebhookSecret,
			DedupTTL: config.Webhook.DedupTTL,
		}, log),
		Reconcile: newReconcileService(store, deps.Gateway, deps.Metrics, ReconcileConfig{
			Interval:   config.Reconcile.Interval,
			StaleAfter: config.Reconcile.StaleAfter,
			BatchSize:  config.Reconcile.BatchSize,
		}, log),
	}
}
