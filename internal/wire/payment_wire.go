package wire

import (
	"marketplace-booking/internal/adaptor"
	"marketplace-booking/pkg/middleware"
	"marketplace-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	webhookHandler *adaptor.WebhookHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/payments", func(r chi.Router) {
		// gateway callbacks carry a signature instead of a bearer token
		r.With(middleware.RateLimit(config.Webhook.RateLimit, config.Webhook.Burst)).
			Post("/webhook/{provider}", webhookHandler.HandleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(config.JWT.Secret, config.JWT.Issuer, log))

			r.Post("/create-order", paymentHandler.CreateOrder)
			r.Post("/verify", paymentHandler.VerifyPayment)
			r.Post("/refund", paymentHandler.Refund)
		})
	})
}

func wireOperator(
	r chi.Router,
	operatorHandler *adaptor.OperatorHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/operator", func(r chi.Router) {
		r.Use(middleware.OperatorKey(config.Operator.KeyHash, log))

		r.Post("/reconcile", operatorHandler.Reconcile)
	})
}
