package adaptor

import (
	"net/http"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/usecase"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking  *BookingHandler
	Payment  *PaymentHandler
	Webhook  *WebhookHandler
	Operator *OperatorHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:  NewBookingHandler(service.Booking, log),
		Payment:  NewPaymentHandler(service.Payment, log),
		Webhook:  NewWebhookHandler(service.Webhook, log),
		Operator: NewOperatorHandler(service.Reconcile, log),
	}
}

// actorFromRequest reads the caller set by the auth middleware.
func actorFromRequest(r *http.Request) (entity.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return entity.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())
	return entity.Actor{ID: userID, Role: entity.UserRole(role)}, true
}
