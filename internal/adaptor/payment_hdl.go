package adaptor

import (
	"encoding/json"
	"net/http"

	"marketplace-booking/internal/dto/request"
	"marketplace-booking/internal/usecase"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreateOrder handles POST /payments/create-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, r, h.log, err, "create payment order")
		return
	}

	utils.ResponseCreated(w, "success", order)
}

// VerifyPayment handles POST /payments/verify
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	result, err := h.service.VerifyPayment(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, r, h.log, err, "verify payment")
		return
	}

	utils.ResponseSuccess(w, "Payment verified", result)
}

// Refund handles POST /payments/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	refund, err := h.service.Refund(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, r, h.log, err, "refund payment")
		return
	}

	utils.ResponseSuccess(w, "Refund issued", refund)
}
