package adaptor

import (
	"errors"
	"net/http"

	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/lifecycle"
	"marketplace-booking/internal/usecase"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError maps use case errors onto the response envelope.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, operation string) {
	fields := []zap.Field{zap.Error(err), zap.String("operation", operation)}

	switch {
	case errors.Is(err, usecase.ErrSignatureInvalid):
		log.Warn("Signature rejected", append(fields, zap.String("ip", r.RemoteAddr))...)
		utils.ResponseBadRequest(w, "Invalid signature", nil)

	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrScheduleInPast),
		errors.Is(err, usecase.ErrServiceInactive),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, usecase.ErrChargesLocked),
		errors.Is(err, usecase.ErrNotPayable),
		errors.Is(err, usecase.ErrOrderMismatch),
		errors.Is(err, usecase.ErrNotRefundable),
		errors.Is(err, usecase.ErrAlreadyRefunded),
		errors.Is(err, usecase.ErrNothingToRefund):
		log.Warn(operation+" rejected", fields...)
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, lifecycle.ErrForbidden):
		log.Warn(operation+" forbidden", fields...)
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrBookingNotFound),
		errors.Is(err, usecase.ErrServiceNotFound),
		errors.Is(err, usecase.ErrUnsupportedSource),
		errors.Is(err, repository.ErrNotFound):
		log.Warn(operation+" failed - not found", fields...)
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, repository.ErrConcurrentUpdate),
		errors.Is(err, usecase.ErrPaymentConflict):
		log.Warn(operation+" failed - conflict", fields...)
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, gateway.ErrPaymentUnavailable):
		log.Error(operation+" failed - payment gateway unavailable", fields...)
		utils.ResponseServiceUnavailable(w, "Payment gateway is not available")

	case errors.Is(err, gateway.ErrCommunication),
		errors.Is(err, gateway.ErrRejected):
		log.Error(operation+" failed - payment gateway error", fields...)
		utils.ResponseBadGateway(w, "Payment gateway error, please retry")

	default:
		log.Error("Failed to "+operation, fields...)
		utils.ResponseInternalError(w, "Internal server error")
	}
}
