package usecase

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrServiceNotFound   = errors.New("service not found")
	ErrServiceInactive   = errors.New("service is not accepting bookings")
	ErrScheduleInPast    = errors.New("scheduled date must be in the future")
	ErrChargesLocked     = errors.New("charges can only be added to a pending booking without a payment order")
	ErrNotPayable        = errors.New("booking cannot be paid in its current state")
	ErrOrderMismatch     = errors.New("gateway order does not belong to this booking")
	ErrSignatureInvalid  = errors.New("invalid payment signature")
	ErrNotRefundable     = errors.New("booking is not eligible for a refund")
	ErrAlreadyRefunded   = errors.New("booking has already been refunded")
	ErrNothingToRefund   = errors.New("refund amount is zero")
	ErrPaymentConflict   = errors.New("conflicting payment report")
	ErrUnsupportedSource = errors.New("unsupported webhook provider")
)
