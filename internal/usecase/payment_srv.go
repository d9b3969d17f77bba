package usecase

import (
	"context"
	"errors"
	"fmt"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/dto/request"
	"marketplace-booking/internal/dto/response"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/lifecycle"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

type PaymentService interface {
	CreateOrder(ctx context.Context, actor entity.Actor, req *request.CreateOrderRequest) (*response.OrderResponse, error)
	VerifyPayment(ctx context.Context, actor entity.Actor, req *request.VerifyPaymentRequest) (*response.VerifyPaymentResponse, error)
	Refund(ctx context.Context, actor entity.Actor, req *request.RefundRequest) (*response.RefundResponse, error)
}

type paymentService struct {
	store   *bookingStore
	gateway gateway.Gateway
	keyID   string
	log     *zap.Logger
}

// newPaymentService builds the checkout flow. keyID is the public gateway
// key handed to clients so they can open the checkout form.
func newPaymentService(store *bookingStore, gw gateway.Gateway, keyID string, log *zap.Logger) PaymentService {
	return &paymentService{
		store:   store,
		gateway: gw,
		keyID:   keyID,
		log:     log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) CreateOrder(ctx context.Context, actor entity.Actor, req *request.CreateOrderRequest) (*response.OrderResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create order validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	id, err := parseBookingID(req.BookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.store.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanView(booking, actor) {
		return nil, fmt.Errorf("%w: not a party to this booking", lifecycle.ErrForbidden)
	}
	if booking.Status.IsTerminal() || booking.Payment.IsSettled() {
		return nil, fmt.Errorf("%w: status %s, payment %s", ErrNotPayable, booking.Status, booking.Payment.Status)
	}
	if orderID := booking.Payment.OrderID(); orderID != "" {
		return s.orderResponse(booking, orderID), nil
	}
	if !s.gateway.IsAvailable() {
		s.log.Error("Payment gateway is not configured", zap.String("booking_id", req.BookingID))
		return nil, gateway.ErrPaymentUnavailable
	}

	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   booking.Pricing.TotalAmount,
		Currency: booking.Pricing.Currency,
		Receipt:  booking.BookingNumber,
		Notes: gateway.Notes{
			gateway.NoteBookingID: booking.ID.String(),
			"booking_number":      booking.BookingNumber,
		},
		IdempotencyKey: booking.ID.String(),
	})
	if err != nil {
		s.log.Error("Failed to create gateway order", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	booking, err = s.store.mutate(ctx, id, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		if existing := current.Payment.OrderID(); existing != "" {
			if existing != order.ID {
				s.log.Warn("Booking already carries a different gateway order",
					zap.String("booking_id", current.ID.String()),
					zap.String("stored_order_id", existing),
					zap.String("new_order_id", order.ID),
				)
			}
			return nil, nil, nil
		}
		if current.Payment.IsSettled() {
			return nil, nil, ErrNotPayable
		}
		orderID := order.ID
		next := current.Clone()
		next.Payment.GatewayOrderID = &orderID
		next.UpdatedAt = s.store.now()
		return next, nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Gateway order created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.Payment.OrderID()),
		zap.Int64("amount", booking.Pricing.TotalAmount),
	)
	return s.orderResponse(booking, booking.Payment.OrderID()), nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, actor entity.Actor, req *request.VerifyPaymentRequest) (*response.VerifyPaymentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Verify payment validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	id, err := parseBookingID(req.BookingID)
	if err != nil {
		return nil, err
	}
	if !s.gateway.IsAvailable() {
		s.log.Error("Payment gateway is not configured", zap.String("booking_id", req.BookingID))
		return nil, gateway.ErrPaymentUnavailable
	}
	if !s.gateway.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
		s.log.Warn("Payment signature verification failed",
			zap.String("booking_id", req.BookingID),
			zap.String("order_id", req.GatewayOrderID),
			zap.String("payment_id", req.GatewayPaymentID),
			zap.String("actor", actor.ID),
		)
		return nil, ErrSignatureInvalid
	}

	var outcome applyOutcome
	booking, err := s.store.mutate(ctx, id, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		if !lifecycle.CanView(current, actor) {
			return nil, nil, fmt.Errorf("%w: not a party to this booking", lifecycle.ErrForbidden)
		}
		if current.Payment.OrderID() != req.GatewayOrderID {
			return nil, nil, ErrOrderMismatch
		}
		next, events, o, err := s.store.applyCapture(current, capturedPayment{
			PaymentID: req.GatewayPaymentID,
			Amount:    current.Pricing.TotalAmount,
			At:        s.store.now(),
			Actor:     entity.ActorPaymentVerify,
			Source:    "verify",
		})
		outcome = o
		return next, events, err
	})
	if err != nil {
		return nil, err
	}
	if outcome == outcomeConflict {
		return nil, ErrPaymentConflict
	}

	s.log.Info("Payment verified",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", req.GatewayPaymentID),
		zap.String("outcome", string(outcome)),
	)
	return &response.VerifyPaymentResponse{
		BookingID:      booking.ID.String(),
		BookingStatus:  booking.Status,
		PaymentStatus:  booking.Payment.Status,
		TransactionID:  req.GatewayPaymentID,
		AlreadyApplied: outcome == outcomeDuplicate,
	}, nil
}

func (s *paymentService) Refund(ctx context.Context, actor entity.Actor, req *request.RefundRequest) (*response.RefundResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Refund validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	id, err := parseBookingID(req.BookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.store.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanView(booking, actor) {
		return nil, fmt.Errorf("%w: not a party to this booking", lifecycle.ErrForbidden)
	}
	if booking.Status != entity.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: booking is %s", ErrNotRefundable, booking.Status)
	}
	switch booking.Payment.Status {
	case entity.PaymentStatusPaid:
	case entity.PaymentStatusRefunded, entity.PaymentStatusPartiallyRefunded:
		return nil, ErrAlreadyRefunded
	default:
		return nil, fmt.Errorf("%w: payment is %s", ErrNotRefundable, booking.Payment.Status)
	}

	amount := booking.Cancellation.SuggestedRefund
	if amount > booking.Payment.PaidAmount {
		amount = booking.Payment.PaidAmount
	}
	if amount <= 0 {
		return nil, ErrNothingToRefund
	}
	if !s.gateway.IsAvailable() {
		s.log.Error("Payment gateway is not configured", zap.String("booking_id", req.BookingID))
		return nil, gateway.ErrPaymentUnavailable
	}

	notes := gateway.Notes{gateway.NoteBookingID: booking.ID.String()}
	if req.Reason != "" {
		notes["reason"] = req.Reason
	}
	refund, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		PaymentID:      *booking.Payment.TransactionID,
		Amount:         &amount,
		Notes:          notes,
		IdempotencyKey: "refund-" + booking.ID.String(),
	})
	if err != nil {
		s.log.Error("Failed to create gateway refund", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, fmt.Errorf("create gateway refund: %w", err)
	}

	booking, err = s.store.mutate(ctx, id, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		if current.Payment.HasRefund(refund.ID) {
			return nil, nil, nil
		}
		next, events, _ := s.store.applyRefund(current, refund.ID, current.Payment.RefundAmount+refund.Amount,
			current.Payment.PaidAmount, actor, s.store.now())
		return next, events, nil
	})
	if err != nil {
		// the refund exists at the gateway; its webhook or the next request records it
		if !errors.Is(err, ErrBookingNotFound) {
			s.log.Error("Refund issued but not recorded", zap.Error(err), zap.String("refund_id", refund.ID))
		}
		return nil, err
	}

	s.log.Info("Refund issued",
		zap.String("booking_id", booking.ID.String()),
		zap.String("refund_id", refund.ID),
		zap.Int64("amount", refund.Amount),
	)
	return &response.RefundResponse{
		RefundID:      refund.ID,
		Amount:        refund.Amount,
		BookingID:     booking.ID.String(),
		PaymentStatus: booking.Payment.Status,
	}, nil
}

func (s *paymentService) orderResponse(b *entity.Booking, orderID string) *response.OrderResponse {
	return &response.OrderResponse{
		OrderID:   orderID,
		Amount:    b.Pricing.TotalAmount,
		Currency:  b.Pricing.Currency,
		BookingID: b.ID.String(),
		KeyID:     s.keyID,
	}
}
