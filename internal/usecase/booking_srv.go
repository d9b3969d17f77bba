package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/dto/request"
	"marketplace-booking/internal/dto/response"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/lifecycle"
	"marketplace-booking/internal/pricing"
	"marketplace-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const bookingNumberAttempts = 3

type BookingService interface {
	CreateBooking(ctx context.Context, actor entity.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, actor entity.Actor, bookingID string) (*response.BookingResponse, error)
	UpdateStatus(ctx context.Context, actor entity.Actor, bookingID string, req *request.UpdateStatusRequest) (*response.BookingResponse, error)
	AddCharge(ctx context.Context, actor entity.Actor, bookingID string, req *request.AddChargeRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, actor entity.Actor, bookingID string, req *request.CancelBookingRequest) (*response.CancelBookingResponse, error)
}

type bookingService struct {
	store   *bookingStore
	catalog repository.ServiceCatalog
	pricing *pricing.Calculator
	log     *zap.Logger
}

func newBookingService(store *bookingStore, catalog repository.ServiceCatalog, calc *pricing.Calculator, log *zap.Logger) BookingService {
	return &bookingService{
		store:   store,
		catalog: catalog,
		pricing: calc,
		log:     log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor entity.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	if actor.Role != entity.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers can create bookings", lifecycle.ErrForbidden)
	}
	customerID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: customer id is not a uuid", ErrValidation)
	}

	now := s.store.now()
	if !req.ScheduledDate.After(now) {
		return nil, ErrScheduleInPast
	}

	offering, err := s.catalog.FindByID(ctx, uuid.MustParse(req.ServiceID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		s.log.Error("Failed to load service", zap.Error(err), zap.String("service_id", req.ServiceID))
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if !offering.IsActive {
		return nil, ErrServiceInactive
	}

	quote, err := s.pricing.Quote(offering.BasePrice, offering.Discount, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CustomerID:          customerID,
		ProviderID:          offering.ProviderID,
		ServiceID:           offering.ID,
		ScheduledDate:       req.ScheduledDate.UTC(),
		EstimatedDuration:   offering.EstimatedDuration,
		Address:             strings.TrimSpace(req.Address),
		ContactPhone:        req.ContactPhone,
		SpecialInstructions: req.SpecialInstructions,
		Pricing:             quote,
		Payment:             entity.Payment{Status: entity.PaymentStatusPending},
	}
	lifecycle.Open(booking, actor, now)

	for attempt := 1; ; attempt++ {
		booking.BookingNumber = utils.GenerateBookingNumber(now)
		err = s.store.repo.Create(ctx, booking)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicate) && attempt < bookingNumberAttempts {
			continue
		}
		s.log.Error("Failed to create booking", zap.Error(err), zap.String("customer_id", actor.ID))
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_number", booking.BookingNumber),
		zap.Int64("total", booking.Pricing.TotalAmount),
	)
	s.store.publish(ctx, []event.Event{
		event.New(event.BookingCreated, booking.ID, booking.BookingNumber, actor.ID, now, map[string]any{
			"customerId":    booking.CustomerID.String(),
			"providerId":    booking.ProviderID.String(),
			"serviceId":     booking.ServiceID.String(),
			"scheduledDate": booking.ScheduledDate,
			"total":         booking.Pricing.TotalAmount,
			"currency":      booking.Pricing.Currency,
		}),
	})

	return toBookingResponse(booking), nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor entity.Actor, bookingID string) (*response.BookingResponse, error) {
	id, err := parseBookingID(bookingID)
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
	return toBookingResponse(booking), nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor entity.Actor, bookingID string, req *request.UpdateStatusRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update status validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}

	transition := lifecycle.Request{
		Target:   entity.BookingStatus(req.Status),
		Actor:    actor,
		Reason:   req.Reason,
		Comments: req.Comments,
	}
	if req.WorkSummary != nil {
		transition.Work = &lifecycle.WorkNotes{
			BeforeEvidence: req.WorkSummary.BeforeEvidence,
			AfterEvidence:  req.WorkSummary.AfterEvidence,
			Narrative:      req.WorkSummary.Narrative,
		}
	}

	booking, err := s.transition(ctx, id, transition)
	if err != nil {
		return nil, err
	}
	return toBookingResponse(booking), nil
}

func (s *bookingService) AddCharge(ctx context.Context, actor entity.Actor, bookingID string, req *request.AddChargeRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Add charge validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.store.mutate(ctx, id, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		if !actor.IsPrivileged() && (actor.Role != entity.RoleProvider || actor.ID != current.ProviderID.String()) {
			return nil, nil, fmt.Errorf("%w: only the assigned provider can add charges", lifecycle.ErrForbidden)
		}
		if current.Status != entity.BookingStatusPending || current.Payment.OrderID() != "" {
			return nil, nil, ErrChargesLocked
		}

		at := s.store.now()
		updated, err := pricing.WithCharge(current.Pricing, entity.Charge{
			Description: strings.TrimSpace(req.Description),
			Amount:      req.Amount,
			AddedBy:     actor.ID,
			AddedAt:     at,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		next := current.Clone()
		next.Pricing = updated
		next.UpdatedAt = at
		return next, nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Additional charge added",
		zap.String("booking_id", booking.ID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("total", booking.Pricing.TotalAmount),
	)
	return toBookingResponse(booking), nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor entity.Actor, bookingID string, req *request.CancelBookingRequest) (*response.CancelBookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Cancel booking validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.transition(ctx, id, lifecycle.Request{
		Target: entity.BookingStatusCancelled,
		Actor:  actor,
		Reason: req.Reason,
	})
	if err != nil {
		return nil, err
	}

	return &response.CancelBookingResponse{
		Booking:       *toBookingResponse(booking),
		RefundAmount:  booking.Cancellation.SuggestedRefund,
		RefundPercent: s.pricing.RefundPercent(booking.ScheduledDate, *booking.Cancellation.CancelledAt),
	}, nil
}

func (s *bookingService) transition(ctx context.Context, id uuid.UUID, req lifecycle.Request) (*entity.Booking, error) {
	booking, err := s.store.mutate(ctx, id, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		req.At = s.store.now()
		return s.store.machine.Transition(current, req)
	})
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) || errors.Is(err, lifecycle.ErrForbidden) {
			s.log.Warn("Transition refused",
				zap.String("booking_id", id.String()),
				zap.String("target", string(req.Target)),
				zap.String("actor", req.Actor.ID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.log.Info("Booking status changed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("status", string(booking.Status)),
		zap.String("actor", req.Actor.ID),
	)
	return booking, nil
}

func toBookingResponse(b *entity.Booking) *response.BookingResponse {
	resp := response.BookingToResponse(b, lifecycle.AllowedTargets(b.Status))
	return &resp
}

func parseBookingID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: booking id must be a uuid", ErrValidation)
	}
	return id, nil
}

func validationError(errs map[string]string) error {
	return fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
}
