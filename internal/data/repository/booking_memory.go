package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memoryBookingRepository keeps deep copies of bookings in a map and applies
// the same compare-and-set rule as the Postgres implementation.
type memoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*entity.Booking
	log      *zap.Logger
}

func NewMemoryBookingRepository(log *zap.Logger) BookingRepository {
	return &memoryBookingRepository{
		bookings: map[uuid.UUID]*entity.Booking{},
		log:      log.With(zap.String("repository", "booking-memory")),
	}
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if err := booking.CheckInvariants(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[booking.ID]; ok {
		return fmt.Errorf("create booking %s: %w", booking.BookingNumber, ErrDuplicate)
	}
	for _, existing := range r.bookings {
		if existing.BookingNumber == booking.BookingNumber {
			return fmt.Errorf("create booking %s: %w", booking.BookingNumber, ErrDuplicate)
		}
	}
	booking.Version = 1
	r.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

func (r *memoryBookingRepository) FindByGatewayOrderID(ctx context.Context, orderID string) (*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bookings {
		if orderID != "" && b.Payment.OrderID() == orderID {
			return b.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryBookingRepository) FindPendingPayments(ctx context.Context, olderThan time.Time, limit int) ([]*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Booking
	for _, b := range r.bookings {
		if b.Payment.Status == entity.PaymentStatusPending && b.Payment.OrderID() != "" && b.UpdatedAt.Before(olderThan) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryBookingRepository) Update(ctx context.Context, booking *entity.Booking, expectedVersion int64) error {
	if err := booking.CheckInvariants(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.bookings[booking.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("booking %s at version %d: %w", booking.ID.String(), expectedVersion, ErrConcurrentUpdate)
	}

	booking.Version = expectedVersion + 1
	r.bookings[booking.ID] = booking.Clone()
	return nil
}
