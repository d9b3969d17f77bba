package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/lifecycle"
	"marketplace-booking/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxUpdateRetries = 5

// mutation inspects the freshly loaded booking and returns the copy to save.
// A nil booking means there is nothing to write; any events are still
// published.
type mutation func(current *entity.Booking) (*entity.Booking, []event.Event, error)

// bookingStore is the single write path for bookings. Every change is a
// read, evaluate, compare-and-set cycle, repeated when another writer got
// there first.
type bookingStore struct {
	repo       repository.BookingRepository
	machine    *lifecycle.Machine
	publisher  event.Publisher
	metrics    *metrics.Metrics
	maxRetries int
	now        func() time.Time
	log        *zap.Logger
}

func newBookingStore(
	repo repository.BookingRepository,
	machine *lifecycle.Machine,
	publisher event.Publisher,
	m *metrics.Metrics,
	maxRetries int,
	log *zap.Logger,
) *bookingStore {
	if maxRetries <= 0 {
		maxRetries = defaultMaxUpdateRetries
	}
	return &bookingStore{
		repo:       repo,
		machine:    machine,
		publisher:  publisher,
		metrics:    m,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.With(zap.String("component", "booking-store")),
	}
}

func (s *bookingStore) load(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// mutate applies fn to the latest stored booking and saves the result.
// It returns the booking as stored after the call.
func (s *bookingStore) mutate(ctx context.Context, id uuid.UUID, fn mutation) (*entity.Booking, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}

		next, events, err := fn(current)
		if err != nil {
			return current, err
		}
		if next == nil {
			s.publish(ctx, events)
			return current, nil
		}
		if next.UpdatedAt.Equal(current.UpdatedAt) {
			next.UpdatedAt = s.now()
		}

		err = s.repo.Update(ctx, next, current.Version)
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			s.metrics.ConcurrentUpdates.Inc()
			s.log.Debug("Booking changed underneath, re-evaluating",
				zap.String("booking_id", id.String()),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrBookingNotFound
			}
			return nil, err
		}

		if current.Status != next.Status {
			s.metrics.Transitions.WithLabelValues(string(current.Status), string(next.Status)).Inc()
		}
		s.publish(ctx, events)
		return next, nil
	}

	s.log.Warn("Giving up on booking update",
		zap.String("booking_id", id.String()),
		zap.Int("attempts", s.maxRetries),
	)
	return nil, fmt.Errorf("%w: gave up after %d attempts", repository.ErrConcurrentUpdate, s.maxRetries)
}

// publish runs after the write has committed. Delivery errors are only logged.
func (s *bookingStore) publish(ctx context.Context, events []event.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.log.Error("Failed to publish booking events", zap.Error(err), zap.Int("count", len(events)))
	}
}
