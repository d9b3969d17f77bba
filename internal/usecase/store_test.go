package usecase

import (
	"context"
	"testing"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/event"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// contendedRepository loses every compare-and-set race.
type contendedRepository struct {
	repository.BookingRepository
	updates int
}

func (r *contendedRepository) Update(ctx context.Context, b *entity.Booking, expectedVersion int64) error {
	r.updates++
	return repository.ErrConcurrentUpdate
}

func TestMutateGivesUpAfterBoundedRetries(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking(48 * time.Hour)

	repo := &contendedRepository{BookingRepository: env.repo.Booking}
	store := newBookingStore(repo, env.store.machine, env.pub, env.metrics, 3, zap.NewNop())

	_, err := store.mutate(context.Background(), uuid.MustParse(id), func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		next := current.Clone()
		next.Address = "elsewhere"
		return next, nil, nil
	})
	assert.ErrorIs(t, err, repository.ErrConcurrentUpdate)
	assert.Equal(t, 3, repo.updates)
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.ConcurrentUpdates))
}

func TestMutateRetriesAgainstFreshState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := uuid.MustParse(env.createBooking(48 * time.Hour))

	calls := 0
	b, err := env.store.mutate(ctx, id, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		calls++
		if calls == 1 {
			// another writer sneaks in between our read and our write
			other := current.Clone()
			other.Address = "changed by someone else"
			require.NoError(t, env.repo.Booking.Update(ctx, other, current.Version))
		}
		next := current.Clone()
		next.SpecialInstructions = &next.Address
		return next, nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "changed by someone else", *b.SpecialInstructions)
	assert.Equal(t, int64(3), env.load(id.String()).Version)
}

func TestMutateNoOpDoesNotWrite(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.MustParse(env.createBooking(48 * time.Hour))

	b, err := env.store.mutate(context.Background(), id, func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		return nil, nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, int64(1), env.load(id.String()).Version)

	_, err = env.store.mutate(context.Background(), uuid.New(), func(current *entity.Booking) (*entity.Booking, []event.Event, error) {
		return nil, nil, nil
	})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
