package repository

import (
	"context"
	"testing"
	"time"

	"marketplace-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryBookingRepositoryCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository(zap.NewNop())
	b := sampleBooking()
	require.NoError(t, repo.Create(ctx, b))
	assert.ErrorIs(t, repo.Create(ctx, b), ErrDuplicate)

	first, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)

	first.Address = "first writer"
	require.NoError(t, repo.Update(ctx, first, first.Version))
	assert.Equal(t, int64(2), first.Version)

	second.Address = "second writer"
	err = repo.Update(ctx, second, second.Version)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	stored, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "first writer", stored.Address)
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemoryBookingRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository(zap.NewNop())
	b := sampleBooking()
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	got.StatusHistory.Append(entity.StatusHistoryEntry{Status: entity.BookingStatusConfirmed})
	got.Status = entity.BookingStatusConfirmed

	again, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPending, again.Status)
	assert.Equal(t, 1, again.StatusHistory.Len())
}

func TestMemoryBookingRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository(zap.NewNop())

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByGatewayOrderID(ctx, "order_x")
	assert.ErrorIs(t, err, ErrNotFound)

	old := sampleBooking()
	orderID := "order_old"
	old.Payment.GatewayOrderID = &orderID
	old.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, old))

	fresh := sampleBooking()
	fresh.BookingNumber = "BKG-20300101-FRESH001"
	freshOrder := "order_fresh"
	fresh.Payment.GatewayOrderID = &freshOrder
	require.NoError(t, repo.Create(ctx, fresh))

	noOrder := sampleBooking()
	noOrder.BookingNumber = "BKG-20300101-NOORDER1"
	noOrder.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, noOrder))

	found, err := repo.FindByGatewayOrderID(ctx, "order_fresh")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, found.ID)

	pending, err := repo.FindPendingPayments(ctx, time.Now().Add(-10*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, old.ID, pending[0].ID)
}

func TestMemoryBookingRepositoryUpdateMissing(t *testing.T) {
	repo := NewMemoryBookingRepository(zap.NewNop())
	assert.ErrorIs(t, repo.Update(context.Background(), sampleBooking(), 1), ErrNotFound)
}
