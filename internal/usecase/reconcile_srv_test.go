package usecase

import (
	"context"
	"testing"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/gateway"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconcileAppliesLostCaptures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// verify timed out on the client and no webhook ever arrived
	lost := env.createBooking(48 * time.Hour)
	_, _, err := env.gw.Pay(env.createOrder(lost), gateway.PaymentCaptured)
	require.NoError(t, err)

	abandoned := env.createBooking(48 * time.Hour)
	env.createOrder(abandoned)

	declined := env.createBooking(48 * time.Hour)
	_, _, err = env.gw.Pay(env.createOrder(declined), gateway.PaymentFailed)
	require.NoError(t, err)

	noOrder := env.createBooking(48 * time.Hour)

	resp, err := env.reconcile.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Scanned, "fresh orders are left alone")

	env.advance(20 * time.Minute)
	resp, err = env.reconcile.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Scanned)
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, 2, resp.Skipped)
	assert.Equal(t, 0, resp.Failed)

	b := env.load(lost)
	assert.Equal(t, entity.PaymentStatusPaid, b.Payment.Status)
	assert.Equal(t, entity.BookingStatusConfirmed, b.Status)
	last, _ := b.StatusHistory.Last()
	assert.Equal(t, entity.ActorReconciler.ID, last.Actor)

	assert.Equal(t, entity.PaymentStatusPending, env.load(abandoned).Payment.Status)
	assert.Equal(t, entity.PaymentStatusPending, env.load(declined).Payment.Status, "a failed attempt is not treated as final")
	assert.Equal(t, entity.BookingStatusPending, env.load(noOrder).Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ReconciledPayments.WithLabelValues(WebhookApplied)))

	resp, err = env.reconcile.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Scanned)
	assert.Equal(t, 0, resp.Applied)
}

func TestReconcileGatewayErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createBooking(48 * time.Hour)
	_, _, err := env.gw.Pay(env.createOrder(id), gateway.PaymentCaptured)
	require.NoError(t, err)
	env.advance(time.Hour)

	env.gw.FailWith(gateway.ErrCommunication)
	resp, err := env.reconcile.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, entity.PaymentStatusPending, env.load(id).Payment.Status)

	env.gw.FailWith(nil)
	env.gw.SetAvailable(false)
	_, err = env.reconcile.ReconcileOnce(ctx)
	assert.ErrorIs(t, err, gateway.ErrPaymentUnavailable)
}

func TestReconcileRunStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	svc := newReconcileService(env.store, env.gw, env.metrics, ReconcileConfig{Interval: time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
