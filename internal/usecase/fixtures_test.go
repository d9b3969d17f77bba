package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/dto/request"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/lifecycle"
	"marketplace-booking/internal/pricing"
	"marketplace-booking/pkg/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test"

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) count(t event.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type testEnv struct {
	t         *testing.T
	now       time.Time
	mu        sync.Mutex
	repo      *repository.Repository
	gw        *gateway.MockGateway
	pub       *recordingPublisher
	metrics   *metrics.Metrics
	store     *bookingStore
	booking   BookingService
	payment   PaymentService
	webhook   WebhookService
	reconcile ReconcileService
	offering  entity.ServiceOffering
	customer  entity.Actor
	provider  entity.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()

	env := &testEnv{
		t:        t,
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		gw:       gateway.NewMockGateway("", log),
		pub:      &recordingPublisher{},
		metrics:  metrics.New("test"),
		customer: entity.Actor{ID: uuid.NewString(), Role: entity.RoleCustomer},
	}
	providerID := uuid.New()
	env.provider = entity.Actor{ID: providerID.String(), Role: entity.RoleProvider}
	env.offering = entity.ServiceOffering{
		ID:                uuid.New(),
		ProviderID:        providerID,
		Name:              "Deep cleaning",
		BasePrice:         1000,
		EstimatedDuration: 120,
		IsActive:          true,
	}
	env.repo = repository.NewMemoryRepository(repository.NewMemoryServiceCatalog(env.offering), log)

	calc, err := pricing.NewCalculator(pricing.Config{
		TaxRate:      0.18,
		Currency:     "INR",
		FloorPercent: pricing.DefaultFloorPercent,
	})
	require.NoError(t, err)

	env.store = newBookingStore(env.repo.Booking, lifecycle.NewMachine(calc), env.pub, env.metrics, 0, log)
	env.store.now = env.clock
	env.booking = newBookingService(env.store, env.repo.Service, calc, log)
	env.payment = newPaymentService(env.store, env.gw, "rzp_test_key", log)
	env.webhook = newWebhookService(env.store, env.gw, env.repo.Inbox, env.metrics, WebhookConfig{Secret: testWebhookSecret}, log)
	env.reconcile = newReconcileService(env.store, env.gw, env.metrics, ReconcileConfig{StaleAfter: 15 * time.Minute}, log)
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// createBooking books the test service scheduledIn from the current clock.
func (e *testEnv) createBooking(scheduledIn time.Duration) string {
	e.t.Helper()
	resp, err := e.booking.CreateBooking(context.Background(), e.customer, &request.CreateBookingRequest{
		ServiceID:     e.offering.ID.String(),
		ScheduledDate: e.clock().Add(scheduledIn),
		Address:       "221B Baker Street",
	})
	require.NoError(e.t, err)
	return resp.ID
}

// createOrder creates the gateway order for a booking and returns its id.
func (e *testEnv) createOrder(bookingID string) string {
	e.t.Helper()
	resp, err := e.payment.CreateOrder(context.Background(), e.customer, &request.CreateOrderRequest{BookingID: bookingID})
	require.NoError(e.t, err)
	return resp.OrderID
}

func (e *testEnv) load(bookingID string) *entity.Booking {
	e.t.Helper()
	b, err := e.repo.Booking.FindByID(context.Background(), uuid.MustParse(bookingID))
	require.NoError(e.t, err)
	return b
}

// deliver signs and sends a webhook the way the gateway would.
func (e *testEnv) deliver(eventType, eventID string, payment *gateway.Payment, refund *gateway.Refund) (string, error) {
	e.t.Helper()
	body, err := gateway.BuildWebhook(eventType, payment, refund, nil)
	require.NoError(e.t, err)
	resp, err := e.webhook.HandleWebhook(context.Background(), "razorpay", body, gateway.Sign(body, testWebhookSecret), eventID)
	if err != nil {
		return "", err
	}
	return resp.Outcome, nil
}
