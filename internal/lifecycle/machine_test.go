package lifecycle

import (
	"testing"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/event"
	"marketplace-booking/internal/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []entity.BookingStatus{
	entity.BookingStatusPending,
	entity.BookingStatusConfirmed,
	entity.BookingStatusInProgress,
	entity.BookingStatusCompleted,
	entity.BookingStatusCancelled,
	entity.BookingStatusNoShow,
}

func newMachine(t *testing.T) *Machine {
	t.Helper()
	calc, err := pricing.NewCalculator(pricing.Config{TaxRate: 0.18, FloorPercent: pricing.DefaultFloorPercent})
	require.NoError(t, err)
	return NewMachine(calc)
}

func newBooking(t *testing.T, scheduled time.Time) *entity.Booking {
	t.Helper()
	b := &entity.Booking{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: time.Now()},
		BookingNumber: "BKG-TEST",
		CustomerID:    uuid.New(),
		ProviderID:    uuid.New(),
		ServiceID:     uuid.New(),
		ScheduledDate: scheduled,
		Pricing:       entity.Pricing{BaseAmount: 1000, TaxAmount: 180, TotalAmount: 1180, Currency: "INR"},
		Payment:       entity.Payment{Status: entity.PaymentStatusPending},
	}
	Open(b, entity.Actor{ID: b.CustomerID.String(), Role: entity.RoleCustomer}, time.Now())
	return b
}

func admin() entity.Actor {
	return entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}
}

func provider(b *entity.Booking) entity.Actor {
	return entity.Actor{ID: b.ProviderID.String(), Role: entity.RoleProvider}
}

func customer(b *entity.Booking) entity.Actor {
	return entity.Actor{ID: b.CustomerID.String(), Role: entity.RoleCustomer}
}

// forceStatus walks the booking through legal admin transitions to reach s.
func forceStatus(t *testing.T, m *Machine, b *entity.Booking, s entity.BookingStatus) *entity.Booking {
	t.Helper()
	paths := map[entity.BookingStatus][]entity.BookingStatus{
		entity.BookingStatusPending:    {},
		entity.BookingStatusConfirmed:  {entity.BookingStatusConfirmed},
		entity.BookingStatusInProgress: {entity.BookingStatusConfirmed, entity.BookingStatusInProgress},
		entity.BookingStatusCompleted:  {entity.BookingStatusConfirmed, entity.BookingStatusInProgress, entity.BookingStatusCompleted},
		entity.BookingStatusCancelled:  {entity.BookingStatusCancelled},
		entity.BookingStatusNoShow:     {entity.BookingStatusConfirmed, entity.BookingStatusNoShow},
	}
	for _, step := range paths[s] {
		next, _, err := m.Transition(b, Request{Target: step, Actor: admin()})
		require.NoError(t, err)
		b = next
	}
	return b
}

func TestTransitionTableIsEnforced(t *testing.T) {
	m := newMachine(t)
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			b := forceStatus(t, m, newBooking(t, time.Now().Add(48*time.Hour)), from)
			next, _, err := m.Transition(b, Request{Target: to, Actor: admin()})
			if CanTransition(from, to) {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, next.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
				assert.Equal(t, from, b.Status)
			}
		}
	}
}

func TestTerminalStatesHaveNoTargets(t *testing.T) {
	for _, s := range allStatuses {
		if s.IsTerminal() {
			assert.Empty(t, AllowedTargets(s), s)
		}
	}
	assert.False(t, CanTransition(entity.BookingStatusPending, entity.BookingStatusCompleted))
}

func TestLedgerMatchesStatus(t *testing.T) {
	m := newMachine(t)
	b := newBooking(t, time.Now().Add(48*time.Hour))
	require.NoError(t, b.CheckInvariants())

	for _, target := range []entity.BookingStatus{
		entity.BookingStatusConfirmed, entity.BookingStatusInProgress, entity.BookingStatusCompleted,
	} {
		next, _, err := m.Transition(b, Request{Target: target, Actor: provider(b), Reason: "step"})
		require.NoError(t, err)
		last, ok := next.StatusHistory.Last()
		require.True(t, ok)
		assert.Equal(t, next.Status, last.Status)
		assert.Equal(t, b.StatusHistory.Len()+1, next.StatusHistory.Len())
		require.NoError(t, next.CheckInvariants())
		b = next
	}

	entries := b.StatusHistory.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, entity.BookingStatusPending, entries[0].Status)
	assert.Equal(t, b.ProviderID.String(), entries[3].Actor)
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	m := newMachine(t)
	b := newBooking(t, time.Now().Add(48*time.Hour))
	_, _, err := m.Transition(b, Request{Target: entity.BookingStatusCancelled, Actor: customer(b), Reason: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPending, b.Status)
	assert.Equal(t, 1, b.StatusHistory.Len())
	assert.Nil(t, b.Cancellation.CancelledAt)
}

func TestAuthorization(t *testing.T) {
	m := newMachine(t)
	stranger := entity.Actor{ID: uuid.NewString(), Role: entity.RoleProvider}

	cases := []struct {
		name    string
		from    entity.BookingStatus
		target  entity.BookingStatus
		actor   func(b *entity.Booking) entity.Actor
		allowed bool
	}{
		{"provider confirms", entity.BookingStatusPending, entity.BookingStatusConfirmed, provider, true},
		{"customer confirms", entity.BookingStatusPending, entity.BookingStatusConfirmed, customer, false},
		{"other provider confirms", entity.BookingStatusPending, entity.BookingStatusConfirmed, func(*entity.Booking) entity.Actor { return stranger }, false},
		{"webhook confirms", entity.BookingStatusPending, entity.BookingStatusConfirmed, func(*entity.Booking) entity.Actor { return entity.ActorWebhook }, true},
		{"customer starts", entity.BookingStatusConfirmed, entity.BookingStatusInProgress, customer, false},
		{"provider starts", entity.BookingStatusConfirmed, entity.BookingStatusInProgress, provider, true},
		{"customer cancels", entity.BookingStatusConfirmed, entity.BookingStatusCancelled, customer, true},
		{"provider cancels", entity.BookingStatusInProgress, entity.BookingStatusCancelled, provider, true},
		{"other provider cancels", entity.BookingStatusPending, entity.BookingStatusCancelled, func(*entity.Booking) entity.Actor { return stranger }, false},
		{"provider marks no-show", entity.BookingStatusConfirmed, entity.BookingStatusNoShow, provider, false},
		{"customer marks no-show", entity.BookingStatusConfirmed, entity.BookingStatusNoShow, customer, false},
		{"admin marks no-show", entity.BookingStatusConfirmed, entity.BookingStatusNoShow, func(*entity.Booking) entity.Actor { return admin() }, true},
		{"customer id with provider role", entity.BookingStatusPending, entity.BookingStatusConfirmed, func(b *entity.Booking) entity.Actor {
			return entity.Actor{ID: b.CustomerID.String(), Role: entity.RoleProvider}
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := forceStatus(t, m, newBooking(t, time.Now().Add(48*time.Hour)), tc.from)
			_, _, err := m.Transition(b, Request{Target: tc.target, Actor: tc.actor(b)})
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestCompletionDerivesActualDuration(t *testing.T) {
	m := newMachine(t)
	b := forceStatus(t, m, newBooking(t, time.Now().Add(48*time.Hour)), entity.BookingStatusConfirmed)
	start := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

	started, _, err := m.Transition(b, Request{Target: entity.BookingStatusInProgress, Actor: provider(b), At: start,
		Work: &WorkNotes{BeforeEvidence: []string{"before.jpg"}}})
	require.NoError(t, err)
	require.NotNil(t, started.WorkSummary)
	assert.Equal(t, start, *started.WorkSummary.StartedAt)

	end := start.Add(95*time.Minute + 20*time.Second)
	done, _, err := m.Transition(started, Request{Target: entity.BookingStatusCompleted, Actor: provider(b), At: end,
		Work: &WorkNotes{AfterEvidence: []string{"after.jpg"}, Narrative: "replaced tap"}})
	require.NoError(t, err)
	require.NotNil(t, done.ActualDuration)
	assert.Equal(t, 95, *done.ActualDuration)
	assert.Equal(t, int(done.WorkSummary.EndedAt.Sub(*done.WorkSummary.StartedAt)/time.Minute), *done.ActualDuration)
	assert.Equal(t, []string{"before.jpg"}, done.WorkSummary.BeforeEvidence)
	assert.Equal(t, []string{"after.jpg"}, done.WorkSummary.AfterEvidence)
	assert.Equal(t, "replaced tap", done.WorkSummary.Narrative)
}

func TestCancellationSuggestsRefund(t *testing.T) {
	m := newMachine(t)
	scheduled := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		before time.Duration
		want   int64
	}{
		{30 * time.Hour, 1180},
		{10 * time.Hour, 590},
		{time.Hour, 295},
	}
	for _, tc := range cases {
		b := newBooking(t, scheduled)
		next, events, err := m.Transition(b, Request{
			Target: entity.BookingStatusCancelled,
			Actor:  customer(b),
			Reason: "no longer needed",
			At:     scheduled.Add(-tc.before),
		})
		require.NoError(t, err)
		assert.Equal(t, tc.want, next.Cancellation.SuggestedRefund)
		assert.Equal(t, int64(0), next.Payment.RefundAmount, "refund is only suggested")
		require.NotNil(t, next.Cancellation.Reason)
		assert.Equal(t, "no longer needed", *next.Cancellation.Reason)
		require.Len(t, events, 2)
		assert.Equal(t, event.BookingStatusChanged, events[0].Type)
		assert.Equal(t, event.RefundSuggested, events[1].Type)
		assert.Equal(t, tc.want, events[1].Data["amount"])
	}
}

func TestCanView(t *testing.T) {
	b := newBooking(t, time.Now().Add(time.Hour))
	assert.True(t, CanView(b, customer(b)))
	assert.True(t, CanView(b, provider(b)))
	assert.True(t, CanView(b, admin()))
	assert.False(t, CanView(b, entity.Actor{ID: uuid.NewString(), Role: entity.RoleCustomer}))
}
