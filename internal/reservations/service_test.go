package reservations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"slotify/internal/activities"
	"slotify/internal/customers"
	"slotify/internal/payments"
	"slotify/internal/pricing"
	"slotify/internal/realtime"
	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/clock"
	"slotify/internal/slots"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type activityStub map[uuid.UUID]*activities.Activity

func (a activityStub) GetActivity(_ context.Context, id uuid.UUID) (*activities.Activity, error) {
	act, ok := a[id]
	if !ok {
		return nil, activities.ErrNotFound
	}
	return act, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Event(nil), p.events...)
}

type fixture struct {
	svc       Service
	repo      *MemoryRepository
	prices    *pricing.MemoryRepository
	people    *customers.MemoryRepository
	gateway   *payments.MockGateway
	publisher *recordingPublisher
	clock     *clock.Manual
	activity  *activities.Activity
	adult     uuid.UUID
	child     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	activity := &activities.Activity{
		ID:                  uuid.New(),
		VenueID:             uuid.New(),
		Name:                "The Vault",
		DurationMinutes:     60,
		OperatingDays:       slots.EveryDay,
		OpenTime:            slots.MustParseTimeOfDay("10:00"),
		CloseTime:           slots.MustParseTimeOfDay("21:00"),
		SlotIntervalMinutes: 30,
		MinPartySize:        2,
		MaxPartySize:        8,
		UnitPrice:           decimal.NewFromInt(25),
		Currency:            "USD",
		Timezone:            "UTC",
		IsActive:            true,
	}
	adult, child := uuid.New(), uuid.New()
	activity.TicketTypes = []activities.TicketType{
		{ID: adult, ActivityID: activity.ID, Name: "Adult", Price: decimal.NewFromInt(25), IsActive: true},
		{ID: child, ActivityID: activity.ID, Name: "Child", Price: decimal.RequireFromString("12.50"), IsActive: true},
	}

	prices := pricing.NewMemoryRepository()
	require.NoError(t, prices.CreatePromo(ctx, &pricing.PromoCode{
		Code: "SAVE20", DiscountType: pricing.DiscountPercentage, DiscountValue: decimal.NewFromInt(20),
		MaxDiscount: decimal.NewNullDecimal(decimal.NewFromInt(50)), IsActive: true,
	}))
	require.NoError(t, prices.CreatePromo(ctx, &pricing.PromoCode{
		Code: "FREEPLAY", DiscountType: pricing.DiscountFixed, DiscountValue: decimal.NewFromInt(500), IsActive: true,
	}))
	require.NoError(t, prices.CreateGiftCard(ctx, &pricing.GiftCard{
		Code: "GC-DEMO-5000", OriginalValue: decimal.NewFromInt(50), RemainingBalance: decimal.NewFromInt(50),
		Status: pricing.GiftCardActive, Currency: "USD",
	}))

	clk := clock.NewManual(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	f := &fixture{
		repo:      NewMemoryRepository(),
		prices:    prices,
		people:    customers.NewMemoryRepository(),
		gateway:   payments.NewMockGateway(),
		publisher: &recordingPublisher{},
		clock:     clk,
		activity:  activity,
		adult:     adult,
		child:     child,
	}
	f.svc = NewService(Dependencies{
		Repo:       f.repo,
		Activities: activityStub{activity.ID: activity},
		Customers:  customers.NewService(f.people),
		Pricing:    pricing.NewService(prices, clk, "USD"),
		Gateway:    f.gateway,
		Publisher:  f.publisher,
		Clock:      clk,
	})
	return f
}

func (f *fixture) request(start string) CreateReservationRequest {
	return CreateReservationRequest{
		ActivityID: f.activity.ID.String(),
		Date:       "2026-10-20",
		StartTime:  start,
		PartySize:  4,
		Customer:   customers.Contact{Email: "ana@example.com", Name: "Ana"},
	}
}

func TestCreateReservationWithPayment_PromoAndGiftCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request("18:00")
	req.PromoCode = " save20 "
	req.GiftCardCode = "gc-demo-5000"

	result, err := f.svc.CreateReservationWithPayment(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "30.00", result.Amount.StringFixed(2))
	assert.Equal(t, "USD", result.Currency)
	assert.Equal(t, StatusPending, result.Status)
	assert.NotEmpty(t, result.PaymentClientSecret)

	stored, err := f.repo.GetByID(ctx, result.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, PaymentPending, stored.PaymentStatus)
	assert.Equal(t, "100.00", stored.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", stored.PromoDiscount.StringFixed(2))
	assert.Equal(t, "50.00", stored.GiftCardCredit.StringFixed(2))
	assert.Equal(t, "19:00", stored.EndTime.String())
	require.NotNil(t, stored.PaymentIntentID)
	assert.Equal(t, result.PaymentIntentID, *stored.PaymentIntentID)
	require.NotNil(t, stored.PromoCode)
	assert.Equal(t, "SAVE20", *stored.PromoCode)

	card, err := f.prices.FindGiftCardByCode(ctx, "GC-DEMO-5000")
	require.NoError(t, err)
	assert.True(t, card.RemainingBalance.IsZero())
	assert.Equal(t, pricing.GiftCardFullyUsed, card.Status)

	calls := f.gateway.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "30.00", calls[0].Amount.StringFixed(2))
	assert.Equal(t, result.ReservationID, calls[0].ReservationID)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.TableReservations, events[0].Table)
	assert.Equal(t, realtime.EventInsert, events[0].Type)
	assert.Equal(t, f.activity.ID, events[0].ActivityID)
	assert.Equal(t, "2026-10-20", events[0].Date)
}

func TestCreateReservationWithPayment_SecondIdenticalAttemptConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	start, end := slots.MustParseTimeOfDay("14:00"), slots.MustParseTimeOfDay("15:00")

	taken, err := f.repo.HasOverlap(ctx, f.activity.ID, date, start, end)
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = f.svc.CreateReservationWithPayment(ctx, f.request("14:00"))
	require.NoError(t, err)

	taken, err = f.repo.HasOverlap(ctx, f.activity.ID, date, start, end)
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = f.svc.CreateReservationWithPayment(ctx, f.request("14:00"))
	require.Error(t, err)
	assert.True(t, apperrors.IsAvailabilityConflict(err))

	_, err = f.svc.CreateReservationWithPayment(ctx, f.request("14:30"))
	assert.True(t, apperrors.IsAvailabilityConflict(err), "half-overlapping slot is also taken")

	_, err = f.svc.CreateReservationWithPayment(ctx, f.request("15:00"))
	assert.NoError(t, err, "back-to-back slot does not overlap")
}

func TestCancelReservation_FreesTheSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	created, err := f.svc.CreateReservationWithPayment(ctx, f.request("11:00"))
	require.NoError(t, err)

	canceled, err := f.svc.CancelReservation(ctx, created.ReservationID, "  plans changed ")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CancelReason)
	assert.Equal(t, "plans changed", *canceled.CancelReason)
	assert.NotNil(t, canceled.CanceledAt)

	taken, err := f.repo.HasOverlap(ctx, f.activity.ID, date, slots.MustParseTimeOfDay("11:00"), slots.MustParseTimeOfDay("12:00"))
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = f.svc.CreateReservationWithPayment(ctx, f.request("11:00"))
	assert.NoError(t, err)

	again, err := f.svc.CancelReservation(ctx, created.ReservationID, "")
	require.NoError(t, err, "canceling twice is a no-op")
	assert.Equal(t, StatusCanceled, again.Status)
}

func TestCreateReservationWithPayment_GatewayFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	declined := errors.New("gateway unavailable")
	f.gateway.SetErr(declined)

	_, err := f.svc.CreateReservationWithPayment(ctx, f.request("12:00"))
	require.Error(t, err)

	var gwErr *apperrors.PaymentGatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.ErrorIs(t, err, declined)
	assert.Equal(t, "gateway unavailable", err.Error())

	id := uuid.MustParse(gwErr.ReservationID)
	stored, err := f.repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Nil(t, stored.PaymentIntentID)

	f.gateway.SetErr(nil)
	retried, err := f.svc.RetryPayment(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, retried.PaymentClientSecret)
	assert.Equal(t, "100.00", retried.Amount.StringFixed(2))

	stored, _ = f.repo.GetByID(ctx, id)
	require.NotNil(t, stored.PaymentIntentID)
}

func TestCreateReservationWithPayment_FullyDiscountedConfirmsImmediately(t *testing.T) {
	f := newFixture(t)
	req := f.request("10:00")
	req.PromoCode = "FREEPLAY"

	result, err := f.svc.CreateReservationWithPayment(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Amount.IsZero())
	assert.Equal(t, StatusConfirmed, result.Status)
	assert.Equal(t, PaymentPaid, result.PaymentStatus)
	assert.Empty(t, result.PaymentClientSecret)
	assert.Empty(t, f.gateway.Calls())
}

func TestCreateReservationWithPayment_TicketTypes(t *testing.T) {
	f := newFixture(t)
	req := f.request("13:00")
	req.PartySize = 0
	req.Tickets = []TicketSelection{
		{TicketTypeID: f.adult.String(), Quantity: 2},
		{TicketTypeID: f.child.String(), Quantity: 2},
	}

	result, err := f.svc.CreateReservationWithPayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "75.00", result.Amount.StringFixed(2))

	stored, err := f.repo.GetByID(context.Background(), result.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.PartySize)
	assert.Len(t, stored.Tickets, 2)
}

func TestCreateReservationWithPayment_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*CreateReservationRequest)
		field  string
	}{
		{"party too large", func(r *CreateReservationRequest) { r.PartySize = 9 }, "party_size"},
		{"party too small", func(r *CreateReservationRequest) { r.PartySize = 1 }, "party_size"},
		{"off grid", func(r *CreateReservationRequest) { r.StartTime = "10:15" }, "start_time"},
		{"ends after close", func(r *CreateReservationRequest) { r.StartTime = "20:30" }, "start_time"},
		{"malformed time", func(r *CreateReservationRequest) { r.StartTime = "25:99" }, "start_time"},
		{"past date", func(r *CreateReservationRequest) { r.Date = "2026-10-16" }, "start_time"},
		{"unknown activity", func(r *CreateReservationRequest) { r.ActivityID = uuid.NewString() }, "activity_id"},
		{"bad activity id", func(r *CreateReservationRequest) { r.ActivityID = "nope" }, "ActivityID"},
		{"bad email", func(r *CreateReservationRequest) { r.Customer.Email = "not-an-email" }, "Customer.Email"},
		{"unknown ticket", func(r *CreateReservationRequest) {
			r.Tickets = []TicketSelection{{TicketTypeID: uuid.NewString(), Quantity: 2}}
		}, "tickets[0].ticket_type_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("16:00")
			tt.mutate(&req)

			_, err := f.svc.CreateReservationWithPayment(context.Background(), req)
			require.Error(t, err)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	assert.Empty(t, f.gateway.Calls())
}

func TestCreateReservationWithPayment_StartAlreadyPassedToday(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2026, 10, 17, 14, 5, 0, 0, time.UTC))

	req := f.request("14:00")
	req.Date = "2026-10-17"
	_, err := f.svc.CreateReservationWithPayment(context.Background(), req)
	assert.True(t, apperrors.IsValidation(err))

	req.StartTime = "14:30"
	_, err = f.svc.CreateReservationWithPayment(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreateReservationWithPayment_DiscountErrorCreatesNothing(t *testing.T) {
	f := newFixture(t)
	req := f.request("17:00")
	req.PromoCode = "BOGUS"

	_, err := f.svc.CreateReservationWithPayment(context.Background(), req)
	require.Error(t, err)

	var derr *apperrors.DiscountError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apperrors.CodePromoNotFound, derr.Code)
	assert.Equal(t, 0, f.people.Count())

	taken, _ := f.repo.HasOverlap(context.Background(), f.activity.ID, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		slots.MustParseTimeOfDay("17:00"), slots.MustParseTimeOfDay("18:00"))
	assert.False(t, taken)
}

func TestCreateReservationWithPayment_ReusesCustomerByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.request("10:00")
	b := f.request("12:00")
	b.Customer.Email = "ANA@Example.com"

	ra, err := f.svc.CreateReservationWithPayment(ctx, a)
	require.NoError(t, err)
	rb, err := f.svc.CreateReservationWithPayment(ctx, b)
	require.NoError(t, err)

	sa, _ := f.repo.GetByID(ctx, ra.ReservationID)
	sb, _ := f.repo.GetByID(ctx, rb.ReservationID)
	assert.Equal(t, sa.CustomerID, sb.CustomerID)
	assert.Equal(t, 1, f.people.Count())
}

func TestCreateReservationWithPayment_StoreWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.WriteErr = errors.New("connection reset")

	_, err := f.svc.CreateReservationWithPayment(context.Background(), f.request("10:00"))
	require.Error(t, err)
	assert.True(t, apperrors.IsStore(err))
	assert.Empty(t, f.gateway.Calls())
}

type failingRedeemer struct {
	pricing.Service
}

func (failingRedeemer) RedeemGiftCard(context.Context, string, uuid.UUID, decimal.Decimal) (*pricing.GiftCardRedemption, error) {
	return nil, apperrors.NewDiscountError(apperrors.CodeGiftCardInsufficient, "gift card balance changed")
}

func TestCreateReservationWithPayment_GiftCardRaceReleasesSlot(t *testing.T) {
	f := newFixture(t)
	clk := clock.NewManual(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	svc := NewService(Dependencies{
		Repo:       f.repo,
		Activities: activityStub{f.activity.ID: f.activity},
		Customers:  customers.NewService(f.people),
		Pricing:    failingRedeemer{pricing.NewService(f.prices, clk, "USD")},
		Gateway:    f.gateway,
		Clock:      clk,
	})

	req := f.request("19:00")
	req.GiftCardCode = "GC-DEMO-5000"

	_, err := svc.CreateReservationWithPayment(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsDiscount(err))
	assert.Empty(t, f.gateway.Calls())

	taken, err := f.repo.HasOverlap(context.Background(), f.activity.ID, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		slots.MustParseTimeOfDay("19:00"), slots.MustParseTimeOfDay("20:00"))
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUpdateReservationStatus_Transitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateReservationWithPayment(ctx, f.request("15:00"))
	require.NoError(t, err)
	id := created.ReservationID

	paid := PaymentPaid
	r, err := f.svc.UpdateReservationStatus(ctx, id, StatusConfirmed, &paid)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, r.Status)
	assert.Equal(t, PaymentPaid, r.PaymentStatus)

	_, err = f.svc.UpdateReservationStatus(ctx, id, StatusPending, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	r, err = f.svc.UpdateReservationStatus(ctx, id, StatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, PaymentPaid, r.PaymentStatus)

	_, err = f.svc.CancelReservation(ctx, id, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateReservationStatus(ctx, id, Status("lost"), nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.UpdateReservationStatus(ctx, uuid.New(), StatusConfirmed, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateReservationWithPayment(ctx, f.request("16:30"))
	require.NoError(t, err)

	_, err = f.svc.RequestRefund(ctx, created.ReservationID, nil, "")
	assert.ErrorIs(t, err, ErrInvalidTransition, "nothing paid yet")

	paid := PaymentPaid
	_, err = f.svc.UpdateReservationStatus(ctx, created.ReservationID, StatusConfirmed, &paid)
	require.NoError(t, err)

	tooMuch := decimal.NewFromInt(101)
	_, err = f.svc.RequestRefund(ctx, created.ReservationID, &tooMuch, "")
	assert.True(t, apperrors.IsValidation(err))

	refund, err := f.svc.RequestRefund(ctx, created.ReservationID, nil, "weather")
	require.NoError(t, err)
	assert.Equal(t, "100.00", refund.Amount.StringFixed(2))
	assert.True(t, strings.HasPrefix(refund.RefundID, "rf_mock_"))

	stored, err := f.svc.GetReservation(ctx, created.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, PaymentRefunded, stored.PaymentStatus)
	assert.Equal(t, StatusConfirmed, stored.Status)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusPending.CanTransitionTo(StatusCanceled))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCanceled))
	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCanceled))
	assert.False(t, StatusCanceled.CanTransitionTo(StatusPending))
	assert.True(t, StatusCanceled.CanTransitionTo(StatusCanceled))
}
