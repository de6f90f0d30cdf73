package availability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"slotify/internal/activities"
	"slotify/internal/realtime"
	"slotify/internal/reservations"
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

// countingReader counts day reads so cache hits are observable. afterRead, when set,
// runs once the store has answered but before the result is returned.
type countingReader struct {
	*reservations.MemoryRepository
	dayReads  atomic.Int32
	afterRead func()
}

func (c *countingReader) ActiveIntervals(ctx context.Context, activityID uuid.UUID, date time.Time) ([]slots.Interval, error) {
	c.dayReads.Add(1)
	booked, err := c.MemoryRepository.ActiveIntervals(ctx, activityID, date)
	if c.afterRead != nil {
		c.afterRead()
	}
	return booked, err
}

type fixture struct {
	svc      Service
	store    *countingReader
	cache    *MemoryCache
	clock    *clock.Manual
	activity *activities.Activity
}

// Saturday morning; 2026-10-20 is the following Tuesday
var saturday = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	activity := &activities.Activity{
		ID:                  uuid.New(),
		VenueID:             uuid.New(),
		Name:                "Laser Maze",
		DurationMinutes:     60,
		OperatingDays:       slots.EveryDay,
		OpenTime:            slots.MustParseTimeOfDay("10:00"),
		CloseTime:           slots.MustParseTimeOfDay("21:00"),
		SlotIntervalMinutes: 30,
		MinPartySize:        1,
		MaxPartySize:        6,
		UnitPrice:           decimal.NewFromInt(25),
		Timezone:            "UTC",
		IsActive:            true,
	}

	clk := clock.NewManual(saturday)
	store := &countingReader{MemoryRepository: reservations.NewMemoryRepository()}
	dayCache := NewMemoryCache(clk, 30*time.Second)

	return &fixture{
		svc: NewService(activityStub{activity.ID: activity}, store, Options{
			Cache: dayCache,
			Clock: clk,
		}),
		store:    store,
		cache:    dayCache,
		clock:    clk,
		activity: activity,
	}
}

func (f *fixture) book(t *testing.T, date, start string) *reservations.Reservation {
	t.Helper()
	day, err := slots.ParseDate(date)
	require.NoError(t, err)
	startAt := slots.MustParseTimeOfDay(start)

	r := &reservations.Reservation{
		ActivityID:    f.activity.ID,
		VenueID:       f.activity.VenueID,
		CustomerID:    uuid.New(),
		BookingDate:   day,
		StartTime:     startAt,
		EndTime:       slots.AddMinutes(startAt, f.activity.DurationMinutes),
		PartySize:     2,
		Status:        reservations.StatusConfirmed,
		PaymentStatus: reservations.PaymentPaid,
	}
	require.NoError(t, f.store.Create(context.Background(), r))
	return r
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := slots.ParseDate(s)
	require.NoError(t, err)
	return d
}

func slotAt(t *testing.T, day *DaySlots, start string) Slot {
	t.Helper()
	want := slots.MustParseTimeOfDay(start)
	for _, s := range day.Slots {
		if s.StartTime == want {
			return s
		}
	}
	t.Fatalf("no slot starting at %s", start)
	return Slot{}
}

func TestGetAvailableSlots_StepsByIntervalNotDuration(t *testing.T) {
	f := newFixture(t)

	day, err := f.svc.GetAvailableSlots(context.Background(), f.activity.ID, date(t, "2026-10-20"))
	require.NoError(t, err)

	assert.True(t, day.Open)
	require.Len(t, day.Slots, 21)
	assert.Equal(t, "10:00", day.Slots[0].StartTime.String())
	assert.Equal(t, "10:00 AM", day.Slots[0].Label)
	last := day.Slots[len(day.Slots)-1]
	assert.Equal(t, "20:00", last.StartTime.String())
	assert.Equal(t, "21:00", last.EndTime.String())
	assert.Equal(t, "8:00 PM", last.Label)

	for _, s := range day.Slots {
		assert.True(t, s.Available, s.StartTime.String())
		assert.Empty(t, s.Reason)
		assert.Equal(t, 6, s.Capacity)
		assert.Equal(t, 6, s.Remaining)
		assert.LessOrEqual(t, int(s.EndTime), int(f.activity.CloseTime))
	}
}

func TestGetAvailableSlots_BookedUsesHalfOpenOverlap(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2026-10-20", "13:00")

	day, err := f.svc.GetAvailableSlots(context.Background(), f.activity.ID, date(t, "2026-10-20"))
	require.NoError(t, err)

	for _, start := range []string{"12:30", "13:00", "13:30"} {
		s := slotAt(t, day, start)
		assert.False(t, s.Available, start)
		assert.Equal(t, ReasonBooked, s.Reason, start)
		assert.Zero(t, s.Remaining, start)
	}
	// touching the booked interval at either end is not an overlap
	assert.True(t, slotAt(t, day, "12:00").Available)
	assert.True(t, slotAt(t, day, "14:00").Available)
}

func TestGetAvailableSlots_ClosedWeekday(t *testing.T) {
	f := newFixture(t)
	f.activity.OperatingDays = slots.NewWeekdays(time.Saturday, time.Sunday)

	day, err := f.svc.GetAvailableSlots(context.Background(), f.activity.ID, date(t, "2026-10-20"))
	require.NoError(t, err)

	assert.False(t, day.Open)
	assert.Empty(t, day.Slots)
}

func TestGetAvailableSlots_PastStartsToday(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2026, 10, 17, 12, 10, 0, 0, time.UTC))

	day, err := f.svc.GetAvailableSlots(context.Background(), f.activity.ID, date(t, "2026-10-17"))
	require.NoError(t, err)

	noon := slotAt(t, day, "12:00")
	assert.False(t, noon.Available)
	assert.Equal(t, ReasonPast, noon.Reason)
	assert.True(t, slotAt(t, day, "12:30").Available)
}

func TestGetAvailableSlots_FailsClosedAndDoesNotCacheFailure(t *testing.T) {
	f := newFixture(t)
	f.store.ReadErr = errors.New("connection reset")

	day, err := f.svc.GetAvailableSlots(context.Background(), f.activity.ID, date(t, "2026-10-20"))
	require.NoError(t, err)
	require.NotEmpty(t, day.Slots)
	for _, s := range day.Slots {
		assert.False(t, s.Available)
		assert.Equal(t, ReasonUnverified, s.Reason)
	}
	assert.Zero(t, f.cache.Len())

	f.store.ReadErr = nil
	day, err = f.svc.GetAvailableSlots(context.Background(), f.activity.ID, date(t, "2026-10-20"))
	require.NoError(t, err)
	assert.True(t, day.Slots[0].Available)
}

func TestGetAvailableSlots_UnknownActivity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetAvailableSlots(context.Background(), uuid.New(), date(t, "2026-10-20"))
	assert.ErrorIs(t, err, activities.ErrNotFound)
}

func TestGetAvailableSlots_CachesDayUntilTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2026-10-20")

	_, err := f.svc.GetAvailableSlots(ctx, f.activity.ID, day)
	require.NoError(t, err)
	_, err = f.svc.GetAvailableSlots(ctx, f.activity.ID, day)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.store.dayReads.Load())

	f.clock.Advance(31 * time.Second)
	_, err = f.svc.GetAvailableSlots(ctx, f.activity.ID, day)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.store.dayReads.Load())
}

func TestCancelFreesSlotOnNextQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2026-10-20")

	bus := realtime.NewBus(realtime.NewMemoryBroker())
	bus.Observe(InvalidateOn(f.cache))
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() { _ = bus.Close() })

	r := f.book(t, "2026-10-20", "15:00")
	listed, err := f.svc.GetAvailableSlots(ctx, f.activity.ID, day)
	require.NoError(t, err)
	assert.False(t, slotAt(t, listed, "15:00").Available)

	canceled := reservations.StatusCanceled
	require.NoError(t, f.store.UpdateStatus(ctx, r.ID, reservations.StatusConfirmed, reservations.StatusUpdate{Status: &canceled}))
	require.NoError(t, bus.Publish(ctx, realtime.NewActivityEvent(realtime.TableReservations, realtime.EventUpdate, f.activity.ID, f.activity.VenueID, "2026-10-20")))

	listed, err = f.svc.GetAvailableSlots(ctx, f.activity.ID, day)
	require.NoError(t, err)
	assert.True(t, slotAt(t, listed, "15:00").Available)
	assert.True(t, f.svc.IsSlotAvailable(ctx, f.activity.ID, day, r.StartTime, r.EndTime))
}

func TestCancelDuringDayReadDoesNotLeaveStaleCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2026-10-20")

	bus := realtime.NewBus(realtime.NewMemoryBroker())
	bus.Observe(InvalidateOn(f.cache))
	require.NoError(t, bus.Start(ctx))
	t.Cleanup(func() { _ = bus.Close() })

	r := f.book(t, "2026-10-20", "15:00")

	read := make(chan struct{})
	release := make(chan struct{})
	f.store.afterRead = func() {
		close(read)
		<-release
	}

	listed := make(chan *DaySlots, 1)
	go func() {
		result, err := f.svc.GetAvailableSlots(ctx, f.activity.ID, day)
		assert.NoError(t, err)
		listed <- result
	}()

	// the listing has read the booking but not yet filled the cache
	<-read
	canceled := reservations.StatusCanceled
	require.NoError(t, f.store.UpdateStatus(ctx, r.ID, reservations.StatusConfirmed, reservations.StatusUpdate{Status: &canceled}))
	require.NoError(t, bus.Publish(ctx, realtime.NewActivityEvent(realtime.TableReservations, realtime.EventUpdate, f.activity.ID, f.activity.VenueID, "2026-10-20")))
	close(release)

	inFlight := <-listed
	require.NotNil(t, inFlight)
	assert.False(t, slotAt(t, inFlight, "15:00").Available)
	f.store.afterRead = nil

	next, err := f.svc.GetAvailableSlots(ctx, f.activity.ID, day)
	require.NoError(t, err)
	assert.True(t, slotAt(t, next, "15:00").Available)
	assert.Equal(t, int32(2), f.store.dayReads.Load())
}

func TestIsSlotAvailable_SequentialCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2026-10-20")
	start, end := slots.MustParseTimeOfDay("18:00"), slots.MustParseTimeOfDay("19:00")

	assert.True(t, f.svc.IsSlotAvailable(ctx, f.activity.ID, day, start, end))
	f.book(t, "2026-10-20", "18:00")
	assert.False(t, f.svc.IsSlotAvailable(ctx, f.activity.ID, day, start, end))

	// a third, partially overlapping request is refused too
	assert.False(t, f.svc.IsSlotAvailable(ctx, f.activity.ID, day, slots.MustParseTimeOfDay("18:30"), slots.MustParseTimeOfDay("19:30")))
	assert.True(t, f.svc.IsSlotAvailable(ctx, f.activity.ID, day, end, slots.MustParseTimeOfDay("20:00")))
}

func TestIsSlotAvailable_FailsClosed(t *testing.T) {
	f := newFixture(t)
	f.store.ReadErr = errors.New("timeout")

	available := f.svc.IsSlotAvailable(context.Background(), f.activity.ID, date(t, "2026-10-20"),
		slots.MustParseTimeOfDay("10:00"), slots.MustParseTimeOfDay("11:00"))
	assert.False(t, available)
}

func TestIsStartTimeAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := date(t, "2026-10-20")
	f.book(t, "2026-10-20", "11:00")

	available, err := f.svc.IsStartTimeAvailable(ctx, f.activity.ID, day, slots.MustParseTimeOfDay("11:30"))
	require.NoError(t, err)
	assert.False(t, available)

	available, err = f.svc.IsStartTimeAvailable(ctx, f.activity.ID, day, slots.MustParseTimeOfDay("12:00"))
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.svc.IsStartTimeAvailable(ctx, f.activity.ID, day, slots.MustParseTimeOfDay("20:30"))
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.IsStartTimeAvailable(ctx, f.activity.ID, day, slots.MustParseTimeOfDay("12:15"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetNextAvailableDate_SkipsClosedDays(t *testing.T) {
	f := newFixture(t)
	f.activity.OperatingDays = slots.NewWeekdays(time.Saturday)

	next, err := f.svc.GetNextAvailableDate(context.Background(), f.activity.ID, date(t, "2026-10-18"), 0)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2026-10-24", slots.FormatDate(*next))
}

func TestGetNextAvailableDate_NoneWithinHorizon(t *testing.T) {
	f := newFixture(t)
	f.activity.OperatingDays = slots.NewWeekdays(time.Saturday)

	next, err := f.svc.GetNextAvailableDate(context.Background(), f.activity.ID, date(t, "2026-10-18"), 6)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestGetNextAvailableDate_SkipsFullyBookedAndPastDays(t *testing.T) {
	f := newFixture(t)
	f.activity.OpenTime = slots.MustParseTimeOfDay("10:00")
	f.activity.CloseTime = slots.MustParseTimeOfDay("12:00")
	f.activity.SlotIntervalMinutes = 60
	f.book(t, "2026-10-17", "10:00")
	f.book(t, "2026-10-17", "11:00")

	next, err := f.svc.GetNextAvailableDate(context.Background(), f.activity.ID, date(t, "2026-10-10"), 14)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2026-10-18", slots.FormatDate(*next))
}
