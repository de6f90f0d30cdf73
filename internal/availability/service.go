package availability

import (
	"context"
	"errors"
	"time"

	"slotify/internal/activities"
	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/clock"
	"slotify/internal/slots"
	"slotify/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxScanDays bounds GetNextAvailableDate when the caller gives no horizon
const DefaultMaxScanDays = 30

var tracer = otel.Tracer("slotify/internal/availability")

type ActivityLookup interface {
	GetActivity(ctx context.Context, id uuid.UUID) (*activities.Activity, error)
}

// ReservationReader is the read side of the reservation store
type ReservationReader interface {
	HasOverlap(ctx context.Context, activityID uuid.UUID, date time.Time, start, end slots.TimeOfDay) (bool, error)
	ActiveIntervals(ctx context.Context, activityID uuid.UUID, date time.Time) ([]slots.Interval, error)
}

type Service interface {
	// IsSlotAvailable is true only when no non-canceled reservation overlaps [start, end).
	// A failed read answers false.
	IsSlotAvailable(ctx context.Context, activityID uuid.UUID, date time.Time, start, end slots.TimeOfDay) bool
	// IsStartTimeAvailable resolves start against the activity schedule and checks that slot
	IsStartTimeAvailable(ctx context.Context, activityID uuid.UUID, date time.Time, start slots.TimeOfDay) (bool, error)
	GetAvailableSlots(ctx context.Context, activityID uuid.UUID, date time.Time) (*DaySlots, error)
	// GetNextAvailableDate returns nil when no date within maxDays has a free slot
	GetNextAvailableDate(ctx context.Context, activityID uuid.UUID, from time.Time, maxDays int) (*time.Time, error)
}

type Options struct {
	Cache       DayCache
	Clock       clock.Clock
	MaxScanDays int
}

type service struct {
	activities  ActivityLookup
	reads       ReservationReader
	cache       DayCache
	clock       clock.Clock
	maxScanDays int
	logger      *logger.Logger
}

func NewService(activityLookup ActivityLookup, reads ReservationReader, opts Options) Service {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	maxDays := opts.MaxScanDays
	if maxDays <= 0 {
		maxDays = DefaultMaxScanDays
	}
	return &service{
		activities:  activityLookup,
		reads:       reads,
		cache:       opts.Cache,
		clock:       clk,
		maxScanDays: maxDays,
		logger:      logger.GetDefault(),
	}
}

func (s *service) IsSlotAvailable(ctx context.Context, activityID uuid.UUID, date time.Time, start, end slots.TimeOfDay) bool {
	ctx, span := tracer.Start(ctx, "availability.IsSlotAvailable", trace.WithAttributes(
		attribute.String("activity.id", activityID.String()),
		attribute.String("slot.date", slots.FormatDate(date)),
		attribute.String("slot.start", start.String()),
	))
	defer span.End()

	taken, err := s.reads.HasOverlap(ctx, activityID, date, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.LogAvailabilityDegraded(ctx, activityID.String(), slots.FormatDate(date), err)
		return false
	}
	span.SetAttributes(attribute.Bool("slot.available", !taken))
	return !taken
}

func (s *service) IsStartTimeAvailable(ctx context.Context, activityID uuid.UUID, date time.Time, start slots.TimeOfDay) (bool, error) {
	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return false, err
	}
	iv, ok := slots.CandidateAt(activity.Schedule(), date, start)
	if !ok {
		return false, apperrors.Validation("start_time", "is not a bookable slot for this activity on that date")
	}
	return s.IsSlotAvailable(ctx, activityID, date, iv.Start, iv.End), nil
}

func (s *service) GetAvailableSlots(ctx context.Context, activityID uuid.UUID, date time.Time) (*DaySlots, error) {
	ctx, span := tracer.Start(ctx, "availability.GetAvailableSlots", trace.WithAttributes(
		attribute.String("activity.id", activityID.String()),
		attribute.String("slot.date", slots.FormatDate(date)),
	))
	defer span.End()

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	day := s.daySlots(ctx, activity, date)
	span.SetAttributes(attribute.Int("slot.count", len(day.Slots)))
	return day, nil
}

func (s *service) GetNextAvailableDate(ctx context.Context, activityID uuid.UUID, from time.Time, maxDays int) (*time.Time, error) {
	if maxDays <= 0 {
		maxDays = s.maxScanDays
	}

	ctx, span := tracer.Start(ctx, "availability.GetNextAvailableDate", trace.WithAttributes(
		attribute.String("activity.id", activityID.String()),
		attribute.String("scan.from", slots.FormatDate(from)),
		attribute.Int("scan.max_days", maxDays),
	))
	defer span.End()

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := slots.DateOf(from)
	today := slots.DateOf(s.clock.Now().In(activity.Location()))
	for i := 0; i < maxDays; i++ {
		date := start.AddDate(0, 0, i)
		if date.Before(today) {
			continue
		}
		day := s.daySlots(ctx, activity, date)
		for _, slot := range day.Slots {
			if slot.Available {
				span.SetAttributes(attribute.String("scan.found", day.Date))
				return &date, nil
			}
		}
	}
	return nil, nil
}

// daySlots evaluates every candidate against one batched read of the day's bookings
func (s *service) daySlots(ctx context.Context, activity *activities.Activity, date time.Time) *DaySlots {
	dateStr := slots.FormatDate(date)
	schedule := activity.Schedule()
	day := &DaySlots{
		ActivityID: activity.ID.String(),
		Date:       dateStr,
		Open:       schedule.IsOpenOn(date),
		Slots:      []Slot{},
	}
	if !day.Open {
		return day
	}

	booked, readErr := s.bookedIntervals(ctx, activity.ID, date, dateStr)
	now := s.clock.Now().In(activity.Location())

	for iv := range slots.Candidates(schedule, date) {
		slot := Slot{
			Date:      dateStr,
			StartTime: iv.Start,
			EndTime:   iv.End,
			Label:     slots.To12Hour(iv.Start),
			Capacity:  activity.MaxPartySize,
		}
		switch {
		case slots.IsTimeInPastForToday(date, iv.Start, now):
			slot.Reason = ReasonPast
		case readErr != nil:
			slot.Reason = ReasonUnverified
		case overlapsAny(iv, booked):
			slot.Reason = ReasonBooked
		default:
			slot.Available = true
			slot.Remaining = activity.MaxPartySize
		}
		day.Slots = append(day.Slots, slot)
	}
	return day
}

func (s *service) bookedIntervals(ctx context.Context, activityID uuid.UUID, date time.Time, dateStr string) ([]slots.Interval, error) {
	version := noVersion
	if s.cache != nil {
		if booked, ok := s.cache.Get(ctx, activityID, dateStr); ok {
			return booked, nil
		}
		// taken before the read so an invalidation during it voids the fill
		version = s.cache.Version(ctx, activityID, dateStr)
	}

	booked, err := s.reads.ActiveIntervals(ctx, activityID, date)
	if err != nil {
		s.logger.LogAvailabilityDegraded(ctx, activityID.String(), dateStr, err)
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, activityID, dateStr, version, booked)
	}
	return booked, nil
}

func (s *service) loadActivity(ctx context.Context, id uuid.UUID) (*activities.Activity, error) {
	activity, err := s.activities.GetActivity(ctx, id)
	if err != nil {
		if errors.Is(err, activities.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.Store("get activity", err)
	}
	return activity, nil
}

func overlapsAny(iv slots.Interval, booked []slots.Interval) bool {
	for _, b := range booked {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}
