package availability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"slotify/internal/realtime"
	"slotify/internal/shared/clock"
	"slotify/internal/shared/constants"
	"slotify/internal/slots"
	"slotify/pkg/cache"
	"slotify/pkg/logger"

	"github.com/google/uuid"
)

// DayCache holds the booked intervals of an activity-day. Only successful store reads are
// cached; a failed read is never remembered as "free".
//
// Fills are versioned: a reader takes Version before reading the store and passes it to
// Set, which drops the write if the day was invalidated in between.
type DayCache interface {
	Get(ctx context.Context, activityID uuid.UUID, date string) ([]slots.Interval, bool)
	Version(ctx context.Context, activityID uuid.UUID, date string) int64
	Set(ctx context.Context, activityID uuid.UUID, date string, version int64, booked []slots.Interval)
	InvalidateDay(ctx context.Context, activityID uuid.UUID, date string)
	InvalidateActivity(ctx context.Context, activityID uuid.UUID)
}

// noVersion never matches a stored version, so a Set carrying it is always dropped
const noVersion int64 = -1

type dayKey struct {
	activityID uuid.UUID
	date       string
}

type memoryEntry struct {
	booked    []slots.Interval
	expiresAt time.Time
}

// MemoryCache is a process-local DayCache that expires entries against an injected clock
type MemoryCache struct {
	clock clock.Clock
	ttl   time.Duration

	mu               sync.Mutex
	entries          map[dayKey]memoryEntry
	dayVersions      map[dayKey]int64
	activityVersions map[uuid.UUID]int64
}

func NewMemoryCache(clk clock.Clock, ttl time.Duration) *MemoryCache {
	if clk == nil {
		clk = clock.Real{}
	}
	if ttl <= 0 {
		ttl = constants.TTL_AVAILABILITY_DAY
	}
	return &MemoryCache{
		clock:            clk,
		ttl:              ttl,
		entries:          make(map[dayKey]memoryEntry),
		dayVersions:      make(map[dayKey]int64),
		activityVersions: make(map[uuid.UUID]int64),
	}
}

func (m *MemoryCache) Get(_ context.Context, activityID uuid.UUID, date string) ([]slots.Interval, bool) {
	key := dayKey{activityID: activityID, date: date}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.clock.Now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return append([]slots.Interval(nil), entry.booked...), true
}

func (m *MemoryCache) Version(_ context.Context, activityID uuid.UUID, date string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versionLocked(dayKey{activityID: activityID, date: date})
}

func (m *MemoryCache) versionLocked(key dayKey) int64 {
	return m.dayVersions[key] + m.activityVersions[key.activityID]
}

func (m *MemoryCache) Set(_ context.Context, activityID uuid.UUID, date string, version int64, booked []slots.Interval) {
	key := dayKey{activityID: activityID, date: date}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.versionLocked(key) != version {
		return
	}
	m.entries[key] = memoryEntry{
		booked:    append([]slots.Interval(nil), booked...),
		expiresAt: m.clock.Now().Add(m.ttl),
	}
}

func (m *MemoryCache) InvalidateDay(_ context.Context, activityID uuid.UUID, date string) {
	key := dayKey{activityID: activityID, date: date}

	m.mu.Lock()
	m.dayVersions[key]++
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *MemoryCache) InvalidateActivity(_ context.Context, activityID uuid.UUID) {
	m.mu.Lock()
	m.activityVersions[activityID]++
	for key := range m.entries {
		if key.activityID == activityID {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
}

// Len is the number of live and expired-but-unswept entries
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisCache shares cached days between instances through pkg/cache. Redis owns expiry.
type RedisCache struct {
	cache  cache.Service
	ttl    time.Duration
	logger *logger.Logger
}

func NewRedisCache(cacheService cache.Service, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = constants.TTL_AVAILABILITY_DAY
	}
	return &RedisCache{cache: cacheService, ttl: ttl, logger: logger.GetDefault()}
}

func (r *RedisCache) Get(ctx context.Context, activityID uuid.UUID, date string) ([]slots.Interval, bool) {
	var booked []slots.Interval
	err := r.cache.Get(ctx, constants.BuildAvailabilityDayKey(activityID.String(), date), &booked)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("Availability cache read failed", slog.String("activity_id", activityID.String()), slog.String("error", err.Error()))
		}
		return nil, false
	}
	return booked, true
}

func (r *RedisCache) Version(ctx context.Context, activityID uuid.UUID, date string) int64 {
	v, err := r.cache.Version(ctx, versionKeys(activityID, date)...)
	if err != nil {
		r.logger.Warn("Availability cache version read failed", slog.String("activity_id", activityID.String()), slog.String("error", err.Error()))
		return noVersion
	}
	return v
}

func (r *RedisCache) Set(ctx context.Context, activityID uuid.UUID, date string, version int64, booked []slots.Interval) {
	if version == noVersion {
		return
	}
	if booked == nil {
		booked = []slots.Interval{}
	}
	key := constants.BuildAvailabilityDayKey(activityID.String(), date)
	stored, err := r.cache.SetIfVersion(ctx, key, booked, r.ttl, version, versionKeys(activityID, date)...)
	if err != nil {
		r.logger.Warn("Availability cache write failed", slog.String("activity_id", activityID.String()), slog.String("error", err.Error()))
		return
	}
	if !stored {
		r.logger.Debug("Availability cache fill superseded by invalidation",
			slog.String("activity_id", activityID.String()),
			slog.String("date", date),
		)
	}
}

func (r *RedisCache) InvalidateDay(ctx context.Context, activityID uuid.UUID, date string) {
	id := activityID.String()
	err := r.cache.BumpVersion(ctx, constants.BuildAvailabilityDayVersionKey(id, date), constants.TTL_AVAILABILITY_VERSION,
		constants.BuildAvailabilityDayKey(id, date))
	if err != nil {
		r.logger.Warn("Availability cache invalidation failed", slog.String("activity_id", id), slog.String("error", err.Error()))
	}
}

func (r *RedisCache) InvalidateActivity(ctx context.Context, activityID uuid.UUID) {
	id := activityID.String()
	if err := r.cache.BumpVersion(ctx, constants.BuildAvailabilityActivityVersionKey(id), constants.TTL_AVAILABILITY_VERSION); err != nil {
		r.logger.Warn("Availability cache invalidation failed", slog.String("activity_id", id), slog.String("error", err.Error()))
	}
	if err := r.cache.DeletePattern(ctx, constants.BuildAvailabilityActivityPattern(id)); err != nil {
		r.logger.Warn("Availability cache invalidation failed", slog.String("activity_id", id), slog.String("error", err.Error()))
	}
}

func versionKeys(activityID uuid.UUID, date string) []string {
	id := activityID.String()
	return []string{
		constants.BuildAvailabilityDayVersionKey(id, date),
		constants.BuildAvailabilityActivityVersionKey(id),
	}
}

// InvalidateOn returns a bus observer that drops cached days touched by an event.
// Reservation events name their date; anything else drops the whole activity.
func InvalidateOn(dc DayCache) func(realtime.Event) {
	return func(e realtime.Event) {
		if e.ActivityID == uuid.Nil {
			return
		}
		ctx := context.Background()
		if e.Table == realtime.TableReservations && strings.TrimSpace(e.Date) != "" {
			dc.InvalidateDay(ctx, e.ActivityID, e.Date)
			return
		}
		dc.InvalidateActivity(ctx, e.ActivityID)
	}
}
