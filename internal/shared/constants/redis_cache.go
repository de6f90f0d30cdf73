package constants

import (
	"time"
)

// Redis Cache Configuration
// Pattern: slotify:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

// Semi-Static Data (Medium TTL: changes occasionally)
const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour // 2 hours - for activity details
)

// Highly Dynamic (Micro TTL: real-time sensitive)
const (
	TTL_REALTIME_SHORT = 30 * time.Second // 30 seconds - for booked intervals of a day
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "slotify"
)

// ================== ACTIVITIES MODULE ==================

// Activity Cache Keys
const (
	CACHE_KEY_ACTIVITY_DETAIL = CACHE_PREFIX + ":activities:detail:uuid:" // + activity-id
)

// Activity Cache TTLs
const (
	TTL_ACTIVITY_DETAIL = TTL_SEMI_STATIC_MEDIUM // 2 hours
)

// ================== AVAILABILITY MODULE ==================

// Availability Cache Keys
const (
	CACHE_KEY_AVAILABILITY_DAY     = CACHE_PREFIX + ":availability:day:activity:"     // + activity-id:date:YYYY-MM-DD
	CACHE_KEY_AVAILABILITY_VERSION = CACHE_PREFIX + ":availability:version:activity:" // + activity-id[:date:YYYY-MM-DD]
)

// Availability Cache TTLs
const (
	TTL_AVAILABILITY_DAY     = TTL_REALTIME_SHORT // 30 seconds
	TTL_AVAILABILITY_VERSION = 24 * time.Hour     // outlives any in-flight day read
)

// ================== HELPER FUNCTIONS ==================

func BuildActivityDetailKey(activityID string) string {
	return CACHE_KEY_ACTIVITY_DETAIL + activityID
}

// BuildAvailabilityDayKey -> "slotify:availability:day:activity:<id>:date:2026-10-20"
func BuildAvailabilityDayKey(activityID, date string) string {
	return CACHE_KEY_AVAILABILITY_DAY + activityID + ":date:" + date
}

// BuildAvailabilityActivityPattern matches every cached day of one activity
func BuildAvailabilityActivityPattern(activityID string) string {
	return CACHE_KEY_AVAILABILITY_DAY + activityID + ":*"
}

// Version counters live outside the day namespace so the activity pattern never deletes them

// BuildAvailabilityDayVersionKey -> "slotify:availability:version:activity:<id>:date:2026-10-20"
func BuildAvailabilityDayVersionKey(activityID, date string) string {
	return CACHE_KEY_AVAILABILITY_VERSION + activityID + ":date:" + date
}

// BuildAvailabilityActivityVersionKey -> "slotify:availability:version:activity:<id>"
func BuildAvailabilityActivityVersionKey(activityID string) string {
	return CACHE_KEY_AVAILABILITY_VERSION + activityID
}
