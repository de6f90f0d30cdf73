package slots

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinutesPerDay = 24 * 60

	// DateLayout is the wire format for calendar dates
	DateLayout = "2006-01-02"
)

// TimeOfDay is a wall-clock time stored as minutes since midnight.
// Values past MinutesPerDay are allowed so an interval can run to or past midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS". Seconds are truncated.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return 0, fmt.Errorf("invalid time %q: bad hour", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q: bad minute", s)
	}
	if len(parts) == 3 {
		seconds, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 || seconds < 0 || seconds > 59 {
			return 0, fmt.Errorf("invalid time %q: bad second", s)
		}
	}

	if minutes < 0 || minutes > 59 || hours < 0 || hours > 24 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}

	return TimeOfDay(hours*60 + minutes), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants; it panics on bad input
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

// String formats as 24h "HH:MM"
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AddMinutes returns t shifted by m minutes. The result is not wrapped at midnight.
func AddMinutes(t TimeOfDay, m int) TimeOfDay {
	return t + TimeOfDay(m)
}

// To12Hour formats t for display, e.g. "1:30 PM"
func To12Hour(t TimeOfDay) string {
	h := t.Hour() % 24
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, t.Minute(), suffix)
}

// FromTime returns the time of day of t in t's own location
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// ParseDate parses a "YYYY-MM-DD" calendar date as midnight UTC
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return d, nil
}

// DateOf returns the calendar date of t, as seen in t's location, at midnight UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date in DateLayout
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// IsDateInPast reports whether date lies before the calendar date of now
func IsDateInPast(date, now time.Time) bool {
	return DateOf(date).Before(DateOf(now))
}

// IsTimeInPastForToday reports whether start on date has already begun at now.
// Dates other than today are never "in the past for today" unless the whole date is past.
func IsTimeInPastForToday(date time.Time, start TimeOfDay, now time.Time) bool {
	today := DateOf(now)
	day := DateOf(date)
	if day.Before(today) {
		return true
	}
	if day.After(today) {
		return false
	}
	return FromTime(now) >= start
}
