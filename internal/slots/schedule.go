package slots

import (
	"encoding/json"
	"errors"
	"iter"
	"slices"
	"time"
)

// DefaultSlotInterval is the step between candidate start times when a schedule does not set one
const DefaultSlotInterval = 30

// Weekdays is a set of operating days, one bit per time.Weekday
type Weekdays uint8

func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w |= 1 << uint(d)
	}
	return w
}

// EveryDay is the set of all seven weekdays
var EveryDay = NewWeekdays(time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday)

func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// Days lists the members in Sunday-first order
func (w Weekdays) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// MarshalJSON encodes the set as weekday numbers, 0 = Sunday
func (w Weekdays) MarshalJSON() ([]byte, error) {
	nums := make([]int, 0, 7)
	for _, d := range w.Days() {
		nums = append(nums, int(d))
	}
	return json.Marshal(nums)
}

func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	var out Weekdays
	for _, n := range nums {
		if n < 0 || n > 6 {
			return errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
		}
		out |= 1 << uint(n)
	}
	*w = out
	return nil
}

// Interval is a half-open [Start, End) range within one day
type Interval struct {
	Start TimeOfDay `json:"start_time"`
	End   TimeOfDay `json:"end_time"`
}

// Overlaps is the half-open intersection test: a.Start < b.End && a.End > b.Start
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// Schedule is an activity's operating schedule
type Schedule struct {
	OperatingDays Weekdays  `json:"operating_days"`
	Open          TimeOfDay `json:"open_time"`
	Close         TimeOfDay `json:"close_time"`
	SlotInterval  int       `json:"slot_interval"`
	Duration      int       `json:"duration"`
}

var (
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidInterval = errors.New("slot interval must not be negative")
	ErrInvalidHours    = errors.New("open time must be before close time and within one day")
)

func (s Schedule) Validate() error {
	if s.Duration <= 0 {
		return ErrInvalidDuration
	}
	if s.SlotInterval < 0 {
		return ErrInvalidInterval
	}
	if s.Open < 0 || s.Open >= s.Close || s.Close > MinutesPerDay {
		return ErrInvalidHours
	}
	return nil
}

// Step is the effective distance between candidate starts
func (s Schedule) Step() int {
	if s.SlotInterval <= 0 {
		return DefaultSlotInterval
	}
	return s.SlotInterval
}

// Contains reports whether iv fits inside opening hours
func (s Schedule) Contains(iv Interval) bool {
	return iv.Start >= s.Open && iv.End <= s.Close && iv.Start < iv.End
}

// IsOpenOn reports whether date's weekday is an operating day
func (s Schedule) IsOpenOn(date time.Time) bool {
	return s.OperatingDays.Has(date.Weekday())
}

// Candidates yields the candidate intervals for date in start order. A candidate whose
// end would fall after closing time is not produced. The sequence is empty on closed days
// and can be ranged over any number of times.
func Candidates(s Schedule, date time.Time) iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		if s.Duration <= 0 || !s.IsOpenOn(date) {
			return
		}
		step := TimeOfDay(s.Step())
		for start := s.Open; start+TimeOfDay(s.Duration) <= s.Close; start += step {
			if !yield(Interval{Start: start, End: start + TimeOfDay(s.Duration)}) {
				return
			}
		}
	}
}

// Generate collects Candidates into a slice
func Generate(s Schedule, date time.Time) []Interval {
	return slices.Collect(Candidates(s, date))
}

// CandidateAt returns the candidate starting at start on date, if the schedule produces one
func CandidateAt(s Schedule, date time.Time, start TimeOfDay) (Interval, bool) {
	for iv := range Candidates(s, date) {
		if iv.Start == start {
			return iv, true
		}
		if iv.Start > start {
			break
		}
	}
	return Interval{}, false
}
