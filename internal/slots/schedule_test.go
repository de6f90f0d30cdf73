package slots

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func escapeRoomSchedule() Schedule {
	return Schedule{
		OperatingDays: EveryDay,
		Open:          MustParseTimeOfDay("10:00"),
		Close:         MustParseTimeOfDay("21:00"),
		SlotInterval:  30,
		Duration:      60,
	}
}

func TestGenerate_HalfHourStepsForHourLongActivity(t *testing.T) {
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	got := Generate(escapeRoomSchedule(), date)

	require.Len(t, got, 21)
	assert.Equal(t, "10:00", got[0].Start.String())
	assert.Equal(t, "11:00", got[0].End.String())
	assert.Equal(t, "10:30", got[1].Start.String())
	assert.Equal(t, "20:00", got[len(got)-1].Start.String())
	assert.Equal(t, "21:00", got[len(got)-1].End.String())

	for _, iv := range got {
		assert.NotEqual(t, "20:30", iv.Start.String(), "20:30 would end after closing")
	}
}

func TestGenerate_NeverEndsAfterClosing(t *testing.T) {
	schedules := []Schedule{
		escapeRoomSchedule(),
		{OperatingDays: EveryDay, Open: 9 * 60, Close: 17*60 + 15, SlotInterval: 45, Duration: 90},
		{OperatingDays: EveryDay, Open: 0, Close: MinutesPerDay, SlotInterval: 0, Duration: 25},
		{OperatingDays: EveryDay, Open: 12 * 60, Close: 12*60 + 30, SlotInterval: 15, Duration: 60},
	}
	date := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

	for _, s := range schedules {
		for iv := range Candidates(s, date) {
			assert.LessOrEqual(t, iv.End, s.Close)
			assert.GreaterOrEqual(t, iv.Start, s.Open)
			assert.Equal(t, TimeOfDay(s.Duration), iv.End-iv.Start)
		}
	}

	assert.Empty(t, Generate(schedules[3], date), "duration longer than opening hours yields nothing")
}

func TestGenerate_ClosedWeekdayIsEmpty(t *testing.T) {
	s := escapeRoomSchedule()
	s.OperatingDays = NewWeekdays(time.Friday, time.Saturday, time.Sunday)

	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, Generate(s, monday))
	assert.NotEmpty(t, Generate(s, saturday))
}

func TestCandidates_IsRestartable(t *testing.T) {
	seq := Candidates(escapeRoomSchedule(), time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}

	assert.Equal(t, first, second)

	// early break must not leak state into the next iteration
	for iv := range seq {
		assert.Equal(t, "10:00", iv.Start.String())
		break
	}
}

func TestSchedule_DefaultStep(t *testing.T) {
	s := escapeRoomSchedule()
	s.SlotInterval = 0

	got := Generate(s, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))

	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, TimeOfDay(DefaultSlotInterval), got[1].Start-got[0].Start)
}

func TestSchedule_Validate(t *testing.T) {
	s := escapeRoomSchedule()
	assert.NoError(t, s.Validate())

	bad := s
	bad.Duration = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidDuration)

	bad = s
	bad.Close = bad.Open
	assert.ErrorIs(t, bad.Validate(), ErrInvalidHours)

	bad = s
	bad.SlotInterval = -5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInterval)
}

func TestInterval_Overlaps(t *testing.T) {
	base := Interval{Start: 600, End: 660}

	assert.True(t, base.Overlaps(Interval{Start: 630, End: 690}))
	assert.True(t, base.Overlaps(Interval{Start: 540, End: 610}))
	assert.True(t, base.Overlaps(Interval{Start: 600, End: 660}))
	assert.False(t, base.Overlaps(Interval{Start: 660, End: 720}), "touching end is free")
	assert.False(t, base.Overlaps(Interval{Start: 540, End: 600}), "touching start is free")
}

func TestWeekdays_JSON(t *testing.T) {
	w := NewWeekdays(time.Sunday, time.Wednesday, time.Saturday)

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,3,6]`, string(data))

	var back Weekdays
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, w, back)

	assert.Error(t, json.Unmarshal([]byte(`[7]`), &back))
}

func TestCandidateAt(t *testing.T) {
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	s := escapeRoomSchedule()

	iv, ok := CandidateAt(s, date, MustParseTimeOfDay("14:30"))
	require.True(t, ok)
	assert.Equal(t, "15:30", iv.End.String())

	_, ok = CandidateAt(s, date, MustParseTimeOfDay("14:15"))
	assert.False(t, ok, "off the half-hour grid")

	_, ok = CandidateAt(s, date, MustParseTimeOfDay("20:30"))
	assert.False(t, ok, "would end after closing")

	closed := s
	closed.OperatingDays = NewWeekdays(time.Saturday)
	_, ok = CandidateAt(closed, date, MustParseTimeOfDay("10:00"))
	assert.False(t, ok)
}
