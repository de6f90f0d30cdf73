package slots

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	valid := map[string]TimeOfDay{
		"10:00":    600,
		"9:05":     545,
		"20:30:00": 1230,
		"00:00":    0,
		"24:00":    MinutesPerDay,
		" 07:15 ":  435,
	}
	for in, want := range valid {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "10", "10:0", "25:00", "24:30", "10:60", "ab:cd", "10:00:99", "-1:00", "1:2:3:4"} {
		_, err := ParseTimeOfDay(in)
		assert.Error(t, err, in)
	}
}

func TestTimeOfDay_JSON(t *testing.T) {
	payload := struct {
		At TimeOfDay `json:"at"`
	}{At: MustParseTimeOfDay("18:45")}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"18:45"}`, string(data))

	require.NoError(t, json.Unmarshal([]byte(`{"at":"08:30"}`), &payload))
	assert.Equal(t, TimeOfDay(510), payload.At)

	assert.Error(t, json.Unmarshal([]byte(`{"at":"8h30"}`), &payload))
}

func TestAddMinutes(t *testing.T) {
	assert.Equal(t, "11:30", AddMinutes(MustParseTimeOfDay("10:00"), 90).String())
	assert.Equal(t, "24:30", AddMinutes(MustParseTimeOfDay("23:30"), 60).String())
}

func TestTo12Hour(t *testing.T) {
	cases := map[string]string{
		"00:00": "12:00 AM",
		"00:30": "12:30 AM",
		"09:05": "9:05 AM",
		"12:00": "12:00 PM",
		"13:30": "1:30 PM",
		"23:59": "11:59 PM",
	}
	for in, want := range cases {
		assert.Equal(t, want, To12Hour(MustParseTimeOfDay(in)), in)
	}
}

func TestIsDateInPast(t *testing.T) {
	now := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)

	assert.True(t, IsDateInPast(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsDateInPast(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, IsDateInPast(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), now))
}

func TestIsTimeInPastForToday(t *testing.T) {
	now := time.Date(2026, 10, 17, 15, 10, 0, 0, time.UTC)
	today := DateOf(now)

	assert.True(t, IsTimeInPastForToday(today, MustParseTimeOfDay("15:00"), now))
	assert.True(t, IsTimeInPastForToday(today, MustParseTimeOfDay("15:10"), now))
	assert.False(t, IsTimeInPastForToday(today, MustParseTimeOfDay("15:30"), now))
	assert.False(t, IsTimeInPastForToday(today.AddDate(0, 0, 1), MustParseTimeOfDay("08:00"), now))
	assert.True(t, IsTimeInPastForToday(today.AddDate(0, 0, -1), MustParseTimeOfDay("23:00"), now))
}

func TestDateOf_UsesLocationOfInput(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	instant := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-10-17", FormatDate(DateOf(instant)))
	assert.Equal(t, "2026-10-18", FormatDate(DateOf(instant.In(tokyo))))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, d.Weekday())

	_, err = ParseDate("20/10/2026")
	assert.Error(t, err)
}
