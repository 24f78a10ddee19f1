package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) Date {
	t.Helper()
	parsed, err := time.Parse(DateLayout, value)
	require.NoError(t, err)
	return Date{Time: parsed}
}

func twoCityConfig(t *testing.T) *TripConfig {
	t.Helper()
	return &TripConfig{
		StartDate: date(t, "2026-09-01"),
		EndDate:   date(t, "2026-09-04"),
		Stays: []CityStay{
			{City: "Tokyo", StartDate: date(t, "2026-09-01"), EndDate: date(t, "2026-09-03")},
			{City: "Kyoto", StartDate: date(t, "2026-09-03"), EndDate: date(t, "2026-09-04")},
		},
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-09-01"`), &d))
	assert.Equal(t, "2026-09-01", d.Format(DateLayout))

	// RFC3339 timestamps are accepted on input too.
	require.NoError(t, json.Unmarshal([]byte(`"2026-09-01T15:04:05Z"`), &d))
	assert.Equal(t, "2026-09-01", d.Format(DateLayout))

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-09-01"`, string(out))

	require.Error(t, json.Unmarshal([]byte(`"September 1st"`), &d))
}

func TestTripConfigDayCount(t *testing.T) {
	cfg := twoCityConfig(t)
	assert.Equal(t, 4, cfg.DayCount(), "both endpoints count")

	oneDay := &TripConfig{StartDate: date(t, "2026-09-01"), EndDate: date(t, "2026-09-01")}
	assert.Equal(t, 1, oneDay.DayCount())

	inverted := &TripConfig{StartDate: date(t, "2026-09-04"), EndDate: date(t, "2026-09-01")}
	assert.Equal(t, 0, inverted.DayCount())
}

func TestTripConfigDayNumberFor(t *testing.T) {
	cfg := twoCityConfig(t)

	at := func(value string) time.Time {
		parsed, err := time.Parse("2006-01-02 15:04", value)
		require.NoError(t, err)
		return parsed
	}

	assert.Equal(t, 1, cfg.DayNumberFor(at("2026-09-01 00:00")))
	assert.Equal(t, 3, cfg.DayNumberFor(at("2026-09-03 23:59")))
	assert.Equal(t, 1, cfg.DayNumberFor(at("2026-08-20 12:00")), "clamped below")
	assert.Equal(t, 4, cfg.DayNumberFor(at("2026-09-20 12:00")), "clamped above")
}

func TestTripConfigStayForDay(t *testing.T) {
	cfg := twoCityConfig(t)

	stay, err := cfg.StayForDay(2)
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", stay.City)

	// Sep 3 is covered by both stays; the arrival city wins.
	stay, err = cfg.StayForDay(3)
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", stay.City)

	gapped := &TripConfig{
		StartDate: date(t, "2026-09-01"),
		EndDate:   date(t, "2026-09-04"),
		Stays: []CityStay{
			{City: "Tokyo", StartDate: date(t, "2026-09-01"), EndDate: date(t, "2026-09-02")},
		},
	}
	_, err = gapped.StayForDay(4)
	require.Error(t, err)
}

func TestTripConfigSchedulesForDate(t *testing.T) {
	cfg := twoCityConfig(t)
	cfg.FixedSchedules = []FixedSchedule{
		{Name: "Kabuki show", Date: "2026-09-02", StartTime: "18:00"},
		{Name: "Tea ceremony", Date: "2026-09-03", StartTime: "10:00"},
	}

	got := cfg.SchedulesForDate("2026-09-02")
	require.Len(t, got, 1)
	assert.Equal(t, "Kabuki show", got[0].Name)
	assert.Empty(t, cfg.SchedulesForDate("2026-09-01"))
}

func TestTripDayLookup(t *testing.T) {
	trip := &Trip{Days: []DayItinerary{{DayNumber: 1}, {DayNumber: 2}}}
	require.NotNil(t, trip.Day(2))
	assert.Nil(t, trip.Day(7))
}

func TestIsExemptCategory(t *testing.T) {
	assert.True(t, IsExemptCategory("hotel"))
	assert.True(t, IsExemptCategory(" Airport "))
	assert.True(t, IsExemptCategory("SHOW"))
	assert.True(t, IsExemptCategory("concert"))
	assert.False(t, IsExemptCategory("museum"))
	assert.False(t, IsExemptCategory(""))
}

func TestStreamEventIsTerminal(t *testing.T) {
	assert.True(t, StreamEvent{Type: EventTypeComplete}.IsTerminal())
	assert.True(t, StreamEvent{Type: EventTypeError}.IsTerminal())
	assert.False(t, StreamEvent{Type: EventTypeDay}.IsTerminal())
	assert.False(t, StreamEvent{Type: EventTypeProgress}.IsTerminal())
}

func TestStreamEventWireFormat(t *testing.T) {
	event := StreamEvent{
		Type:      EventTypeDay,
		Day:       &DayItinerary{DayNumber: 1, Date: "2026-09-01", City: "Tokyo"},
		Progress:  &Progress{Current: 1, Total: 4},
		EventID:   "internal-id",
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "internal-id", "bookkeeping fields stay off the wire")
	assert.Contains(t, string(data), `"type":"day"`)
	assert.Contains(t, string(data), `"dayNumber":1`)
}

func TestTwoPhaseEnabledDefault(t *testing.T) {
	req := &StreamGenerateRequest{}
	assert.True(t, req.TwoPhaseEnabled())

	disabled := false
	req.UseTwoPhase = &disabled
	assert.False(t, req.TwoPhaseEnabled())
}
