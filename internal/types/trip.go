package types

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date that marshals as "YYYY-MM-DD" but also accepts
// RFC3339 timestamps on input.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid date %q: want %s", s, DateLayout)
		}
	}
	d.Time = t
	return nil
}

// Transport describes how to get from one scheduled place to the next one.
type Transport struct {
	Mode            string  `json:"mode"`
	DurationMinutes int     `json:"durationMinutes,omitempty"`
	DistanceKM      float64 `json:"distanceKm,omitempty"`
}

// TravelLeg is a pre-booked flight or train segment attached to a travel day.
type TravelLeg struct {
	Mode          string `json:"mode,omitempty"` // "flight" or "train"
	Carrier       string `json:"carrier,omitempty"`
	Number        string `json:"number,omitempty"`
	DepartureTime string `json:"departureTime,omitempty"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
}

// Place is a POI scheduled into a specific day. The ID is day-scoped and
// stable: regeneration replaces the value but keeps the ID.
type Place struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Address         string     `json:"address,omitempty"`
	Latitude        float64    `json:"latitude,omitempty"`
	Longitude       float64    `json:"longitude,omitempty"`
	Description     string     `json:"description,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
	Category        string     `json:"category"`
	StartTime       string     `json:"startTime,omitempty"`
	TransportToNext *Transport `json:"transportToNext,omitempty"`
}

// DayItinerary is one scheduled day of the trip.
type DayItinerary struct {
	Date      string     `json:"date"`
	DayNumber int        `json:"dayNumber"`
	City      string     `json:"city"`
	Hotel     string     `json:"hotel,omitempty"`
	Places    []Place    `json:"places"`
	Flight    *TravelLeg `json:"flight,omitempty"`
	Train     *TravelLeg `json:"train,omitempty"`
}

// Trip is the ordered set of days covering the whole journey. Day numbers are
// exactly 1..N, contiguous, one day per number.
type Trip struct {
	Days      []DayItinerary `json:"days"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
}

// Day returns the itinerary for a day number, or nil when absent.
func (t *Trip) Day(dayNumber int) *DayItinerary {
	for i := range t.Days {
		if t.Days[i].DayNumber == dayNumber {
			return &t.Days[i]
		}
	}
	return nil
}

// FixedSchedule is a pre-booked, immovable block (a show, a tour) that
// generation must plan around, never into.
type FixedSchedule struct {
	Name               string `json:"name"`
	Category           string `json:"category"`
	Date               string `json:"date"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime,omitempty"`
	ArriveEarlyMinutes int    `json:"arriveEarlyMinutes,omitempty"`
}

// CityStay is a contiguous block of nights in one city. Stays are expected to
// tile the trip date range without gaps.
type CityStay struct {
	City      string     `json:"city"`
	Hotel     string     `json:"hotel,omitempty"`
	StartDate Date       `json:"startDate"`
	EndDate   Date       `json:"endDate"`
	Arrival   *TravelLeg `json:"arrival,omitempty"`
	Departure *TravelLeg `json:"departure,omitempty"`
}

// TripConfig is the immutable input to generation: where the traveler is,
// when, and which places are required or forbidden.
type TripConfig struct {
	StartDate       Date            `json:"startDate"`
	EndDate         Date            `json:"endDate"`
	Stays           []CityStay      `json:"stays"`
	TravelerProfile string          `json:"travelerProfile,omitempty"`
	MustVisit       []string        `json:"mustVisit,omitempty"`
	Excluded        []string        `json:"excluded,omitempty"`
	Visited         []string        `json:"visited,omitempty"`
	FixedSchedules  []FixedSchedule `json:"fixedSchedules,omitempty"`
}

// DayCount returns the total number of trip days N (both endpoints inclusive).
func (c *TripConfig) DayCount() int {
	start := truncateToDate(c.StartDate.Time)
	end := truncateToDate(c.EndDate.Time)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// DayDate returns the calendar date of a 1-based day number.
func (c *TripConfig) DayDate(dayNumber int) time.Time {
	return truncateToDate(c.StartDate.Time).AddDate(0, 0, dayNumber-1)
}

// DayNumberFor maps a wall-clock instant to a 1-based day number, clamped to
// the trip range.
func (c *TripConfig) DayNumberFor(t time.Time) int {
	day := int(truncateToDate(t).Sub(truncateToDate(c.StartDate.Time)).Hours()/24) + 1
	if day < 1 {
		return 1
	}
	if n := c.DayCount(); day > n {
		return n
	}
	return day
}

// StayForDay returns the city stay covering a day number. The last stay wins
// on boundary dates, matching how travel days belong to the destination city.
func (c *TripConfig) StayForDay(dayNumber int) (CityStay, error) {
	date := c.DayDate(dayNumber)
	for i := len(c.Stays) - 1; i >= 0; i-- {
		s := c.Stays[i]
		if !date.Before(truncateToDate(s.StartDate.Time)) && !date.After(truncateToDate(s.EndDate.Time)) {
			return s, nil
		}
	}
	return CityStay{}, fmt.Errorf("no city stay covers day %d (%s)", dayNumber, date.Format(DateLayout))
}

// SchedulesForDate returns the fixed schedules booked on a calendar date.
func (c *TripConfig) SchedulesForDate(date string) []FixedSchedule {
	var out []FixedSchedule
	for _, fs := range c.FixedSchedules {
		if fs.Date == date {
			out = append(out, fs)
		}
	}
	return out
}

// RegenerationScope is the day range (and optional intra-day cutoff) that a
// regeneration request must recompute. Computed fresh per request, never
// persisted.
type RegenerationScope struct {
	StartDayNumber int    `json:"startDayNumber"`
	EndDayNumber   int    `json:"endDayNumber"`
	StartTime      string `json:"startTime,omitempty"`
	Reason         string `json:"reason"`
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
