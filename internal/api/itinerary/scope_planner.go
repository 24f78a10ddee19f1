package itinerary

import (
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Hour boundaries for the intra-trip regeneration rules.
const (
	earlyMorningHour = 8
	lateEveningHour  = 20
)

// PlanRegenerationScope decides which day range must be (re)computed given
// the wall clock and the trip dates. Pure function: computed fresh per
// request, never persisted.
func PlanRegenerationScope(now time.Time, cfg *types.TripConfig) types.RegenerationScope {
	n := cfg.DayCount()

	if now.Before(cfg.StartDate.Time) {
		return types.RegenerationScope{
			StartDayNumber: 1,
			EndDayNumber:   n,
			Reason:         "trip has not started yet, generating the full itinerary",
		}
	}
	if now.After(endOfTrip(cfg)) {
		return types.RegenerationScope{
			StartDayNumber: 1,
			EndDayNumber:   n,
			Reason:         "trip ended, regenerating for review",
		}
	}

	day := cfg.DayNumberFor(now)
	switch hour := now.Hour(); {
	case hour < earlyMorningHour:
		return types.RegenerationScope{
			StartDayNumber: day,
			EndDayNumber:   n,
			Reason:         "early morning, regenerating from today onward",
		}
	case hour >= lateEveningHour:
		start := day + 1
		if start > n {
			start = n
		}
		return types.RegenerationScope{
			StartDayNumber: start,
			EndDayNumber:   n,
			Reason:         "late evening, regenerating from tomorrow",
		}
	default:
		return types.RegenerationScope{
			StartDayNumber: day,
			EndDayNumber:   n,
			StartTime:      now.Format("15:04"),
			Reason:         "regenerating remaining activities from now",
		}
	}
}

// endOfTrip is the last instant of the trip's final day.
func endOfTrip(cfg *types.TripConfig) time.Time {
	end := cfg.DayDate(cfg.DayCount())
	return end.Add(24*time.Hour - time.Nanosecond)
}
