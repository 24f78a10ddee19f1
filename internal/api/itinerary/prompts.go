package itinerary

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// getMasterPOIPrompt asks for the phase-1 candidate pool: one array of 40-60
// POIs per city, must-visit entries guaranteed and excluded names forbidden.
func getMasterPOIPrompt(cfg *types.TripConfig, poolMin, poolMax int, excluded []string) string {
	var b strings.Builder

	b.WriteString("You are planning a multi-city trip. Generate a pool of candidate points of interest.\n\n")
	b.WriteString("Cities and stays:\n")
	for _, stay := range cfg.Stays {
		fmt.Fprintf(&b, "- %s (%s to %s), hotel: %s\n",
			stay.City, stay.StartDate.Format(types.DateLayout), stay.EndDate.Format(types.DateLayout), stay.Hotel)
	}
	if cfg.TravelerProfile != "" {
		fmt.Fprintf(&b, "\nTraveler profile: %s\n", cfg.TravelerProfile)
	}

	if len(cfg.MustVisit) > 0 {
		fmt.Fprintf(&b, "\nMUST-VISIT places (every one of these MUST appear in the output with \"isMustVisit\": true):\n- %s\n",
			strings.Join(cfg.MustVisit, "\n- "))
	}
	if len(excluded) > 0 {
		fmt.Fprintf(&b, "\nEXCLUDED places (these MUST NOT appear in the output under any spelling):\n- %s\n",
			strings.Join(excluded, "\n- "))
	}

	fmt.Fprintf(&b, `
Generate between %d and %d POIs in total across all cities. Tag each with a
priority ("high", "medium" or "low") reflecting how essential it is, and a
category such as "museum", "temple", "park", "restaurant", "viewpoint".

Respond with ONLY a JSON object keyed by city name, one array per city:
{
`, poolMin, poolMax)
	for _, stay := range cfg.Stays {
		fmt.Fprintf(&b, `    %q: [
        {
            "name": "POI name",
            "address": "street address",
            "latitude": 0.0,
            "longitude": 0.0,
            "description": "one or two sentences",
            "durationMinutes": 90,
            "category": "museum",
            "priority": "high",
            "isMustVisit": false,
            "city": %q
        }
    ],
`, stay.City, stay.City)
	}
	b.WriteString("}\n")
	return b.String()
}

// getDistributionPrompt asks phase 2 to assign a city's pool to its days.
func getDistributionPrompt(city string, pool []types.POICandidate, days []distributionContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Distribute the following points of interest in %s across the listed days.\n\n", city)

	b.WriteString("Candidate POIs:\n")
	for _, poi := range pool {
		marker := ""
		if poi.IsMustVisit {
			marker = " [MUST VISIT]"
		}
		fmt.Fprintf(&b, "- %s (category: %s, priority: %s, ~%d min)%s\n",
			poi.Name, poi.Category, poi.Priority, poi.DurationMinutes, marker)
	}

	b.WriteString("\nDays:\n")
	for _, day := range days {
		fmt.Fprintf(&b, "- Day %d (%s): available %s-%s", day.DayNumber, day.Date, day.WindowStart, day.WindowEnd)
		if day.IsArrivalDay {
			b.WriteString(", ARRIVAL DAY (schedule fewer POIs)")
		}
		if day.IsDepartureDay {
			b.WriteString(", DEPARTURE DAY (schedule fewer POIs)")
		}
		b.WriteString("\n")
		for _, fs := range day.FixedSchedules {
			fmt.Fprintf(&b, "  FIXED: %s from %s to %s, do not schedule anything overlapping", fs.Name, fs.StartTime, fs.EndTime)
			if fs.ArriveEarlyMinutes > 0 {
				fmt.Fprintf(&b, ", and keep %d minutes free beforehand to get there", fs.ArriveEarlyMinutes)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`
Hard requirements:
1. Every POI marked [MUST VISIT] is assigned to exactly one day.
2. Keep each day's POIs in the same neighbourhood where possible so that
   walking between consecutive stops stays under roughly 20 minutes.
3. Never overlap a fixed schedule block, and respect its early-arrival buffer.
4. Order places chronologically and give each a startTime ("HH:MM").
5. When the day's window allows it, include one meal-category POI near midday
   and one near the evening.

Respond with ONLY a JSON object:
{
    "days": [
        {
            "dayNumber": 1,
            "date": "YYYY-MM-DD",
            "places": [
                {
                    "name": "POI name",
                    "address": "street address",
                    "latitude": 0.0,
                    "longitude": 0.0,
                    "description": "one or two sentences",
                    "durationMinutes": 90,
                    "category": "museum",
                    "startTime": "09:30",
                    "transportToNext": {"mode": "walk", "durationMinutes": 10, "distanceKm": 0.8}
                }
            ]
        }
    ]
}
`)
	return b.String()
}

// getSingleDayPrompt drives the legacy per-day generation path.
func getSingleDayPrompt(cfg *types.TripConfig, day dayPlanContext, excluded []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Plan one day of sightseeing in %s on %s (day %d of the trip).\n",
		day.City, day.Date, day.DayNumber)
	fmt.Fprintf(&b, "The traveler stays at: %s.\n", day.Hotel)
	if day.StartTime != "" {
		fmt.Fprintf(&b, "Plan activities starting from %s only; the earlier part of the day already happened.\n", day.StartTime)
	}
	if cfg.TravelerProfile != "" {
		fmt.Fprintf(&b, "Traveler profile: %s.\n", cfg.TravelerProfile)
	}

	for _, fs := range day.FixedSchedules {
		fmt.Fprintf(&b, "FIXED booking: %s (%s) from %s to %s. Plan around it, never into it.\n",
			fs.Name, fs.Category, fs.StartTime, fs.EndTime)
	}
	if len(excluded) > 0 {
		fmt.Fprintf(&b, "\nDo NOT include any of these places:\n- %s\n", strings.Join(excluded, "\n- "))
	}

	b.WriteString(`
Pick 4-6 places, ordered chronologically with start times, including a lunch
and a dinner stop. Respond with ONLY a JSON object:
{
    "places": [
        {
            "name": "Place name",
            "address": "street address",
            "latitude": 0.0,
            "longitude": 0.0,
            "description": "one or two sentences",
            "durationMinutes": 90,
            "category": "museum",
            "startTime": "09:30",
            "transportToNext": {"mode": "walk", "durationMinutes": 10, "distanceKm": 0.8}
        }
    ]
}
`)
	return b.String()
}

// getReplacementPOIPrompt regenerates a single place, steering the model away
// from every name already used anywhere in the trip.
func getReplacementPOIPrompt(city, category, startTime string, excluded []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Suggest one point of interest in %s", city)
	if category != "" {
		fmt.Fprintf(&b, " in the %q category or something similar", category)
	}
	if startTime != "" {
		fmt.Fprintf(&b, ", suitable for a visit starting around %s", startTime)
	}
	b.WriteString(".\n")

	if len(excluded) > 0 {
		fmt.Fprintf(&b, "\nIt MUST NOT be any of these places (already in the itinerary):\n- %s\n",
			strings.Join(excluded, "\n- "))
	}

	b.WriteString(`
Respond with ONLY a JSON object:
{
    "name": "Place name",
    "address": "street address",
    "latitude": 0.0,
    "longitude": 0.0,
    "description": "one or two sentences",
    "durationMinutes": 90,
    "category": "museum"
}
`)
	return b.String()
}

// getOptimizeDayPrompt asks the model to reorder an existing day for less
// back-and-forth travel without adding or dropping places.
func getOptimizeDayPrompt(city, date string, places []types.Place) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Reorder the following places in %s on %s to minimise travel between consecutive stops.\n", city, date)
	b.WriteString("Keep every place, keep meal stops near midday and evening, and update start times.\n\nPlaces:\n")
	for _, p := range places {
		fmt.Fprintf(&b, "- %s (category: %s, ~%d min, currently at %s)\n", p.Name, p.Category, p.DurationMinutes, p.StartTime)
	}

	b.WriteString(`
Respond with ONLY a JSON object:
{
    "places": [
        {
            "name": "Place name",
            "startTime": "09:30",
            "transportToNext": {"mode": "walk", "durationMinutes": 10, "distanceKm": 0.8}
        }
    ]
}
`)
	return b.String()
}
