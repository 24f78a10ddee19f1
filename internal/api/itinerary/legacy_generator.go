package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api/sanitizer"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// dayPlanContext is what a single-day generation call needs to know about the
// day it is planning.
type dayPlanContext struct {
	City           string
	Date           string
	DayNumber      int
	Hotel          string
	StartTime      string
	FixedSchedules []types.FixedSchedule
}

func dayContextFor(cfg *types.TripConfig, dayNumber int, startTime string) (dayPlanContext, error) {
	stay, err := cfg.StayForDay(dayNumber)
	if err != nil {
		return dayPlanContext{}, err
	}
	date := cfg.DayDate(dayNumber).Format(types.DateLayout)
	return dayPlanContext{
		City:           stay.City,
		Date:           date,
		DayNumber:      dayNumber,
		Hotel:          stay.Hotel,
		StartTime:      startTime,
		FixedSchedules: cfg.SchedulesForDate(date),
	}, nil
}

// GenerateDay plans a single day independently of any pool. This is the legacy
// path: the safety net when two-phase generation fails, and the engine behind
// the regenerate-day action.
func (s *Service) GenerateDay(ctx context.Context, cfg *types.TripConfig, dayNumber int, startTime string, excluded []string) (types.DayItinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GenerateDay", trace.WithAttributes(
		attribute.Int("day", dayNumber),
	))
	defer span.End()

	dc, err := dayContextFor(cfg, dayNumber, startTime)
	if err != nil {
		span.RecordError(err)
		return types.DayItinerary{}, err
	}

	prompt := getSingleDayPrompt(cfg, dc, excluded)
	raw, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return types.DayItinerary{}, fmt.Errorf("day %d generation failed: %w", dayNumber, err)
	}

	cleaned := sanitizer.Clean(raw)
	var parsed struct {
		Places []types.Place `json:"places"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		span.RecordError(err)
		return types.DayItinerary{}, fmt.Errorf("failed to parse day %d JSON: %w", dayNumber, err)
	}
	if len(parsed.Places) == 0 {
		return types.DayItinerary{}, &ValidationError{Phase: "day", Reason: fmt.Sprintf("response for day %d has no places", dayNumber)}
	}

	day := types.DayItinerary{
		Date:      dc.Date,
		DayNumber: dayNumber,
		City:      dc.City,
		Hotel:     dc.Hotel,
		Places:    make([]types.Place, 0, len(parsed.Places)),
	}
	stay, _ := cfg.StayForDay(dayNumber)
	attachTravelLegs(&day, distributionContext{
		Arrival:   arrivalLegFor(stay, dc.Date),
		Departure: departureLegFor(stay, dc.Date),
	})
	for i, p := range parsed.Places {
		p.ID = placeID(dayNumber, i)
		if p.Category == "" {
			p.Category = "attraction"
		}
		day.Places = append(day.Places, p)
	}

	s.logger.InfoContext(ctx, "Generated single day",
		slog.Int("day", dayNumber),
		slog.String("city", dc.City),
		slog.Int("places", len(day.Places)),
	)
	return day, nil
}

func arrivalLegFor(stay types.CityStay, date string) *types.TravelLeg {
	if date == stay.StartDate.Format(types.DateLayout) {
		return stay.Arrival
	}
	return nil
}

func departureLegFor(stay types.CityStay, date string) *types.TravelLeg {
	if date == stay.EndDate.Format(types.DateLayout) {
		return stay.Departure
	}
	return nil
}

// OptimizeDay reorders an existing day's places for less travel. Place content
// is never changed, only order, start times and transport hops. If the model
// drops or invents places the response is discarded and a deterministic
// start-time sort is applied instead.
func (s *Service) OptimizeDay(ctx context.Context, day types.DayItinerary) ([]types.Place, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "OptimizeDay", trace.WithAttributes(
		attribute.Int("day", day.DayNumber),
	))
	defer span.End()

	if len(day.Places) == 0 {
		return nil, &ValidationError{Phase: "optimize", Reason: "day has no places to optimize"}
	}

	prompt := getOptimizeDayPrompt(day.City, day.Date, day.Places)
	raw, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		s.logger.WarnContext(ctx, "Optimize call failed, sorting by start time instead", slog.Any("error", err))
		return sortedByStartTime(day.Places), nil
	}

	cleaned := sanitizer.Clean(raw)
	var parsed struct {
		Places []struct {
			Name            string           `json:"name"`
			StartTime       string           `json:"startTime"`
			TransportToNext *types.Transport `json:"transportToNext"`
		} `json:"places"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil || len(parsed.Places) != len(day.Places) {
		s.logger.WarnContext(ctx, "Optimize response unusable, sorting by start time instead",
			slog.Int("got", len(parsed.Places)),
			slog.Int("want", len(day.Places)),
		)
		return sortedByStartTime(day.Places), nil
	}

	byName := make(map[string]types.Place, len(day.Places))
	for _, p := range day.Places {
		byName[strings.ToLower(strings.TrimSpace(p.Name))] = p
	}

	out := make([]types.Place, 0, len(parsed.Places))
	for _, rp := range parsed.Places {
		p, ok := byName[strings.ToLower(strings.TrimSpace(rp.Name))]
		if !ok {
			s.logger.WarnContext(ctx, "Optimize response invented a place, sorting by start time instead",
				slog.String("place", rp.Name))
			return sortedByStartTime(day.Places), nil
		}
		if rp.StartTime != "" {
			p.StartTime = rp.StartTime
		}
		if rp.TransportToNext != nil {
			p.TransportToNext = rp.TransportToNext
		}
		out = append(out, p)
	}
	return out, nil
}

func sortedByStartTime(places []types.Place) []types.Place {
	out := append([]types.Place{}, places...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// RegeneratePlace swaps one place on a day for a fresh suggestion, keeping its
// slot (ID, start time, transport hop). avoidPlaces extends the exclusion set
// beyond what the trip already contains.
func (s *Service) RegeneratePlace(ctx context.Context, trip *types.Trip, dayNumber, placeIndex int, avoidPlaces []string) (types.Place, error) {
	day := trip.Day(dayNumber)
	if day == nil {
		return types.Place{}, &ValidationError{Phase: "regenerate-place", Reason: fmt.Sprintf("trip has no day %d", dayNumber)}
	}
	if placeIndex < 0 || placeIndex >= len(day.Places) {
		return types.Place{}, &ValidationError{Phase: "regenerate-place", Reason: fmt.Sprintf("day %d has no place at index %d", dayNumber, placeIndex)}
	}
	current := day.Places[placeIndex]

	excluded := append(nonExemptNames(trip.Days), avoidPlaces...)
	excluded = append(excluded, current.Name)

	replacement, err := s.generateReplacementPOI(ctx, day.City, current.Category, current.StartTime, excluded)
	if err != nil {
		return types.Place{}, err
	}
	replacement.ID = current.ID
	replacement.StartTime = current.StartTime
	replacement.TransportToNext = current.TransportToNext
	day.Places[placeIndex] = replacement
	return replacement, nil
}
