package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trip-planner/internal/api/sanitizer"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// distributionContext describes one day from phase 2's point of view.
type distributionContext struct {
	DayNumber      int
	Date           string
	Hotel          string
	WindowStart    string
	WindowEnd      string
	IsArrivalDay   bool
	IsDepartureDay bool
	FixedSchedules []types.FixedSchedule
	Arrival        *types.TravelLeg
	Departure      *types.TravelLeg
}

// buildDistributionContexts expands a scope into per-day contexts grouped by
// city, in trip order.
func buildDistributionContexts(cfg *types.TripConfig, scope types.RegenerationScope) (map[string][]distributionContext, []string, error) {
	byCity := make(map[string][]distributionContext)
	var cityOrder []string

	for dayNum := scope.StartDayNumber; dayNum <= scope.EndDayNumber; dayNum++ {
		stay, err := cfg.StayForDay(dayNum)
		if err != nil {
			return nil, nil, err
		}
		date := cfg.DayDate(dayNum).Format(types.DateLayout)

		dc := distributionContext{
			DayNumber:      dayNum,
			Date:           date,
			Hotel:          stay.Hotel,
			WindowStart:    "09:00",
			WindowEnd:      "21:00",
			FixedSchedules: cfg.SchedulesForDate(date),
		}
		if date == stay.StartDate.Format(types.DateLayout) {
			dc.IsArrivalDay = true
			dc.WindowStart = "14:00"
			dc.Arrival = stay.Arrival
			if stay.Arrival != nil && stay.Arrival.ArrivalTime != "" {
				dc.WindowStart = stay.Arrival.ArrivalTime
			}
		}
		if date == stay.EndDate.Format(types.DateLayout) {
			dc.IsDepartureDay = true
			dc.WindowEnd = "12:00"
			dc.Departure = stay.Departure
			if stay.Departure != nil && stay.Departure.DepartureTime != "" {
				dc.WindowEnd = stay.Departure.DepartureTime
			}
		}
		// First day of the scope may carry an intra-day cutoff.
		if dayNum == scope.StartDayNumber && scope.StartTime != "" && scope.StartTime > dc.WindowStart {
			dc.WindowStart = scope.StartTime
		}

		if _, seen := byCity[stay.City]; !seen {
			cityOrder = append(cityOrder, stay.City)
		}
		byCity[stay.City] = append(byCity[stay.City], dc)
	}
	return byCity, cityOrder, nil
}

// Distribute runs phase 2: one call per city assigning the pool to calendar
// days. Cities are independent, so they run with bounded parallelism; the
// consumed-name set is shared and mutex-protected. Any malformed response is
// fatal for the whole two-phase path.
func (s *Service) Distribute(ctx context.Context, cfg *types.TripConfig, pool map[string][]types.POICandidate, scope types.RegenerationScope) ([]types.DayItinerary, []string, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Distribute", trace.WithAttributes(
		attribute.Int("scope.start", scope.StartDayNumber),
		attribute.Int("scope.end", scope.EndDayNumber),
	))
	defer span.End()

	byCity, cityOrder, err := buildDistributionContexts(cfg, scope)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	var (
		mu        sync.Mutex
		usedNames []string
		allDays   []types.DayItinerary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxCityParallel)

	for _, city := range cityOrder {
		city := city
		contexts := byCity[city]
		g.Go(func() error {
			days, consumed, err := s.distributeCity(gctx, city, pool[city], contexts)
			if err != nil {
				return err
			}
			mu.Lock()
			allDays = append(allDays, days...)
			usedNames = append(usedNames, consumed...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	sort.Slice(allDays, func(i, j int) bool { return allDays[i].DayNumber < allDays[j].DayNumber })

	s.logger.InfoContext(ctx, "Phase 2 distribution completed",
		slog.Int("days", len(allDays)),
		slog.Int("used_pois", len(usedNames)),
	)
	return allDays, usedNames, nil
}

func (s *Service) distributeCity(ctx context.Context, city string, pool []types.POICandidate, contexts []distributionContext) ([]types.DayItinerary, []string, error) {
	if len(pool) == 0 {
		return nil, nil, &ValidationError{Phase: "phase2", Reason: fmt.Sprintf("no POI pool for city %q", city)}
	}

	prompt := getDistributionPrompt(city, pool, contexts)
	raw, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("phase 2 generation failed for %s: %w", city, err)
	}

	cleaned := sanitizer.Clean(raw)
	var parsed struct {
		Days []struct {
			DayNumber int           `json:"dayNumber"`
			Date      string        `json:"date"`
			Places    []types.Place `json:"places"`
		} `json:"days"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, nil, fmt.Errorf("failed to parse phase 2 JSON for %s: %w", city, err)
	}
	if parsed.Days == nil {
		return nil, nil, &ValidationError{Phase: "phase2", Reason: fmt.Sprintf("response for %s is missing the days array", city)}
	}

	byNumber := make(map[int][]types.Place, len(parsed.Days))
	for _, d := range parsed.Days {
		byNumber[d.DayNumber] = d.Places
	}

	var (
		days     []types.DayItinerary
		consumed []string
	)
	for _, dc := range contexts {
		places, ok := byNumber[dc.DayNumber]
		if !ok {
			return nil, nil, &ValidationError{Phase: "phase2", Reason: fmt.Sprintf("response for %s is missing day %d", city, dc.DayNumber)}
		}
		day := types.DayItinerary{
			Date:      dc.Date,
			DayNumber: dc.DayNumber,
			City:      city,
			Hotel:     dc.Hotel,
			Places:    make([]types.Place, 0, len(places)),
		}
		attachTravelLegs(&day, dc)
		for i, p := range places {
			p.ID = placeID(dc.DayNumber, i)
			if p.Category == "" {
				p.Category = "attraction"
			}
			day.Places = append(day.Places, p)
			consumed = append(consumed, strings.ToLower(p.Name))
		}
		days = append(days, day)
	}
	return days, consumed, nil
}

// placeID produces the day-scoped, stable identifier a Place keeps across
// value replacements.
func placeID(dayNumber, index int) string {
	return fmt.Sprintf("day%d-place%d", dayNumber, index+1)
}

func attachTravelLegs(day *types.DayItinerary, dc distributionContext) {
	for _, leg := range []*types.TravelLeg{dc.Arrival, dc.Departure} {
		if leg == nil {
			continue
		}
		if leg.Mode == "train" {
			day.Train = leg
		} else {
			day.Flight = leg
		}
	}
}
