package itinerary

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api/sanitizer"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// detectDuplicates maps lower-cased place name -> day numbers it appears on,
// skipping exempt categories, and keeps only names seen on more than one day.
func detectDuplicates(days []types.DayItinerary) map[string][]int {
	occurrences := make(map[string][]int)
	for _, day := range days {
		for _, p := range day.Places {
			if types.IsExemptCategory(p.Category) {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(p.Name))
			if key == "" {
				continue
			}
			if len(occurrences[key]) == 0 || occurrences[key][len(occurrences[key])-1] != day.DayNumber {
				occurrences[key] = append(occurrences[key], day.DayNumber)
			}
		}
	}
	for name, dayNums := range occurrences {
		if len(dayNums) < 2 {
			delete(occurrences, name)
		}
	}
	return occurrences
}

// ResolveDuplicates enforces the cross-day uniqueness invariant over a full
// trip. The earliest day keeps the place; every later occurrence is replaced
// in place (same ID) by a freshly generated POI that is steered away from
// every non-exempt name in the entire trip. This is a single bounded
// correction pass: a second detection sweep reports, but does not retry,
// anything still duplicated.
func (s *Service) ResolveDuplicates(ctx context.Context, trip *types.Trip) []types.DuplicateReport {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ResolveDuplicates")
	defer span.End()

	duplicates := detectDuplicates(trip.Days)
	if len(duplicates) == 0 {
		return nil
	}
	s.logger.InfoContext(ctx, "Duplicate places detected", slog.Int("count", len(duplicates)))

	for name, dayNums := range duplicates {
		keeper := dayNums[0]
		for _, dayNum := range dayNums[1:] {
			day := trip.Day(dayNum)
			if day == nil {
				continue
			}
			s.replaceDuplicateInDay(ctx, trip, day, name, keeper)
		}
	}

	remaining := detectDuplicates(trip.Days)
	if len(remaining) == 0 {
		return nil
	}

	reports := make([]types.DuplicateReport, 0, len(remaining))
	for name, dayNums := range remaining {
		s.logger.WarnContext(ctx, "Duplicate survived the correction pass",
			slog.String("location", name),
			slog.Any("days", dayNums),
		)
		reports = append(reports, types.DuplicateReport{Location: name, Days: dayNums})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Location < reports[j].Location })
	span.SetAttributes(attribute.Int("duplicates.remaining", len(reports)))
	return reports
}

// replaceDuplicateInDay swaps every occurrence of name on the given day for a
// freshly generated POI. The replacement call sees the full current list of
// non-exempt names across the whole trip, so it cannot reintroduce another
// existing place. On failure the original place stays and generation moves on.
func (s *Service) replaceDuplicateInDay(ctx context.Context, trip *types.Trip, day *types.DayItinerary, name string, keeperDay int) {
	for i := range day.Places {
		p := &day.Places[i]
		if types.IsExemptCategory(p.Category) || !strings.EqualFold(strings.TrimSpace(p.Name), name) {
			continue
		}

		exclusions := nonExemptNames(trip.Days)
		replacement, err := s.generateReplacementPOI(ctx, day.City, p.Category, p.StartTime, exclusions)
		if err != nil {
			s.logger.WarnContext(ctx, "Replacement generation failed, keeping duplicate",
				slog.String("place", p.Name),
				slog.Int("day", day.DayNumber),
				slog.Any("error", err),
			)
			continue
		}

		s.logger.InfoContext(ctx, "Replaced duplicate place",
			slog.String("before", p.Name),
			slog.String("after", replacement.Name),
			slog.Int("day", day.DayNumber),
			slog.Int("kept_on_day", keeperDay),
		)
		if s.metrics != nil {
			s.metrics.DuplicatesResolvedTotal.Add(ctx, 1)
		}

		// Replacement by value: the day-scoped ID and slot survive.
		replacement.ID = p.ID
		replacement.StartTime = p.StartTime
		replacement.TransportToNext = p.TransportToNext
		*p = replacement
	}
}

// generateReplacementPOI runs the targeted single-POI regeneration used both
// by duplicate resolution and the regenerate-place action.
func (s *Service) generateReplacementPOI(ctx context.Context, city, category, startTime string, excluded []string) (types.Place, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "generateReplacementPOI", trace.WithAttributes(
		attribute.String("city", city),
		attribute.String("category", category),
	))
	defer span.End()

	prompt := getReplacementPOIPrompt(city, category, startTime, excluded)
	raw, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return types.Place{}, err
	}

	cleaned := sanitizer.Clean(raw)
	var place types.Place
	if err := json.Unmarshal([]byte(cleaned), &place); err != nil {
		span.RecordError(err)
		return types.Place{}, err
	}
	if place.Name == "" {
		return types.Place{}, &ValidationError{Phase: "replacement", Reason: "response is missing the place name"}
	}
	if place.Category == "" {
		place.Category = category
	}

	// A replacement that collides with the exclusion set is useless.
	for _, name := range excluded {
		if strings.EqualFold(name, place.Name) {
			return types.Place{}, &ValidationError{Phase: "replacement", Reason: "model returned an excluded place: " + place.Name}
		}
	}
	return place, nil
}

// dedupeDayAgainst replaces places on a freshly generated day that collide
// with names already present on earlier days. Used by the streaming legacy
// path so a day is clean before it is pushed to the consumer; equivalent to
// the earliest-day-keeps policy of ResolveDuplicates.
func (s *Service) dedupeDayAgainst(ctx context.Context, day *types.DayItinerary, registry map[string]int, allNames []string) {
	for i := range day.Places {
		p := &day.Places[i]
		if types.IsExemptCategory(p.Category) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(p.Name))
		keeperDay, duplicated := registry[key]
		if !duplicated {
			continue
		}

		replacement, err := s.generateReplacementPOI(ctx, day.City, p.Category, p.StartTime, allNames)
		if err != nil {
			s.logger.WarnContext(ctx, "Replacement generation failed, keeping duplicate",
				slog.String("place", p.Name),
				slog.Int("day", day.DayNumber),
				slog.Any("error", err),
			)
			continue
		}
		s.logger.InfoContext(ctx, "Replaced duplicate place",
			slog.String("before", p.Name),
			slog.String("after", replacement.Name),
			slog.Int("day", day.DayNumber),
			slog.Int("kept_on_day", keeperDay),
		)
		if s.metrics != nil {
			s.metrics.DuplicatesResolvedTotal.Add(ctx, 1)
		}
		replacement.ID = p.ID
		replacement.StartTime = p.StartTime
		replacement.TransportToNext = p.TransportToNext
		*p = replacement
	}
}
