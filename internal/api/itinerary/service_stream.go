package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// GenerateItineraryStream runs a full generation and pushes events to eventCh.
// It emits exactly one terminal event (complete or error) and never sends
// anything after it. The caller owns the channel and closes it once this
// returns.
//
// The two-phase path (pool then distribution) is tried first; any failure in
// it degrades to the legacy per-day loop, and a per-day failure there degrades
// further to a deterministic fallback day. The stream deadline bounds AI
// calls only: once it fires, remaining days are filled from the fallback
// catalog and the stream still completes normally.
func (s *Service) GenerateItineraryStream(ctx context.Context, req types.StreamGenerateRequest, eventCh chan<- types.StreamEvent) error {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GenerateItineraryStream", trace.WithAttributes(
		attribute.Bool("smart_regeneration", req.SmartRegeneration),
		attribute.Bool("two_phase", req.TwoPhaseEnabled()),
	))
	defer span.End()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.GenerationRequestsTotal.Add(ctx, 1)
		defer func() {
			s.metrics.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.Bool("smart_regeneration", req.SmartRegeneration)))
		}()
	}

	cfg := &req.Trip
	n := cfg.DayCount()
	if n <= 0 || len(cfg.Stays) == 0 {
		err := &ValidationError{Phase: "request", Reason: "trip needs a valid date range and at least one city stay"}
		s.sendEvent(ctx, eventCh, types.StreamEvent{Type: types.EventTypeError, Error: err.Error()})
		return err
	}

	var scope types.RegenerationScope
	if req.SmartRegeneration {
		scope = PlanRegenerationScope(time.Now(), cfg)
	} else {
		scope = types.RegenerationScope{StartDayNumber: 1, EndDayNumber: n, Reason: "full generation"}
	}
	s.logger.InfoContext(ctx, "Generation scope planned",
		slog.Int("start_day", scope.StartDayNumber),
		slog.Int("end_day", scope.EndDayNumber),
		slog.String("reason", scope.Reason),
	)
	// Days before the scope are replayed untouched; their place names seed
	// the duplicate registry so regenerated days cannot collide with them.
	var preserved []types.DayItinerary
	for _, day := range req.ExistingDays {
		if day.DayNumber < scope.StartDayNumber {
			preserved = append(preserved, day)
		}
	}
	sort.Slice(preserved, func(i, j int) bool { return preserved[i].DayNumber < preserved[j].DayNumber })

	// The progress total counts the day events this stream will deliver:
	// replayed days plus the scoped ones.
	total := len(preserved) + scope.EndDayNumber - scope.StartDayNumber + 1

	if !s.sendEvent(ctx, eventCh, types.StreamEvent{
		Type:     types.EventTypeProgress,
		Phase:    "planning",
		Message:  scope.Reason,
		Progress: &types.Progress{Current: 0, Total: total},
	}) {
		return streamAbort(ctx)
	}

	current := 0
	for i := range preserved {
		current++
		if !s.sendEvent(ctx, eventCh, types.StreamEvent{
			Type:      types.EventTypeDay,
			Day:       &preserved[i],
			Preserved: true,
			Progress:  &types.Progress{Current: current, Total: total},
		}) {
			return streamAbort(ctx)
		}
	}

	// AI calls run under the stream deadline; event delivery does not, so a
	// deadline hit can still drain fallback days and the terminal event.
	genCtx, cancel := context.WithTimeout(ctx, s.opts.StreamDeadline)
	defer cancel()

	// Smart regeneration always uses the per-day path: its scope is a tail of
	// the trip and the pool call is not worth re-running for it.
	if req.TwoPhaseEnabled() && !req.SmartRegeneration {
		done, err := s.streamTwoPhase(ctx, genCtx, eventCh, cfg, scope, preserved, current, total)
		if done {
			return err
		}
		s.logger.WarnContext(ctx, "Two-phase generation failed, switching to per-day path", slog.Any("error", err))
		if !s.sendEvent(ctx, eventCh, types.StreamEvent{
			Type:    types.EventTypeProgress,
			Phase:   "fallback",
			Message: "switching to day-by-day generation",
		}) {
			return streamAbort(ctx)
		}
	}

	return s.streamLegacy(ctx, genCtx, eventCh, cfg, scope, preserved, current, total)
}

// streamTwoPhase attempts the pool+distribution path. done is false when the
// caller should retry on the legacy path; when done is true the terminal event
// has been sent (or the consumer is gone) and err is the final outcome.
func (s *Service) streamTwoPhase(ctx, genCtx context.Context, eventCh chan<- types.StreamEvent, cfg *types.TripConfig, scope types.RegenerationScope, preserved []types.DayItinerary, current, total int) (bool, error) {
	if !s.sendEvent(ctx, eventCh, types.StreamEvent{
		Type:    types.EventTypeProgress,
		Phase:   "phase1",
		Message: "generating candidate places for every city",
	}) {
		return true, streamAbort(ctx)
	}

	preservedNames := nonExemptNames(preserved)
	pool, err := s.GeneratePool(genCtx, cfg, preservedNames)
	if err != nil {
		return false, err
	}

	if !s.sendEvent(ctx, eventCh, types.StreamEvent{
		Type:    types.EventTypeProgress,
		Phase:   "phase2",
		Message: "distributing places across your days",
	}) {
		return true, streamAbort(ctx)
	}

	days, _, err := s.Distribute(genCtx, cfg, pool, scope)
	if err != nil {
		return false, err
	}

	trip := &types.Trip{
		Days:      append(append([]types.DayItinerary{}, preserved...), days...),
		StartDate: cfg.StartDate.Format(types.DateLayout),
		EndDate:   cfg.EndDate.Format(types.DateLayout),
	}
	// Phase 2 consumes each pool entry at most once, so the distributed days
	// are duplicate-free by construction. Re-verify and report instead of
	// spending replacement calls.
	duplicates := duplicateReports(trip.Days)

	for dayNum := scope.StartDayNumber; dayNum <= scope.EndDayNumber; dayNum++ {
		day := trip.Day(dayNum)
		if day == nil {
			return false, &ValidationError{Phase: "phase2", Reason: fmt.Sprintf("distribution produced no day %d", dayNum)}
		}
		current++
		if !s.sendEvent(ctx, eventCh, types.StreamEvent{
			Type:     types.EventTypeDay,
			Day:      day,
			Progress: &types.Progress{Current: current, Total: total},
		}) {
			return true, streamAbort(ctx)
		}
	}

	summary := &types.GenerationSummary{
		AIGeneratedCount: len(days),
		Duplicates:       duplicates,
	}
	s.sendEvent(ctx, eventCh, types.StreamEvent{
		Type:    types.EventTypeComplete,
		Message: "itinerary ready",
		Summary: summary,
	})
	return true, nil
}

// streamLegacy generates days one at a time, de-duplicating each fresh day
// against everything emitted so far before pushing it out. Failures degrade to
// deterministic fallback days instead of aborting the stream.
func (s *Service) streamLegacy(ctx, genCtx context.Context, eventCh chan<- types.StreamEvent, cfg *types.TripConfig, scope types.RegenerationScope, preserved []types.DayItinerary, current, total int) error {
	registry := make(map[string]int)
	var allNames []string
	noteDay := func(day types.DayItinerary) {
		for _, p := range day.Places {
			if types.IsExemptCategory(p.Category) {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(p.Name))
			if _, seen := registry[key]; !seen && key != "" {
				registry[key] = day.DayNumber
				allNames = append(allNames, p.Name)
			}
		}
	}
	for _, day := range preserved {
		noteDay(day)
	}

	var (
		allDays       = append([]types.DayItinerary{}, preserved...)
		aiCount       int
		fallbackCount int
	)

	for dayNum := scope.StartDayNumber; dayNum <= scope.EndDayNumber; dayNum++ {
		startTime := ""
		if dayNum == scope.StartDayNumber {
			startTime = scope.StartTime
		}

		var day types.DayItinerary
		if genCtx.Err() != nil {
			day = buildFallbackDay(cfg, dayNum)
			fallbackCount++
			if s.metrics != nil {
				s.metrics.FallbackDaysTotal.Add(ctx, 1)
			}
			s.logger.WarnContext(ctx, "Stream deadline reached, filling day from fallback catalog",
				slog.Int("day", dayNum))
		} else if generated, err := s.GenerateDay(genCtx, cfg, dayNum, startTime, exclusionList(cfg, allNames)); err != nil {
			day = buildFallbackDay(cfg, dayNum)
			fallbackCount++
			if s.metrics != nil {
				s.metrics.FallbackDaysTotal.Add(ctx, 1)
			}
			s.logger.WarnContext(ctx, "Day generation failed, using fallback day",
				slog.Int("day", dayNum),
				slog.Any("error", err),
			)
			if !s.sendEvent(ctx, eventCh, types.StreamEvent{
				Type:    types.EventTypeProgress,
				Phase:   "fallback",
				Message: fallbackReason(dayNum, err),
			}) {
				return streamAbort(ctx)
			}
		} else {
			day = generated
			s.dedupeDayAgainst(genCtx, &day, registry, exclusionList(cfg, allNames))
			aiCount++
		}

		noteDay(day)
		allDays = append(allDays, day)
		current++
		if !s.sendEvent(ctx, eventCh, types.StreamEvent{
			Type:     types.EventTypeDay,
			Day:      &allDays[len(allDays)-1],
			Progress: &types.Progress{Current: current, Total: total},
		}) {
			return streamAbort(ctx)
		}
	}

	summary := &types.GenerationSummary{
		AIGeneratedCount: aiCount,
		FallbackCount:    fallbackCount,
		Duplicates:       duplicateReports(allDays),
	}
	s.logger.InfoContext(ctx, "Streamed generation finished",
		slog.Int("ai_days", aiCount),
		slog.Int("fallback_days", fallbackCount),
		slog.Int("duplicates", len(summary.Duplicates)),
	)
	s.sendEvent(ctx, eventCh, types.StreamEvent{
		Type:    types.EventTypeComplete,
		Message: "itinerary ready",
		Summary: summary,
	})
	return nil
}

// duplicateReports runs detection only, for the terminal summary.
func duplicateReports(days []types.DayItinerary) []types.DuplicateReport {
	found := detectDuplicates(days)
	if len(found) == 0 {
		return nil
	}
	reports := make([]types.DuplicateReport, 0, len(found))
	for name, dayNums := range found {
		reports = append(reports, types.DuplicateReport{Location: name, Days: dayNums})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Location < reports[j].Location })
	return reports
}

// GenerateAll is the non-streaming counterpart: full two-phase generation with
// the same degradation ladder, returning the assembled trip at once.
func (s *Service) GenerateAll(ctx context.Context, cfg *types.TripConfig) (*types.Trip, []types.DuplicateReport, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GenerateAll")
	defer span.End()

	n := cfg.DayCount()
	if n <= 0 || len(cfg.Stays) == 0 {
		return nil, nil, &ValidationError{Phase: "request", Reason: "trip needs a valid date range and at least one city stay"}
	}
	scope := types.RegenerationScope{StartDayNumber: 1, EndDayNumber: n, Reason: "full generation"}

	trip := &types.Trip{
		StartDate: cfg.StartDate.Format(types.DateLayout),
		EndDate:   cfg.EndDate.Format(types.DateLayout),
	}

	pool, err := s.GeneratePool(ctx, cfg, nil)
	if err == nil {
		var days []types.DayItinerary
		if days, _, err = s.Distribute(ctx, cfg, pool, scope); err == nil {
			trip.Days = days
			duplicates := s.ResolveDuplicates(ctx, trip)
			return trip, duplicates, nil
		}
	}
	s.logger.WarnContext(ctx, "Two-phase generation failed, switching to per-day path", slog.Any("error", err))

	registry := make(map[string]int)
	var allNames []string
	for dayNum := 1; dayNum <= n; dayNum++ {
		day, err := s.GenerateDay(ctx, cfg, dayNum, "", exclusionList(cfg, allNames))
		if err != nil {
			day = buildFallbackDay(cfg, dayNum)
			if s.metrics != nil {
				s.metrics.FallbackDaysTotal.Add(ctx, 1)
			}
		} else {
			s.dedupeDayAgainst(ctx, &day, registry, exclusionList(cfg, allNames))
		}
		for _, p := range day.Places {
			if types.IsExemptCategory(p.Category) {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(p.Name))
			if _, seen := registry[key]; !seen && key != "" {
				registry[key] = day.DayNumber
				allNames = append(allNames, p.Name)
			}
		}
		trip.Days = append(trip.Days, day)
	}

	fallbackDays := 0
	for _, day := range trip.Days {
		if isFallbackDay(day) {
			fallbackDays++
		}
	}
	s.logger.InfoContext(ctx, "Per-day generation finished",
		slog.Int("days", len(trip.Days)),
		slog.Int("fallback_days", fallbackDays),
	)
	return trip, duplicateReports(trip.Days), nil
}
