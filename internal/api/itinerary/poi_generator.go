package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-trip-planner/internal/api/sanitizer"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// GeneratePool runs phase 1: one master call producing the per-city candidate
// pool. The response must contain an array for every configured city;
// anything less is a ValidationError and aborts the two-phase path.
func (s *Service) GeneratePool(ctx context.Context, cfg *types.TripConfig, excluded []string) (map[string][]types.POICandidate, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GeneratePool")
	defer span.End()

	exclusions := exclusionList(cfg, excluded)
	key := poolCacheKey(cfg, exclusions)
	if cached, found := s.poolCache.Get(key); found {
		s.logger.DebugContext(ctx, "Phase 1 pool served from cache", slog.String("key", key))
		return cached.(map[string][]types.POICandidate), nil
	}

	prompt := getMasterPOIPrompt(cfg, s.opts.PoolMin, s.opts.PoolMax, exclusions)
	raw, err := s.ai.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("phase 1 generation failed: %w", err)
	}

	cleaned := sanitizer.Clean(raw)
	var pool map[string][]types.POICandidate
	if err := json.Unmarshal([]byte(cleaned), &pool); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse phase 1 POI pool JSON: %w", err)
	}

	total := 0
	for _, stay := range cfg.Stays {
		candidates, ok := pool[stay.City]
		if !ok || candidates == nil {
			err := &ValidationError{Phase: "phase1", Reason: fmt.Sprintf("response is missing the POI list for city %q", stay.City)}
			span.RecordError(err)
			return nil, err
		}
		for i := range candidates {
			if candidates[i].City == "" {
				candidates[i].City = stay.City
			}
			if candidates[i].Priority == "" {
				candidates[i].Priority = types.PriorityMedium
			}
		}
		pool[stay.City] = candidates
		total += len(candidates)
	}

	span.SetAttributes(attribute.Int("pool.total", total))
	s.logger.InfoContext(ctx, "Phase 1 pool generated",
		slog.Int("total_pois", total),
		slog.Int("cities", len(cfg.Stays)),
	)

	s.poolCache.Set(key, pool, s.opts.PoolCacheTTL)
	return pool, nil
}
