// Package itinerary turns unreliable model output into a consistent,
// de-duplicated multi-day schedule and streams it to the consumer day by day.
package itinerary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// ValidationError reports well-formed JSON that is missing required
// structure. Fatal for the phase it occurred in.
type ValidationError struct {
	Phase  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Phase, e.Reason)
}

// AIGenerator is the slice of the gateway this package needs.
type AIGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options tune generation without reaching into the app config.
type Options struct {
	PoolMin        int
	PoolMax        int
	PoolCacheTTL   time.Duration
	StreamDeadline time.Duration
	// MaxCityParallel bounds concurrent phase-2 city distributions.
	MaxCityParallel int
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.PoolMin <= 0 {
		out.PoolMin = 40
	}
	if out.PoolMax < out.PoolMin {
		out.PoolMax = out.PoolMin + 20
	}
	if out.PoolCacheTTL <= 0 {
		out.PoolCacheTTL = 30 * time.Minute
	}
	if out.StreamDeadline <= 0 {
		out.StreamDeadline = 280 * time.Second
	}
	if out.MaxCityParallel <= 0 {
		out.MaxCityParallel = 2
	}
	return out
}

// Service orchestrates pool generation, day distribution, duplicate
// resolution and the legacy per-day fallback path.
type Service struct {
	ai        AIGenerator
	logger    *slog.Logger
	metrics   *metrics.AppMetrics
	opts      Options
	poolCache *cache.Cache
	// sendTimeout bounds how long a non-terminal event may wait on a slow
	// consumer before being dropped.
	sendTimeout time.Duration
}

func NewService(ai AIGenerator, logger *slog.Logger, m *metrics.AppMetrics, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		ai:          ai,
		logger:      logger,
		metrics:     m,
		opts:        opts,
		poolCache:   cache.New(opts.PoolCacheTTL, 10*time.Minute),
		sendTimeout: 2 * time.Second,
	}
}

// sendEvent pushes an event to the consumer unless the request context is
// already gone or the consumer has been blocking for too long. The terminal
// event decides the stream outcome, so it is never dropped for slowness; only
// a gone consumer loses it.
func (s *Service) sendEvent(ctx context.Context, ch chan<- types.StreamEvent, event types.StreamEvent) bool {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.IsTerminal() {
		select {
		case <-ctx.Done():
			s.logger.WarnContext(ctx, "Context cancelled, not sending stream event", slog.String("eventType", event.Type))
			return false
		case ch <- event:
			return true
		}
	}

	select {
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Context cancelled, not sending stream event", slog.String("eventType", event.Type))
		return false
	case ch <- event:
		return true
	case <-time.After(s.sendTimeout):
		s.logger.WarnContext(ctx, "Dropped stream event due to slow consumer", slog.String("eventType", event.Type))
		return false
	}
}

// streamAbort explains a failed event send: either the request context ended
// or the consumer stopped draining the channel.
func streamAbort(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("stream consumer stopped draining events")
}

// poolCacheKey fingerprints everything that changes the phase-1 pool.
func poolCacheKey(cfg *types.TripConfig, excluded []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|", cfg.StartDate.Format(types.DateLayout), cfg.EndDate.Format(types.DateLayout), cfg.TravelerProfile)
	for _, stay := range cfg.Stays {
		fmt.Fprintf(&b, "%s;", stay.City)
	}
	names := append(append([]string{}, cfg.MustVisit...), excluded...)
	sorted := lo.Map(names, func(n string, _ int) string { return strings.ToLower(n) })
	sort.Strings(sorted)
	b.WriteString(strings.Join(sorted, ";"))

	sum := sha256.Sum256([]byte(b.String()))
	return "pool:" + hex.EncodeToString(sum[:8])
}

// exclusionList merges excluded and already-visited names, de-duplicated
// case-insensitively.
func exclusionList(cfg *types.TripConfig, extra []string) []string {
	all := append(append(append([]string{}, cfg.Excluded...), cfg.Visited...), extra...)
	return lo.UniqBy(all, strings.ToLower)
}

// nonExemptNames collects every place name on the given days whose category
// participates in duplicate detection.
func nonExemptNames(days []types.DayItinerary) []string {
	var names []string
	for _, day := range days {
		for _, p := range day.Places {
			if !types.IsExemptCategory(p.Category) {
				names = append(names, p.Name)
			}
		}
	}
	return lo.UniqBy(names, strings.ToLower)
}
