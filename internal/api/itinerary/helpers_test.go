package itinerary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// fakeAI routes prompts through a test-provided function and counts calls.
type fakeAI struct {
	mu    sync.Mutex
	calls int
	fn    func(prompt string) (string, error)
}

func (f *fakeAI) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return "", errors.New("no response configured")
	}
	return f.fn(prompt)
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(t *testing.T, ai AIGenerator) *Service {
	t.Helper()
	return newTestServiceWithOptions(t, ai, Options{})
}

func newTestServiceWithOptions(t *testing.T, ai AIGenerator, opts Options) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(ai, logger, nil, opts)
}

func mustDate(t *testing.T, value string) types.Date {
	t.Helper()
	parsed, err := time.Parse(types.DateLayout, value)
	require.NoError(t, err)
	return types.Date{Time: parsed}
}

// testTripConfig is a 4-day, two-city trip: Tokyo on days 1-2, Kyoto on
// days 3-4 (the Sep 3 boundary belongs to the arrival city).
func testTripConfig(t *testing.T) *types.TripConfig {
	t.Helper()
	return &types.TripConfig{
		StartDate: mustDate(t, "2026-09-01"),
		EndDate:   mustDate(t, "2026-09-04"),
		Stays: []types.CityStay{
			{
				City:      "Tokyo",
				Hotel:     "Park Hotel Tokyo",
				StartDate: mustDate(t, "2026-09-01"),
				EndDate:   mustDate(t, "2026-09-03"),
			},
			{
				City:      "Kyoto",
				Hotel:     "Kyoto Granbell",
				StartDate: mustDate(t, "2026-09-03"),
				EndDate:   mustDate(t, "2026-09-04"),
				Arrival: &types.TravelLeg{
					Mode:          "train",
					Carrier:       "JR Central",
					Number:        "Nozomi 215",
					DepartureTime: "09:03",
					ArrivalTime:   "11:18",
					From:          "Tokyo",
					To:            "Kyoto",
				},
			},
		},
	}
}
