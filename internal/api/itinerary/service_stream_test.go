package itinerary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// collectStream runs a streamed generation to completion and returns every
// event in order.
func collectStream(t *testing.T, svc *Service, req types.StreamGenerateRequest) []types.StreamEvent {
	t.Helper()
	eventCh := make(chan types.StreamEvent, 100)
	done := make(chan error, 1)
	go func() {
		done <- svc.GenerateItineraryStream(context.Background(), req, eventCh)
		close(eventCh)
	}()

	var events []types.StreamEvent
	for event := range eventCh {
		events = append(events, event)
	}
	require.NoError(t, <-done)
	return events
}

func dayEvents(events []types.StreamEvent) []types.StreamEvent {
	var out []types.StreamEvent
	for _, e := range events {
		if e.Type == types.EventTypeDay {
			out = append(out, e)
		}
	}
	return out
}

func terminalEvents(events []types.StreamEvent) []types.StreamEvent {
	var out []types.StreamEvent
	for _, e := range events {
		if e.IsTerminal() {
			out = append(out, e)
		}
	}
	return out
}

// routeTwoPhase answers both phase prompts for the standard test trip.
func routeTwoPhase(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "pool of candidate"):
		return poolResponse, nil
	case strings.Contains(prompt, "in Tokyo"):
		return distributionResponse(map[int][]string{
			1: {"Senso-ji Temple"},
			2: {"Nezu Museum"},
		}), nil
	case strings.Contains(prompt, "in Kyoto"):
		return distributionResponse(map[int][]string{
			3: {"Fushimi Inari Shrine"},
			4: {"Kinkaku-ji"},
		}), nil
	default:
		return "", fmt.Errorf("unexpected prompt: %s", prompt)
	}
}

func TestGenerateItineraryStreamTwoPhase(t *testing.T) {
	svc := newTestService(t, &fakeAI{fn: routeTwoPhase})
	req := types.StreamGenerateRequest{Trip: *testTripConfig(t)}

	events := collectStream(t, svc, req)

	days := dayEvents(events)
	require.Len(t, days, 4, "one day event per trip day")
	for i, e := range days {
		require.NotNil(t, e.Day)
		assert.Equal(t, i+1, e.Day.DayNumber, "days arrive in order")
		assert.False(t, e.Preserved)
		require.NotNil(t, e.Progress)
		assert.Equal(t, 4, e.Progress.Total)
	}

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1, "exactly one terminal event")
	terminal := terminals[0]
	assert.Equal(t, types.EventTypeComplete, terminal.Type)
	assert.Equal(t, terminal, events[len(events)-1], "nothing follows the terminal event")
	require.NotNil(t, terminal.Summary)
	assert.Equal(t, 4, terminal.Summary.AIGeneratedCount)
	assert.Zero(t, terminal.Summary.FallbackCount)
	assert.Empty(t, terminal.Summary.Duplicates)
}

func TestGenerateItineraryStreamFallsBackToPerDay(t *testing.T) {
	ai := &fakeAI{fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "pool of candidate"):
			return "", errors.New("phase 1 unavailable")
		case strings.Contains(prompt, "Plan one day"):
			return singleDayResponse, nil
		default:
			return "", fmt.Errorf("unexpected prompt: %s", prompt)
		}
	}}
	svc := newTestService(t, ai)
	req := types.StreamGenerateRequest{Trip: *testTripConfig(t)}

	events := collectStream(t, svc, req)

	days := dayEvents(events)
	require.Len(t, days, 4, "per-day path still delivers every day")

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	require.NotNil(t, terminals[0].Summary)
	assert.Equal(t, types.EventTypeComplete, terminals[0].Type)
	assert.Equal(t, 4, terminals[0].Summary.AIGeneratedCount)
	assert.Zero(t, terminals[0].Summary.FallbackCount)
}

func TestGenerateItineraryStreamDegradesToFallbackDays(t *testing.T) {
	svc := newTestService(t, &fakeAI{fn: func(prompt string) (string, error) {
		return "", errors.New("provider down")
	}})
	req := types.StreamGenerateRequest{Trip: *testTripConfig(t)}

	events := collectStream(t, svc, req)

	days := dayEvents(events)
	require.Len(t, days, 4, "the stream never aborts over generation failures")
	for _, e := range days {
		require.NotEmpty(t, e.Day.Places, "fallback days still carry places")
	}

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	require.Equal(t, types.EventTypeComplete, terminals[0].Type)
	require.NotNil(t, terminals[0].Summary)
	assert.Zero(t, terminals[0].Summary.AIGeneratedCount)
	assert.Equal(t, 4, terminals[0].Summary.FallbackCount)
}

func TestGenerateItineraryStreamSkipsTwoPhaseWhenDisabled(t *testing.T) {
	ai := &fakeAI{fn: func(prompt string) (string, error) {
		require.False(t, strings.Contains(prompt, "pool of candidate"), "phase 1 must not run")
		if strings.Contains(prompt, "Plan one day") {
			return singleDayResponse, nil
		}
		return "", fmt.Errorf("unexpected prompt: %s", prompt)
	}}
	svc := newTestService(t, ai)

	disabled := false
	req := types.StreamGenerateRequest{Trip: *testTripConfig(t), UseTwoPhase: &disabled}

	events := collectStream(t, svc, req)
	require.Len(t, dayEvents(events), 4)
	require.Len(t, terminalEvents(events), 1)
}

func TestGenerateItineraryStreamLegacyDeduplicatesAcrossDays(t *testing.T) {
	// Every day comes back with the same museum; each emitted day after the
	// first must have it replaced before delivery.
	callsPerDay := `{"places":[
		{"name":"City Museum","category":"museum","startTime":"10:00"},
		{"name":"Central Park","category":"park","startTime":"14:00"}
	]}`
	replacementCounter := 0
	ai := &fakeAI{fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Plan one day"):
			return callsPerDay, nil
		case strings.Contains(prompt, "Suggest one point of interest"):
			replacementCounter++
			return fmt.Sprintf(`{"name":"Replacement Spot %d","category":"museum"}`, replacementCounter), nil
		default:
			return "", fmt.Errorf("unexpected prompt: %s", prompt)
		}
	}}
	svc := newTestService(t, ai)

	disabled := false
	req := types.StreamGenerateRequest{Trip: *testTripConfig(t), UseTwoPhase: &disabled}

	events := collectStream(t, svc, req)
	days := dayEvents(events)
	require.Len(t, days, 4)

	seen := map[string]int{}
	for _, e := range days {
		for _, p := range e.Day.Places {
			seen[strings.ToLower(p.Name)]++
		}
	}
	assert.Equal(t, 1, seen["city museum"], "the earliest day keeps the shared museum")
	assert.Equal(t, 1, seen["central park"])

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	assert.Empty(t, terminals[0].Summary.Duplicates)
}

func TestGenerateItineraryStreamInvalidTrip(t *testing.T) {
	svc := newTestService(t, &fakeAI{})
	req := types.StreamGenerateRequest{Trip: types.TripConfig{}}

	eventCh := make(chan types.StreamEvent, 10)
	err := svc.GenerateItineraryStream(context.Background(), req, eventCh)
	close(eventCh)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	var events []types.StreamEvent
	for e := range eventCh {
		events = append(events, e)
	}
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTypeError, events[0].Type)
	assert.NotEmpty(t, events[0].Error)
}

// TestGenerateItineraryStreamSmartRegeneration uses a trip spanning today so
// the scope planner lands mid-trip at any wall-clock hour: days the client
// already has are replayed as preserved and only the remainder regenerates.
func TestGenerateItineraryStreamSmartRegeneration(t *testing.T) {
	var (
		mu           sync.Mutex
		dayPrompts   []string
		replacements int
	)
	ai := &fakeAI{fn: func(prompt string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case strings.Contains(prompt, "Plan one day"):
			dayPrompts = append(dayPrompts, prompt)
			return singleDayResponse, nil
		case strings.Contains(prompt, "Suggest one point of interest"):
			replacements++
			return fmt.Sprintf(`{"name":"Backup Spot %d","category":"museum"}`, replacements), nil
		default:
			return "", fmt.Errorf("unexpected prompt: %s", prompt)
		}
	}}
	svc := newTestService(t, ai)

	today := time.Now()
	start := types.Date{Time: today.AddDate(0, 0, -3)}
	end := types.Date{Time: today.AddDate(0, 0, 3)}
	cfg := types.TripConfig{
		StartDate: start,
		EndDate:   end,
		Stays: []types.CityStay{{
			City:      "Tokyo",
			Hotel:     "Park Hotel Tokyo",
			StartDate: start,
			EndDate:   end,
		}},
	}
	req := types.StreamGenerateRequest{
		Trip:              cfg,
		SmartRegeneration: true,
		// Deliberately out of order; replay must sort by day number.
		ExistingDays: []types.DayItinerary{
			{DayNumber: 2, City: "Tokyo", Places: []types.Place{{Name: "Park Hotel Tokyo", Category: "hotel"}}},
			{DayNumber: 1, City: "Tokyo", Places: []types.Place{{Name: "Nezu Museum", Category: "museum"}}},
		},
	}

	events := collectStream(t, svc, req)

	days := dayEvents(events)
	require.GreaterOrEqual(t, len(days), 4, "two preserved days plus the regenerated remainder")

	require.True(t, days[0].Preserved)
	assert.Equal(t, 1, days[0].Day.DayNumber)
	require.True(t, days[1].Preserved)
	assert.Equal(t, 2, days[1].Day.DayNumber)

	regenerated := 0
	for _, e := range days {
		require.NotNil(t, e.Progress)
		assert.Equal(t, len(days), e.Progress.Total, "progress total matches the delivered day count")
		if !e.Preserved {
			regenerated++
			assert.Greater(t, e.Day.DayNumber, 2, "only days at or after the scope start regenerate")
		}
	}
	assert.Equal(t, len(days)-2, regenerated)

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	assert.Equal(t, types.EventTypeComplete, terminals[0].Type)
	require.NotNil(t, terminals[0].Summary)
	assert.Equal(t, regenerated, terminals[0].Summary.AIGeneratedCount)

	// The preserved museum steers every regeneration prompt as an exclusion.
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, dayPrompts)
	for _, p := range dayPrompts {
		assert.Contains(t, p, "Nezu Museum")
	}
}

// ctxBlockedAI never answers before the caller's context ends.
type ctxBlockedAI struct {
	mu    sync.Mutex
	calls int
}

func (f *ctxBlockedAI) Generate(ctx context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

func (f *ctxBlockedAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGenerateItineraryStreamDeadlineFillsRemainingDays(t *testing.T) {
	ai := &ctxBlockedAI{}
	svc := newTestServiceWithOptions(t, ai, Options{StreamDeadline: time.Nanosecond})
	req := types.StreamGenerateRequest{Trip: *testTripConfig(t)}

	events := collectStream(t, svc, req)

	days := dayEvents(events)
	require.Len(t, days, 4, "every scoped day still arrives after the deadline")
	for _, e := range days {
		require.NotEmpty(t, e.Day.Places, "deadline days come from the static catalog")
	}

	terminals := terminalEvents(events)
	require.Len(t, terminals, 1)
	assert.Equal(t, types.EventTypeComplete, terminals[0].Type)
	require.NotNil(t, terminals[0].Summary)
	assert.Equal(t, 4, terminals[0].Summary.FallbackCount)
	assert.Zero(t, terminals[0].Summary.AIGeneratedCount)
	assert.Equal(t, 1, ai.callCount(), "no further AI calls once the deadline passed")
}

func TestSendEventTerminalSurvivesSlowConsumer(t *testing.T) {
	svc := newTestService(t, &fakeAI{})
	svc.sendTimeout = 10 * time.Millisecond

	ch := make(chan types.StreamEvent)

	// Non-terminal events are dropped when nobody drains in time.
	assert.False(t, svc.sendEvent(context.Background(), ch, types.StreamEvent{Type: types.EventTypeProgress}))

	// The terminal event waits for the consumer instead.
	received := make(chan types.StreamEvent, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		received <- <-ch
	}()
	assert.True(t, svc.sendEvent(context.Background(), ch, types.StreamEvent{Type: types.EventTypeComplete}))
	assert.Equal(t, types.EventTypeComplete, (<-received).Type)

	// Only a gone consumer loses it.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, svc.sendEvent(cancelled, ch, types.StreamEvent{Type: types.EventTypeError}))
}

func TestGenerateItineraryStreamEventMetadata(t *testing.T) {
	svc := newTestService(t, &fakeAI{fn: routeTwoPhase})
	req := types.StreamGenerateRequest{Trip: *testTripConfig(t)}

	events := collectStream(t, svc, req)
	for _, e := range events {
		assert.NotEmpty(t, e.EventID)
		assert.False(t, e.Timestamp.IsZero())
	}
}
