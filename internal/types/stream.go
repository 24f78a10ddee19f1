package types

import "time"

// Stream event types. A stream always ends with exactly one complete or
// error event, never both.
const (
	EventTypeProgress = "progress"
	EventTypeDay      = "day"
	EventTypeComplete = "complete"
	EventTypeError    = "error"
)

// Progress reports how far generation has advanced.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// DuplicateReport names a place that still appears on more than one day after
// the bounded correction pass.
type DuplicateReport struct {
	Location string `json:"location"`
	Days     []int  `json:"days"`
}

// GenerationSummary is the payload of the terminal complete event.
type GenerationSummary struct {
	AIGeneratedCount int               `json:"aiGeneratedCount"`
	FallbackCount    int               `json:"fallbackCount"`
	Duplicates       []DuplicateReport `json:"duplicates"`
}

// StreamEvent is one server-to-client message on the push channel. Exactly one
// of the payload groups is populated depending on Type.
type StreamEvent struct {
	Type     string    `json:"type"`
	Message  string    `json:"message,omitempty"`
	Phase    string    `json:"phase,omitempty"`
	Progress *Progress `json:"progress,omitempty"`

	Day       *DayItinerary `json:"day,omitempty"`
	Preserved bool          `json:"preserved,omitempty"`

	Summary *GenerationSummary `json:"summary,omitempty"`

	Error string `json:"error,omitempty"`

	// Bookkeeping for logs, not part of the wire payload.
	EventID   string    `json:"-"`
	Timestamp time.Time `json:"-"`
}

// IsTerminal reports whether the event closes the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventTypeComplete || e.Type == EventTypeError
}

// StreamGenerateRequest triggers a streamed generation run.
// SmartRegeneration invokes the scope planner and preserves existing days
// before the scope start; UseTwoPhase (default true) selects the pool+
// distribution path when not doing smart regeneration.
type StreamGenerateRequest struct {
	Trip              TripConfig     `json:"trip"`
	SmartRegeneration bool           `json:"smartRegeneration,omitempty"`
	ExistingDays      []DayItinerary `json:"existingDays,omitempty"`
	UseTwoPhase       *bool          `json:"useTwoPhase,omitempty"`
}

// TwoPhaseEnabled applies the default for the optional flag.
func (r *StreamGenerateRequest) TwoPhaseEnabled() bool {
	return r.UseTwoPhase == nil || *r.UseTwoPhase
}

// Single-shot (non-streaming) action names.
const (
	ActionGenerateAll     = "generate-all"
	ActionRegenerateDay   = "regenerate-day"
	ActionOptimizeDay     = "optimize-day"
	ActionRegeneratePlace = "regenerate-place"
)

// ActionRequest is the non-streaming request contract.
type ActionRequest struct {
	Action      string     `json:"action"`
	Trip        TripConfig `json:"trip"`
	DayNumber   int        `json:"dayNumber,omitempty"`
	Places      []Place    `json:"places,omitempty"`
	PlaceIndex  int        `json:"placeIndex,omitempty"`
	AvoidPlaces []string   `json:"avoidPlaces,omitempty"`
}
