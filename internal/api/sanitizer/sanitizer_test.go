package sanitizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanValidJSONUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"object", `{"name":"Senso-ji Temple","category":"temple"}`},
		{"array", `[{"name":"a"},{"name":"b"}]`},
		{"nested", `{"days":[{"dayNumber":1,"places":[{"name":"x"}]}]}`},
		{"string with braces", `{"description":"open {daily} until 18:00"}`},
		{"string with escaped quote", `{"name":"The \"Golden\" Pavilion"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.input, Clean(tt.input))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"name\":\"a\"}\n```",
		`{"name":"a"}`,
		`Here is your itinerary: {"days":[]}`,
		`{"days":[{"dayNumber":1},{"dayNum`,
	}
	for _, input := range inputs {
		once := Clean(input)
		assert.Equal(t, once, Clean(once), "Clean must be idempotent for %q", input)
	}
}

func TestCleanStripsFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain fences", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json language tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose before fence", "Sure! Here it is:\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{"trailing prose after fence", "```json\n{\"a\":1}\n```\nLet me know!", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.input))
		})
	}
}

func TestCleanExtractsBalancedPrefix(t *testing.T) {
	input := `The itinerary follows. {"days":[{"dayNumber":1,"places":[]}]} Hope this helps!`
	assert.Equal(t, `{"days":[{"dayNumber":1,"places":[]}]}`, Clean(input))
}

func TestCleanRepairsTruncation(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"cut mid object", `{"places":[{"name":"a","category":"museum"},{"name":"b","cat`},
		{"cut mid string", `{"places":[{"name":"a"},{"name":"unfinished `},
		{"cut after comma", `{"places":[{"name":"a"},`},
		{"cut mid nested array", `{"days":[{"dayNumber":1,"places":[{"name":"a"}]},{"dayNumber":2,"places":[{"na`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Clean(tt.input)
			require.True(t, json.Valid([]byte(out)), "repaired output must be valid JSON, got %q", out)

			// The surviving complete elements must still be present.
			var parsed map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(out), &parsed))
			assert.NotEmpty(t, parsed)
		})
	}
}

func TestCleanTotalOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"I could not generate an itinerary today.",
		"}}}]]",
		"```",
		"```json\n```",
	}
	for _, input := range inputs {
		assert.NotPanics(t, func() { Clean(input) }, "input %q", input)
	}
}

func TestCleanTruncationKeepsEarlierDays(t *testing.T) {
	input := `{"days":[{"dayNumber":1,"places":[{"name":"Senso-ji Temple"}]},{"dayNumber":2,"places":[{"name":"Ue`
	out := Clean(input)
	require.True(t, json.Valid([]byte(out)))

	var parsed struct {
		Days []struct {
			DayNumber int `json:"dayNumber"`
			Places    []struct {
				Name string `json:"name"`
			} `json:"places"`
		} `json:"days"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.NotEmpty(t, parsed.Days)
	assert.Equal(t, 1, parsed.Days[0].DayNumber)
	require.Len(t, parsed.Days[0].Places, 1)
	assert.Equal(t, "Senso-ji Temple", parsed.Days[0].Places[0].Name)
}
