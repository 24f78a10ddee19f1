package types

import "strings"

// Priority ranks how strongly a pool candidate should be scheduled.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// POICandidate is a point of interest produced by phase-1 pool generation.
// Candidates are immutable once emitted into the pool; scheduling turns them
// into Place values.
type POICandidate struct {
	Name            string   `json:"name"`
	Address         string   `json:"address,omitempty"`
	Latitude        float64  `json:"latitude,omitempty"`
	Longitude       float64  `json:"longitude,omitempty"`
	Description     string   `json:"description,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Category        string   `json:"category"`
	Priority        Priority `json:"priority"`
	IsMustVisit     bool     `json:"isMustVisit"`
	City            string   `json:"city"`
}

// exemptCategories recur legitimately across days (lodging, transit hubs) or
// are fixed bookings, so they never count as duplicates.
var exemptCategories = map[string]bool{
	"hotel":   true,
	"airport": true,
	"show":    true,
	"concert": true,
}

// IsExemptCategory reports whether a place category is excluded from
// cross-day duplicate detection.
func IsExemptCategory(category string) bool {
	return exemptCategories[strings.ToLower(strings.TrimSpace(category))]
}
