package itinerary

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// fallbackPlace is one entry of the deterministic catalog used when
// generation fails for a day.
type fallbackPlace struct {
	Name            string
	Category        string
	StartTime       string
	DurationMinutes int
	Description     string
}

// fallbackCatalog holds a small rotation of well-known stops per city. Day
// numbers index into the rotation so consecutive fallback days differ.
var fallbackCatalog = map[string][]fallbackPlace{
	"tokyo": {
		{Name: "Senso-ji Temple", Category: "temple", StartTime: "09:30", DurationMinutes: 90, Description: "Tokyo's oldest temple, in the heart of Asakusa."},
		{Name: "Meiji Jingu Shrine", Category: "shrine", StartTime: "09:30", DurationMinutes: 90, Description: "Forested Shinto shrine next to Harajuku."},
		{Name: "Shibuya Crossing", Category: "landmark", StartTime: "11:30", DurationMinutes: 45, Description: "The world's busiest pedestrian scramble."},
		{Name: "Ueno Park", Category: "park", StartTime: "11:30", DurationMinutes: 90, Description: "Museum quarter and cherry tree promenades."},
		{Name: "Tsukiji Outer Market", Category: "restaurant", StartTime: "12:30", DurationMinutes: 75, Description: "Street-food stalls of the former fish market."},
		{Name: "Tokyo National Museum", Category: "museum", StartTime: "14:30", DurationMinutes: 120, Description: "Japan's largest collection of art and antiquities."},
		{Name: "Shinjuku Gyoen", Category: "park", StartTime: "14:30", DurationMinutes: 90, Description: "Landscaped gardens bridging three styles."},
		{Name: "Tokyo Tower", Category: "viewpoint", StartTime: "17:30", DurationMinutes: 60, Description: "Classic observation deck over the bay."},
		{Name: "Omoide Yokocho", Category: "restaurant", StartTime: "19:00", DurationMinutes: 90, Description: "Lantern-lit alley of yakitori counters."},
	},
	"kyoto": {
		{Name: "Fushimi Inari Shrine", Category: "shrine", StartTime: "09:00", DurationMinutes: 120, Description: "Thousands of vermilion torii gates up the mountain."},
		{Name: "Kinkaku-ji", Category: "temple", StartTime: "09:30", DurationMinutes: 75, Description: "The Golden Pavilion on its mirror pond."},
		{Name: "Arashiyama Bamboo Grove", Category: "park", StartTime: "11:30", DurationMinutes: 60, Description: "Towering bamboo path on the city's west edge."},
		{Name: "Nishiki Market", Category: "restaurant", StartTime: "12:30", DurationMinutes: 75, Description: "Kyoto's kitchen: a covered food arcade."},
		{Name: "Kiyomizu-dera", Category: "temple", StartTime: "14:30", DurationMinutes: 90, Description: "Hillside temple with a wooden stage and city views."},
		{Name: "Philosopher's Path", Category: "landmark", StartTime: "16:00", DurationMinutes: 60, Description: "Canal-side walk between temples."},
		{Name: "Gion District", Category: "landmark", StartTime: "18:00", DurationMinutes: 90, Description: "Historic geisha quarter at dusk."},
		{Name: "Pontocho Alley", Category: "restaurant", StartTime: "19:30", DurationMinutes: 90, Description: "Narrow dining alley along the Kamo river."},
	},
}

// genericFallback covers cities missing from the catalog.
var genericFallback = []fallbackPlace{
	{Name: "Old Town Walking Tour", Category: "landmark", StartTime: "09:30", DurationMinutes: 120, Description: "Self-guided loop through the historic centre."},
	{Name: "Central Market", Category: "restaurant", StartTime: "12:00", DurationMinutes: 75, Description: "Local food stalls for an easy lunch."},
	{Name: "City Museum", Category: "museum", StartTime: "14:00", DurationMinutes: 120, Description: "The main museum of local history and art."},
	{Name: "Riverside Promenade", Category: "park", StartTime: "16:30", DurationMinutes: 60, Description: "An unhurried walk before dinner."},
	{Name: "Local Bistro Quarter", Category: "restaurant", StartTime: "19:00", DurationMinutes: 90, Description: "A cluster of well-reviewed neighbourhood restaurants."},
}

// buildFallbackDay assembles a deterministic day itinerary for the given day
// number. Same inputs always yield the same day.
func buildFallbackDay(cfg *types.TripConfig, dayNumber int) types.DayItinerary {
	stay, err := cfg.StayForDay(dayNumber)
	if err != nil {
		stay = types.CityStay{City: "Unknown"}
	}
	date := cfg.DayDate(dayNumber).Format(types.DateLayout)

	catalog := fallbackCatalog[strings.ToLower(stay.City)]
	if len(catalog) == 0 {
		catalog = genericFallback
	}

	// Rotate the starting offset by day number so consecutive fallback days
	// in one city do not repeat the same places.
	const perDay = 4
	offset := ((dayNumber - 1) * perDay) % len(catalog)

	day := types.DayItinerary{
		Date:      date,
		DayNumber: dayNumber,
		City:      stay.City,
		Hotel:     stay.Hotel,
	}
	for i := 0; i < perDay && i < len(catalog); i++ {
		fp := catalog[(offset+i)%len(catalog)]
		day.Places = append(day.Places, types.Place{
			ID:              placeID(dayNumber, i),
			Name:            fp.Name,
			Category:        fp.Category,
			StartTime:       fp.StartTime,
			DurationMinutes: fp.DurationMinutes,
			Description:     fp.Description,
		})
	}
	return day
}

// isFallbackDay inspects a day's content to decide whether it came from the
// deterministic catalog rather than a model. Every place matching a catalog
// entry for its city (or the generic catalog) marks the day as fallback.
func isFallbackDay(day types.DayItinerary) bool {
	if len(day.Places) == 0 {
		return true
	}
	known := make(map[string]bool)
	for _, fp := range genericFallback {
		known[strings.ToLower(fp.Name)] = true
	}
	for _, fp := range fallbackCatalog[strings.ToLower(day.City)] {
		known[strings.ToLower(fp.Name)] = true
	}
	for _, p := range day.Places {
		if !known[strings.ToLower(p.Name)] {
			return false
		}
	}
	return true
}

// fallbackReason is attached to progress events when a day degrades.
func fallbackReason(dayNumber int, err error) string {
	return fmt.Sprintf("day %d fell back to the deterministic itinerary: %v", dayNumber, err)
}
