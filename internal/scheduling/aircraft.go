package scheduling

import "strings"

// CategoryUnknown is returned for types missing from the category table.
const CategoryUnknown = "UNK"

// aircraftCategories maps IATA type codes to the coarse size category shown
// on the board. Ordered, since matching is by substring and the first hit wins.
var aircraftCategories = []struct {
	code     string
	category string
}{
	{"32Q", "C"}, {"321", "C"}, {"32N", "C"}, {"320", "C"}, {"738", "C"}, {"7M8", "C"},
	{"AT7", "C"}, {"319", "C"}, {"E90", "C"}, {"7M9", "C"}, {"739", "C"},
	{"333", "E"}, {"789", "E"}, {"788", "E"}, {"772", "E"}, {"781", "E"}, {"339", "E"},
	{"359", "E"}, {"77W", "E"}, {"330", "E"}, {"332", "E"}, {"773", "E"},
	{"763", "D"}, {"380", "F"}, {"747", "F"},
}

// AircraftCategory derives the display category from a free-form type string.
// It carries no scheduling meaning.
func AircraftCategory(aircraftType string) string {
	s := strings.ToUpper(strings.TrimSpace(aircraftType))
	if s == "" {
		return CategoryUnknown
	}
	for _, e := range aircraftCategories {
		if strings.Contains(s, e.code) {
			return e.category
		}
	}
	return CategoryUnknown
}
