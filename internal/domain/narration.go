package domain

// NoneFoundSentinel is the fixed placeholder the model must emit when no
// qualifying fact exists, blocking fabrication of place names.
const NoneFoundSentinel = "None found in data"

// PlaceToVisit pairs a suggested place name with its distance from the
// requested point.
type PlaceToVisit struct {
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
}

// Activities holds the generic suggestion lines of a narration. Walk and
// Culture must contain no place names; FoodDrink may only mention allowed
// names or the sentinel.
type Activities struct {
	Walk      string `json:"walk"`
	Culture   string `json:"culture"`
	FoodDrink string `json:"food_drink"`
}

// NarrationOutput is the structured record a generation attempt must produce.
// It is transient per request and never cached; the upstream facts are.
type NarrationOutput struct {
	IntroParagraph  string         `json:"intro_paragraph"`
	DetailParagraph string         `json:"detail_paragraph"`
	PlacesToVisit   []PlaceToVisit `json:"places_to_visit"`
	Activities      Activities     `json:"activities"`
}
