package location

// Location is a position reported by a Provider.
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // Metres when known, HDOP for GPS receivers
}

// Place is a free-text search result.
type Place struct {
	Name      string
	PlaceID   string
	Latitude  float64
	Longitude float64
}
