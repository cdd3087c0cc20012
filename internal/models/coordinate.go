package models

import (
	"fmt"
	"math"
	"strconv"

	"github.com/golang/geo/s2"
)

// Coordinate is a geographic point in decimal degrees. It is a value type:
// a new Coordinate replaces the prior one, it is never mutated in place.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate validates the given degrees and returns the Coordinate.
func NewCoordinate(latitude, longitude float64) (Coordinate, error) {
	c := Coordinate{Latitude: latitude, Longitude: longitude}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports a ValidationError naming the out-of-range axis. NaN and
// infinite values are out of range.
func (c Coordinate) Validate() error {
	if s2.LatLngFromDegrees(c.Latitude, c.Longitude).IsValid() {
		return nil
	}
	if !(math.Abs(c.Latitude) <= 90) {
		return &ValidationError{Field: FieldLatitude, Reason: "latitude must be between -90 and 90"}
	}
	return &ValidationError{Field: FieldLongitude, Reason: "longitude must be between -180 and 180"}
}

// LatitudeText formats the latitude the way it is sent to the gateway.
func (c Coordinate) LatitudeText() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}

// LongitudeText formats the longitude the way it is sent to the gateway.
func (c Coordinate) LongitudeText() string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%s, %s)", c.LatitudeText(), c.LongitudeText())
}
