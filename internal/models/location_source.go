package models

// LocationSource records which input path produced the current coordinate.
// The set of implementations is closed: DeviceLocation, ManualLocation,
// MapClickLocation and Unresolved. Consumers switch over all four.
type LocationSource interface {
	// Kind returns the source tag.
	Kind() SourceKind
	locationSource()
}

// SourceKind tags a LocationSource.
type SourceKind string

const (
	SourceUnresolved SourceKind = "unresolved"
	SourceDevice     SourceKind = "device"
	SourceManual     SourceKind = "manual"
	SourceMapClick   SourceKind = "map_click"
)

// DeviceLocation is a coordinate reported by the device geolocation service.
type DeviceLocation struct{ Coordinate Coordinate }

// ManualLocation is a coordinate typed in by the user.
type ManualLocation struct{ Coordinate Coordinate }

// MapClickLocation is a coordinate picked on the map or through place search.
type MapClickLocation struct{ Coordinate Coordinate }

// Unresolved means no usable location has been chosen yet.
type Unresolved struct{}

func (DeviceLocation) Kind() SourceKind   { return SourceDevice }
func (ManualLocation) Kind() SourceKind   { return SourceManual }
func (MapClickLocation) Kind() SourceKind { return SourceMapClick }
func (Unresolved) Kind() SourceKind       { return SourceUnresolved }

func (DeviceLocation) locationSource()   {}
func (ManualLocation) locationSource()   {}
func (MapClickLocation) locationSource() {}
func (Unresolved) locationSource()       {}

// CoordinateOf extracts the coordinate carried by src. The boolean is false
// for Unresolved and for a nil source.
func CoordinateOf(src LocationSource) (Coordinate, bool) {
	switch s := src.(type) {
	case DeviceLocation:
		return s.Coordinate, true
	case ManualLocation:
		return s.Coordinate, true
	case MapClickLocation:
		return s.Coordinate, true
	case Unresolved, nil:
		return Coordinate{}, false
	default:
		return Coordinate{}, false
	}
}

// IsResolved reports whether src carries a coordinate.
func IsResolved(src LocationSource) bool {
	_, ok := CoordinateOf(src)
	return ok
}
