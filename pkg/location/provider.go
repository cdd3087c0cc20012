package location

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the platform has no location service.
	ErrUnavailable = errors.New("location service unavailable")
	// ErrNoFix means the service answered without a usable position.
	ErrNoFix = errors.New("no position fix")
	// ErrPermissionDenied means the agent may not access the location source.
	ErrPermissionDenied = errors.New("location permission denied")
)

// Provider is a one-shot device location query.
type Provider interface {
	GetLocation(ctx context.Context) (Location, error)
}

// Geocoder resolves free-text place queries.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]Place, error)
}

// StaticProvider always reports the configured position. It is used on bench
// devices with no GPS receiver and no network geolocation.
type StaticProvider struct {
	location Location
}

// NewStaticProvider creates a StaticProvider.
func NewStaticProvider(latitude, longitude float64) *StaticProvider {
	return &StaticProvider{location: Location{Latitude: latitude, Longitude: longitude}}
}

// GetLocation returns the configured position unless ctx is already done.
func (s *StaticProvider) GetLocation(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	return s.location, nil
}
