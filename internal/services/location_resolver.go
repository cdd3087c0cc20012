package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/state_managers"
	"github.com/benmeehan/waste-reporter/pkg/location"
)

// ErrNoDeviceLocation is returned by UseCurrentLocation before any device
// fix has been obtained.
var ErrNoDeviceLocation = errors.New("no device location available")

// MapView is the map surface. Implementations must not call back into the
// resolver.
type MapView interface {
	SetView(center models.Coordinate, zoom int, animate bool)
}

// LocationSink receives every location the resolver settles on.
type LocationSink interface {
	SetLocation(src models.LocationSource)
}

// locationTransitions lists the allowed resolver state changes. Manual entry
// and map selection are reachable from every state.
var locationTransitions = map[constants.LocationState][]constants.LocationState{
	constants.LocationIdle: {
		constants.LocationProbing, constants.LocationResolved,
		constants.LocationManualEntry, constants.LocationMapSelected,
	},
	constants.LocationProbing: {
		constants.LocationProbing, constants.LocationResolved, constants.LocationFailed, constants.LocationIdle,
		constants.LocationManualEntry, constants.LocationMapSelected,
	},
	constants.LocationResolved: {
		constants.LocationProbing, constants.LocationResolved, constants.LocationIdle,
		constants.LocationManualEntry, constants.LocationMapSelected,
	},
	constants.LocationFailed: {
		constants.LocationProbing, constants.LocationResolved, constants.LocationIdle,
		constants.LocationManualEntry, constants.LocationMapSelected,
	},
	constants.LocationManualEntry: {
		constants.LocationResolved, constants.LocationIdle,
		constants.LocationManualEntry, constants.LocationMapSelected,
	},
	constants.LocationMapSelected: {
		constants.LocationResolved, constants.LocationIdle,
		constants.LocationManualEntry, constants.LocationMapSelected,
	},
}

// LocationResolver settles the report location from the device probe, map
// clicks, place search and typed coordinates. The most recent user action
// wins.
type LocationResolver struct {
	probe    Prober
	geocoder location.Geocoder
	mapView  MapView
	sink     LocationSink
	zoom     int
	machine  *state_managers.StateMachine[constants.LocationState]
	logger   zerolog.Logger

	mu         sync.Mutex
	source     models.LocationSource
	lastDevice *models.Coordinate
	failure    string
	mounted    bool
	epoch      uint64
}

// NewLocationResolver creates a resolver in the Idle state. geocoder and
// mapView may be nil.
func NewLocationResolver(probe Prober, geocoder location.Geocoder, mapView MapView, sink LocationSink, zoom int, logger zerolog.Logger) *LocationResolver {
	if zoom <= 0 {
		zoom = constants.DefaultMapZoom
	}
	return &LocationResolver{
		probe:    probe,
		geocoder: geocoder,
		mapView:  mapView,
		sink:     sink,
		zoom:     zoom,
		machine:  state_managers.NewStateMachine("location", constants.LocationIdle, locationTransitions, logger),
		logger:   logger,
		source:   models.Unresolved{},
	}
}

// Mount starts the device probe and blocks until it settles. A probe that
// settles after Unmount, or after a newer Mount, changes nothing. A probe
// that succeeds after the user picked a location is only remembered for
// UseCurrentLocation.
func (r *LocationResolver) Mount(ctx context.Context) error {
	r.mu.Lock()
	r.mounted = true
	r.epoch++
	epoch := r.epoch
	userChosen := r.userChosenLocked()
	if !userChosen {
		if err := r.machine.Transition(constants.LocationProbing); err != nil {
			r.mu.Unlock()
			return err
		}
		r.failure = ""
	}
	r.mu.Unlock()

	coord, err := r.probe.Resolve(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.mounted || r.epoch != epoch {
		r.logger.Debug().Msg("Discarding geolocation result for an unmounted view")
		return nil
	}

	if err != nil {
		if r.machine.Current() != constants.LocationProbing {
			r.logger.Debug().Err(err).Msg("Geolocation failed after the user chose a location")
			return nil
		}
		r.failure = failureMessage(err)
		if tErr := r.machine.Transition(constants.LocationFailed); tErr != nil {
			return tErr
		}
		return err
	}

	device := coord
	r.lastDevice = &device
	if r.machine.Current() != constants.LocationProbing {
		r.logger.Debug().Stringer("coordinate", coord).Msg("Device location kept for later use")
		return nil
	}
	return r.applyLocked(constants.LocationResolved, models.DeviceLocation{Coordinate: coord}, true, false)
}

// Unmount stops the resolver from reacting to outstanding probe results and
// returns it to Idle with no location. The last device fix is kept for
// UseCurrentLocation.
func (r *LocationResolver) Unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mounted = false
	r.epoch++
	r.failure = ""
	r.source = models.Unresolved{}
	if r.machine.Current() != constants.LocationIdle {
		_ = r.machine.Transition(constants.LocationIdle)
	}
}

// UseCurrentLocation re-applies the last device fix.
func (r *LocationResolver) UseCurrentLocation() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastDevice == nil {
		return ErrNoDeviceLocation
	}
	return r.applyLocked(constants.LocationResolved, models.DeviceLocation{Coordinate: *r.lastDevice}, true, true)
}

// CanUseCurrentLocation reports whether a device fix is available.
func (r *LocationResolver) CanUseCurrentLocation() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastDevice != nil
}

// SelectOnMap uses the clicked point. The map is already showing it, so it
// is not recentred.
func (r *LocationResolver) SelectOnMap(coord models.Coordinate) error {
	if err := coord.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(constants.LocationMapSelected, models.MapClickLocation{Coordinate: coord}, false, false)
}

// SelectPlace uses a place search result like a map click and flies the map
// to it.
func (r *LocationResolver) SelectPlace(place location.Place) error {
	coord, err := models.NewCoordinate(place.Latitude, place.Longitude)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(constants.LocationMapSelected, models.MapClickLocation{Coordinate: coord}, true, true)
}

// SubmitManual parses typed coordinates. On any validation failure the
// current source is left unchanged.
func (r *LocationResolver) SubmitManual(latText, lngText string) error {
	lat, err := parseDegrees(latText, models.FieldLatitude)
	if err != nil {
		return err
	}
	lng, err := parseDegrees(lngText, models.FieldLongitude)
	if err != nil {
		return err
	}
	coord, err := models.NewCoordinate(lat, lng)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(constants.LocationManualEntry, models.ManualLocation{Coordinate: coord}, true, false)
}

// Search looks up places matching query.
func (r *LocationResolver) Search(ctx context.Context, query string) ([]location.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &models.ValidationError{Field: models.FieldQuery, Reason: "enter a place to search for"}
	}
	if r.geocoder == nil {
		return nil, &models.DeviceError{Device: "place search", Reason: "place search is not configured"}
	}

	places, err := r.geocoder.Search(ctx, query)
	if err != nil {
		r.logger.Warn().Err(err).Str("query", query).Msg("Place search failed")
		return nil, fmt.Errorf("place search failed: %w", err)
	}
	return places, nil
}

// State returns the resolver state.
func (r *LocationResolver) State() constants.LocationState {
	return r.machine.Current()
}

// Source returns the current location source.
func (r *LocationResolver) Source() models.LocationSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source
}

// FailureMessage returns the non-blocking probe failure message, if any.
func (r *LocationResolver) FailureMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure
}

// ClearFailure dismisses the probe failure message.
func (r *LocationResolver) ClearFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure = ""
}

func (r *LocationResolver) userChosenLocked() bool {
	switch r.machine.Current() {
	case constants.LocationManualEntry, constants.LocationMapSelected:
		return true
	}
	return false
}

// applyLocked must be called with r.mu held.
func (r *LocationResolver) applyLocked(next constants.LocationState, src models.LocationSource, recenter, animate bool) error {
	if err := r.machine.Transition(next); err != nil {
		return err
	}
	r.source = src
	r.failure = ""
	if r.sink != nil {
		r.sink.SetLocation(src)
	}
	if coord, ok := models.CoordinateOf(src); ok && recenter && r.mapView != nil {
		r.mapView.SetView(coord, r.zoom, animate)
	}

	r.logger.Info().Str("source", string(src.Kind())).Str("state", string(next)).Msg("Location updated")
	return nil
}

// parseDegrees accepts plain decimal notation only.
func parseDegrees(text, field string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, &models.ValidationError{Field: field, Reason: field + " is required"}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, &models.ValidationError{Field: field, Reason: field + " must be a decimal number"}
	}
	return d.InexactFloat64(), nil
}

func failureMessage(err error) string {
	var devErr *models.DeviceError
	if errors.As(err, &devErr) {
		return "Could not get your location (" + devErr.Reason + "). Pick a point on the map or enter coordinates."
	}
	return "Could not get your location. Pick a point on the map or enter coordinates."
}
