package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/pkg/location"
)

const deviceGeolocation = "geolocation"

// Prober resolves the device position once.
type Prober interface {
	Resolve(ctx context.Context) (models.Coordinate, error)
}

// GeolocationProbe wraps a location provider with a fixed timeout. Only one
// device query runs at a time; concurrent callers share its result.
type GeolocationProbe struct {
	provider location.Provider
	timeout  time.Duration
	group    singleflight.Group
	logger   zerolog.Logger
}

var _ Prober = (*GeolocationProbe)(nil)

// NewGeolocationProbe creates a probe. A nil provider makes every Resolve
// fail with "location service unavailable".
func NewGeolocationProbe(provider location.Provider, timeout time.Duration, logger zerolog.Logger) *GeolocationProbe {
	if timeout <= 0 {
		timeout = constants.DefaultProbeTimeout
	}
	return &GeolocationProbe{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve returns the device coordinate or a *models.DeviceError. The device
// query is not tied to ctx: when ctx ends the caller stops waiting and the
// query runs on until it answers or times out.
func (p *GeolocationProbe) Resolve(ctx context.Context) (models.Coordinate, error) {
	ch := p.group.DoChan(deviceGeolocation, func() (interface{}, error) {
		return p.query()
	})

	select {
	case <-ctx.Done():
		return models.Coordinate{}, &models.DeviceError{
			Device: deviceGeolocation,
			Reason: "location request cancelled",
			Err:    ctx.Err(),
		}
	case res := <-ch:
		if res.Err != nil {
			return models.Coordinate{}, res.Err
		}
		return res.Val.(models.Coordinate), nil
	}
}

type probeResult struct {
	loc location.Location
	err error
}

func (p *GeolocationProbe) query() (models.Coordinate, error) {
	if p.provider == nil {
		return models.Coordinate{}, &models.DeviceError{
			Device: deviceGeolocation,
			Reason: "location service unavailable",
			Err:    location.ErrUnavailable,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	results := make(chan probeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- probeResult{err: fmt.Errorf("location provider panicked: %v", r)}
			}
		}()
		loc, err := p.provider.GetLocation(ctx)
		results <- probeResult{loc: loc, err: err}
	}()

	// Providers that ignore ctx are abandoned at the deadline.
	var res probeResult
	select {
	case res = <-results:
	case <-ctx.Done():
		res = probeResult{err: ctx.Err()}
	}

	if res.err != nil {
		reason := probeFailureReason(res.err)
		p.logger.Warn().
			Err(res.err).
			Dur("elapsed", time.Since(start)).
			Str("reason", reason).
			Msg("Device geolocation failed")
		return models.Coordinate{}, &models.DeviceError{Device: deviceGeolocation, Reason: reason, Err: res.err}
	}

	coord, err := models.NewCoordinate(res.loc.Latitude, res.loc.Longitude)
	if err != nil {
		p.logger.Warn().
			Float64("latitude", res.loc.Latitude).
			Float64("longitude", res.loc.Longitude).
			Msg("Device reported an out of range position")
		return models.Coordinate{}, &models.DeviceError{
			Device: deviceGeolocation,
			Reason: "device reported an invalid position",
			Err:    err,
		}
	}

	p.logger.Info().
		Float64("latitude", coord.Latitude).
		Float64("longitude", coord.Longitude).
		Float64("accuracy", res.loc.Accuracy).
		Dur("elapsed", time.Since(start)).
		Msg("Device location resolved")
	return coord, nil
}

func probeFailureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "location request timed out"
	case errors.Is(err, location.ErrPermissionDenied):
		return "location permission denied"
	case errors.Is(err, location.ErrUnavailable):
		return "location service unavailable"
	case errors.Is(err, location.ErrNoFix):
		return "no position fix available"
	default:
		return "unable to determine your location"
	}
}
