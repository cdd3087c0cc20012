package services

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/models"
)

// TrackingMapView is the map surface of a headless device: it remembers
// where the map was last centred.
type TrackingMapView struct {
	logger zerolog.Logger

	mu      sync.Mutex
	center  models.Coordinate
	zoom    int
	centred bool
}

var _ MapView = (*TrackingMapView)(nil)

func NewTrackingMapView(logger zerolog.Logger) *TrackingMapView {
	return &TrackingMapView{logger: logger}
}

func (m *TrackingMapView) SetView(center models.Coordinate, zoom int, animate bool) {
	m.mu.Lock()
	m.center = center
	m.zoom = zoom
	m.centred = true
	m.mu.Unlock()

	m.logger.Debug().Stringer("center", center).Int("zoom", zoom).Bool("animate", animate).Msg("Map recentred")
}

// View returns the last centre and zoom. ok is false before the first
// SetView.
func (m *TrackingMapView) View() (center models.Coordinate, zoom int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center, m.zoom, m.centred
}
