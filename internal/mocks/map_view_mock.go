package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/waste-reporter/internal/models"
)

// MockMapView is a mock implementation of the MapView surface
type MockMapView struct {
	mock.Mock
}

func (m *MockMapView) SetView(center models.Coordinate, zoom int, animate bool) {
	m.Called(center, zoom, animate)
}
