package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/waste-reporter/pkg/location"
)

// MockLocationProvider is a mock implementation of the location Provider
type MockLocationProvider struct {
	mock.Mock
}

func (m *MockLocationProvider) GetLocation(ctx context.Context) (location.Location, error) {
	args := m.Called(ctx)
	return args.Get(0).(location.Location), args.Error(1)
}

// MockGeocoder is a mock implementation of the location Geocoder
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Search(ctx context.Context, query string) ([]location.Place, error) {
	args := m.Called(ctx, query)
	places, _ := args.Get(0).([]location.Place)
	return places, args.Error(1)
}
