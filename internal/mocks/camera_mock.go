package mocks

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/waste-reporter/pkg/camera"
)

// MockCameraDevice is a mock implementation of the camera Device
type MockCameraDevice struct {
	mock.Mock
}

func (m *MockCameraDevice) Open(ctx context.Context, facing camera.Facing) (camera.Stream, error) {
	args := m.Called(ctx, facing)
	stream, _ := args.Get(0).(camera.Stream)
	return stream, args.Error(1)
}

// MockCameraStream is a mock implementation of the camera Stream
type MockCameraStream struct {
	mock.Mock
}

func (m *MockCameraStream) Frame(ctx context.Context) (image.Image, error) {
	args := m.Called(ctx)
	img, _ := args.Get(0).(image.Image)
	return img, args.Error(1)
}

func (m *MockCameraStream) Stop() {
	m.Called()
}
