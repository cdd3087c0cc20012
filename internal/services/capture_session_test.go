package services_test

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/waste-reporter/internal/mocks"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/services"
	"github.com/benmeehan/waste-reporter/pkg/camera"
	"github.com/benmeehan/waste-reporter/pkg/preview"
)

func TestCaptureController_CaptureEndsSession(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Frame", mock.Anything).Return(testFrame(), nil)
	stream.On("Stop").Return()
	device := new(mocks.MockCameraDevice)
	device.On("Open", mock.Anything, camera.FacingRear).Return(stream, nil)

	previews := preview.NewStore()
	controller := services.NewCaptureController(device, previews, 90, zerolog.Nop())

	session, err := controller.Begin(context.Background())
	require.NoError(t, err)
	assert.True(t, controller.Busy())
	assert.Same(t, session, controller.Active())

	asset, err := session.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.OriginCamera, asset.Origin)
	assert.Equal(t, "image/jpeg", asset.MIMEType)
	_, err = jpeg.Decode(bytes.NewReader(asset.Data))
	assert.NoError(t, err)
	img, ok := previews.Get(asset.Preview)
	require.True(t, ok)
	assert.Equal(t, asset.Data, img.Data)

	assert.True(t, session.Ended())
	assert.False(t, controller.Busy())
	assert.Nil(t, controller.Active())
	stream.AssertNumberOfCalls(t, "Stop", 1)
}

func TestCaptureController_FallsBackToAnyCamera(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Stop").Return()
	device := new(mocks.MockCameraDevice)
	device.On("Open", mock.Anything, camera.FacingRear).Return(nil, camera.ErrNoCamera)
	device.On("Open", mock.Anything, camera.FacingAny).Return(stream, nil)

	controller := services.NewCaptureController(device, preview.NewStore(), 90, zerolog.Nop())
	session, err := controller.Begin(context.Background())
	require.NoError(t, err)

	session.End()
	device.AssertExpectations(t)
	stream.AssertNumberOfCalls(t, "Stop", 1)
}

func TestCaptureController_OpenFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"permission denied", camera.ErrPermissionDenied, "camera permission denied"},
		{"no camera", camera.ErrNoCamera, "no camera available"},
		{"other", errors.New("usb reset"), "unable to start the camera"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := new(mocks.MockCameraDevice)
			device.On("Open", mock.Anything, mock.Anything).Return(nil, tt.err)

			controller := services.NewCaptureController(device, preview.NewStore(), 90, zerolog.Nop())
			session, err := controller.Begin(context.Background())

			assert.Nil(t, session)
			var devErr *models.DeviceError
			require.True(t, errors.As(err, &devErr))
			assert.Equal(t, tt.reason, devErr.Reason)
			assert.False(t, controller.Busy())
		})
	}
}

func TestCaptureController_StreamReturnedWithErrorIsStopped(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Stop").Return()
	device := new(mocks.MockCameraDevice)
	device.On("Open", mock.Anything, camera.FacingRear).Return(stream, camera.ErrPermissionDenied)

	controller := services.NewCaptureController(device, preview.NewStore(), 90, zerolog.Nop())
	_, err := controller.Begin(context.Background())

	assert.Error(t, err)
	stream.AssertNumberOfCalls(t, "Stop", 1)
	assert.False(t, controller.Busy())
}

func TestCaptureController_NoDevice(t *testing.T) {
	controller := services.NewCaptureController(nil, preview.NewStore(), 90, zerolog.Nop())
	_, err := controller.Begin(context.Background())

	var devErr *models.DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.ErrorIs(t, err, camera.ErrNoCamera)
}

func TestCaptureController_SecondBeginConflicts(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Stop").Return()
	device := new(mocks.MockCameraDevice)
	device.On("Open", mock.Anything, camera.FacingRear).Return(stream, nil)

	controller := services.NewCaptureController(device, preview.NewStore(), 90, zerolog.Nop())
	session, err := controller.Begin(context.Background())
	require.NoError(t, err)

	_, err = controller.Begin(context.Background())
	var conflict *models.ConflictError
	require.True(t, errors.As(err, &conflict))
	device.AssertNumberOfCalls(t, "Open", 1)

	session.End()
	session.End()
	stream.AssertNumberOfCalls(t, "Stop", 1)

	again, err := controller.Begin(context.Background())
	require.NoError(t, err)
	again.End()
}

func TestCaptureSession_CaptureFailureStillEnds(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Frame", mock.Anything).Return(nil, errors.New("frame timeout"))
	stream.On("Stop").Return()
	device := new(mocks.MockCameraDevice)
	device.On("Open", mock.Anything, camera.FacingRear).Return(stream, nil)

	controller := services.NewCaptureController(device, preview.NewStore(), 90, zerolog.Nop())
	session, err := controller.Begin(context.Background())
	require.NoError(t, err)

	_, err = session.Capture(context.Background())
	var devErr *models.DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.Equal(t, "unable to capture photo", devErr.Reason)
	assert.True(t, session.Ended())
	assert.False(t, controller.Busy())
	stream.AssertNumberOfCalls(t, "Stop", 1)
}

func TestCaptureSession_UseAfterEnd(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Stop").Return()
	device := new(mocks.MockCameraDevice)
	device.On("Open", mock.Anything, camera.FacingRear).Return(stream, nil)

	controller := services.NewCaptureController(device, preview.NewStore(), 90, zerolog.Nop())
	session, err := controller.Begin(context.Background())
	require.NoError(t, err)
	session.End()

	_, err = session.Preview(context.Background())
	assert.ErrorIs(t, err, services.ErrSessionEnded)
	_, err = session.Capture(context.Background())
	assert.ErrorIs(t, err, services.ErrSessionEnded)
	stream.AssertNotCalled(t, "Frame", mock.Anything)
}
