package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/mocks"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/internal/services"
	"github.com/benmeehan/waste-reporter/pkg/camera"
	"github.com/benmeehan/waste-reporter/pkg/file"
	"github.com/benmeehan/waste-reporter/pkg/gateway"
	"github.com/benmeehan/waste-reporter/pkg/preview"
)

type viewFixture struct {
	view     *services.CaptureView
	draft    *services.ReportDraft
	resolver *services.LocationResolver
	device   *mocks.MockCameraDevice
	gateway  *mocks.MockGateway
	previews *preview.Store
}

func newViewFixture(t *testing.T, prober services.Prober) *viewFixture {
	t.Helper()
	logger := zerolog.Nop()
	previews := preview.NewStore()
	draft := services.NewReportDraft(previews, logger)
	resolver := services.NewLocationResolver(prober, nil, services.NewTrackingMapView(logger), draft, 16, logger)
	device := new(mocks.MockCameraDevice)
	controller := services.NewCaptureController(device, previews, 90, logger)
	picker := services.NewFilePicker(file.NewFileService(), previews, constants.MaxImageBytes, nil, logger)
	gw := new(mocks.MockGateway)
	pipeline := services.NewSubmissionPipeline(gw, time.Second, logger)

	return &viewFixture{
		view:     services.NewCaptureView(resolver, draft, pipeline, controller, picker, logger),
		draft:    draft,
		resolver: resolver,
		device:   device,
		gateway:  gw,
		previews: previews,
	}
}

func noticeFor(notices []models.Notice, control string) (string, bool) {
	for _, n := range notices {
		if n.Control == control {
			return n.Message, true
		}
	}
	return "", false
}

func TestCaptureView_StartStop(t *testing.T) {
	f := newViewFixture(t, &fakeProber{coord: models.Coordinate{Latitude: 1, Longitude: 2}})

	require.NoError(t, f.view.Start())
	assert.EqualError(t, f.view.Start(), "capture view is already running")

	assert.Eventually(t, func() bool {
		return f.resolver.State() == constants.LocationResolved
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.view.Stop())
	assert.EqualError(t, f.view.Stop(), "capture view is not running")
	assert.False(t, models.IsResolved(f.draft.Location()))
}

func TestCaptureView_ProbeFailureBecomesLocationNotice(t *testing.T) {
	f := newViewFixture(t, &fakeProber{err: &models.DeviceError{Device: "geolocation", Reason: "location permission denied"}})

	require.NoError(t, f.view.Start())
	defer f.view.Stop()

	assert.Eventually(t, func() bool {
		_, ok := noticeFor(f.view.Notices(), constants.ControlLocation)
		return ok
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.view.SelectOnMap(models.Coordinate{Latitude: 5, Longitude: 6}))
	_, ok := noticeFor(f.view.Notices(), constants.ControlLocation)
	assert.False(t, ok)
	assert.Equal(t, constants.LocationMapSelected, f.view.Status().LocationState)
}

func TestCaptureView_StopEndsOpenCamera(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Stop").Return()
	f := newViewFixture(t, &fakeProber{})
	f.device.On("Open", mock.Anything, camera.FacingRear).Return(stream, nil)

	require.NoError(t, f.view.Start())
	_, err := f.view.OpenCamera(context.Background())
	require.NoError(t, err)
	assert.True(t, f.view.Status().CameraOpen)

	require.NoError(t, f.view.Stop())
	stream.AssertNumberOfCalls(t, "Stop", 1)
}

func TestCaptureView_CameraFailureKeepsFilePicker(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})
	f.device.On("Open", mock.Anything, mock.Anything).Return(nil, camera.ErrPermissionDenied)

	_, err := f.view.OpenCamera(context.Background())
	require.Error(t, err)
	msg, ok := noticeFor(f.view.Notices(), constants.ControlCamera)
	require.True(t, ok)
	assert.Contains(t, msg, "choose a photo from your files")

	require.NoError(t, f.view.AcceptFile("bins.png", pngBytes(t)))
	status := f.view.Status()
	assert.True(t, status.HasImage)
	assert.Equal(t, models.OriginFilePicker, status.ImageOrigin)
}

func TestCaptureView_CapturePhotoAttachesImage(t *testing.T) {
	stream := new(mocks.MockCameraStream)
	stream.On("Frame", mock.Anything).Return(testFrame(), nil)
	stream.On("Stop").Return()
	f := newViewFixture(t, &fakeProber{})
	f.device.On("Open", mock.Anything, camera.FacingRear).Return(stream, nil)
	require.NoError(t, f.view.Start())
	defer f.view.Stop()

	assert.ErrorIs(t, f.view.CapturePhoto(context.Background()), services.ErrNoCaptureSession)

	_, err := f.view.OpenCamera(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.view.CapturePhoto(context.Background()))

	img, ok := f.draft.Image()
	require.True(t, ok)
	assert.Equal(t, models.OriginCamera, img.Origin)
	assert.False(t, f.view.Status().CameraOpen)
}

func TestCaptureView_SubmitIncompleteMarksEachControl(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})

	_, err := f.view.Submit(context.Background())
	require.Error(t, err)

	notices := f.view.Notices()
	for control, message := range map[string]string{
		constants.ControlDescription: "description missing",
		constants.ControlLocation:    "location missing",
		constants.ControlImage:       "image missing",
	} {
		got, ok := noticeFor(notices, control)
		assert.True(t, ok, control)
		assert.Equal(t, message, got)
	}

	f.view.SetDescription("Overflowing bins")
	_, ok := noticeFor(f.view.Notices(), constants.ControlDescription)
	assert.False(t, ok)
	f.gateway.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestCaptureView_SubmitFailureKeepsDraftAndNotice(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})
	f.gateway.On("Submit", mock.Anything, mock.Anything).
		Return(gateway.Response{}, &gateway.Error{StatusCode: 413, Message: "File too large"})

	f.view.SetDescription("Overflowing bins")
	require.NoError(t, f.view.SubmitManual("53.35", "-6.26"))
	require.NoError(t, f.view.AcceptFile("bins.png", pngBytes(t)))

	outcome, err := f.view.Submit(context.Background())
	var netErr *models.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "File too large", outcome.Message)

	msg, ok := noticeFor(f.view.Notices(), constants.ControlSubmit)
	require.True(t, ok)
	assert.Equal(t, "File too large", msg)

	status := f.view.Status()
	assert.True(t, status.CanSubmit)
	assert.Equal(t, "Overflowing bins", status.Description)

	f.view.Dismiss(constants.ControlSubmit)
	assert.Nil(t, f.view.Status().LastOutcome)
}

func TestCaptureView_ManualEntryErrorNotice(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})

	require.Error(t, f.view.SubmitManual("abc", "10"))
	msg, ok := noticeFor(f.view.Notices(), constants.ControlManual)
	require.True(t, ok)
	assert.Equal(t, "latitude must be a decimal number", msg)

	f.view.Dismiss(constants.ControlManual)
	assert.Empty(t, f.view.Notices())
}

func TestCaptureView_CaptureAfterStopIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	stream := new(mocks.MockCameraStream)
	stream.On("Frame", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(testFrame(), nil)
	stream.On("Stop").Return()
	f := newViewFixture(t, &fakeProber{})
	f.device.On("Open", mock.Anything, camera.FacingRear).Return(stream, nil)

	require.NoError(t, f.view.Start())
	_, err := f.view.OpenCamera(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.view.CapturePhoto(context.Background()) }()
	<-started

	require.NoError(t, f.view.Stop())
	close(release)

	assert.ErrorIs(t, <-done, services.ErrViewStopped)
	_, ok := f.draft.Image()
	assert.False(t, ok)
	assert.Equal(t, 0, f.previews.Len())
	stream.AssertNumberOfCalls(t, "Stop", 1)
}

func TestCaptureView_RemountProbesAgain(t *testing.T) {
	device := models.Coordinate{Latitude: 1, Longitude: 2}
	f := newViewFixture(t, &fakeProber{coord: device})

	require.NoError(t, f.view.Start())
	assert.Eventually(t, func() bool {
		return f.resolver.State() == constants.LocationResolved
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, f.view.SelectOnMap(models.Coordinate{Latitude: 12.34, Longitude: 56.78}))
	require.NoError(t, f.view.Stop())

	assert.Equal(t, constants.LocationIdle, f.resolver.State())
	assert.Equal(t, models.Unresolved{}, f.resolver.Source())

	require.NoError(t, f.view.Start())
	defer f.view.Stop()
	assert.Eventually(t, func() bool {
		return f.draft.Location() == models.LocationSource(models.DeviceLocation{Coordinate: device})
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, constants.LocationResolved, f.resolver.State())
	assert.Equal(t, models.DeviceLocation{Coordinate: device}, f.resolver.Source())
}

func TestCaptureView_DeniedLocationMapClickAndFilePhotoSubmit(t *testing.T) {
	f := newViewFixture(t, &fakeProber{err: &models.DeviceError{Device: "geolocation", Reason: "location permission denied"}})
	f.gateway.On("Submit", mock.Anything, mock.MatchedBy(func(sub gateway.Submission) bool {
		return sub.Description == "Dumped tyres by the river" &&
			sub.Latitude == "12.34" && sub.Longitude == "56.78" &&
			sub.MIMEType == "image/png" && len(sub.File) == 2*1024*1024
	})).Return(gateway.Response{Message: "Report received"}, nil)

	require.NoError(t, f.view.Start())
	defer f.view.Stop()
	assert.Eventually(t, func() bool {
		return f.resolver.State() == constants.LocationFailed
	}, time.Second, 5*time.Millisecond)

	f.view.SetDescription("Dumped tyres by the river")
	require.NoError(t, f.view.SelectOnMap(models.Coordinate{Latitude: 12.34, Longitude: 56.78}))
	assert.Equal(t, models.MapClickLocation{Coordinate: models.Coordinate{Latitude: 12.34, Longitude: 56.78}}, f.draft.Location())

	photo := make([]byte, 2*1024*1024)
	copy(photo, pngBytes(t))
	path := filepath.Join(t.TempDir(), "tyres.png")
	require.NoError(t, os.WriteFile(path, photo, 0600))
	require.NoError(t, f.view.PickFile(path))
	assert.True(t, f.draft.IsSubmitEligible())
	assert.Equal(t, 1, f.previews.Len())

	outcome, err := f.view.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, "Report received", outcome.Message)

	assert.Empty(t, f.draft.Description())
	assert.False(t, models.IsResolved(f.draft.Location()))
	_, ok := f.draft.Image()
	assert.False(t, ok)
	assert.Equal(t, 0, f.previews.Len())
	f.gateway.AssertNumberOfCalls(t, "Submit", 1)
}

func TestCaptureView_OversizedFileKeepsPreviousImage(t *testing.T) {
	f := newViewFixture(t, &fakeProber{})

	require.NoError(t, f.view.AcceptFile("bins.png", pngBytes(t)))
	first, ok := f.draft.Image()
	require.True(t, ok)

	oversized := append(pngBytes(t), make([]byte, constants.MaxImageBytes)...)
	require.Error(t, f.view.AcceptFile("huge.png", oversized))

	msg, ok := noticeFor(f.view.Notices(), constants.ControlFilePicker)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(msg, "file exceeds the 5 MB limit"))

	current, ok := f.draft.Image()
	require.True(t, ok)
	assert.Equal(t, first.Preview, current.Preview)
	assert.Equal(t, "bins.png", current.FileName)
	assert.Equal(t, 1, f.previews.Len())
}
