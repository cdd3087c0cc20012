package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/internal/models"
	"github.com/benmeehan/waste-reporter/pkg/camera"
	"github.com/benmeehan/waste-reporter/pkg/preview"
)

const deviceCamera = "camera"

// ErrSessionEnded is returned by a capture session after End.
var ErrSessionEnded = errors.New("capture session has ended")

// CaptureController hands out the single camera session token.
type CaptureController struct {
	device   camera.Device
	previews *preview.Store
	quality  int
	logger   zerolog.Logger

	mu     sync.Mutex
	busy   bool
	active *CaptureSession
}

// NewCaptureController creates a controller. A nil device behaves like a
// device with no camera.
func NewCaptureController(device camera.Device, previews *preview.Store, quality int, logger zerolog.Logger) *CaptureController {
	if quality <= 0 || quality > 100 {
		quality = constants.DefaultJPEGQuality
	}
	return &CaptureController{
		device:   device,
		previews: previews,
		quality:  quality,
		logger:   logger,
	}
}

// Begin opens the rear camera, or any camera when there is no rear one. It
// fails with *models.ConflictError while another session is in flight and
// with *models.DeviceError when no stream could be opened.
func (c *CaptureController) Begin(ctx context.Context) (*CaptureSession, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, &models.ConflictError{Resource: deviceCamera}
	}
	c.busy = true
	c.mu.Unlock()

	stream, err := c.open(ctx)
	if err != nil {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		c.logger.Warn().Err(err).Msg("Camera could not be started")
		return nil, err
	}

	session := &CaptureSession{controller: c, stream: stream}
	c.mu.Lock()
	c.active = session
	c.mu.Unlock()

	c.logger.Info().Msg("Camera session started")
	return session, nil
}

// Active returns the session in flight, if any.
func (c *CaptureController) Active() *CaptureSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Busy reports whether the session token is held.
func (c *CaptureController) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *CaptureController) open(ctx context.Context) (camera.Stream, error) {
	if c.device == nil {
		return nil, &models.DeviceError{Device: deviceCamera, Reason: "no camera available", Err: camera.ErrNoCamera}
	}

	stream, err := c.tryOpen(ctx, camera.FacingRear)
	if errors.Is(err, camera.ErrNoCamera) {
		c.logger.Debug().Msg("No rear camera, falling back to any camera")
		stream, err = c.tryOpen(ctx, camera.FacingAny)
	}
	if err != nil {
		return nil, &models.DeviceError{Device: deviceCamera, Reason: cameraFailureReason(err), Err: err}
	}
	return stream, nil
}

// tryOpen never leaves a stream open on error.
func (c *CaptureController) tryOpen(ctx context.Context, facing camera.Facing) (camera.Stream, error) {
	stream, err := c.device.Open(ctx, facing)
	if err != nil {
		if stream != nil {
			stream.Stop()
		}
		return nil, err
	}
	if stream == nil {
		return nil, camera.ErrNoCamera
	}
	return stream, nil
}

func (c *CaptureController) release(s *CaptureSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == s {
		c.active = nil
	}
	c.busy = false
}

func cameraFailureReason(err error) string {
	switch {
	case errors.Is(err, camera.ErrPermissionDenied):
		return "camera permission denied"
	case errors.Is(err, camera.ErrNoCamera):
		return "no camera available"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "camera start was interrupted"
	default:
		return "unable to start the camera"
	}
}

// CaptureSession is one open camera stream. End runs on every exit path:
// capture, cancel, error and view unmount.
type CaptureSession struct {
	controller *CaptureController
	stream     camera.Stream
	once       sync.Once
	ended      atomic.Bool
}

// Preview grabs the current frame for the live preview surface.
func (s *CaptureSession) Preview(ctx context.Context) (image.Image, error) {
	if s.ended.Load() {
		return nil, ErrSessionEnded
	}
	frame, err := s.stream.Frame(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrStreamStopped) {
			return nil, ErrSessionEnded
		}
		return nil, &models.DeviceError{Device: deviceCamera, Reason: "camera preview failed", Err: err}
	}
	return frame, nil
}

// Capture grabs a frame, encodes it as JPEG and ends the session, also when
// the capture fails.
func (s *CaptureSession) Capture(ctx context.Context) (models.ImageAsset, error) {
	defer s.End()

	if s.ended.Load() {
		return models.ImageAsset{}, ErrSessionEnded
	}

	frame, err := s.stream.Frame(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrStreamStopped) {
			return models.ImageAsset{}, ErrSessionEnded
		}
		return models.ImageAsset{}, &models.DeviceError{Device: deviceCamera, Reason: "unable to capture photo", Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: s.controller.quality}); err != nil {
		return models.ImageAsset{}, fmt.Errorf("failed to encode captured photo: %w", err)
	}

	const mimeType = "image/jpeg"
	data := buf.Bytes()
	asset := models.ImageAsset{
		Data:     data,
		MIMEType: mimeType,
		Origin:   models.OriginCamera,
		FileName: fmt.Sprintf("capture-%s.jpg", time.Now().UTC().Format("20060102T150405Z")),
	}
	if s.controller.previews != nil {
		asset.Preview = s.controller.previews.Register(data, mimeType)
	}

	s.controller.logger.Info().Int("bytes", len(data)).Msg("Photo captured")
	return asset, nil
}

// End stops the stream and releases the session token. It is idempotent.
func (s *CaptureSession) End() {
	s.once.Do(func() {
		s.ended.Store(true)
		s.stream.Stop()
		s.controller.release(s)
		s.controller.logger.Debug().Msg("Camera session ended")
	})
}

// Ended reports whether End has run.
func (s *CaptureSession) Ended() bool {
	return s.ended.Load()
}
