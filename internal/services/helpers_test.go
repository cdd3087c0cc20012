package services_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benmeehan/waste-reporter/internal/models"
)

// fakeProber returns its fixed result. With release set it first waits for
// release to be closed.
type fakeProber struct {
	coord   models.Coordinate
	err     error
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *fakeProber) Resolve(ctx context.Context) (models.Coordinate, error) {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return models.Coordinate{}, &models.DeviceError{Device: "geolocation", Reason: "location request cancelled", Err: ctx.Err()}
		}
	}
	return f.coord, f.err
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		for y := 0; y < 6; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 90, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testFrame()))
	return buf.Bytes()
}

func mustCoordinate(t *testing.T, lat, lng float64) models.Coordinate {
	t.Helper()
	c, err := models.NewCoordinate(lat, lng)
	require.NoError(t, err)
	return c
}

// safeBuffer is a bytes.Buffer safe for one writer goroutine and a reader.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *safeBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
