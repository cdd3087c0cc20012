package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotDevice talks to cameras exposing an HTTP still-image endpoint, one
// URL per facing. Field-mounted IP cameras usually offer such an endpoint.
type SnapshotDevice struct {
	urls   map[Facing]string
	client *http.Client
	logger zerolog.Logger
}

// NewSnapshotDevice creates a SnapshotDevice. Empty URLs mean the facing is
// not fitted.
func NewSnapshotDevice(rearURL, frontURL string, frameTimeout time.Duration, logger zerolog.Logger) *SnapshotDevice {
	urls := make(map[Facing]string)
	if rearURL != "" {
		urls[FacingRear] = rearURL
	}
	if frontURL != "" {
		urls[FacingFront] = frontURL
	}
	return &SnapshotDevice{
		urls:   urls,
		client: &http.Client{Timeout: frameTimeout},
		logger: logger,
	}
}

// Open checks that the camera answers and returns a stream over it.
func (d *SnapshotDevice) Open(ctx context.Context, facing Facing) (Stream, error) {
	url, ok := d.urls[facing]
	if facing == FacingAny {
		if url, ok = d.urls[FacingRear]; !ok {
			url, ok = d.urls[FacingFront]
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCamera, facing)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCamera, err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrPermissionDenied
	case resp.StatusCode >= 400 && resp.StatusCode != http.StatusMethodNotAllowed:
		return nil, fmt.Errorf("%w: camera answered %d", ErrNoCamera, resp.StatusCode)
	}

	d.logger.Debug().Str("facing", string(facing)).Str("url", url).Msg("Camera stream opened")
	return &snapshotStream{url: url, client: d.client}, nil
}

type snapshotStream struct {
	url    string
	client *http.Client

	mu      sync.Mutex
	stopped bool
}

// Frame fetches and decodes the current still.
func (s *snapshotStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, ErrStreamStopped
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch frame, received status code: %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

// Stop ends the stream and drops idle connections to the camera.
func (s *snapshotStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.client.CloseIdleConnections()
}

// IsNoCamera reports whether err means the requested camera is absent.
func IsNoCamera(err error) bool {
	return errors.Is(err, ErrNoCamera)
}
