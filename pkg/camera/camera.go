// Package camera abstracts still-capable video devices.
package camera

import (
	"context"
	"errors"
	"image"
)

// Facing selects a camera by the direction it points.
type Facing string

const (
	FacingRear  Facing = "rear"
	FacingFront Facing = "front"
	FacingAny   Facing = "any"
)

var (
	// ErrPermissionDenied means the platform refused access to the camera.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoCamera means no camera matches the requested facing.
	ErrNoCamera = errors.New("no camera available")
	// ErrStreamStopped is returned by Frame after Stop.
	ErrStreamStopped = errors.New("camera stream stopped")
)

// Device opens video streams.
type Device interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is an open video stream. Stop releases every track of the stream
// and must be called exactly once by the stream owner.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}
