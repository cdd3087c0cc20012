package constants

import "time"

const (
	// DefaultProbeTimeout bounds a single device geolocation query.
	DefaultProbeTimeout = 10 * time.Second

	// MaxImageBytes is the largest photo accepted from the file picker (5 MB).
	MaxImageBytes = 5 * 1024 * 1024

	// DefaultJPEGQuality is the encode quality of a captured camera frame.
	DefaultJPEGQuality = 90

	// DefaultMapZoom is the zoom level used when the map is recentred.
	DefaultMapZoom = 16

	// DefaultSubmitTimeout bounds the gateway round trip.
	DefaultSubmitTimeout = 30 * time.Second

	// DefaultFrameTimeout bounds a single camera frame grab.
	DefaultFrameTimeout = 5 * time.Second

	// PreviewDimension is the longest side of a preview thumbnail.
	PreviewDimension = 512

	// PreviewQuality is the encode quality of a preview thumbnail.
	PreviewQuality = 80

	// DefaultFileField is the multipart field name of the photo.
	DefaultFileField = "file"

	// GenericSubmitFailure is shown when the gateway gave no message.
	GenericSubmitFailure = "Failed to submit report. Please try again."

	// GenericSubmitSuccess is shown when the gateway accepted without a message.
	GenericSubmitSuccess = "Report submitted successfully"
)

// Controls that notices attach to.
const (
	ControlDescription = "description"
	ControlLocation    = "location"
	ControlManual      = "manual_location"
	ControlSearch      = "place_search"
	ControlImage       = "image"
	ControlCamera      = "camera"
	ControlFilePicker  = "file_picker"
	ControlSubmit      = "submit"
)

// Session store keys.
const (
	SessionTokenKey  = "token"
	SessionUserIDKey = "user_id"
	SessionRoleKey   = "user_role"
)
