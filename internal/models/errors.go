package models

import (
	"errors"
	"fmt"
)

// Field names used by validation errors and notices.
const (
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldImage       = "image"
	FieldQuery       = "query"
)

// ValidationError is bad user input: malformed coordinates, an oversized or
// non-image file, or a required field missing at submit time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// DeviceError is a permission or hardware failure of the camera or the
// geolocation service.
type DeviceError struct {
	Device string
	Reason string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Device, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Device, e.Reason)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ConflictError is returned when a single-flight resource is already held.
type ConflictError struct {
	Resource string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s is already in use", e.Resource)
}

// NetworkError is an unreachable gateway or a non-2xx response. Message holds
// the gateway-provided message when there was one.
type NetworkError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway returned %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("gateway unreachable: %v", e.Err)
	default:
		return "gateway request failed"
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationFields returns the field of every ValidationError found in err,
// including those combined with errors.Join.
func ValidationFields(err error) []string {
	var fields []string
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var ve *ValidationError
		if errors.As(e, &ve) {
			fields = append(fields, ve.Field)
		}
	}
	walk(err)
	return fields
}
