// Package gateway delivers packaged waste reports to the remote API.
package gateway

import (
	"context"
	"fmt"
)

// Submission is one report ready for transport.
type Submission struct {
	Description string
	Latitude    string
	Longitude   string
	FileName    string
	MIMEType    string
	File        []byte
}

// Response is a successful gateway answer.
type Response struct {
	StatusCode int
	Message    string
}

// Gateway sends a submission with exactly one outbound request.
type Gateway interface {
	Submit(ctx context.Context, sub Submission) (Response, error)
}

// Error is a failed submission. StatusCode is zero when the gateway could
// not be reached; Message carries the gateway-provided message, if any.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway unreachable: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway returned %d", e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }
