package http_middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LoggingMiddleware logs every outbound request and flags responses that
// need the user's attention.
type LoggingMiddleware struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

func (l *LoggingMiddleware) SetNext(next http.RoundTripper) {
	l.next = next
}

func (l *LoggingMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.next.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		l.logger.Error().
			Err(err).
			Str("method", req.Method).
			Str("url", req.URL.Redacted()).
			Dur("elapsed", elapsed).
			Msg("Backend server is not reachable")
		return nil, err
	}

	event := l.logger.Debug()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		event = l.logger.Warn()
	case resp.StatusCode >= http.StatusInternalServerError:
		event = l.logger.Error()
	case resp.StatusCode >= http.StatusBadRequest:
		event = l.logger.Warn()
	}
	event.
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("HTTP request completed")

	if resp.StatusCode == http.StatusUnauthorized {
		l.logger.Warn().Msg("Unauthorized access, session expired; please log in again")
	}
	return resp, nil
}
