package http_middleware

import "net/http"

// HTTPMiddleware defines the contract for outbound HTTP middleware.
type HTTPMiddleware interface {
	RoundTrip(req *http.Request) (*http.Response, error)
	SetNext(next http.RoundTripper)
}
