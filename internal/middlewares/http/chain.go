package http_middleware

import "net/http"

// ChainedTransport wraps a base transport with a middleware chain.
type ChainedTransport struct {
	middlewares []HTTPMiddleware
	base        http.RoundTripper
}

var _ http.RoundTripper = (*ChainedTransport)(nil)

// NewChainedTransport links the middlewares in order, the last one handing
// off to base. A nil base means http.DefaultTransport.
func NewChainedTransport(base http.RoundTripper, middlewares []HTTPMiddleware) *ChainedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	// Chain middlewares
	for i := 0; i < len(middlewares)-1; i++ {
		middlewares[i].SetNext(middlewares[i+1])
	}
	if len(middlewares) > 0 {
		middlewares[len(middlewares)-1].SetNext(base)
	}
	return &ChainedTransport{
		middlewares: middlewares,
		base:        base,
	}
}

// RoundTrip sends the request through the middleware chain.
func (c *ChainedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(c.middlewares) == 0 {
		return c.base.RoundTrip(req)
	}
	return c.middlewares[0].RoundTrip(req)
}
