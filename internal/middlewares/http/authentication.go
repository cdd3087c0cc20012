package http_middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/waste-reporter/internal/constants"
	"github.com/benmeehan/waste-reporter/pkg/identity"
	"github.com/benmeehan/waste-reporter/pkg/session"
)

// ReporterIDHeader carries the reporting device id.
const ReporterIDHeader = "X-Reporter-ID"

// AuthenticationMiddleware attaches the session bearer token and the
// reporter id to every outbound request.
type AuthenticationMiddleware struct {
	next         http.RoundTripper
	store        session.Store
	reporterInfo identity.ReporterInfoInterface
	logger       zerolog.Logger
	now          func() time.Time
}

// NewAuthenticationMiddleware creates a new authentication middleware.
func NewAuthenticationMiddleware(store session.Store, reporterInfo identity.ReporterInfoInterface, logger zerolog.Logger) *AuthenticationMiddleware {
	return &AuthenticationMiddleware{
		store:        store,
		reporterInfo: reporterInfo,
		logger:       logger,
		now:          time.Now,
	}
}

func (a *AuthenticationMiddleware) SetNext(next http.RoundTripper) {
	a.next = next
}

// RoundTrip clones the request before touching headers.
func (a *AuthenticationMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if token, ok := session.BearerToken(a.store, constants.SessionTokenKey, a.now()); ok {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		a.logger.Debug().Str("url", req.URL.Redacted()).Msg("No usable session token, sending request unauthenticated")
	}

	if a.reporterInfo != nil {
		if id := a.reporterInfo.GetReporterID(); id != "" {
			out.Header.Set(ReporterIDHeader, id)
		}
	}

	return a.next.RoundTrip(out)
}
