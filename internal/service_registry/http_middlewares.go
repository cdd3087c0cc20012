package service_registry

import (
	"net/http"

	http_middleware "github.com/benmeehan/waste-reporter/internal/middlewares/http"
	"github.com/benmeehan/waste-reporter/internal/utils"
	"github.com/benmeehan/waste-reporter/pkg/identity"
)

// InitializeMiddlewares sets up the outbound HTTP middleware chain based on
// configuration.
func (sr *ServiceRegistry) InitializeMiddlewares(config *utils.Config, reporterInfo identity.ReporterInfoInterface) http.RoundTripper {
	var middlewares []http_middleware.HTTPMiddleware

	// Ordered middleware definitions
	middlewaresInOrder := []struct {
		name        string
		enabled     bool
		constructor func() http_middleware.HTTPMiddleware
	}{
		{
			name:    "logging",
			enabled: true,
			constructor: func() http_middleware.HTTPMiddleware {
				return http_middleware.NewLoggingMiddleware(sr.Logger)
			},
		},
		{
			name:    "authentication",
			enabled: !config.Gateway.Anonymous,
			constructor: func() http_middleware.HTTPMiddleware {
				return http_middleware.NewAuthenticationMiddleware(sr.sessionStore, reporterInfo, sr.Logger)
			},
		},
	}

	for _, mw := range middlewaresInOrder {
		if mw.enabled {
			middlewares = append(middlewares, mw.constructor())
			sr.Logger.Info().Str("middleware", mw.name).Msg("Middleware initialized")
		} else {
			sr.Logger.Debug().Str("middleware", mw.name).Msg("Middleware is disabled, skipping")
		}
	}

	chained := http_middleware.NewChainedTransport(http.DefaultTransport, middlewares)
	sr.Logger.Info().Int("middleware_count", len(middlewares)).Msg("Middleware chain initialized")
	return chained
}
