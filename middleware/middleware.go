// Package middleware scopes a batch resolution context to each HTTP
// request. The handler chain below the middleware retrieves it with
// batch.FromContext; the context is cleared when the handler returns, so
// cached results never leak across requests.
package middleware

import (
	"net/http"

	batch "github.com/batch-fn/batch-go"
)

// Config configures the resolver middleware.
type Config struct {
	Factory func() *batch.Context // builds the per-request context
}

// Option configures Config.
type Option func(*Config)

// WithContextFactory sets the factory used to build each request's
// resolution context, e.g. to pre-register extensions.
func WithContextFactory(factory func() *batch.Context) Option {
	return func(cfg *Config) {
		cfg.Factory = factory
	}
}

// Resolver returns middleware that installs a fresh resolution context into
// each request's context and clears it after the handler returns.
func Resolver(opts ...Option) func(http.Handler) http.Handler {
	cfg := &Config{
		Factory: func() *batch.Context { return batch.NewContext() },
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := cfg.Factory()
			defer rc.Clear()

			next.ServeHTTP(w, r.WithContext(batch.WithResolver(r.Context(), rc)))
		})
	}
}
