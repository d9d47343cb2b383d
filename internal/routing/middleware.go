package routing

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// Options configures the resolver middleware.
type Options struct {
	RootDomains      []string
	ReservedPrefixes []string
	SitePrefix       string
	// KnownSlugs loads the registered slug set. A load failure degrades
	// to host-only resolution rather than failing the request.
	KnownSlugs func(r *http.Request) (map[string]bool, error)
}

// Middleware rewrites tenant requests into the internal site namespace
// before they reach the router. System routes and pass-throughs are served
// unchanged.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := Config{
				RootDomains:      opts.RootDomains,
				ReservedPrefixes: opts.ReservedPrefixes,
				SitePrefix:       opts.SitePrefix,
			}

			if opts.KnownSlugs != nil {
				slugs, err := opts.KnownSlugs(r)
				if err != nil {
					log.Warn().Err(err).Msg("Failed to load tenant slugs, resolving by host only")
				} else {
					cfg.KnownSlugs = slugs
				}
			}

			decision := Resolve(r.Host, r.URL.Path, cfg)
			if decision.Kind == TenantRoute {
				r.URL.Path = decision.Path
			}

			next.ServeHTTP(w, r)
		})
	}
}
