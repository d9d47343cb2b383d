package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/faneasy/faneasy-server/internal/auth"
	"github.com/faneasy/faneasy-server/internal/config"
	"github.com/faneasy/faneasy-server/internal/feed"
	"github.com/faneasy/faneasy-server/internal/hierarchy"
	"github.com/faneasy/faneasy-server/internal/intake"
	"github.com/faneasy/faneasy-server/internal/registry"
	"github.com/faneasy/faneasy-server/internal/routing"
	"github.com/faneasy/faneasy-server/internal/storage"
	"github.com/faneasy/faneasy-server/internal/validation"
)

type contextKey string

const claimsKey contextKey = "claims"

// RESTServer represents the REST API server
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.JWTManager
	validator *validation.Validator
	registry  *registry.Registry
	hub       *feed.Hub
	assigner  *hierarchy.Assigner
	forwarder *intake.Forwarder
	router    chi.Router
	server    *http.Server
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, store storage.Store, reg *registry.Registry, hub *feed.Hub, forwarder *intake.Forwarder) *RESTServer {
	s := &RESTServer{
		config:    cfg,
		store:     store,
		auth:      auth.NewJWTManager(&cfg.JWT),
		validator: validation.NewValidator(),
		registry:  reg,
		hub:       hub,
		assigner:  hierarchy.NewAssigner(store),
		forwarder: forwarder,
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the fully configured HTTP handler.
func (s *RESTServer) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Tenant resolution. Requests landing on a tenant host or a known
	// tenant path are rewritten into the /sites namespace before the
	// router sees them.
	s.router.Use(routing.Middleware(routing.Options{
		RootDomains:      s.config.Routing.RootDomains,
		ReservedPrefixes: s.config.Routing.ReservedPrefixes,
		SitePrefix:       s.config.Routing.SitePrefix,
		KnownSlugs: func(r *http.Request) (map[string]bool, error) {
			return s.registry.KnownSlugs(r.Context())
		},
	}))

	// Public tenant pages (composed)
	s.router.Get("/sites/{slug}", s.HandleRenderedPage)
	s.router.Get("/sites/{slug}/*", s.HandleRenderedPage)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware is the authentication middleware
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the access token from the Authorization header,
// falling back to the token query parameter for WebSocket clients that
// cannot set headers.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// claimsFrom returns the authenticated claims set by authMiddleware.
func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}
