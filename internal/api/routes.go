package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Public lead capture. Tenant pages post here without credentials.
	r.Post("/leads", s.HandleCreateLead)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Users
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.HandleListUsers)
			r.Post("/", s.HandleCreateUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetUser)
				r.Put("/", s.HandleUpdateUser)
				r.Delete("/", s.HandleDeleteUser)
			})
		})

		// Sites
		r.Route("/sites", func(r chi.Router) {
			r.Get("/", s.HandleListSites)
			r.Post("/", s.HandleCreateSite)
			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", s.HandleGetSite)
				r.Put("/", s.HandleUpdateSite)
				r.Delete("/", s.HandleDeleteSite)
				r.Get("/tree", s.HandleGetSiteTree)
				r.Post("/assign", s.HandleAssign)
				r.Get("/page", s.HandleGetPage)
				r.Put("/page", s.HandleUpdatePage)
			})
		})

		// Leads. Registered directly rather than via Route so the
		// mounted subrouter does not shadow the public POST /leads.
		r.Get("/leads", s.HandleListLeads)
		r.Patch("/leads/{id}/status", s.HandleUpdateLeadStatus)

		// Activity
		r.Get("/activity", s.HandleListActivity)

		// Live feed (WebSocket)
		r.Get("/feed", s.HandleFeed)
	})
}
