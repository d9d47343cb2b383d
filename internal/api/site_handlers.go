package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/faneasy/faneasy-server/internal/hierarchy"
	"github.com/faneasy/faneasy-server/internal/models"
	"github.com/faneasy/faneasy-server/internal/storage"
)

// ========== Site handlers ==========

// HandleListSites lists sites. Super admins list everything; owners list
// their own site's children.
func (s *RESTServer) HandleListSites(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)

	var parentID *string
	if caller.Role == models.RoleSuperAdmin {
		if p := r.URL.Query().Get("parent"); p != "" {
			parentID = &p
		}
	} else {
		own := scopeOf(caller)
		if own == "" {
			s.respondError(w, http.StatusForbidden, "no site affiliation")
			return
		}
		parentID = &own
	}

	sites, total, err := s.store.ListSites(r.Context(), parentID, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sites": sites,
		"total": total,
	})
}

// HandleCreateSite creates a site. A fresh site gets the default starter
// page so the public URL renders immediately.
func (s *RESTServer) HandleCreateSite(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Slug         string  `json:"slug" validate:"required,slug,min=2,max=63"`
		Name         string  `json:"name" validate:"required,max=100"`
		ParentSiteID *string `json:"parentSiteId" validate:"slug"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Owners create sub-sites of their own site only.
	if caller.Role != models.RoleSuperAdmin {
		if caller.Role != models.RoleOwner || caller.Subdomain == nil {
			s.respondError(w, http.StatusForbidden, "insufficient privileges")
			return
		}
		own := *caller.Subdomain
		if req.ParentSiteID == nil || *req.ParentSiteID != own {
			req.ParentSiteID = &own
		}
	}

	if req.ParentSiteID != nil {
		if _, err := s.store.GetSite(r.Context(), *req.ParentSiteID); err != nil {
			s.respondError(w, http.StatusBadRequest, "parent site not found")
			return
		}
	}

	site := &models.Site{
		ID:           req.Slug,
		Name:         req.Name,
		ParentSiteID: req.ParentSiteID,
		IsActive:     true,
		Settings:     models.Variables{},
	}

	if err := s.store.CreateSite(r.Context(), site); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "slug already taken")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	page := &models.PageDocument{
		SiteID: site.ID,
		Blocks: models.DefaultBlocks(site.Name),
	}
	if err := s.store.SavePage(r.Context(), page); err != nil {
		log.Error().Err(err).Str("site", site.ID).Msg("Failed to provision default page")
	}

	s.registry.Invalidate(r.Context())
	s.recordActivity(r, caller, models.ActivityTypeSiteCreated, "created site", site.ID, site.ID)

	s.respondJSON(w, http.StatusCreated, site)
}

// HandleGetSite gets a site
func (s *RESTServer) HandleGetSite(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	site, ok := s.loadManagedSite(w, r, caller)
	if !ok {
		return
	}

	s.respondJSON(w, http.StatusOK, site)
}

// HandleUpdateSite updates site name, status and settings
func (s *RESTServer) HandleUpdateSite(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	site, ok := s.loadManagedSite(w, r, caller)
	if !ok {
		return
	}

	var req struct {
		Name     *string          `json:"name" validate:"max=100"`
		IsActive *bool            `json:"isActive"`
		Settings models.Variables `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Name != nil {
		site.Name = *req.Name
	}
	if req.IsActive != nil {
		site.IsActive = *req.IsActive
	}
	if req.Settings != nil {
		site.Settings = req.Settings
	}

	if err := s.store.UpdateSite(r.Context(), site); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, site)
}

// HandleDeleteSite deletes a site and its page
func (s *RESTServer) HandleDeleteSite(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if caller.Role != models.RoleSuperAdmin {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	slug := chi.URLParam(r, "slug")
	if _, err := s.store.GetSite(r.Context(), slug); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "site not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.DeletePage(r.Context(), slug); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Error().Err(err).Str("site", slug).Msg("Failed to delete site page")
	}
	if err := s.store.DeleteSite(r.Context(), slug); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.registry.Invalidate(r.Context())
	s.recordActivity(r, caller, models.ActivityTypeSiteDeleted, "deleted site", slug, slug)

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSiteTree returns the site's hierarchy: child sites with their
// affiliated users, plus the site's own members.
func (s *RESTServer) HandleGetSiteTree(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	site, ok := s.loadManagedSite(w, r, caller)
	if !ok {
		return
	}

	children, _, err := s.store.ListSites(r.Context(), &site.ID, 200, 0)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// One pass over all users affiliated with the root or any child.
	var users []*models.User
	slugs := make([]string, 0, len(children)+1)
	slugs = append(slugs, site.ID)
	for _, c := range children {
		slugs = append(slugs, c.ID)
	}
	for _, slug := range slugs {
		sl := slug
		batch, _, err := s.store.ListUsers(r.Context(), storage.UserFilters{AffiliatedWith: &sl}, 200, 0)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		users = append(users, batch...)
	}

	childVals := make([]models.Site, len(children))
	for i, c := range children {
		childVals[i] = *c
	}
	userVals := make([]models.User, len(users))
	for i, u := range users {
		userVals[i] = *u
	}

	s.respondJSON(w, http.StatusOK, hierarchy.BuildTree(site.ID, childVals, userVals))
}

// HandleAssign grants ownership or admin rights over the site
func (s *RESTServer) HandleAssign(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	slug := chi.URLParam(r, "slug")

	var req struct {
		Kind   string `json:"kind" validate:"required,oneof=owner admin"`
		UserID string `json:"userId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	candidateID, err := uuid.Parse(req.UserID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	err = s.assigner.Assign(r.Context(), caller, hierarchy.AssignKind(req.Kind), slug, candidateID)
	if err != nil {
		var partial *hierarchy.AssignError
		switch {
		case errors.Is(err, hierarchy.ErrForbidden):
			s.respondError(w, http.StatusForbidden, "forbidden")
		case errors.Is(err, hierarchy.ErrCandidateOutside):
			s.respondError(w, http.StatusUnprocessableEntity, "candidate is not affiliated with the parent site")
		case errors.Is(err, storage.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "site or user not found")
		case errors.As(err, &partial):
			// One of the two writes landed. Tell the client exactly how
			// far it got; the whole call is safe to retry.
			s.respondJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":       "assignment partially applied, retry the request",
				"siteUpdated": partial.SiteUpdated,
				"kind":        string(partial.Kind),
				"target":      partial.Target,
			})
		default:
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.hub.Notify(feedUsers, slug)

	w.WriteHeader(http.StatusNoContent)
}

// loadManagedSite loads the slug route parameter and gates on management
// rights: super admins always, everyone else by affiliation.
func (s *RESTServer) loadManagedSite(w http.ResponseWriter, r *http.Request, caller *models.User) (*models.Site, bool) {
	slug := chi.URLParam(r, "slug")

	site, err := s.store.GetSite(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "site not found")
			return nil, false
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}

	if caller.Role != models.RoleSuperAdmin && !caller.AffiliatedWith(slug) {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}

	return site, true
}
