package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/faneasy/faneasy-server/internal/compose"
	"github.com/faneasy/faneasy-server/internal/models"
	"github.com/faneasy/faneasy-server/internal/storage"
)

// ========== Page handlers ==========

// HandleRenderedPage serves the composed public page for a tenant. This
// is what a visitor hitting a tenant host ultimately receives.
func (s *RESTServer) HandleRenderedPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	site, err := s.store.GetSite(r.Context(), slug)
	if err != nil || !site.IsActive {
		s.respondError(w, http.StatusNotFound, "site not found")
		return
	}

	page, err := s.store.GetPage(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "page not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rendered := compose.Render(page.Blocks, themeOf(site))

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"site": map[string]interface{}{
			"id":   site.ID,
			"name": site.Name,
		},
		"page": rendered,
	})
}

// HandleGetPage returns the raw block document for editing
func (s *RESTServer) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	site, ok := s.loadManagedSite(w, r, caller)
	if !ok {
		return
	}

	page, err := s.store.GetPage(r.Context(), site.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "page not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, page)
}

// HandleUpdatePage replaces the site's block document
func (s *RESTServer) HandleUpdatePage(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	site, ok := s.loadManagedSite(w, r, caller)
	if !ok {
		return
	}
	if !caller.Role.AtLeast(models.RoleAdmin) {
		s.respondError(w, http.StatusForbidden, "insufficient privileges")
		return
	}

	var req struct {
		Blocks models.BlockList `json:"blocks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Unknown block types are stored as-is; the renderer degrades them
	// to placeholders, which keeps newer editors forward compatible.
	for i := range req.Blocks {
		if req.Blocks[i].Type == "" {
			s.respondError(w, http.StatusBadRequest, "block type is required")
			return
		}
		if req.Blocks[i].ID == uuid.Nil {
			req.Blocks[i].ID = uuid.New()
		}
	}

	page := &models.PageDocument{
		SiteID: site.ID,
		Blocks: req.Blocks,
	}
	if err := s.store.SavePage(r.Context(), page); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordActivity(r, caller, models.ActivityTypePageUpdated, "updated page", site.ID, site.ID)

	s.respondJSON(w, http.StatusOK, page)
}

// themeOf extracts tenant styling from site settings.
func themeOf(site *models.Site) compose.Theme {
	var theme compose.Theme
	if v, ok := site.Settings["accentColor"].(string); ok {
		theme.AccentColor = v
	}
	if v, ok := site.Settings["fontFamily"].(string); ok {
		theme.FontFamily = v
	}
	return theme
}
