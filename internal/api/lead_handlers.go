package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/faneasy/faneasy-server/internal/models"
	"github.com/faneasy/faneasy-server/internal/storage"
)

// ========== Lead handlers ==========

// HandleCreateLead accepts a public lead submission from a tenant page.
// Sub-tenant leads are attributed upward to the parent site so roll-up
// views can include them.
func (s *RESTServer) HandleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SiteID  string `json:"siteId" validate:"required,slug"`
		Name    string `json:"name" validate:"required,max=100"`
		Email   string `json:"email" validate:"required,email"`
		Phone   string `json:"phone" validate:"max=30"`
		Message string `json:"message" validate:"max=2000"`
		Plan    string `json:"plan" validate:"max=50"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	site, err := s.store.GetSite(r.Context(), req.SiteID)
	if err != nil || !site.IsActive {
		s.respondError(w, http.StatusNotFound, "site not found")
		return
	}

	lead := &models.Lead{
		ID:                 uuid.New(),
		OwnerID:            site.ID,
		ParentInfluencerID: site.ParentSiteID,
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		Message:            req.Message,
		Plan:               req.Plan,
		Status:             models.LeadStatusPending,
	}

	if err := s.store.CreateLead(r.Context(), lead); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.hub.Notify(feedLeads, lead.OwnerID)

	entry := &models.ActivityEntry{
		Type:      models.ActivityTypeLeadCreated,
		Action:    "submitted lead",
		Target:    lead.Email,
		Subdomain: lead.OwnerID,
	}
	if err := s.store.CreateActivityEntry(r.Context(), entry); err == nil {
		s.hub.Notify(feedActivity, lead.OwnerID)
	}

	if s.forwarder.Enabled() {
		go func(l models.Lead) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.forwarder.Forward(ctx, &l)
		}(*lead)
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     lead.ID,
		"status": lead.Status,
	})
}

// HandleListLeads lists leads within the caller's scope. scope=parent
// includes attributed sub-tenant leads.
func (s *RESTServer) HandleListLeads(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)

	siteID := r.URL.Query().Get("site")
	if siteID == "" {
		siteID = scopeOf(caller)
	}
	if siteID == "" {
		s.respondError(w, http.StatusBadRequest, "site is required")
		return
	}
	if caller.Role != models.RoleSuperAdmin && !caller.AffiliatedWith(siteID) {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	var filters storage.LeadFilters
	if r.URL.Query().Get("scope") == "parent" {
		filters.ParentID = &siteID
	} else {
		filters.OwnerID = &siteID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		sv := models.LeadStatus(status)
		if !sv.Valid() {
			s.respondError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filters.Status = &sv
	}

	leads, total, err := s.store.ListLeads(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"leads": leads,
		"total": total,
	})
}

// HandleUpdateLeadStatus advances a lead's handling state
func (s *RESTServer) HandleUpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=pending contacted completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "lead not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The owning site and the attributed parent may both work the lead.
	allowed := caller.Role == models.RoleSuperAdmin || caller.AffiliatedWith(lead.OwnerID)
	if !allowed && lead.ParentInfluencerID != nil {
		allowed = caller.AffiliatedWith(*lead.ParentInfluencerID)
	}
	if !allowed {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := s.store.UpdateLeadStatus(r.Context(), id, models.LeadStatus(req.Status)); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordActivity(r, caller, models.ActivityTypeLeadUpdated, "updated lead status to "+req.Status, lead.Email, lead.OwnerID)
	s.hub.Notify(feedLeads, lead.OwnerID)

	w.WriteHeader(http.StatusNoContent)
}

// ========== Activity handlers ==========

// HandleListActivity lists audit entries within the caller's scope
func (s *RESTServer) HandleListActivity(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)

	var filters storage.ActivityFilters
	site := r.URL.Query().Get("site")
	if caller.Role != models.RoleSuperAdmin {
		own := scopeOf(caller)
		if own == "" {
			s.respondError(w, http.StatusForbidden, "no site affiliation")
			return
		}
		if site != "" && site != own {
			s.respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		site = own
	}
	if site != "" {
		filters.Subdomain = &site
	}

	if typ := r.URL.Query().Get("type"); typ != "" {
		tv := models.ActivityType(typ)
		filters.Type = &tv
	}

	entries, total, err := s.store.ListActivity(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"activity": entries,
		"total":    total,
	})
}
