package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/faneasy/faneasy-server/internal/models"
	"github.com/faneasy/faneasy-server/internal/storage"
	"github.com/faneasy/faneasy-server/pkg/crypto"
)

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("Failed to record last login")
	}

	s.recordActivity(r, user, models.ActivityTypeLogin, "logged in", user.Email, scopeOf(user))

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
		"user":          user,
	})
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := s.auth.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// Reload so role or affiliation changes take effect on refresh.
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleGetCurrentUser gets the authenticated user
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

// ========== User handlers ==========

// HandleListUsers lists users. Non-super-admin callers only see users
// affiliated with their own site.
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)

	var filters storage.UserFilters
	if role := r.URL.Query().Get("role"); role != "" {
		rv := models.Role(role)
		if !rv.Valid() {
			s.respondError(w, http.StatusBadRequest, "unknown role")
			return
		}
		filters.Role = &rv
	}

	if caller.Role == models.RoleSuperAdmin {
		if site := r.URL.Query().Get("site"); site != "" {
			filters.AffiliatedWith = &site
		}
	} else {
		site := scopeOf(caller)
		if site == "" {
			s.respondError(w, http.StatusForbidden, "no site affiliation")
			return
		}
		filters.AffiliatedWith = &site
	}

	users, total, err := s.store.ListUsers(r.Context(), filters, limit, offset)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// HandleCreateUser creates a user
func (s *RESTServer) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if !caller.Role.AtLeast(models.RoleOwner) {
		s.respondError(w, http.StatusForbidden, "insufficient privileges")
		return
	}

	var req struct {
		Email      string  `json:"email" validate:"required,email"`
		Name       string  `json:"name" validate:"required,max=100"`
		Password   string  `json:"password" validate:"required,min=8"`
		Role       string  `json:"role" validate:"oneof=owner admin user"`
		JoinedSite *string `json:"joinedSite" validate:"slug"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	role := models.RoleUser
	if req.Role != "" {
		role = models.Role(req.Role)
	}
	// Owners enrol members into their own site only.
	joined := req.JoinedSite
	if caller.Role != models.RoleSuperAdmin {
		own := scopeOf(caller)
		if joined == nil || *joined != own {
			joined = &own
		}
		if role != models.RoleUser {
			s.respondError(w, http.StatusForbidden, "only super admins grant elevated roles directly")
			return
		}
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		JoinedSite:   joined,
		IsActive:     true,
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "user already exists")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if joined != nil {
		s.hub.Notify(feedUsers, *joined)
	}

	s.respondJSON(w, http.StatusCreated, user)
}

// HandleGetUser gets a user
func (s *RESTServer) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if caller.Role != models.RoleSuperAdmin && caller.ID != user.ID {
		own := scopeOf(caller)
		if own == "" || !user.AffiliatedWith(own) {
			s.respondError(w, http.StatusForbidden, "forbidden")
			return
		}
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleUpdateUser updates a user's profile fields
func (s *RESTServer) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if caller.Role != models.RoleSuperAdmin && caller.ID != id {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req struct {
		Name     *string `json:"name" validate:"max=100"`
		Password *string `json:"password" validate:"min=8"`
		IsActive *bool   `json:"isActive"`
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
		user.Name = *req.Name
	}
	if req.Password != nil {
		hash, err := crypto.HashPassword(*req.Password)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		user.PasswordHash = hash
	}
	if req.IsActive != nil && caller.Role == models.RoleSuperAdmin {
		user.IsActive = *req.IsActive
	}

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if site := scopeOf(user); site != "" {
		s.hub.Notify(feedUsers, site)
	}

	s.respondJSON(w, http.StatusOK, user)
}

// HandleDeleteUser deletes a user
func (s *RESTServer) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	if caller.Role != models.RoleSuperAdmin {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if site := scopeOf(user); site != "" {
		s.hub.Notify(feedUsers, site)
	}

	w.WriteHeader(http.StatusNoContent)
}

// ========== Health ==========

// HandleHealth handles health checks
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"name":    s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// ========== Helpers ==========

// currentUser loads the full user record behind the request's claims.
func (s *RESTServer) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims := claimsFrom(r)
	if claims == nil {
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}

	user, err := s.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "unknown user")
		return nil, false
	}
	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return nil, false
	}

	return user, true
}

// scopeOf returns the user's site affiliation, preferring ownership.
func scopeOf(user *models.User) string {
	if user.Subdomain != nil {
		return *user.Subdomain
	}
	if user.JoinedSite != nil {
		return *user.JoinedSite
	}
	return ""
}

// recordActivity appends an audit entry. Failures are logged, never
// surfaced; audit writes must not fail the triggering request.
func (s *RESTServer) recordActivity(r *http.Request, user *models.User, typ models.ActivityType, action, target, subdomain string) {
	entry := &models.ActivityEntry{
		Type:      typ,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		Action:    action,
		Target:    target,
		Subdomain: subdomain,
	}
	if err := s.store.CreateActivityEntry(r.Context(), entry); err != nil {
		log.Error().Err(err).Str("type", string(typ)).Msg("Failed to record activity")
		return
	}
	if subdomain != "" {
		s.hub.Notify(feedActivity, subdomain)
	}
}

// pagination extracts limit/offset query parameters
func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
