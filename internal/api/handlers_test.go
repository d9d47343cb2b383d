package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faneasy/faneasy-server/internal/models"
	"github.com/faneasy/faneasy-server/pkg/crypto"
)

func seedSite(store *fakeStore, slug, name string, parent *string) *models.Site {
	site := &models.Site{
		ID:           slug,
		Name:         name,
		ParentSiteID: parent,
		IsActive:     true,
		Settings:     models.Variables{},
	}
	store.sites[slug] = site
	store.pages[slug] = &models.PageDocument{
		SiteID: slug,
		Blocks: models.DefaultBlocks(name),
	}
	return site
}

func seedUser(store *fakeStore, email string, role models.Role, subdomain, joined *string) *models.User {
	hash, _ := crypto.HashPassword("password123")
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         email,
		PasswordHash: hash,
		Role:         role,
		Subdomain:    subdomain,
		JoinedSite:   joined,
		IsActive:     true,
	}
	store.users[user.ID] = user
	return user
}

func doJSON(t *testing.T, s *RESTServer, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestLoginAndMe(t *testing.T) {
	store := newFakeStore()
	slug := "iu"
	seedSite(store, slug, "IU Official", nil)
	seedUser(store, "owner@example.com", models.RoleOwner, &slug, nil)
	s := newTestServer(store)

	rec := doJSON(t, s, http.MethodPost, "http://faneasy.kr/api/v1/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loginResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.AccessToken)

	rec = doJSON(t, s, http.MethodGet, "http://faneasy.kr/api/v1/users/me", loginResp.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "owner@example.com", me.Email)
	assert.Equal(t, models.RoleOwner, me.Role)

	// Refresh mints a fresh pair.
	rec = doJSON(t, s, http.MethodPost, "http://faneasy.kr/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": loginResp.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	store := newFakeStore()
	slug := "iu"
	seedSite(store, slug, "IU Official", nil)
	seedUser(store, "owner@example.com", models.RoleOwner, &slug, nil)
	s := newTestServer(store)

	rec := doJSON(t, s, http.MethodPost, "http://faneasy.kr/api/v1/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantHostServesComposedPage(t *testing.T) {
	store := newFakeStore()
	seedSite(store, "iu", "IU Official", nil)
	s := newTestServer(store)

	// A visitor hits the tenant host root; the resolver rewrites it into
	// the internal site namespace and the composed page comes back.
	req := httptest.NewRequest(http.MethodGet, "http://iu.faneasy.kr/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Site struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"site"`
		Page struct {
			Blocks []struct {
				Type string `json:"type"`
			} `json:"blocks"`
		} `json:"page"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "iu", resp.Site.ID)
	require.Len(t, resp.Page.Blocks, 3)
	assert.Equal(t, "hero", resp.Page.Blocks[0].Type)
}

func TestUnknownTenantHostPassesThrough(t *testing.T) {
	store := newFakeStore()
	seedSite(store, "iu", "IU Official", nil)
	s := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "http://nobody.faneasy.kr/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	// The host names a tenant shape, but unknown slugs still resolve as
	// tenants by host; there is no site behind it, so 404.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInactiveSiteHidden(t *testing.T) {
	store := newFakeStore()
	site := seedSite(store, "iu", "IU Official", nil)
	site.IsActive = false
	s := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "http://iu.faneasy.kr/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSiteProvisionsDefaultPage(t *testing.T) {
	store := newFakeStore()
	seedSite(store, "agency", "Agency Root", nil)
	slug := "agency"
	owner := seedUser(store, "owner@example.com", models.RoleOwner, &slug, nil)
	s := newTestServer(store)

	rec := doJSON(t, s, http.MethodPost, "http://faneasy.kr/api/v1/sites", s.tokenFor(owner), map[string]string{
		"slug": "newbie",
		"name": "Newbie Site",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := store.sites["newbie"]
	require.NotNil(t, created)
	require.NotNil(t, created.ParentSiteID)
	assert.Equal(t, "agency", *created.ParentSiteID)

	page := store.pages["newbie"]
	require.NotNil(t, page)
	assert.Len(t, page.Blocks, 3)
}

func TestCreateSiteDuplicateSlug(t *testing.T) {
	store := newFakeStore()
	seedSite(store, "iu", "IU Official", nil)
	super := seedUser(store, "root@example.com", models.RoleSuperAdmin, nil, nil)
	s := newTestServer(store)

	rec := doJSON(t, s, http.MethodPost, "http://faneasy.kr/api/v1/sites", s.tokenFor(super), map[string]string{
		"slug": "iu",
		"name": "Copycat",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdatePageRequiresAdmin(t *testing.T) {
	store := newFakeStore()
	slug := "iu"
	seedSite(store, slug, "IU Official", nil)
	member := seedUser(store, "member@example.com", models.RoleUser, nil, &slug)
	admin := seedUser(store, "admin@example.com", models.RoleAdmin, &slug, nil)
	s := newTestServer(store)

	body := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{"type": "hero", "order": 1, "content": map[string]string{"title": "Hello"}},
		},
	}

	rec := doJSON(t, s, http.MethodPut, "http://faneasy.kr/api/v1/sites/iu/page", s.tokenFor(member), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "http://faneasy.kr/api/v1/sites/iu/page", s.tokenFor(admin), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, store.pages["iu"].Blocks, 1)
}

func TestPublicLeadSubmission(t *testing.T) {
	store := newFakeStore()
	parent := "agency"
	seedSite(store, parent, "Agency Root", nil)
	seedSite(store, "iu", "IU Official", &parent)
	s := newTestServer(store)

	rec := doJSON(t, s, http.MethodPost, "http://faneasy.kr/api/v1/leads", "", map[string]string{
		"siteId": "iu",
		"name":   "Kim Fan",
		"email":  "fan@example.com",
		"plan":   "premium",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, store.leads, 1)
	for _, lead := range store.leads {
		assert.Equal(t, "iu", lead.OwnerID)
		require.NotNil(t, lead.ParentInfluencerID)
		assert.Equal(t, "agency", *lead.ParentInfluencerID)
		assert.Equal(t, models.LeadStatusPending, lead.Status)
	}
}

func TestListLeadsScopes(t *testing.T) {
	store := newFakeStore()
	parent := "agency"
	seedSite(store, parent, "Agency Root", nil)
	seedSite(store, "iu", "IU Official", &parent)
	agencyOwner := seedUser(store, "agency@example.com", models.RoleOwner, &parent, nil)
	iuSlug := "iu"
	iuOwner := seedUser(store, "iu@example.com", models.RoleOwner, &iuSlug, nil)
	outsider := seedUser(store, "other@example.com", models.RoleUser, nil, nil)
	s := newTestServer(store)

	store.leads[uuid.New()] = &models.Lead{ID: uuid.New(), OwnerID: "iu", ParentInfluencerID: &parent, Email: "a@x.com", Status: models.LeadStatusPending}
	store.leads[uuid.New()] = &models.Lead{ID: uuid.New(), OwnerID: "agency", Email: "b@x.com", Status: models.LeadStatusPending}

	// Owner scope sees only the site's own leads.
	rec := doJSON(t, s, http.MethodGet, "http://faneasy.kr/api/v1/leads?site=iu", s.tokenFor(iuOwner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Leads []models.Lead `json:"leads"`
		Total int64         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.Total)

	// Parent scope rolls up attributed child leads.
	rec = doJSON(t, s, http.MethodGet, "http://faneasy.kr/api/v1/leads?site=agency&scope=parent", s.tokenFor(agencyOwner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.Total)

	// Unaffiliated callers are denied, not given an empty list.
	rec = doJSON(t, s, http.MethodGet, "http://faneasy.kr/api/v1/leads?site=iu", s.tokenFor(outsider), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAssignPartialFailureReported(t *testing.T) {
	store := newFakeStore()
	parent := "agency"
	seedSite(store, parent, "Agency Root", nil)
	seedSite(store, "iu", "IU Official", &parent)
	owner := seedUser(store, "agency@example.com", models.RoleOwner, &parent, nil)
	candidate := seedUser(store, "candidate@example.com", models.RoleUser, nil, &parent)
	s := newTestServer(store)

	store.userWriteErr = assert.AnError

	rec := doJSON(t, s, http.MethodPost, "http://faneasy.kr/api/v1/sites/iu/assign", s.tokenFor(owner), map[string]string{
		"kind":   "owner",
		"userId": candidate.ID.String(),
	})
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())

	var resp struct {
		SiteUpdated bool   `json:"siteUpdated"`
		Kind        string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.SiteUpdated)
	assert.Equal(t, "owner", resp.Kind)

	// The site half landed; a retry after the fault clears converges.
	store.userWriteErr = nil
	rec = doJSON(t, s, http.MethodPost, "http://faneasy.kr/api/v1/sites/iu/assign", s.tokenFor(owner), map[string]string{
		"kind":   "owner",
		"userId": candidate.ID.String(),
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	assert.Equal(t, models.RoleOwner, store.users[candidate.ID].Role)
	require.NotNil(t, store.sites["iu"].OwnerID)
	assert.Equal(t, candidate.ID, *store.sites["iu"].OwnerID)
}

func TestReservedPathsNeverTenantRouted(t *testing.T) {
	store := newFakeStore()
	seedSite(store, "iu", "IU Official", nil)
	s := newTestServer(store)

	// /api on a tenant host must reach the API, not the tenant page.
	req := httptest.NewRequest(http.MethodGet, "http://iu.faneasy.kr/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
}
