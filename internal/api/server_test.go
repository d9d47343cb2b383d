package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/faneasy/faneasy-server/internal/config"
	"github.com/faneasy/faneasy-server/internal/feed"
	"github.com/faneasy/faneasy-server/internal/intake"
	"github.com/faneasy/faneasy-server/internal/models"
	"github.com/faneasy/faneasy-server/internal/registry"
	"github.com/faneasy/faneasy-server/internal/storage"
)

// stubBus satisfies feed.Bus without a broker.
type stubBus struct{}

func (stubBus) Subscribe(subject string, handler func([]byte)) (func() error, error) {
	return func() error { return nil }, nil
}

func (stubBus) Publish(subject string, data []byte) error { return nil }

// fakeStore is an in-memory storage.Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	sites    map[string]*models.Site
	users    map[uuid.UUID]*models.User
	pages    map[string]*models.PageDocument
	leads    map[uuid.UUID]*models.Lead
	activity []*models.ActivityEntry

	siteWriteErr error
	userWriteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sites: make(map[string]*models.Site),
		users: make(map[uuid.UUID]*models.User),
		pages: make(map[string]*models.PageDocument),
		leads: make(map[uuid.UUID]*models.Lead),
	}
}

func (f *fakeStore) BeginTx(ctx context.Context) (storage.Store, error) { return f, nil }
func (f *fakeStore) Commit() error                                      { return nil }
func (f *fakeStore) Rollback() error                                    { return nil }
func (f *fakeStore) Close() error                                       { return nil }

func (f *fakeStore) CreateSite(ctx context.Context, site *models.Site) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sites[site.ID]; ok {
		return storage.ErrDuplicateKey
	}
	f.sites[site.ID] = site
	return nil
}

func (f *fakeStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	site, ok := f.sites[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *site
	return &cp, nil
}

func (f *fakeStore) UpdateSite(ctx context.Context, site *models.Site) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.siteWriteErr != nil {
		return f.siteWriteErr
	}
	if _, ok := f.sites[site.ID]; !ok {
		return storage.ErrNotFound
	}
	f.sites[site.ID] = site
	return nil
}

func (f *fakeStore) DeleteSite(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sites[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.sites, id)
	return nil
}

func (f *fakeStore) ListSites(ctx context.Context, parentID *string, limit, offset int) ([]*models.Site, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Site
	for _, site := range f.sites {
		if parentID != nil {
			if site.ParentSiteID == nil || *site.ParentSiteID != *parentID {
				continue
			}
		}
		cp := *site
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) ListSiteSlugs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slugs := make([]string, 0, len(f.sites))
	for id := range f.sites {
		slugs = append(slugs, id)
	}
	return slugs, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return storage.ErrDuplicateKey
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) UpdateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userWriteErr != nil {
		return f.userWriteErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) ListUsers(ctx context.Context, filters storage.UserFilters, limit, offset int) ([]*models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.users {
		if filters.AffiliatedWith != nil && !u.AffiliatedWith(*filters.AffiliatedWith) {
			continue
		}
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) GetPage(ctx context.Context, siteID string) (*models.PageDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page, ok := f.pages[siteID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *page
	return &cp, nil
}

func (f *fakeStore) SavePage(ctx context.Context, page *models.PageDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[page.SiteID] = page
	return nil
}

func (f *fakeStore) DeletePage(ctx context.Context, siteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pages, siteID)
	return nil
}

func (f *fakeStore) CreateLead(ctx context.Context, lead *models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead.CreatedAt = time.Now()
	f.leads[lead.ID] = lead
	return nil
}

func (f *fakeStore) GetLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *lead
	return &cp, nil
}

func (f *fakeStore) UpdateLeadStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return storage.ErrNotFound
	}
	lead.Status = status
	return nil
}

func (f *fakeStore) ListLeads(ctx context.Context, filters storage.LeadFilters, limit, offset int) ([]*models.Lead, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Lead
	for _, l := range f.leads {
		if filters.OwnerID != nil && l.OwnerID != *filters.OwnerID {
			continue
		}
		if filters.ParentID != nil {
			attributed := l.OwnerID == *filters.ParentID ||
				(l.ParentInfluencerID != nil && *l.ParentInfluencerID == *filters.ParentID)
			if !attributed {
				continue
			}
		}
		if filters.Status != nil && l.Status != *filters.Status {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) CreateActivityEntry(ctx context.Context, entry *models.ActivityEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, entry)
	return nil
}

func (f *fakeStore) ListActivity(ctx context.Context, filters storage.ActivityFilters, limit, offset int) ([]*models.ActivityEntry, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ActivityEntry
	for _, e := range f.activity {
		if filters.Subdomain != nil && e.Subdomain != *filters.Subdomain {
			continue
		}
		if filters.Type != nil && e.Type != *filters.Type {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

// newTestServer wires a server over the fake store with no external
// dependencies.
func newTestServer(store *fakeStore) *RESTServer {
	cfg := &config.Config{}
	cfg.Server.Name = "faneasy-server-test"
	cfg.JWT = config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	cfg.Routing = config.RoutingConfig{
		RootDomains:      []string{"faneasy.kr"},
		ReservedPrefixes: []string{"/admin", "/api", "/auth", "/sites", "/static"},
		SitePrefix:       "/sites",
	}

	reg := registry.New(store, nil, time.Second)
	hub := feed.NewHub(stubBus{}, NewStoreQuerier(store))
	fwd := intake.NewForwarder("", time.Second)

	return NewRESTServer(cfg, store, reg, hub, fwd)
}

func (s *RESTServer) tokenFor(user *models.User) string {
	access, _, _ := s.auth.GenerateTokenPair(user)
	return access
}
