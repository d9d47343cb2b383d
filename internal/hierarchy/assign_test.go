package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faneasy/faneasy-server/internal/models"
)

type fakeStore struct {
	sites map[string]*models.Site
	users map[uuid.UUID]*models.User

	siteWriteErr error
	userWriteErr error

	activity []models.ActivityEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sites: make(map[string]*models.Site),
		users: make(map[uuid.UUID]*models.User),
	}
}

func (f *fakeStore) GetSite(_ context.Context, id string) (*models.Site, error) {
	s, ok := f.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %s: not found", id)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) UpdateSite(_ context.Context, site *models.Site) error {
	if f.siteWriteErr != nil {
		return f.siteWriteErr
	}
	cp := *site
	f.sites[site.ID] = &cp
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: not found", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, user *models.User) error {
	if f.userWriteErr != nil {
		return f.userWriteErr
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeStore) CreateActivityEntry(_ context.Context, entry *models.ActivityEntry) error {
	f.activity = append(f.activity, *entry)
	return nil
}

func seed(f *fakeStore) (caller *models.User, candidate *models.User) {
	parent := "agency"
	f.sites["agency"] = &models.Site{ID: "agency", Name: "Agency"}
	f.sites["iu"] = &models.Site{ID: "iu", Name: "IU", ParentSiteID: &parent}

	caller = &models.User{ID: uuid.New(), Email: "boss@agency.kr", Name: "Boss", Role: models.RoleOwner, Subdomain: strptr("agency")}
	candidate = &models.User{ID: uuid.New(), Email: "fan@agency.kr", Name: "Fan", Role: models.RoleUser, JoinedSite: strptr("agency")}

	f.users[caller.ID] = caller
	f.users[candidate.ID] = candidate
	return caller, candidate
}

func TestAssign_OwnerHappyPath(t *testing.T) {
	store := newFakeStore()
	caller, candidate := seed(store)
	a := NewAssigner(store)

	err := a.Assign(context.Background(), caller, AssignOwner, "iu", candidate.ID)
	require.NoError(t, err)

	site := store.sites["iu"]
	require.NotNil(t, site.OwnerID)
	assert.Equal(t, candidate.ID, *site.OwnerID)

	u := store.users[candidate.ID]
	assert.Equal(t, models.RoleOwner, u.Role)
	require.NotNil(t, u.Subdomain)
	assert.Equal(t, "iu", *u.Subdomain)
	assert.Nil(t, u.JoinedSite)

	require.Len(t, store.activity, 1)
	assert.Equal(t, models.ActivityTypeOwnerAssigned, store.activity[0].Type)
	assert.Equal(t, "iu", store.activity[0].Subdomain)
}

func TestAssign_OwnerIsIdempotent(t *testing.T) {
	store := newFakeStore()
	caller, candidate := seed(store)
	a := NewAssigner(store)

	require.NoError(t, a.Assign(context.Background(), caller, AssignOwner, "iu", candidate.ID))
	siteAfterFirst := *store.sites["iu"]
	userAfterFirst := *store.users[candidate.ID]

	require.NoError(t, a.Assign(context.Background(), caller, AssignOwner, "iu", candidate.ID))

	assert.Equal(t, siteAfterFirst.OwnerID, store.sites["iu"].OwnerID)
	assert.Equal(t, userAfterFirst.Role, store.users[candidate.ID].Role)
	assert.Equal(t, userAfterFirst.Subdomain, store.users[candidate.ID].Subdomain)
}

func TestAssign_OwnerReplacesPriorOwner(t *testing.T) {
	store := newFakeStore()
	caller, candidate := seed(store)
	prior := uuid.New()
	store.sites["iu"].OwnerID = &prior
	a := NewAssigner(store)

	require.NoError(t, a.Assign(context.Background(), caller, AssignOwner, "iu", candidate.ID))

	assert.Equal(t, candidate.ID, *store.sites["iu"].OwnerID)
}

func TestAssign_AdminSetUnionNoDuplicates(t *testing.T) {
	store := newFakeStore()
	caller, candidate := seed(store)
	a := NewAssigner(store)

	require.NoError(t, a.Assign(context.Background(), caller, AssignAdmin, "iu", candidate.ID))
	require.NoError(t, a.Assign(context.Background(), caller, AssignAdmin, "iu", candidate.ID))

	site := store.sites["iu"]
	assert.Equal(t, models.StringArray{candidate.ID.String()}, site.AdminIDs)

	u := store.users[candidate.ID]
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "iu", *u.Subdomain)
}

func TestAssign_SuperAdminBypassesOwnershipCheck(t *testing.T) {
	store := newFakeStore()
	_, candidate := seed(store)
	super := &models.User{ID: uuid.New(), Email: "root@faneasy.kr", Role: models.RoleSuperAdmin}
	a := NewAssigner(store)

	require.NoError(t, a.Assign(context.Background(), super, AssignAdmin, "iu", candidate.ID))
}

func TestAssign_ForbiddenForUnrelatedOwner(t *testing.T) {
	store := newFakeStore()
	_, candidate := seed(store)
	store.sites["rival"] = &models.Site{ID: "rival", Name: "Rival"}
	outsider := &models.User{ID: uuid.New(), Role: models.RoleOwner, Subdomain: strptr("rival")}
	a := NewAssigner(store)

	err := a.Assign(context.Background(), outsider, AssignOwner, "iu", candidate.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAssign_ForbiddenForPlainUser(t *testing.T) {
	store := newFakeStore()
	_, candidate := seed(store)
	nobody := &models.User{ID: uuid.New(), Role: models.RoleUser}
	a := NewAssigner(store)

	err := a.Assign(context.Background(), nobody, AssignOwner, "iu", candidate.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAssign_CandidateMustBeParentAffiliated(t *testing.T) {
	store := newFakeStore()
	caller, _ := seed(store)
	stranger := &models.User{ID: uuid.New(), Email: "x@y.z", Role: models.RoleUser}
	store.users[stranger.ID] = stranger
	a := NewAssigner(store)

	err := a.Assign(context.Background(), caller, AssignAdmin, "iu", stranger.ID)
	assert.ErrorIs(t, err, ErrCandidateOutside)
}

func TestAssign_PartialFailureReportsStage(t *testing.T) {
	store := newFakeStore()
	caller, candidate := seed(store)
	store.userWriteErr = errors.New("connection reset")
	a := NewAssigner(store)

	err := a.Assign(context.Background(), caller, AssignOwner, "iu", candidate.ID)
	require.Error(t, err)

	var ae *AssignError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.SiteUpdated)
	assert.Equal(t, AssignOwner, ae.Kind)

	// Retry after the transient failure clears must converge.
	store.userWriteErr = nil
	require.NoError(t, a.Assign(context.Background(), caller, AssignOwner, "iu", candidate.ID))
	assert.Equal(t, candidate.ID, *store.sites["iu"].OwnerID)
	assert.Equal(t, models.RoleOwner, store.users[candidate.ID].Role)
}

func TestAssign_SiteWriteFailureReportsStage(t *testing.T) {
	store := newFakeStore()
	caller, candidate := seed(store)
	store.siteWriteErr = errors.New("deadline exceeded")
	a := NewAssigner(store)

	err := a.Assign(context.Background(), caller, AssignOwner, "iu", candidate.ID)

	var ae *AssignError
	require.ErrorAs(t, err, &ae)
	assert.False(t, ae.SiteUpdated)
}
