package hierarchy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faneasy/faneasy-server/internal/models"
)

func strptr(s string) *string { return &s }

func TestBuildTree_AttachesUsersToChildSites(t *testing.T) {
	children := []models.Site{
		{ID: "iu", Name: "IU", ParentSiteID: strptr("agency")},
		{ID: "karina", Name: "Karina", ParentSiteID: strptr("agency")},
		{ID: "other", Name: "Other", ParentSiteID: strptr("elsewhere")},
	}

	ownerOfIU := models.User{ID: uuid.New(), Name: "IU Owner", Role: models.RoleOwner, Subdomain: strptr("iu")}
	fanOfIU := models.User{ID: uuid.New(), Name: "IU Fan", Role: models.RoleUser, JoinedSite: strptr("iu")}
	fanOfKarina := models.User{ID: uuid.New(), Name: "Karina Fan", Role: models.RoleUser, JoinedSite: strptr("karina")}
	agencyMember := models.User{ID: uuid.New(), Name: "Agency Member", Role: models.RoleUser, JoinedSite: strptr("agency")}
	unrelated := models.User{ID: uuid.New(), Name: "Unrelated", Role: models.RoleUser}

	tree := BuildTree("agency", children, []models.User{ownerOfIU, fanOfIU, fanOfKarina, agencyMember, unrelated})

	require.Equal(t, "agency", tree.ID)
	// Two child sites under agency plus one direct agency member.
	require.Len(t, tree.Children, 3)

	iuNode := tree.Children[0]
	assert.Equal(t, "iu", iuNode.ID)
	require.Len(t, iuNode.Children, 2)
	assert.Equal(t, NodeUser, iuNode.Children[0].Kind)
	assert.Equal(t, ownerOfIU.ID.String(), iuNode.Children[0].ID)
	assert.Equal(t, models.RoleOwner, iuNode.Children[0].Role)

	karinaNode := tree.Children[1]
	require.Len(t, karinaNode.Children, 1)
	assert.Equal(t, fanOfKarina.ID.String(), karinaNode.Children[0].ID)

	direct := tree.Children[2]
	assert.Equal(t, NodeUser, direct.Kind)
	assert.Equal(t, agencyMember.ID.String(), direct.ID)
}

func TestBuildTree_UserAttachedOnce(t *testing.T) {
	children := []models.Site{
		{ID: "iu", Name: "IU", ParentSiteID: strptr("agency")},
	}

	// Owns "iu" and is also a member of the root; the child attachment
	// must win and the user must not reappear under the root.
	both := models.User{ID: uuid.New(), Name: "Both", Role: models.RoleOwner, Subdomain: strptr("iu"), JoinedSite: strptr("agency")}

	tree := BuildTree("agency", children, []models.User{both})

	require.Len(t, tree.Children, 1)
	iuNode := tree.Children[0]
	require.Len(t, iuNode.Children, 1)
	assert.Equal(t, both.ID.String(), iuNode.Children[0].ID)
}

func TestBuildTree_EmptyInputs(t *testing.T) {
	tree := BuildTree("agency", nil, nil)

	require.NotNil(t, tree)
	assert.Equal(t, NodeSite, tree.Kind)
	assert.Empty(t, tree.Children)
}
