package hierarchy

import (
	"github.com/faneasy/faneasy-server/internal/models"
)

// NodeKind distinguishes site nodes from user leaves
type NodeKind string

const (
	NodeSite NodeKind = "site"
	NodeUser NodeKind = "user"
)

// TreeNode is one node of the site/user tree used by aggregate
// administration views.
type TreeNode struct {
	Kind     NodeKind    `json:"kind"`
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree assembles the administration tree rooted at rootSlug. Each
// child site (parentSiteId == rootSlug) becomes a site node carrying the
// users affiliated with it; users affiliated with the root that were not
// claimed by a child attach directly under the root. A user appears at
// most once.
func BuildTree(rootSlug string, children []models.Site, users []models.User) *TreeNode {
	root := &TreeNode{
		Kind: NodeSite,
		ID:   rootSlug,
		Name: rootSlug,
	}

	attached := make(map[string]bool, len(users))

	for _, site := range children {
		if site.ParentSiteID == nil || *site.ParentSiteID != rootSlug {
			continue
		}

		node := &TreeNode{
			Kind: NodeSite,
			ID:   site.ID,
			Name: site.Name,
		}

		for i := range users {
			u := &users[i]
			if attached[u.ID.String()] || !u.AffiliatedWith(site.ID) {
				continue
			}
			node.Children = append(node.Children, userNode(u))
			attached[u.ID.String()] = true
		}

		root.Children = append(root.Children, node)
	}

	for i := range users {
		u := &users[i]
		if attached[u.ID.String()] || !u.AffiliatedWith(rootSlug) {
			continue
		}
		root.Children = append(root.Children, userNode(u))
		attached[u.ID.String()] = true
	}

	return root
}

func userNode(u *models.User) *TreeNode {
	return &TreeNode{
		Kind: NodeUser,
		ID:   u.ID.String(),
		Name: u.Name,
		Role: u.Role,
	}
}
