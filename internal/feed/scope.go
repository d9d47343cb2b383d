package feed

import (
	"errors"
	"fmt"

	"github.com/faneasy/faneasy-server/internal/models"
)

// ErrForbidden signals that the caller may not read the requested scope.
// It is an explicit denial, never an empty snapshot.
var ErrForbidden = errors.New("scope not permitted for caller")

// Collection names a tenant-filtered live collection
type Collection string

const (
	CollectionLeads    Collection = "leads"
	CollectionUsers    Collection = "users"
	CollectionActivity Collection = "activity"
)

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionLeads, CollectionUsers, CollectionActivity:
		return true
	}
	return false
}

// ScopeKind selects the filtering predicate
type ScopeKind string

const (
	// ScopeOwner matches entries owned by exactly one site.
	ScopeOwner ScopeKind = "owner"
	// ScopeParent matches a site's own entries plus those of its
	// children where explicitly attributed upward.
	ScopeParent ScopeKind = "parent"
	// ScopeRole pins a non-super-admin caller to their own subdomain.
	ScopeRole ScopeKind = "role"
)

// Scope is one tenant-filtering predicate
type Scope struct {
	Kind   ScopeKind `json:"kind"`
	SiteID string    `json:"siteId"`
}

// OwnerScope filters to entries owned by siteID.
func OwnerScope(siteID string) Scope { return Scope{Kind: ScopeOwner, SiteID: siteID} }

// ParentScope filters to siteID's entries plus attributed child entries.
func ParentScope(siteID string) Scope { return Scope{Kind: ScopeParent, SiteID: siteID} }

// RoleScope filters to the caller's own subdomain.
func RoleScope(siteID string) Scope { return Scope{Kind: ScopeRole, SiteID: siteID} }

// Key is the stable identity of the scope, used for subscription
// bookkeeping and NATS subjects.
func (s Scope) Key() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.SiteID)
}

// Matches reports whether a change event for eventSite is relevant to the
// scope. Parent scopes always re-query because attribution of child
// entries is only known to the store.
func (s Scope) Matches(eventSite string) bool {
	switch s.Kind {
	case ScopeParent:
		return true
	default:
		return s.SiteID == eventSite
	}
}

// Authorize checks whether user may subscribe to scope. Super admins see
// everything; everyone else is limited to the site they own, administer,
// or joined.
func Authorize(user *models.User, scope Scope) error {
	if user == nil {
		return ErrForbidden
	}
	if user.Role == models.RoleSuperAdmin {
		return nil
	}
	if user.AffiliatedWith(scope.SiteID) {
		return nil
	}
	return ErrForbidden
}
