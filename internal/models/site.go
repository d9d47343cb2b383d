package models

import (
	"time"

	"github.com/google/uuid"
)

// Site represents one creator tenant. The ID is the tenant slug used in
// hostnames and rewritten paths.
type Site struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Name string `json:"name" db:"name"`

	// ParentSiteID links a sub-tenant to its root tenant. Root tenants
	// have none. The reference graph must stay acyclic.
	ParentSiteID *string `json:"parentSiteId,omitempty" db:"parent_site_id"`

	// OwnerID holds at most one owning user.
	OwnerID *uuid.UUID `json:"ownerId,omitempty" db:"owner_id"`

	// AdminIDs is the set of admin user ids (string-encoded UUIDs).
	AdminIDs StringArray `json:"adminIds" db:"admin_ids"`

	IsActive bool `json:"isActive" db:"is_active"`

	Settings Variables `json:"settings" db:"settings"`
}

// HasAdmin reports whether the user is in the admin set.
func (s *Site) HasAdmin(userID uuid.UUID) bool {
	return s.AdminIDs.Contains(userID.String())
}

// AddAdmin adds the user to the admin set. Idempotent.
func (s *Site) AddAdmin(userID uuid.UUID) {
	if !s.HasAdmin(userID) {
		s.AdminIDs = append(s.AdminIDs, userID.String())
	}
}
