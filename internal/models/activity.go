package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType represents activity log entry types
type ActivityType string

const (
	ActivityTypeLogin         ActivityType = "LOGIN"
	ActivityTypeSiteCreated   ActivityType = "SITE_CREATED"
	ActivityTypeSiteDeleted   ActivityType = "SITE_DELETED"
	ActivityTypePageUpdated   ActivityType = "PAGE_UPDATED"
	ActivityTypeLeadCreated   ActivityType = "LEAD_CREATED"
	ActivityTypeLeadUpdated   ActivityType = "LEAD_UPDATED"
	ActivityTypeOwnerAssigned ActivityType = "OWNER_ASSIGNED"
	ActivityTypeAdminAssigned ActivityType = "ADMIN_ASSIGNED"
)

// ActivityEntry is one append-only audit record. Entries are never mutated
// or deleted.
type ActivityEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Type ActivityType `json:"type" db:"type"`

	UserID    uuid.UUID `json:"userId" db:"user_id"`
	UserName  string    `json:"userName" db:"user_name"`
	UserEmail string    `json:"userEmail" db:"user_email"`

	Action string `json:"action" db:"action"`
	Target string `json:"target" db:"target"`

	// Subdomain is the visibility scope key for tenant-filtered views.
	Subdomain string `json:"subdomain" db:"subdomain"`

	Details Variables `json:"details,omitempty" db:"details"`
}
