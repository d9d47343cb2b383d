package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's privilege level
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// rolePrivilege orders roles for gating. Higher wins.
var rolePrivilege = map[Role]int{
	RoleSuperAdmin: 4,
	RoleOwner:      3,
	RoleAdmin:      2,
	RoleUser:       1,
}

// AtLeast reports whether r carries at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return rolePrivilege[r] >= rolePrivilege[min]
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rolePrivilege[r]
	return ok
}

// User represents a platform user
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role Role `json:"role" db:"role"`

	// Subdomain is the site this user owns or administers. Only
	// meaningful when Role is owner or admin.
	Subdomain *string `json:"subdomain,omitempty" db:"subdomain"`

	// JoinedSite is the site this user is a member of. By convention a
	// user is not modeled as both owner and member of the same site.
	JoinedSite *string `json:"joinedSite,omitempty" db:"joined_site"`

	IsActive bool `json:"isActive" db:"is_active"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}

// AffiliatedWith reports whether the user is tied to the site either by
// ownership/administration or by membership.
func (u *User) AffiliatedWith(siteID string) bool {
	if u.Subdomain != nil && *u.Subdomain == siteID {
		return true
	}
	if u.JoinedSite != nil && *u.JoinedSite == siteID {
		return true
	}
	return false
}
