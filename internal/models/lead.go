package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus represents the handling state of a lead
type LeadStatus string

const (
	LeadStatusPending   LeadStatus = "pending"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusCompleted LeadStatus = "completed"
)

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusPending, LeadStatusContacted, LeadStatusCompleted:
		return true
	}
	return false
}

// Lead represents a prospective-customer submission scoped to its owning
// site. Leads are never deleted; audit retention.
type Lead struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// OwnerID is the slug of the site that owns the lead.
	OwnerID string `json:"ownerId" db:"owner_id"`

	// ParentInfluencerID attributes a sub-tenant's lead up to its parent
	// site for roll-up views.
	ParentInfluencerID *string `json:"parentInfluencerId,omitempty" db:"parent_influencer_id"`

	Name    string `json:"name" db:"name"`
	Email   string `json:"email" db:"email"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Message string `json:"message,omitempty" db:"message"`
	Plan    string `json:"plan,omitempty" db:"plan"`

	Status LeadStatus `json:"status" db:"status"`
}
