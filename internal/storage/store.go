package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/faneasy/faneasy-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Store defines the storage interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Site methods
	CreateSite(ctx context.Context, site *models.Site) error
	GetSite(ctx context.Context, id string) (*models.Site, error)
	UpdateSite(ctx context.Context, site *models.Site) error
	DeleteSite(ctx context.Context, id string) error
	ListSites(ctx context.Context, parentID *string, limit, offset int) ([]*models.Site, int64, error)
	ListSiteSlugs(ctx context.Context) ([]string, error)

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, filters UserFilters, limit, offset int) ([]*models.User, int64, error)

	// Page methods
	GetPage(ctx context.Context, siteID string) (*models.PageDocument, error)
	SavePage(ctx context.Context, page *models.PageDocument) error
	DeletePage(ctx context.Context, siteID string) error

	// Lead methods. Leads are append-only apart from status updates.
	CreateLead(ctx context.Context, lead *models.Lead) error
	GetLead(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	UpdateLeadStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) error
	ListLeads(ctx context.Context, filters LeadFilters, limit, offset int) ([]*models.Lead, int64, error)

	// Activity methods. Entries are append-only.
	CreateActivityEntry(ctx context.Context, entry *models.ActivityEntry) error
	ListActivity(ctx context.Context, filters ActivityFilters, limit, offset int) ([]*models.ActivityEntry, int64, error)

	// Close the store
	Close() error
}

// UserFilters represents filters for user listings
type UserFilters struct {
	// AffiliatedWith matches users whose subdomain or joined site equals
	// the given slug.
	AffiliatedWith *string
	Role           *models.Role
}

// LeadFilters represents filters for lead listings
type LeadFilters struct {
	// OwnerID matches leads owned by exactly one site.
	OwnerID *string
	// ParentID matches a site's own leads plus child leads attributed to
	// it via parent_influencer_id.
	ParentID  *string
	Status    *models.LeadStatus
	StartTime *time.Time
	EndTime   *time.Time
}

// ActivityFilters represents filters for activity listings
type ActivityFilters struct {
	Subdomain *string
	Type      *models.ActivityType
	UserID    *uuid.UUID
	StartTime *time.Time
	EndTime   *time.Time
}
