package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/faneasy/faneasy-server/internal/models"
)

// Common errors
var (
	ErrForbidden        = errors.New("forbidden")
	ErrCandidateOutside = errors.New("candidate not affiliated with parent site")
)

// AssignKind selects what is being granted
type AssignKind string

const (
	AssignOwner AssignKind = "owner"
	AssignAdmin AssignKind = "admin"
)

// AssignError reports a partially applied assignment. The two documents
// are written without a transaction; SiteUpdated tells the caller which
// half succeeded so an idempotent retry can finish the job.
type AssignError struct {
	Kind        AssignKind
	Target      string
	SiteUpdated bool
	Err         error
}

func (e *AssignError) Error() string {
	stage := "site write"
	if e.SiteUpdated {
		stage = "user write"
	}
	return fmt.Sprintf("assign %s on %s: %s failed: %v", e.Kind, e.Target, stage, e.Err)
}

func (e *AssignError) Unwrap() error { return e.Err }

// Store is the subset of storage the assigner needs.
type Store interface {
	GetSite(ctx context.Context, id string) (*models.Site, error)
	UpdateSite(ctx context.Context, site *models.Site) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	CreateActivityEntry(ctx context.Context, entry *models.ActivityEntry) error
}

// Assigner performs owner/admin grants across the site tree.
type Assigner struct {
	store Store
}

// NewAssigner creates an assigner backed by the given store.
func NewAssigner(store Store) *Assigner {
	return &Assigner{store: store}
}

// Assign grants ownership or admin rights over targetSlug to candidateID.
//
// Authorization: the caller must be a super admin or own a site on the
// target's ancestor chain (the target itself counts for admin grants).
// The candidate must already be affiliated with the target's parent site;
// arbitrary users cannot be promoted.
//
// The grant is two writes, site first then user. Both writes are
// idempotent, so a partial failure is reported as *AssignError and the
// caller retries the whole operation safely.
func (a *Assigner) Assign(ctx context.Context, caller *models.User, kind AssignKind, targetSlug string, candidateID uuid.UUID) error {
	if kind != AssignOwner && kind != AssignAdmin {
		return fmt.Errorf("unknown assignment kind %q", kind)
	}

	target, err := a.store.GetSite(ctx, targetSlug)
	if err != nil {
		return fmt.Errorf("load target site: %w", err)
	}

	if err := a.authorize(ctx, caller, target); err != nil {
		return err
	}

	candidate, err := a.store.GetUser(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}

	poolSite := target.ID
	if target.ParentSiteID != nil {
		poolSite = *target.ParentSiteID
	}
	if !candidate.AffiliatedWith(poolSite) && !candidate.AffiliatedWith(target.ID) {
		return ErrCandidateOutside
	}

	// Site-side write.
	switch kind {
	case AssignOwner:
		target.OwnerID = &candidate.ID
	case AssignAdmin:
		target.AddAdmin(candidate.ID)
	}
	if err := a.store.UpdateSite(ctx, target); err != nil {
		return &AssignError{Kind: kind, Target: target.ID, SiteUpdated: false, Err: err}
	}

	// User-side write. Promotion replaces membership with ownership
	// affiliation so the two fields never end up both set.
	sub := target.ID
	candidate.Subdomain = &sub
	candidate.JoinedSite = nil
	if kind == AssignOwner {
		candidate.Role = models.RoleOwner
	} else if candidate.Role != models.RoleOwner && candidate.Role != models.RoleSuperAdmin {
		candidate.Role = models.RoleAdmin
	}
	if err := a.store.UpdateUser(ctx, candidate); err != nil {
		return &AssignError{Kind: kind, Target: target.ID, SiteUpdated: true, Err: err}
	}

	a.logAssignment(ctx, caller, kind, target, candidate)

	return nil
}

// authorize checks the caller against the target's ancestor chain.
func (a *Assigner) authorize(ctx context.Context, caller *models.User, target *models.Site) error {
	if caller == nil {
		return ErrForbidden
	}
	if caller.Role == models.RoleSuperAdmin {
		return nil
	}
	if caller.Role != models.RoleOwner || caller.Subdomain == nil {
		return ErrForbidden
	}

	owned := *caller.Subdomain
	for site := target; site != nil; {
		if site.ID == owned {
			return nil
		}
		if site.ParentSiteID == nil {
			break
		}
		parent, err := a.store.GetSite(ctx, *site.ParentSiteID)
		if err != nil {
			return fmt.Errorf("walk ancestor chain: %w", err)
		}
		site = parent
	}

	return ErrForbidden
}

func (a *Assigner) logAssignment(ctx context.Context, caller *models.User, kind AssignKind, target *models.Site, candidate *models.User) {
	entryType := models.ActivityTypeAdminAssigned
	if kind == AssignOwner {
		entryType = models.ActivityTypeOwnerAssigned
	}

	entry := &models.ActivityEntry{
		Type:      entryType,
		UserID:    caller.ID,
		UserName:  caller.Name,
		UserEmail: caller.Email,
		Action:    fmt.Sprintf("assigned %s", kind),
		Target:    candidate.Email,
		Subdomain: target.ID,
	}

	if err := a.store.CreateActivityEntry(ctx, entry); err != nil {
		log.Error().Err(err).Str("site", target.ID).Msg("Failed to record assignment activity")
	}
}
