package api

import (
	"context"
	"fmt"

	"github.com/faneasy/faneasy-server/internal/feed"
	"github.com/faneasy/faneasy-server/internal/storage"
)

// Collection aliases for readability at call sites.
const (
	feedLeads    = feed.CollectionLeads
	feedUsers    = feed.CollectionUsers
	feedActivity = feed.CollectionActivity
)

const snapshotLimit = 200

// StoreQuerier loads full feed snapshots from the backing store. Every
// snapshot is a complete replacement view; consumers never merge.
type StoreQuerier struct {
	store storage.Store
}

// NewStoreQuerier creates a querier over the given store.
func NewStoreQuerier(store storage.Store) *StoreQuerier {
	return &StoreQuerier{store: store}
}

// Query implements feed.Querier.
func (q *StoreQuerier) Query(ctx context.Context, collection feed.Collection, scope feed.Scope) (interface{}, error) {
	switch collection {
	case feed.CollectionLeads:
		var filters storage.LeadFilters
		site := scope.SiteID
		if scope.Kind == feed.ScopeParent {
			filters.ParentID = &site
		} else {
			filters.OwnerID = &site
		}
		leads, _, err := q.store.ListLeads(ctx, filters, snapshotLimit, 0)
		return leads, err

	case feed.CollectionUsers:
		site := scope.SiteID
		users, _, err := q.store.ListUsers(ctx, storage.UserFilters{AffiliatedWith: &site}, snapshotLimit, 0)
		return users, err

	case feed.CollectionActivity:
		site := scope.SiteID
		entries, _, err := q.store.ListActivity(ctx, storage.ActivityFilters{Subdomain: &site}, snapshotLimit, 0)
		return entries, err
	}

	return nil, fmt.Errorf("unknown collection %q", collection)
}
