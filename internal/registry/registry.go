package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const slugCacheKey = "platform:site-slugs"

// SlugLister loads the registered slug set from the backing store.
type SlugLister interface {
	ListSiteSlugs(ctx context.Context) ([]string, error)
}

// Registry serves the registered tenant slug set to the resolver. Reads
// go through a Redis cache with a short TTL; a cache failure degrades to
// a direct store read, never to a request failure.
type Registry struct {
	store SlugLister
	rdb   *redis.Client
	ttl   time.Duration
}

// New creates a registry. rdb may be nil, in which case every read hits
// the store directly.
func New(store SlugLister, rdb *redis.Client, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Registry{store: store, rdb: rdb, ttl: ttl}
}

// KnownSlugs returns the registered tenant slug set.
func (r *Registry) KnownSlugs(ctx context.Context) (map[string]bool, error) {
	if r.rdb != nil {
		cached, err := r.rdb.Get(ctx, slugCacheKey).Result()
		if err == nil {
			var slugs []string
			if err := json.Unmarshal([]byte(cached), &slugs); err == nil {
				return toSet(slugs), nil
			}
		} else if err != redis.Nil {
			log.Warn().Err(err).Msg("Slug cache read failed, falling back to store")
		}
	}

	slugs, err := r.store.ListSiteSlugs(ctx)
	if err != nil {
		return nil, err
	}

	if r.rdb != nil {
		data, _ := json.Marshal(slugs)
		if err := r.rdb.Set(ctx, slugCacheKey, data, r.ttl).Err(); err != nil {
			log.Warn().Err(err).Msg("Slug cache write failed")
		}
	}

	return toSet(slugs), nil
}

// Invalidate drops the cached slug set. Called after site create/delete
// so the resolver picks up registry changes before the TTL lapses.
func (r *Registry) Invalidate(ctx context.Context) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Del(ctx, slugCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("Slug cache invalidation failed")
	}
}

func toSet(slugs []string) map[string]bool {
	set := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		set[s] = true
	}
	return set
}
