package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Querier loads a full snapshot of a scoped collection. Consumers always
// replace their view with the newest snapshot; the hub never emits deltas.
type Querier interface {
	Query(ctx context.Context, collection Collection, scope Scope) (interface{}, error)
}

// Snapshot is one full view of a scoped collection
type Snapshot struct {
	Collection Collection  `json:"collection"`
	Scope      string      `json:"scope"`
	TakenAt    time.Time   `json:"takenAt"`
	Items      interface{} `json:"items"`
}

// changeEvent is the wire form published after each relevant write.
type changeEvent struct {
	SiteID string `json:"siteId"`
}

// Subscription is one live, cancellable server-push stream. Events for
// its scope arrive in server-assigned order; no ordering is guaranteed
// across subscriptions.
type Subscription struct {
	// C delivers full snapshots, the first one immediately on subscribe.
	C <-chan Snapshot

	ch        chan Snapshot
	key       string
	scope     Scope
	closeOnce sync.Once
	unsub     func() error
	hub       *Hub

	mu     sync.Mutex
	closed bool
	last   Snapshot
}

// Cancel tears the subscription down and closes C. Must be invoked on
// view teardown or scope change; leaking a subscription keeps background
// work and stale-scope emissions alive.
func (s *Subscription) Cancel() {
	s.closeOnce.Do(func() {
		if s.unsub != nil {
			if err := s.unsub(); err != nil {
				log.Warn().Err(err).Str("key", s.key).Msg("Failed to unsubscribe from bus")
			}
		}
		s.hub.remove(s.key, s)

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// Last returns the most recently delivered snapshot. On transport errors
// consumers fall back to this instead of clearing their view.
func (s *Subscription) Last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Hub manages tenant-scoped live subscriptions over a change bus. It
// guarantees at most one active subscription per (consumer, collection):
// subscribing again with a different scope tears the prior stream down
// first.
type Hub struct {
	bus     Bus
	querier Querier

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewHub creates a hub over the given bus and snapshot loader.
func NewHub(bus Bus, querier Querier) *Hub {
	return &Hub{
		bus:     bus,
		querier: querier,
		subs:    make(map[string]*Subscription),
	}
}

// Subscribe opens a stream of full snapshots for one scoped collection.
// The first snapshot is loaded synchronously; if that load fails the
// subscription is not established.
func (h *Hub) Subscribe(ctx context.Context, consumerID string, collection Collection, scope Scope) (*Subscription, error) {
	if !collection.Valid() {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	key := consumerID + "/" + string(collection)

	h.mu.Lock()
	prior := h.subs[key]
	h.mu.Unlock()
	if prior != nil {
		prior.Cancel()
	}

	sub := &Subscription{
		ch:    make(chan Snapshot, 8),
		key:   key,
		scope: scope,
		hub:   h,
	}
	sub.C = sub.ch

	first, err := h.querier.Query(ctx, collection, scope)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	sub.emit(Snapshot{
		Collection: collection,
		Scope:      scope.Key(),
		TakenAt:    time.Now(),
		Items:      first,
	})

	subject := fmt.Sprintf("feed.%s.*", collection)
	unsub, err := h.bus.Subscribe(subject, func(data []byte) {
		h.onChange(ctx, sub, collection, data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	sub.unsub = unsub

	h.mu.Lock()
	h.subs[key] = sub
	h.mu.Unlock()

	log.Debug().
		Str("consumer", consumerID).
		Str("collection", string(collection)).
		Str("scope", scope.Key()).
		Msg("Feed subscription established")

	return sub, nil
}

// Notify publishes a change event for one site's collection. Callers
// invoke it after every relevant write.
func (h *Hub) Notify(collection Collection, siteID string) {
	data, _ := json.Marshal(changeEvent{SiteID: siteID})
	subject := fmt.Sprintf("feed.%s.%s", collection, siteID)
	if err := h.bus.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish change event")
	}
}

// onChange re-queries and emits a fresh snapshot. A query failure keeps
// the last successfully delivered snapshot in place.
func (h *Hub) onChange(ctx context.Context, sub *Subscription, collection Collection, data []byte) {
	var ev changeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Warn().Err(err).Msg("Malformed change event")
		return
	}
	if !sub.scope.Matches(ev.SiteID) {
		return
	}

	items, err := h.querier.Query(ctx, collection, sub.scope)
	if err != nil {
		log.Error().Err(err).
			Str("collection", string(collection)).
			Str("scope", sub.scope.Key()).
			Msg("Snapshot refresh failed, keeping last known state")
		return
	}

	sub.emit(Snapshot{
		Collection: collection,
		Scope:      sub.scope.Key(),
		TakenAt:    time.Now(),
		Items:      items,
	})
}

// emit delivers without blocking. A slow consumer loses the oldest
// snapshot; full-replace semantics make skipping safe.
func (s *Subscription) emit(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.last = snap

	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (h *Hub) remove(key string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == sub {
		delete(h.subs, key)
	}
}
