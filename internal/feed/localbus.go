package feed

import (
	"strings"
	"sync"
)

// LocalBus is an in-process Bus for single-node deployments running
// without a broker. Handlers run synchronously on the publisher's
// goroutine.
type LocalBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]localSub
}

type localSub struct {
	subject string
	handler func([]byte)
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]localSub)}
}

// Subscribe implements Bus. The subject may use single-token wildcards
// in the NATS style ("feed.leads.*").
func (b *LocalBus) Subscribe(subject string, handler func(data []byte)) (func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = localSub{subject: subject, handler: handler}

	return func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		return nil
	}, nil
}

// Publish implements Bus.
func (b *LocalBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	var handlers []func([]byte)
	for _, sub := range b.subs {
		if subjectMatches(sub.subject, subject) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

// subjectMatches checks a dotted subject against a pattern where "*"
// matches exactly one token.
func subjectMatches(pattern, subject string) bool {
	pp := strings.Split(pattern, ".")
	sp := strings.Split(subject, ".")
	if len(pp) != len(sp) {
		return false
	}
	for i := range pp {
		if pp[i] != "*" && pp[i] != sp[i] {
			return false
		}
	}
	return true
}
