package feed

import (
	"github.com/nats-io/nats.go"
)

// Bus is the change-notification transport. The production implementation
// is NATS; tests use an in-process fake.
type Bus interface {
	// Subscribe registers a handler for a subject (NATS wildcards
	// allowed) and returns an unsubscribe function.
	Subscribe(subject string, handler func(data []byte)) (func() error, error)
	Publish(subject string, data []byte) error
}

// NATSBus adapts a NATS connection to the Bus interface.
type NATSBus struct {
	nc *nats.Conn
}

// NewNATSBus wraps an established NATS connection.
func NewNATSBus(nc *nats.Conn) *NATSBus {
	return &NATSBus{nc: nc}
}

// Subscribe implements Bus.
func (b *NATSBus) Subscribe(subject string, handler func(data []byte)) (func() error, error) {
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// Publish implements Bus.
func (b *NATSBus) Publish(subject string, data []byte) error {
	return b.nc.Publish(subject, data)
}
