package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope published for every domain event.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Fanout publishes to every broker in order and returns the first error.
// The local SSE broker and an optional redis broker are combined this way.
type Fanout []Broker

func (f Fanout) Publish(ctx context.Context, channel string, message interface{}) error {
	var firstErr error
	for _, b := range f {
		if err := b.Publish(ctx, channel, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Subscribe subscribes on the first broker only; it is the local one.
func (f Fanout) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if len(f) == 0 {
		ch := make(chan []byte)
		close(ch)
		return ch, nil
	}
	return f[0].Subscribe(ctx, channel)
}

func (f Fanout) Close() error {
	var firstErr error
	for _, b := range f {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
