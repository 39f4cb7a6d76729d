package events

import (
	"context"
	"log/slog"
)

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// Watch subscribes to topic and calls fn for every decodable envelope until
// ctx is done or the subscription channel closes. Undecodable payloads are
// logged and skipped.
func Watch(ctx context.Context, sub Subscriber, topic string, fn func(*Envelope)) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := DecodeEnvelope(payload)
			if err != nil {
				slog.Warn("skipping malformed event", "topic", topic, "err", err)
				continue
			}
			fn(env)
		}
	}
}
