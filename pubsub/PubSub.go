// Package pubsub carries small JSON notifications over Redis channels.
package pubsub

import (
	"context"
)

// PubSubClient publishes to and subscribes on named channels. Subscribe
// blocks until ctx is done.
type PubSubClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler MessageHandler) error
	Close() error
}

// MessageHandler errors are logged; they never stop a subscription.
type MessageHandler func(ctx context.Context, payload []byte) error

func prefixed(namespace, channel string) string {
	if namespace == "" {
		return channel
	}
	return namespace + ":" + channel
}
