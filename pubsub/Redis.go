package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bignyap/studio-storage/logger/api"
	"github.com/redis/go-redis/v9"
)

type RedisPubSub struct {
	rdb       redis.UniversalClient
	namespace string
	log       api.Logger
}

var _ PubSubClient = (*RedisPubSub)(nil)

// NewRedisPubSub uses an existing client; see redisclient.New.
func NewRedisPubSub(rdb redis.UniversalClient, namespace string, log api.Logger) *RedisPubSub {
	return &RedisPubSub{
		rdb:       rdb,
		namespace: namespace,
		log:       api.OrDefault(log).WithComponent("pubsub.redis"),
	}
}

func (r *RedisPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return r.rdb.Publish(ctx, prefixed(r.namespace, channel), bytes).Err()
}

func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler MessageHandler) error {
	name := prefixed(r.namespace, channel)
	sub := r.rdb.Subscribe(ctx, name)
	defer sub.Close()

	// Receive waits for the subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", name, err)
	}
	r.log.Info(ctx, "subscribed", api.String("channel", name))

	consume(ctx, sub.Channel(), handler, r.log.WithFields(api.String("channel", name)))
	return ctx.Err()
}

func (r *RedisPubSub) Close() error {
	return r.rdb.Close()
}

// consume dispatches messages one at a time until ctx is done or ch closes.
func consume(ctx context.Context, ch <-chan *redis.Message, handler MessageHandler, log api.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := handler(ctx, []byte(msg.Payload)); err != nil {
				log.Warn(ctx, "pubsub handler failed", api.ErrorField(err))
			}
		}
	}
}
