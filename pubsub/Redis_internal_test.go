package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/bignyap/studio-storage/logger/adapters/mock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestConsumeDispatchesUntilClosed(t *testing.T) {
	ch := make(chan *redis.Message, 3)
	ch <- &redis.Message{Channel: "events", Payload: `{"tenant_slug":"lumen"}`}
	ch <- &redis.Message{Channel: "events", Payload: "oops"}
	ch <- &redis.Message{Channel: "events", Payload: `{"tenant_slug":"north"}`}
	close(ch)

	log := mock.NewMockLogger()
	var got []string
	consume(context.Background(), ch, func(_ context.Context, payload []byte) error {
		got = append(got, string(payload))
		if string(payload) == "oops" {
			return errors.New("bad payload")
		}
		return nil
	}, log)

	assert.Len(t, got, 3)
	assert.True(t, log.HasWarning("pubsub handler failed"))
}

func TestConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	consume(ctx, make(chan *redis.Message), func(context.Context, []byte) error {
		t.Fatal("handler must not run")
		return nil
	}, mock.NewMockLogger())
}

func TestPrefixed(t *testing.T) {
	assert.Equal(t, "events", prefixed("", "events"))
	assert.Equal(t, "studio:events", prefixed("studio", "events"))
}
