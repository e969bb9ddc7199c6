package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/bignyap/studio-storage/logger/adapters/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionStub struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *sessionStub) Context() context.Context { return s.ctx }

func (s *sessionStub) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type claimStub struct {
	sarama.ConsumerGroupClaim
	ch chan *sarama.ConsumerMessage
}

func (c *claimStub) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func TestConsumeClaimMarksEveryMessage(t *testing.T) {
	log := mock.NewMockLogger()
	var seen []string
	h := &consumerGroupHandler{
		log: log,
		handler: func(_ context.Context, msg *sarama.ConsumerMessage) error {
			seen = append(seen, string(msg.Value))
			if msg.Offset == 1 {
				return errors.New("bad payload")
			}
			return nil
		},
	}

	claim := &claimStub{ch: make(chan *sarama.ConsumerMessage, 3)}
	claim.ch <- &sarama.ConsumerMessage{Topic: "events", Offset: 0, Value: []byte("a")}
	claim.ch <- &sarama.ConsumerMessage{Topic: "events", Offset: 1, Value: []byte("b")}
	claim.ch <- &sarama.ConsumerMessage{Topic: "events", Offset: 2, Value: []byte("c")}
	close(claim.ch)

	sess := &sessionStub{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(sess, claim))

	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, []int64{0, 1, 2}, sess.marked)
	assert.True(t, log.HasWarning("message handler failed"))
}

func TestConsumeClaimStopsOnCancel(t *testing.T) {
	h := &consumerGroupHandler{
		log:     mock.NewMockLogger(),
		handler: func(context.Context, *sarama.ConsumerMessage) error { return nil },
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	claim := &claimStub{ch: make(chan *sarama.ConsumerMessage)}
	require.NoError(t, h.ConsumeClaim(&sessionStub{ctx: ctx}, claim))
}
