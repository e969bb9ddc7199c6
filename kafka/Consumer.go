package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/bignyap/studio-storage/logger/api"
)

// HandlerFunc processes one message. Errors are logged and the message is
// still marked; redelivery would only repeat a recomputation.
type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// Consumer reads one topic through a consumer group.
type Consumer struct {
	group sarama.ConsumerGroup
	topic string
	log   api.Logger
}

func NewConsumer(cfg Config, log api.Logger) (*Consumer, error) {
	config, err := cfg.ConsumerConfig()
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return NewConsumerFromGroup(group, cfg.Topic, log), nil
}

func NewConsumerFromGroup(group sarama.ConsumerGroup, topic string, log api.Logger) *Consumer {
	return &Consumer{
		group: group,
		topic: topic,
		log:   api.OrDefault(log).WithComponent("kafka.consumer"),
	}
}

// Start consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *Consumer) Start(ctx context.Context, handler HandlerFunc) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Error(ctx, "consumer group error", err, api.String("topic", c.topic))
		}
	}()

	cgh := &consumerGroupHandler{handler: handler, log: c.log}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, cgh); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume %s: %w", c.topic, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler HandlerFunc
	log     api.Logger
}

func (h *consumerGroupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handler(ctx, msg); err != nil {
				h.log.Warn(ctx, "message handler failed",
					api.String("topic", msg.Topic),
					api.Int("partition", int(msg.Partition)),
					api.Int64("offset", msg.Offset),
					api.ErrorField(err))
			}
			sess.MarkMessage(msg, "")
		case <-ctx.Done():
			return nil
		}
	}
}
