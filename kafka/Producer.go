package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

// Producer publishes JSON payloads to one topic.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(cfg Config) (*Producer, error) {
	p, err := sarama.NewSyncProducer(cfg.Brokers, cfg.ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return NewProducerFrom(p, cfg.Topic), nil
}

func NewProducerFrom(p sarama.SyncProducer, topic string) *Producer {
	return &Producer{producer: p, topic: topic}
}

// Publish sends payload keyed by key so events for one tenant stay ordered.
func (p *Producer) Publish(ctx context.Context, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
