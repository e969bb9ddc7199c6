package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/bignyap/studio-storage/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerPublish(t *testing.T) {
	mp := mocks.NewSyncProducer(t, kafka.Config{}.ProducerConfig())
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, _ := msg.Key.Encode()
		if string(key) != "lumen" {
			return errors.New("unexpected key " + string(key))
		}
		val, _ := msg.Value.Encode()
		var body map[string]string
		if err := json.Unmarshal(val, &body); err != nil {
			return err
		}
		if body["tenant_slug"] != "lumen" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := kafka.NewProducerFrom(mp, "events")
	require.NoError(t, p.Publish(context.Background(), "lumen", map[string]string{"tenant_slug": "lumen"}))
	require.NoError(t, p.Close())
}

func TestProducerPublishFailure(t *testing.T) {
	mp := mocks.NewSyncProducer(t, kafka.Config{}.ProducerConfig())
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := kafka.NewProducerFrom(mp, "events")
	err := p.Publish(context.Background(), "lumen", map[string]string{})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestProducerPublishCancelled(t *testing.T) {
	mp := mocks.NewSyncProducer(t, kafka.Config{}.ProducerConfig())
	p := kafka.NewProducerFrom(mp, "events")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "lumen", nil), context.Canceled)
	require.NoError(t, p.Close())
}
