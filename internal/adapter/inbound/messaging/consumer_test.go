package messaging

import (
	"context"
	"testing"
	"time"

	"ruleindex/internal/config"
	"ruleindex/internal/domain/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Subject:       "processing.image",
		QueueGroup:    "image-workers",
		DurableName:   "image-processor",
		AckWait:       3 * time.Minute,
		MaxDeliver:    4,
		MaxAckPending: 10,
		JobTimeout:    2 * time.Minute,
	}
}

func TestConsumerConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*ConsumerConfig)
		wantErr string
	}{
		{"valid", func(c *ConsumerConfig) {}, ""},
		{"empty subject", func(c *ConsumerConfig) { c.Subject = "" }, "subject"},
		{"empty queue group", func(c *ConsumerConfig) { c.QueueGroup = "" }, "queue group"},
		{"empty durable name", func(c *ConsumerConfig) { c.DurableName = "" }, "durable name"},
		{"zero ack wait", func(c *ConsumerConfig) { c.AckWait = 0 }, "ack wait"},
		{"zero max deliver", func(c *ConsumerConfig) { c.MaxDeliver = 0 }, "max deliver"},
		{"zero max ack pending", func(c *ConsumerConfig) { c.MaxAckPending = 0 }, "max ack pending"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConsumerConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

type noopProcessor struct{}

func (noopProcessor) ProcessJob(_ context.Context, _ messaging.ProcessingJobMessage) error {
	return nil
}

func TestNewNATSConsumer(t *testing.T) {
	natsCfg := config.NATSConfig{URL: "nats://localhost:4222"}

	t.Run("rejects nil processor", func(t *testing.T) {
		_, err := NewNATSConsumer(validConsumerConfig(), natsCfg, nil)
		assert.Error(t, err)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := validConsumerConfig()
		cfg.Subject = ""
		_, err := NewNATSConsumer(cfg, natsCfg, noopProcessor{})
		assert.Error(t, err)
	})

	t.Run("does not connect on construction", func(t *testing.T) {
		consumer, err := NewNATSConsumer(validConsumerConfig(), natsCfg, noopProcessor{})
		require.NoError(t, err)
		assert.False(t, consumer.Health().IsRunning)
		assert.Equal(t, "processing.image", consumer.Health().Subject)
	})
}
