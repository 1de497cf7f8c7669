// Package messaging provides the NATS JetStream consumer that feeds the
// image processing pipeline. Jobs are delivered at-least-once; the
// processor's ownership guard makes duplicate deliveries harmless.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/config"
	"ruleindex/internal/domain/messaging"
	"ruleindex/internal/port/inbound"

	domainerrors "ruleindex/internal/domain/errors/domain"

	"github.com/nats-io/nats.go"
)

const (
	// fetchBatchSize is how many messages one pull request may return.
	fetchBatchSize = 1

	// fetchWait bounds how long a pull request blocks when the queue is empty.
	fetchWait = 5 * time.Second
)

// ConsumerConfig holds configuration for the message consumer.
type ConsumerConfig struct {
	Subject       string
	QueueGroup    string
	DurableName   string
	AckWait       time.Duration
	MaxDeliver    int
	MaxAckPending int
	JobTimeout    time.Duration
}

// Validate performs validation of consumer configuration.
func (c ConsumerConfig) Validate() error {
	if c.Subject == "" {
		return errors.New("subject cannot be empty")
	}
	if c.QueueGroup == "" {
		return errors.New("queue group cannot be empty")
	}
	if c.DurableName == "" {
		return errors.New("durable name cannot be empty")
	}
	if c.AckWait <= 0 {
		return errors.New("ack wait duration must be positive")
	}
	if c.MaxDeliver <= 0 {
		return errors.New("max deliver count must be positive")
	}
	if c.MaxAckPending <= 0 {
		return errors.New("max ack pending must be positive")
	}
	return nil
}

// NATSConsumer pulls processing jobs from JetStream and hands them to the
// job processor with explicit acknowledgment.
type NATSConsumer struct {
	config       ConsumerConfig
	natsConfig   config.NATSConfig
	jobProcessor inbound.JobProcessor

	conn      *nats.Conn
	jsContext nats.JetStreamContext
	sub       *nats.Subscription

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.RWMutex
	stats   inbound.ConsumerStats
	health  inbound.ConsumerHealthStatus
}

// NewNATSConsumer creates a new NATS consumer with validation.
func NewNATSConsumer(
	consumerConfig ConsumerConfig,
	natsConfig config.NATSConfig,
	processor inbound.JobProcessor,
) (*NATSConsumer, error) {
	if err := consumerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid consumer configuration: %w", err)
	}
	if processor == nil {
		return nil, errors.New("job processor cannot be nil")
	}

	return &NATSConsumer{
		config:       consumerConfig,
		natsConfig:   natsConfig,
		jobProcessor: processor,
		stats: inbound.ConsumerStats{
			ActiveSince: time.Now(),
		},
		health: inbound.ConsumerHealthStatus{
			Subject:    consumerConfig.Subject,
			QueueGroup: consumerConfig.QueueGroup,
		},
	}, nil
}

// Start connects to NATS, ensures the stream and durable consumer exist,
// and begins the pull loop.
func (n *NATSConsumer) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return fmt.Errorf("consumer already running for subject %s", n.config.Subject)
	}

	conn, err := nats.Connect(
		n.natsConfig.URL,
		nats.MaxReconnects(n.natsConfig.MaxReconnects),
		nats.ReconnectWait(n.natsConfig.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	jsContext, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}
	n.conn = conn
	n.jsContext = jsContext

	if err := n.ensureStreamExists(); err != nil {
		conn.Close()
		return err
	}

	sub, err := jsContext.PullSubscribe(
		n.config.Subject,
		n.config.DurableName,
		nats.AckWait(n.config.AckWait),
		nats.MaxDeliver(n.config.MaxDeliver),
		nats.MaxAckPending(n.config.MaxAckPending),
		nats.ManualAck(),
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create pull subscription: %w", err)
	}
	n.sub = sub

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n.cancel = cancel
	n.done = make(chan struct{})
	n.running = true
	n.health.IsRunning = true
	n.health.IsConnected = true
	n.stats.ActiveSince = time.Now()

	go n.consumeLoop(loopCtx, sub, n.done)

	slogger.Info(ctx, "NATS consumer started", slogger.Fields{
		"subject":     n.config.Subject,
		"queue_group": n.config.QueueGroup,
		"durable":     n.config.DurableName,
	})
	return nil
}

// Stop gracefully shuts down the consumer. Idempotent.
func (n *NATSConsumer) Stop(ctx context.Context) error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = false
	n.health.IsRunning = false
	n.health.IsConnected = false
	cancel := n.cancel
	done := n.done
	n.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		slogger.Warn(ctx, "Timed out waiting for consume loop to drain", slogger.Fields{
			"subject": n.config.Subject,
		})
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sub != nil {
		if err := n.sub.Unsubscribe(); err != nil {
			slogger.ErrorWithError(ctx, err, "Failed to unsubscribe", nil)
		}
		n.sub = nil
	}
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	return nil
}

// consumeLoop pulls and processes messages until the context is cancelled.
// The subscription is passed in rather than read from the struct: Stop may
// unsubscribe and nil the field while the loop is still draining.
func (n *NATSConsumer) consumeLoop(ctx context.Context, sub *nats.Subscription, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		msgs, err := sub.Fetch(fetchBatchSize, nats.MaxWait(fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.Canceled) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			n.recordError(fmt.Sprintf("fetch failed: %v", err))
			continue
		}

		for _, msg := range msgs {
			n.handleMessage(ctx, msg)
		}
	}
}

// handleMessage decodes and processes one delivery, then acks. Consistency
// errors are acked too: redelivering a stale or malformed job can never
// succeed, and dropping it keeps batch counters intact.
func (n *NATSConsumer) handleMessage(ctx context.Context, msg *nats.Msg) {
	jobMessage, err := messaging.UnmarshalProcessingJobMessage(msg.Data)
	if err != nil {
		n.recordOutcome(false)
		n.recordError(err.Error())
		slogger.ErrorWithError(ctx, err, "Dropping malformed job message", nil)
		n.ack(ctx, msg)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, n.config.JobTimeout)
	err = n.jobProcessor.ProcessJob(jobCtx, jobMessage)
	cancel()

	switch {
	case err == nil:
		n.recordOutcome(true)
	case errors.Is(err, domainerrors.ErrStaleJob):
		n.recordOutcome(false)
		slogger.Warn(ctx, "Dropping stale job delivery", slogger.Fields{
			"message_id": jobMessage.MessageID,
			"image_id":   jobMessage.ImageID.String(),
		})
	case errors.Is(err, domainerrors.ErrImageNotFound):
		n.recordOutcome(false)
		slogger.Warn(ctx, "Dropping job for missing image", slogger.Fields{
			"message_id": jobMessage.MessageID,
			"image_id":   jobMessage.ImageID.String(),
		})
	default:
		// Transient infrastructure failure before the image was claimed:
		// leave the message unacked so JetStream redelivers it.
		n.recordOutcome(false)
		n.recordError(err.Error())
		slogger.ErrorWithError(ctx, err, "Job processing failed, leaving for redelivery", slogger.Fields{
			"message_id": jobMessage.MessageID,
		})
		return
	}

	n.ack(ctx, msg)
}

func (n *NATSConsumer) ack(ctx context.Context, msg *nats.Msg) {
	if err := msg.Ack(); err != nil {
		n.recordError(fmt.Sprintf("ack failed: %v", err))
		slogger.ErrorWithError(ctx, err, "Failed to ack message", nil)
	}
}

func (n *NATSConsumer) recordOutcome(success bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stats.MessagesReceived++
	if success {
		n.stats.MessagesProcessed++
	} else {
		n.stats.MessagesFailed++
	}
}

func (n *NATSConsumer) recordError(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.health.LastError = message
}

// Health returns the current health status of the consumer.
func (n *NATSConsumer) Health() inbound.ConsumerHealthStatus {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.health
}

// Stats returns consumer statistics.
func (n *NATSConsumer) Stats() inbound.ConsumerStats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stats
}
