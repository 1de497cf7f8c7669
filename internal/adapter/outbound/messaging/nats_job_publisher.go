// Package messaging provides the NATS JetStream publisher used to enqueue
// image processing jobs.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/config"
	"ruleindex/internal/domain/messaging"

	"github.com/nats-io/nats.go"
)

const (
	// ProcessingSubject is the subject image processing jobs are published to.
	ProcessingSubject = "processing.image"

	streamName     = "PROCESSING"
	streamSubjects = "processing.>"
)

// NATSJobPublisher publishes processing jobs to JetStream with
// publish-side acknowledgment.
type NATSJobPublisher struct {
	config    config.NATSConfig
	conn      *nats.Conn
	jsContext nats.JetStreamContext
	mu        sync.RWMutex
}

// NewNATSJobPublisher creates a publisher and establishes the NATS
// connection eagerly so wiring errors surface at startup.
func NewNATSJobPublisher(cfg config.NATSConfig) (*NATSJobPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}

	conn, err := nats.Connect(
		cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	jsContext, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &NATSJobPublisher{
		config:    cfg,
		conn:      conn,
		jsContext: jsContext,
	}
	if err := publisher.ensureStreamExists(); err != nil {
		conn.Close()
		return nil, err
	}
	return publisher, nil
}

// PublishProcessingJob marshals the job and publishes it to the processing
// subject, waiting for the JetStream ack.
func (p *NATSJobPublisher) PublishProcessingJob(ctx context.Context, message messaging.ProcessingJobMessage) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("invalid job message: %w", err)
	}

	p.mu.RLock()
	jsContext := p.jsContext
	p.mu.RUnlock()
	if jsContext == nil {
		return errors.New("publisher is closed")
	}

	data, err := message.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}

	if _, err := jsContext.Publish(ProcessingSubject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish job message: %w", err)
	}

	slogger.Debug(ctx, "Published processing job", slogger.Fields{
		"message_id": message.MessageID,
		"image_id":   message.ImageID.String(),
		"subject":    ProcessingSubject,
	})
	return nil
}

// Close releases the NATS connection. Idempotent.
func (p *NATSJobPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
		p.jsContext = nil
	}
	return nil
}

func (p *NATSJobPublisher) ensureStreamExists() error {
	_, err := p.jsContext.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	_, err = p.jsContext.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{streamSubjects},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}
	return nil
}
