package messaging

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream carrying image processing jobs.
	StreamName = "PROCESSING"

	// StreamSubjects is the subject space captured by the stream.
	StreamSubjects = "processing.>"
)

// ensureStreamExists creates the work-queue stream if it is not already
// present. WorkQueuePolicy removes each message once a consumer acks it,
// which is what a job queue wants.
func (n *NATSConsumer) ensureStreamExists() error {
	_, err := n.jsContext.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", StreamName, err)
	}

	_, err = n.jsContext.AddStream(&nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{StreamSubjects},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}
	return nil
}
