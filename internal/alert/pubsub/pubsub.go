// Package pubsub hands late alerts to a Pub/Sub topic for asynchronous
// delivery by the relay worker.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/kkokki/kkokki/internal/alert"
)

// JobTypeLateAlert tags late-alert messages on the topic.
const JobTypeLateAlert = "late_alert"

// Message is the JSON body published for each alert.
type Message struct {
	JobType string    `json:"job_type"`
	Text    string    `json:"text"`
	SentAt  time.Time `json:"sent_at"`
}

// Publisher publishes raw message data and returns the server message ID.
type Publisher interface {
	Publish(ctx context.Context, data []byte) (string, error)
}

// TopicPublisher adapts a Pub/Sub publisher, waiting for the server ack.
type TopicPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewTopicPublisher connects to projectID and publishes to topic.
func NewTopicPublisher(ctx context.Context, projectID, topic string) (*TopicPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &TopicPublisher{client: client, publisher: client.Publisher(topic)}, nil
}

// Publish sends data and blocks until the server acknowledges it.
func (p *TopicPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	return p.publisher.Publish(ctx, &pubsub.Message{Data: data}).Get(ctx)
}

// Close flushes pending messages and closes the client.
func (p *TopicPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// Config holds configuration for the Pub/Sub notifier.
type Config struct {
	Publisher Publisher
	Logger    zerolog.Logger
	// Now returns the current time (optional).
	Now func() time.Time
}

// Notifier implements alert.Notifier by publishing to a topic. Delivered
// means the broker accepted the message.
type Notifier struct {
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a Pub/Sub notifier.
func New(cfg Config) *Notifier {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Notifier{publisher: cfg.Publisher, logger: cfg.Logger, now: now}
}

// Notify publishes text as a late-alert job.
func (n *Notifier) Notify(ctx context.Context, text string) (bool, error) {
	data, err := json.Marshal(Message{JobType: JobTypeLateAlert, Text: text, SentAt: n.now().UTC()})
	if err != nil {
		return false, fmt.Errorf("marshaling alert: %w", err)
	}

	id, err := n.publisher.Publish(ctx, data)
	if err != nil {
		n.logger.Warn().Err(err).Msg("publishing late alert failed")
		return false, fmt.Errorf("%w: %w", alert.ErrDeliveryFailed, err)
	}

	n.logger.Info().Str("message_id", id).Msg("late alert published")
	return true, nil
}
