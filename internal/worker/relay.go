// Package worker relays late alerts queued on Pub/Sub to the chat webhook.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kkokki/kkokki/internal/alert"
	alertpubsub "github.com/kkokki/kkokki/internal/alert/pubsub"
)

// ErrStaleAlert is returned by Handle for alerts older than the relay's MaxAge.
var ErrStaleAlert = errors.New("late alert expired before delivery")

// RelayConfig holds configuration for the alert relay.
type RelayConfig struct {
	// Notifier delivers the alert text (required).
	Notifier alert.Notifier

	// MaxAge drops alerts queued longer than this (default: 30m). A late
	// alert that arrives after the commute has started is noise.
	MaxAge time.Duration

	Logger zerolog.Logger

	// Now returns the current time (optional).
	Now func() time.Time
}

// Relay decodes queued alert jobs and delivers them.
type Relay struct {
	notifier alert.Notifier
	maxAge   time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRelay creates a relay.
func NewRelay(cfg RelayConfig) *Relay {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Relay{
		notifier: cfg.Notifier,
		maxAge:   maxAge,
		logger:   cfg.Logger,
		now:      now,
	}
}

// Result says what should happen to a message after Handle.
type Result int

const (
	// Ack removes the message from the subscription.
	Ack Result = iota
	// Nack asks for redelivery.
	Nack
)

// Handle processes one message body. Unknown job types and stale alerts are
// acknowledged so they are not redelivered.
func (r *Relay) Handle(ctx context.Context, data []byte) (Result, error) {
	var msg alertpubsub.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Nack, fmt.Errorf("parsing message: %w", err)
	}

	switch msg.JobType {
	case alertpubsub.JobTypeLateAlert:
	default:
		r.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return Ack, nil
	}

	if !msg.SentAt.IsZero() && r.now().Sub(msg.SentAt) > r.maxAge {
		return Ack, fmt.Errorf("%w: queued at %s", ErrStaleAlert, msg.SentAt.Format(time.RFC3339))
	}

	delivered, err := r.notifier.Notify(ctx, msg.Text)
	if err != nil {
		return Nack, err
	}
	if !delivered {
		return Nack, alert.ErrDeliveryFailed
	}
	return Ack, nil
}

// SubscriberConfig holds configuration for the Pub/Sub subscriber.
type SubscriberConfig struct {
	ProjectID        string
	SubscriptionName string
	Relay            *Relay
	Logger           zerolog.Logger
}

// Subscriber feeds a Pub/Sub subscription into a Relay.
type Subscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	relay            *Relay
	logger           zerolog.Logger
	handled          metric.Int64Counter
}

// NewSubscriber connects to Pub/Sub.
func NewSubscriber(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	handled, err := otel.Meter("github.com/kkokki/kkokki/internal/worker").Int64Counter(
		"worker.alerts_handled",
		metric.WithDescription("Queued late alerts by outcome"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay metrics: %w", err)
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 2 * time.Minute

	return &Subscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		relay:            cfg.Relay,
		logger:           cfg.Logger,
		handled:          handled,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting alert relay")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

func (s *Subscriber) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()
	logger := s.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	result, err := s.relay.Handle(ctx, msg.Data)
	outcome := outcomeOf(result, err)
	s.handled.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	switch outcome {
	case "retry":
		logger.Error().Err(err).Msg("alert relay failed")
		msg.Nack()
	case "dropped":
		logger.Warn().Err(err).Msg("alert dropped")
		msg.Ack()
	default:
		logger.Info().Dur("duration", time.Since(startTime)).Msg("alert relayed")
		msg.Ack()
	}
}

func outcomeOf(result Result, err error) string {
	switch {
	case result == Nack:
		return "retry"
	case err != nil:
		return "dropped"
	default:
		return "delivered"
	}
}
