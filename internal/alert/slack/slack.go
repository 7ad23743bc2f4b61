// Package slack delivers late alerts through a Slack incoming webhook.
package slack

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/kkokki/kkokki/internal/alert"
)

const (
	// Title is the top-level webhook text.
	Title = "*Kkokki Late Alert*"
	// Color is the attachment bar color.
	Color = "#f2c744"
	// Footer is the attachment footer.
	Footer = "Kkokki Digital Rooster"

	// DefaultTimeout is the default webhook request timeout.
	DefaultTimeout = 10 * time.Second
)

// Config holds configuration for the Slack notifier.
type Config struct {
	// WebhookURL is the incoming webhook URL (required).
	WebhookURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *http.Client

	// Logger for notifier operations.
	Logger zerolog.Logger
}

// Notifier implements alert.Notifier.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Slack notifier. It returns alert.ErrNotConfigured when no
// webhook URL is given.
func New(cfg Config) (*Notifier, error) {
	if cfg.WebhookURL == "" {
		return nil, alert.ErrNotConfigured
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Notifier{
		webhookURL: cfg.WebhookURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// Message builds the webhook payload for text.
func Message(text string) *slack.WebhookMessage {
	return &slack.WebhookMessage{
		Text: Title,
		Attachments: []slack.Attachment{{
			Color:  Color,
			Text:   text,
			Footer: Footer,
		}},
	}
}

// Notify posts text to the webhook. Any non-200 answer is a failed delivery.
func (n *Notifier) Notify(ctx context.Context, text string) (bool, error) {
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, Message(text)); err != nil {
		n.logger.Warn().Err(err).Msg("slack webhook failed")
		return false, fmt.Errorf("%w: %w", alert.ErrDeliveryFailed, err)
	}
	n.logger.Debug().Msg("slack webhook delivered")
	return true, nil
}
