package alert

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	// Generator writes the message body (optional, the fixed template is
	// used when nil).
	Generator Generator

	// Notifier delivers the message (optional).
	Notifier Notifier

	// Logger for dispatcher operations.
	Logger zerolog.Logger
}

// Dispatcher generates and delivers lateness notifications.
type Dispatcher struct {
	generator Generator
	notifier  Notifier
	logger    zerolog.Logger
}

// Outcome describes what MaybeAlert did.
type Outcome struct {
	// Attempted is true when this call won the latch and tried to deliver.
	Attempted bool
	Delivered bool
	Text      string
	// Generated is false when the fixed template was used.
	Generated bool
	Err       error
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		generator: cfg.Generator,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
	}
}

// MaybeAlert sends the session's alert if urgent alerting is enabled and
// the latch has not been flipped yet. The latch flips before delivery, so a
// failed delivery is not retried.
func (d *Dispatcher) MaybeAlert(ctx context.Context, latch *Latch, urgentEnabled bool, ac Context) Outcome {
	if !urgentEnabled || !latch.Acquire() {
		return Outcome{}
	}

	text, generated := d.message(ctx, ac)
	out := Outcome{Attempted: true, Text: text, Generated: generated}

	if d.notifier == nil {
		out.Err = ErrNotConfigured
		d.logger.Warn().Int("delay_minutes", ac.DelayMinutes).Msg("late alert not sent: no notifier configured")
		return out
	}

	delivered, err := d.notifier.Notify(ctx, text)
	out.Delivered = delivered && err == nil
	out.Err = err
	if !out.Delivered && out.Err == nil {
		out.Err = ErrDeliveryFailed
	}

	var evt *zerolog.Event
	if out.Err != nil {
		evt = d.logger.Warn().Err(out.Err)
	} else {
		evt = d.logger.Info()
	}
	evt.Int("delay_minutes", ac.DelayMinutes).
		Bool("delivered", out.Delivered).
		Bool("generated", generated).
		Msg("late alert dispatched")

	return out
}

func (d *Dispatcher) message(ctx context.Context, ac Context) (string, bool) {
	if d.generator == nil {
		return FallbackMessage(ac.DelayMinutes), false
	}

	text, err := d.generator.Generate(ctx, ac)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyMessage
	}
	if err != nil {
		d.logger.Warn().Err(err).Msg("message generation failed, using template")
		return FallbackMessage(ac.DelayMinutes), false
	}
	return strings.TrimSpace(text), true
}
