// Package alert sends at most one lateness notification per monitoring
// session.
package alert

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Sentinel errors for alert delivery.
var (
	// ErrDeliveryFailed indicates the notifier could not deliver the message.
	ErrDeliveryFailed = errors.New("alert delivery failed")
	// ErrNotConfigured indicates no notifier is configured.
	ErrNotConfigured = errors.New("alert notifier not configured")
	// ErrEmptyMessage indicates a generator returned no text.
	ErrEmptyMessage = errors.New("generated message is empty")
)

// Context describes the lateness being reported.
type Context struct {
	Origin       string
	Destination  string
	ArrivalTime  string // HH:MM
	DelayMinutes int
}

// Generator writes the human-facing notification body.
type Generator interface {
	Generate(ctx context.Context, ac Context) (string, error)
}

// Notifier delivers a notification body.
type Notifier interface {
	// Notify reports whether the message was delivered.
	Notify(ctx context.Context, text string) (bool, error)
}

// FallbackMessage is the fixed template used when generation fails.
func FallbackMessage(delayMinutes int) string {
	return fmt.Sprintf("현재 교통 체증으로 인해 약 %d분 정도 늦을 것 같습니다. 죄송합니다.", delayMinutes)
}

// Latch guards a session's single alert attempt.
type Latch struct {
	sent atomic.Bool
}

// Acquire flips the latch. Only the first call returns true.
func (l *Latch) Acquire() bool {
	return l.sent.CompareAndSwap(false, true)
}

