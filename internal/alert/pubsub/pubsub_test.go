package pubsub_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/alert"
	"github.com/kkokki/kkokki/internal/alert/pubsub"
)

type fakePublisher struct {
	data [][]byte
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.data = append(f.data, data)
	return "msg-1", nil
}

func TestNotifier_Publishes(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)
	pub := &fakePublisher{}
	n := pubsub.New(pubsub.Config{Publisher: pub, Logger: zerolog.Nop(), Now: func() time.Time { return fixed }})

	delivered, err := n.Notify(context.Background(), "10분 늦습니다")
	require.NoError(t, err)
	assert.True(t, delivered)

	require.Len(t, pub.data, 1)
	var msg pubsub.Message
	require.NoError(t, json.Unmarshal(pub.data[0], &msg))
	assert.Equal(t, pubsub.JobTypeLateAlert, msg.JobType)
	assert.Equal(t, "10분 늦습니다", msg.Text)
	assert.True(t, fixed.Equal(msg.SentAt))
}

func TestNotifier_PublishError(t *testing.T) {
	n := pubsub.New(pubsub.Config{Publisher: &fakePublisher{err: errors.New("topic not found")}, Logger: zerolog.Nop()})

	delivered, err := n.Notify(context.Background(), "late")
	assert.False(t, delivered)
	assert.ErrorIs(t, err, alert.ErrDeliveryFailed)
}
