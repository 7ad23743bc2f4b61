package weather_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/weather"
)

type mockProvider struct {
	condition weather.Condition
	err       error
	calls     atomic.Int32
}

func (m *mockProvider) Current(context.Context, float64, float64) (weather.Conditions, error) {
	m.calls.Add(1)
	if m.err != nil {
		return weather.Conditions{}, m.err
	}
	return weather.Conditions{Condition: m.condition}, nil
}

func (m *mockProvider) Name() string { return "mock" }

func TestService_CachesNearbyPoints(t *testing.T) {
	provider := &mockProvider{condition: weather.ConditionRain}
	svc := weather.NewService(weather.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})
	defer svc.Close()

	c, err := svc.Current(context.Background(), 37.5612, 126.9771)
	require.NoError(t, err)
	assert.Equal(t, weather.ConditionRain, c.Condition)
	_, err = svc.Current(context.Background(), 37.5649, 126.9824)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.calls.Load())

	_, err = svc.Current(context.Background(), 35.18, 129.07)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestService_InvalidCoordinates(t *testing.T) {
	svc := weather.NewService(weather.ServiceConfig{Provider: &mockProvider{}, Logger: zerolog.Nop()})
	defer svc.Close()

	_, err := svc.Current(context.Background(), 100, 0)
	assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
}

func TestService_ErrorsAreNotCached(t *testing.T) {
	provider := &mockProvider{err: weather.ErrProviderUnavailable}
	svc := weather.NewService(weather.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})
	defer svc.Close()

	_, err := svc.Current(context.Background(), 37.5, 127)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	_, err = svc.Current(context.Background(), 37.5, 127)
	assert.Error(t, err)
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestService_TravelImpact(t *testing.T) {
	tests := []struct {
		name      string
		condition weather.Condition
		err       error
		want      int
	}{
		{name: "snow", condition: weather.ConditionSnow, want: 20},
		{name: "rain", condition: weather.ConditionRain, want: 10},
		{name: "thunderstorm", condition: weather.ConditionThunderstorm, want: 10},
		{name: "clear", condition: weather.ConditionClear, want: 0},
		{name: "provider failure", err: errors.New("down"), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := weather.NewService(weather.ServiceConfig{
				Provider: &mockProvider{condition: tt.condition, err: tt.err},
				Logger:   zerolog.Nop(),
			})
			defer svc.Close()

			impact := svc.TravelImpact(context.Background(), 37.5, 127)
			assert.Equal(t, tt.want, impact.ExtraMinutes)
		})
	}
}

func TestImpactOf(t *testing.T) {
	assert.Equal(t, "Snow (+20 min)", weather.ImpactOf(weather.ConditionSnow).Summary)
	assert.Equal(t, 10, weather.ImpactOf(weather.ConditionDrizzle).ExtraMinutes)
	assert.Equal(t, weather.ConditionUnknown, weather.ImpactOf("").Condition)
	assert.Equal(t, 0, weather.ImpactOf(weather.ConditionFog).ExtraMinutes)
	assert.True(t, weather.ConditionThunderstorm.Wet())
	assert.False(t, weather.ConditionSnow.Wet())
}
