package location_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/location"
)

type mockProvider struct {
	resolveCalls atomic.Int32
	searchCalls  atomic.Int32
	reverseCalls atomic.Int32

	places     map[string]location.Location
	candidates []location.Candidate
	searchErr  error
	address    *location.Address
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Resolve(_ context.Context, keyword string) (location.Location, error) {
	m.resolveCalls.Add(1)
	loc, ok := m.places[keyword]
	if !ok {
		return location.Location{}, &location.Error{Provider: "mock", Code: "NOT_FOUND", Message: "cannot find location", Err: location.ErrNotFound}
	}
	return loc, nil
}

func (m *mockProvider) Search(_ context.Context, _ string) ([]location.Candidate, error) {
	m.searchCalls.Add(1)
	return m.candidates, m.searchErr
}

func (m *mockProvider) ReverseGeocode(_ context.Context, lat, lon float64) location.Address {
	m.reverseCalls.Add(1)
	if m.address != nil {
		return *m.address
	}
	return location.FallbackAddress(lat, lon)
}

var seoulStation = location.Location{Name: "서울역", Lat: 37.554648, Lon: 126.972559}

func newService(p *mockProvider) *location.Service {
	return location.NewService(location.ServiceConfig{Provider: p, Logger: zerolog.Nop()})
}

func TestService_ResolveCaches(t *testing.T) {
	p := &mockProvider{places: map[string]location.Location{"서울역": seoulStation}}
	svc := newService(p)
	defer svc.Close()

	got, err := svc.Resolve(context.Background(), "서울역")
	require.NoError(t, err)
	assert.Equal(t, seoulStation, got)

	got, err = svc.Resolve(context.Background(), "  서울역 ")
	require.NoError(t, err)
	assert.Equal(t, seoulStation, got)
	assert.Equal(t, int32(1), p.resolveCalls.Load(), "second lookup served from cache")
}

func TestService_ResolveNotFound(t *testing.T) {
	svc := newService(&mockProvider{})
	defer svc.Close()

	_, err := svc.Resolve(context.Background(), "nowhere")
	require.Error(t, err)
	assert.True(t, location.IsNotFound(err))

	var locErr *location.Error
	assert.True(t, errors.As(err, &locErr))
}

func TestService_ResolveEmptyKeyword(t *testing.T) {
	p := &mockProvider{}
	svc := newService(p)
	defer svc.Close()

	_, err := svc.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, location.ErrEmptyKeyword)
	assert.Equal(t, int32(0), p.resolveCalls.Load())
}

func TestService_ResolveEndpoint(t *testing.T) {
	p := &mockProvider{places: map[string]location.Location{"서울역": seoulStation}}
	svc := newService(p)
	defer svc.Close()

	t.Run("resolved endpoint bypasses lookup", func(t *testing.T) {
		loc := location.Location{Name: "Home", Lat: 37.5, Lon: 127.0}
		got, err := svc.ResolveEndpoint(context.Background(), location.ResolvedEndpoint(loc))
		require.NoError(t, err)
		assert.Equal(t, loc, got)
		assert.Equal(t, int32(0), p.resolveCalls.Load())
	})

	t.Run("keyword endpoint is looked up", func(t *testing.T) {
		got, err := svc.ResolveEndpoint(context.Background(), location.KeywordEndpoint("서울역"))
		require.NoError(t, err)
		assert.Equal(t, seoulStation, got)
	})

	t.Run("invalid coordinates rejected", func(t *testing.T) {
		_, err := svc.ResolveEndpoint(context.Background(), location.ResolvedEndpoint(location.Location{Lat: 120, Lon: 0}))
		assert.ErrorIs(t, err, location.ErrInvalidCoordinates)
	})
}

func TestService_Search(t *testing.T) {
	p := &mockProvider{candidates: []location.Candidate{
		{Location: seoulStation, Address: "서울 중구 봉래동2가"},
	}}
	svc := newService(p)
	defer svc.Close()

	assert.Empty(t, svc.Search(context.Background(), " "))
	assert.Equal(t, int32(0), p.searchCalls.Load())

	results := svc.Search(context.Background(), "서울역")
	require.Len(t, results, 1)
	assert.Equal(t, "서울 중구 봉래동2가", results[0].Address)

	p.searchErr = errors.New("boom")
	assert.Empty(t, svc.Search(context.Background(), "서울역"))
}

func TestService_ReverseGeocodeUsesIndex(t *testing.T) {
	p := &mockProvider{candidates: []location.Candidate{
		{Location: seoulStation, Address: "서울 중구 봉래동2가"},
	}}
	svc := newService(p)
	defer svc.Close()

	svc.Search(context.Background(), "서울역")

	// ~10 m north of the indexed station.
	addr := svc.ReverseGeocode(context.Background(), seoulStation.Lat+0.00009, seoulStation.Lon)
	assert.Equal(t, "서울역", addr.Name)
	assert.Equal(t, "서울 중구 봉래동2가", addr.Address)
	assert.Equal(t, int32(0), p.reverseCalls.Load())

	// Far away goes to the provider and falls back.
	addr = svc.ReverseGeocode(context.Background(), 35.1796, 129.0756)
	assert.Equal(t, location.FallbackName, addr.Name)
	assert.Equal(t, "35.179600, 129.075600", addr.Address)
	assert.Equal(t, int32(1), p.reverseCalls.Load())
}

func TestService_ReverseGeocodeIndexesResults(t *testing.T) {
	p := &mockProvider{address: &location.Address{Name: "N서울타워", Address: "서울 용산구 남산공원길 105"}}
	svc := newService(p)
	defer svc.Close()

	first := svc.ReverseGeocode(context.Background(), 37.551169, 126.988227)
	second := svc.ReverseGeocode(context.Background(), 37.551169, 126.988227)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), p.reverseCalls.Load())
}

func TestService_ReverseGeocodeInvalid(t *testing.T) {
	p := &mockProvider{}
	svc := newService(p)
	defer svc.Close()

	addr := svc.ReverseGeocode(context.Background(), 91, 0)
	assert.Equal(t, location.FallbackName, addr.Name)
	assert.Equal(t, int32(0), p.reverseCalls.Load())
}
