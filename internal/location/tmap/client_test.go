package tmap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/location"
	"github.com/kkokki/kkokki/internal/location/tmap"
)

const poiBody = `{
  "searchPoiInfo": {
    "totalCount": "2",
    "count": "2",
    "pois": {
      "poi": [
        {
          "name": "서울역",
          "frontLat": "37.55467", "frontLon": "126.97062",
          "noorLat": "37.55465", "noorLon": "126.97256",
          "upperAddrName": "서울", "middleAddrName": "중구", "lowerAddrName": "봉래동2가", "detailAddrName": ""
        },
        {
          "name": "서울역 버스환승센터",
          "frontLat": "37.55320", "frontLon": "126.97270",
          "noorLat": "37.55330", "noorLon": "126.97280",
          "upperAddrName": "서울", "middleAddrName": "용산구", "lowerAddrName": "동자동", "detailAddrName": "43"
        }
      ]
    }
  }
}`

func newClient(t *testing.T, handler http.HandlerFunc) *tmap.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return tmap.NewClient(tmap.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Resolve(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pois", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("appKey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("version"))
		assert.Equal(t, "서울역", q.Get("searchKeyword"))
		assert.Equal(t, "WGS84GEO", q.Get("resCoordType"))
		assert.Equal(t, "1", q.Get("count"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(poiBody))
	})

	loc, err := client.Resolve(context.Background(), " 서울역 ")
	require.NoError(t, err)
	assert.Equal(t, "서울역", loc.Name)
	assert.InDelta(t, 37.55467, loc.Lat, 1e-9)
	assert.InDelta(t, 126.97062, loc.Lon, 1e-9)
}

func TestClient_ResolveNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "no content", status: http.StatusNoContent},
		{name: "empty list", status: http.StatusOK, body: `{"searchPoiInfo":{"pois":{"poi":[]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Resolve(context.Background(), "nowhere")
			require.Error(t, err)
			assert.ErrorIs(t, err, location.ErrNotFound)
		})
	}
}

func TestClient_ResolveUpstreamError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Resolve(context.Background(), "서울역")
	require.Error(t, err)
	assert.ErrorIs(t, err, location.ErrProviderUnavailable)

	var locErr *location.Error
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, "HTTP_403", locErr.Code)
	assert.Equal(t, tmap.ProviderName, locErr.Provider)
}

func TestClient_ResolveEmptyKeyword(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	})

	_, err := client.Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, location.ErrEmptyKeyword)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_Search(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "10", q.Get("count"))
		assert.Equal(t, "WGS84GEO", q.Get("reqCoordType"))
		_, _ = w.Write([]byte(poiBody))
	})

	results, err := client.Search(context.Background(), "서울역")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "서울역", results[0].Name)
	assert.InDelta(t, 37.55465, results[0].Lat, 1e-9)
	assert.InDelta(t, 126.97256, results[0].Lon, 1e-9)
	assert.Equal(t, "서울 중구 봉래동2가", results[0].Address)
	assert.Equal(t, "서울 용산구 동자동 43", results[1].Address)
}

func TestClient_SearchFailuresYieldEmpty(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	results, err := client.Search(context.Background(), "서울역")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = client.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(1), calls.Load(), "blank keyword never reaches upstream")
}

func TestClient_ReverseGeocode(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/reversegeocoding", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "A10", q.Get("addressType"))
		assert.Equal(t, "WGS84GEO", q.Get("coordType"))
		assert.Equal(t, "37.5665", q.Get("lat"))
		assert.Equal(t, "126.978", q.Get("lon"))

		_, _ = w.Write([]byte(`{"addressInfo":{"fullAddress":"서울특별시 중구 세종대로 110","buildingName":"서울특별시청"}}`))
	})

	addr := client.ReverseGeocode(context.Background(), 37.5665, 126.978)
	assert.Equal(t, "서울특별시청", addr.Name)
	assert.Equal(t, "서울특별시 중구 세종대로 110", addr.Address)
}

func TestClient_ReverseGeocodeFallbacks(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"addressInfo":{}}`))
		})

		addr := client.ReverseGeocode(context.Background(), 37.5, 127)
		assert.Equal(t, location.FallbackName, addr.Name)
		assert.Equal(t, "37.500000, 127.000000", addr.Address)
	})

	t.Run("upstream failure", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		addr := client.ReverseGeocode(context.Background(), 37.5, 127)
		assert.Equal(t, location.FallbackAddress(37.5, 127), addr)
	})
}
