package blackmarble_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/raster/blackmarble"
)

var _ measurement.Sampler = (*blackmarble.Client)(nil)

func TestClient_Sample(t *testing.T) {
	var gotPath, gotQuery, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"latitude": 31.5204,
			"longitude": 74.3587,
			"radiance": 58.3,
			"acquired_at": "2026-08-14T21:30:00Z",
			"qa_flag": 0
		}`))
	}))
	defer server.Close()

	client := blackmarble.NewClient(blackmarble.ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		HTTPClient: server.Client(),
	})

	pixel, err := client.Sample(context.Background(), measurement.Location{Lat: 31.5204, Lon: 74.3587})
	require.NoError(t, err)
	require.NotNil(t, pixel)

	assert.Equal(t, "/point", gotPath)
	assert.Contains(t, gotQuery, "lat=31.520400")
	assert.Contains(t, gotQuery, "lon=74.358700")
	assert.Equal(t, "Bearer test-key", gotAuth)

	assert.InDelta(t, 58.3, pixel.Radiance, 1e-9)
	assert.InDelta(t, 31.5204, pixel.Location.Lat, 1e-9)
	assert.Equal(t, time.Date(2026, 8, 14, 21, 30, 0, 0, time.UTC), pixel.AcquiredAt)
}

func TestClient_SampleNoCoverage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := blackmarble.NewClient(blackmarble.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})

	pixel, err := client.Sample(context.Background(), measurement.Location{Lat: 0, Lon: -160})
	require.NoError(t, err)
	assert.Nil(t, pixel)
}

func TestClient_SampleInvalidCoordinates(t *testing.T) {
	client := blackmarble.NewClient(blackmarble.ClientConfig{BaseURL: "http://unused.invalid"})

	_, err := client.Sample(context.Background(), measurement.Location{Lat: 95, Lon: 0})
	assert.ErrorIs(t, err, measurement.ErrInvalidCoordinates)
}

func TestClient_SampleServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := blackmarble.NewClient(blackmarble.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})

	_, err := client.Sample(context.Background(), measurement.Location{Lat: 52.0, Lon: 4.0})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}

func TestClient_SampleMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"radiance": "not a number"}`))
	}))
	defer server.Close()

	client := blackmarble.NewClient(blackmarble.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})

	_, err := client.Sample(context.Background(), measurement.Location{Lat: 52.0, Lon: 4.0})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "decode point response")
}

func TestClient_SampleBadTimestampDefaultsToNow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"latitude": 1, "longitude": 1, "radiance": 3.2, "acquired_at": "yesterday"}`))
	}))
	defer server.Close()

	client := blackmarble.NewClient(blackmarble.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})

	before := time.Now().UTC()
	pixel, err := client.Sample(context.Background(), measurement.Location{Lat: 1, Lon: 1})
	require.NoError(t, err)

	assert.False(t, pixel.AcquiredAt.Before(before))
}
