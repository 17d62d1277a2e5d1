package correlation_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/correlation"
	"github.com/nocturna-project/nocturna/internal/measurement"
)

// mockAccessor returns canned data and counts calls.
type mockAccessor struct {
	readings   []measurement.GroundReading
	pixel      *measurement.SatellitePixel
	pixelCalls int
}

func (m *mockAccessor) NearbyGround(_ context.Context, _ measurement.Location, _ float64, _ time.Time) []measurement.GroundReading {
	return m.readings
}

func (m *mockAccessor) LatestSatellitePixel(_ context.Context, _ measurement.Location) *measurement.SatellitePixel {
	m.pixelCalls++
	return m.pixel
}

var leiden = measurement.Location{Lat: 52.1664, Lon: 4.4819}

func readingsAt(loc measurement.Location, values ...float64) []measurement.GroundReading {
	readings := make([]measurement.GroundReading, 0, len(values))
	for i, v := range values {
		readings = append(readings, measurement.GroundReading{
			Location:   loc,
			MeasuredAt: time.Now().Add(-time.Duration(i) * time.Hour),
			MPSAS:      v,
		})
	}
	return readings
}

func newService(acc correlation.Accessor, store cache.Store) *correlation.Service {
	return correlation.NewService(correlation.ServiceConfig{
		Accessor: acc,
		Cache:    store,
		Logger:   zerolog.New(io.Discard),
	})
}

func TestCorrelate_Match(t *testing.T) {
	acc := &mockAccessor{
		readings: readingsAt(leiden, 20.9, 21.1, 21.0),
		pixel: &measurement.SatellitePixel{
			Location:   leiden,
			Radiance:   58, // 21.58 - 0.58 = 21.0 MPSAS
			AcquiredAt: time.Now(),
		},
	}

	result, err := newService(acc, nil).Correlate(context.Background(), leiden, 25)
	require.NoError(t, err)

	assert.Equal(t, correlation.StatusMatch, result.Status)
	assert.InDelta(t, 21.0, result.GroundAvgMPSAS, 1e-9)
	assert.InDelta(t, 21.0, result.EstimatedMPSASFromSatellite, 1e-9)
	assert.Equal(t, 3, result.GroundSampleCount)
	assert.False(t, result.UsedDefaults.Any())
}

func TestCorrelate_Mismatch(t *testing.T) {
	acc := &mockAccessor{
		readings: readingsAt(leiden, 21.5),
		pixel: &measurement.SatellitePixel{
			Location:   leiden,
			Radiance:   400, // 21.58 - 4.0 = 17.58 MPSAS
			AcquiredAt: time.Now(),
		},
	}

	result, err := newService(acc, nil).Correlate(context.Background(), leiden, 25)
	require.NoError(t, err)

	assert.Equal(t, correlation.StatusMismatch, result.Status)
	assert.False(t, result.UsedDefaults.Any())
}

func TestCorrelate_BothDefaults(t *testing.T) {
	// No ground readings and no satellite pixel: both sides pinned.
	// 21.0 vs 21.58 - 0.5/100 = 21.575, within 1.0 magnitude.
	result, err := newService(&mockAccessor{}, nil).Correlate(context.Background(), leiden, 25)
	require.NoError(t, err)

	assert.Equal(t, correlation.StatusMatch, result.Status)
	assert.True(t, result.UsedDefaults.Satellite)
	assert.True(t, result.UsedDefaults.Ground)
	assert.InDelta(t, 21.0, result.GroundAvgMPSAS, 1e-9)
	assert.InDelta(t, 21.575, result.EstimatedMPSASFromSatellite, 1e-9)
	assert.Equal(t, 0, result.GroundSampleCount)
}

func TestCorrelate_GroundOnlyDefault(t *testing.T) {
	acc := &mockAccessor{
		pixel: &measurement.SatellitePixel{
			Location:   leiden,
			Radiance:   58,
			AcquiredAt: time.Now(),
		},
	}

	result, err := newService(acc, nil).Correlate(context.Background(), leiden, 25)
	require.NoError(t, err)

	assert.False(t, result.UsedDefaults.Satellite)
	assert.True(t, result.UsedDefaults.Ground)
}

func TestCorrelate_InvalidCoordinates(t *testing.T) {
	_, err := newService(&mockAccessor{}, nil).Correlate(
		context.Background(), measurement.Location{Lat: 99, Lon: 0}, 25)
	assert.ErrorIs(t, err, measurement.ErrInvalidCoordinates)
}

func TestCorrelate_CachesResult(t *testing.T) {
	acc := &mockAccessor{
		readings: readingsAt(leiden, 21.0),
		pixel: &measurement.SatellitePixel{
			Location:   leiden,
			Radiance:   58,
			AcquiredAt: time.Now(),
		},
	}
	store := cache.NewMemory()
	svc := newService(acc, store)
	ctx := context.Background()

	first, err := svc.Correlate(ctx, leiden, 25)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.pixelCalls)

	second, err := svc.Correlate(ctx, leiden, 25)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.pixelCalls) // served from cache
	assert.Equal(t, first, second)

	// Different radius misses the cache.
	_, err = svc.Correlate(ctx, leiden, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, acc.pixelCalls)
}

func TestCorrelate_ConfigurableThreshold(t *testing.T) {
	acc := &mockAccessor{
		readings: readingsAt(leiden, 20.0),
		pixel: &measurement.SatellitePixel{
			Location:   leiden,
			Radiance:   8, // estimated 21.5, diff 1.5
			AcquiredAt: time.Now(),
		},
	}

	strict := correlation.NewService(correlation.ServiceConfig{
		Accessor: acc,
		Logger:   zerolog.New(io.Discard),
	})
	result, err := strict.Correlate(context.Background(), leiden, 25)
	require.NoError(t, err)
	assert.Equal(t, correlation.StatusMismatch, result.Status)

	loose := correlation.NewService(correlation.ServiceConfig{
		Accessor:       acc,
		Logger:         zerolog.New(io.Discard),
		MatchThreshold: 2.0,
	})
	result, err = loose.Correlate(context.Background(), leiden, 25)
	require.NoError(t, err)
	assert.Equal(t, correlation.StatusMatch, result.Status)
}
