package measurement_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturna-project/nocturna/internal/measurement"
)

// failingRepository returns an error from every query.
type failingRepository struct{}

func (failingRepository) NearbyGround(context.Context, measurement.Location, float64, time.Time) ([]measurement.GroundReading, error) {
	return nil, measurement.ErrStoreUnavailable
}

func (failingRepository) LatestSatellitePixel(context.Context, measurement.Location) (*measurement.SatellitePixel, error) {
	return nil, measurement.ErrStoreUnavailable
}

func (failingRepository) YearlySeries(context.Context, measurement.Location, float64, int) ([]measurement.YearlySeriesPoint, error) {
	return nil, measurement.ErrStoreUnavailable
}

func (failingRepository) GroundHistory(context.Context, measurement.Location, float64) ([]measurement.GroundReading, error) {
	return nil, measurement.ErrStoreUnavailable
}

func (failingRepository) SatelliteHistory(context.Context, measurement.Location, float64) ([]measurement.SatellitePixel, error) {
	return nil, measurement.ErrStoreUnavailable
}

func (failingRepository) PixelGrowth(context.Context, measurement.Location, float64, int, int, float64) ([]measurement.GrowthCell, error) {
	return nil, measurement.ErrStoreUnavailable
}

type stubSampler struct {
	pixel *measurement.SatellitePixel
	err   error
	calls int
}

func (s *stubSampler) Sample(_ context.Context, _ measurement.Location) (*measurement.SatellitePixel, error) {
	s.calls++
	return s.pixel, s.err
}

var utrecht = measurement.Location{Lat: 52.0894, Lon: 5.1102}

func TestLocation_Validate(t *testing.T) {
	require.NoError(t, utrecht.Validate())

	for _, loc := range []measurement.Location{
		{Lat: 91, Lon: 0},
		{Lat: -91, Lon: 0},
		{Lat: 0, Lon: 181},
		{Lat: 0, Lon: -181},
	} {
		assert.ErrorIs(t, loc.Validate(), measurement.ErrInvalidCoordinates)
	}
}

func TestLocation_DistanceKm(t *testing.T) {
	amsterdam := measurement.Location{Lat: 52.3676, Lon: 4.9041}
	rotterdam := measurement.Location{Lat: 51.9244, Lon: 4.4777}

	// Amsterdam-Rotterdam is about 57km as the crow flies.
	assert.InDelta(t, 57, amsterdam.DistanceKm(rotterdam), 2)
	assert.Equal(t, 0.0, amsterdam.DistanceKm(amsterdam))
}

func TestAccessor_DegradesToEmptyOnStoreFailure(t *testing.T) {
	acc := measurement.NewAccessor(measurement.AccessorConfig{
		Repository: failingRepository{},
		Logger:     zerolog.New(io.Discard),
	})
	ctx := context.Background()

	assert.Empty(t, acc.NearbyGround(ctx, utrecht, 25, time.Time{}))
	assert.Nil(t, acc.LatestSatellitePixel(ctx, utrecht))
	assert.Empty(t, acc.YearlySeries(ctx, utrecht, 25, 10))
	assert.Empty(t, acc.GroundHistory(ctx, utrecht, 25))
	assert.Empty(t, acc.SatelliteHistory(ctx, utrecht, 25))
	assert.Empty(t, acc.PixelGrowth(ctx, utrecht, 25, 2022, 2023, 5))
}

func TestAccessor_SamplerFallback(t *testing.T) {
	sampled := &measurement.SatellitePixel{
		Location:   utrecht,
		Radiance:   42.5,
		AcquiredAt: time.Now(),
	}
	sampler := &stubSampler{pixel: sampled}

	acc := measurement.NewAccessor(measurement.AccessorConfig{
		Repository: measurement.NewMemoryRepository(), // empty store
		Sampler:    sampler,
		Logger:     zerolog.New(io.Discard),
	})

	pixel := acc.LatestSatellitePixel(context.Background(), utrecht)
	require.NotNil(t, pixel)
	assert.Equal(t, 42.5, pixel.Radiance)
	assert.Equal(t, 1, sampler.calls)
}

func TestAccessor_SamplerNoCoverageIsQuiet(t *testing.T) {
	// A nil pixel with nil error means the mosaic has no coverage at the
	// point. That is an expected condition, not degradation, so nothing
	// should be logged.
	sampler := &stubSampler{}
	var logBuf bytes.Buffer

	acc := measurement.NewAccessor(measurement.AccessorConfig{
		Repository: measurement.NewMemoryRepository(), // empty store
		Sampler:    sampler,
		Logger:     zerolog.New(&logBuf),
	})

	pixel := acc.LatestSatellitePixel(context.Background(), utrecht)
	assert.Nil(t, pixel)
	assert.Equal(t, 1, sampler.calls)
	assert.Empty(t, logBuf.String())
}

func TestAccessor_SamplerNotConsultedWhenStoreHasPixel(t *testing.T) {
	repo := measurement.NewMemoryRepository()
	repo.AddPixel(measurement.SatellitePixel{
		Location:   utrecht,
		Radiance:   12.0,
		AcquiredAt: time.Now(),
	})
	sampler := &stubSampler{err: errors.New("should not be called")}

	acc := measurement.NewAccessor(measurement.AccessorConfig{
		Repository: repo,
		Sampler:    sampler,
		Logger:     zerolog.New(io.Discard),
	})

	pixel := acc.LatestSatellitePixel(context.Background(), utrecht)
	require.NotNil(t, pixel)
	assert.Equal(t, 12.0, pixel.Radiance)
	assert.Equal(t, 0, sampler.calls)
}

func TestMemoryRepository_NearbyGround(t *testing.T) {
	repo := measurement.NewMemoryRepository()
	now := time.Now()

	repo.AddReading(measurement.GroundReading{
		Location:   measurement.Location{Lat: 52.09, Lon: 5.11},
		MeasuredAt: now.Add(-1 * time.Hour),
		MPSAS:      20.5,
	})
	repo.AddReading(measurement.GroundReading{
		Location:   measurement.Location{Lat: 52.10, Lon: 5.12},
		MeasuredAt: now.Add(-2 * time.Hour),
		MPSAS:      20.8,
	})
	// Far away: Tokyo.
	repo.AddReading(measurement.GroundReading{
		Location:   measurement.Location{Lat: 35.68, Lon: 139.69},
		MeasuredAt: now,
		MPSAS:      17.2,
	})

	readings, err := repo.NearbyGround(context.Background(), utrecht, 25, time.Time{})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	// Newest first.
	assert.Equal(t, 20.5, readings[0].MPSAS)
	assert.Equal(t, 20.8, readings[1].MPSAS)
}

func TestMemoryRepository_YearlySeries(t *testing.T) {
	repo := measurement.NewMemoryRepository()
	for year, values := range map[int][]float64{
		2022: {20.0, 21.0},
		2023: {19.5},
	} {
		for _, v := range values {
			repo.AddReading(measurement.GroundReading{
				Location:   utrecht,
				MeasuredAt: time.Date(year, 6, 15, 23, 0, 0, 0, time.UTC),
				MPSAS:      v,
			})
		}
	}

	series, err := repo.YearlySeries(context.Background(), utrecht, 10, 20)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 2022, series[0].Year)
	assert.InDelta(t, 20.5, series[0].Value, 1e-9)
	assert.Equal(t, 2023, series[1].Year)
	assert.InDelta(t, 19.5, series[1].Value, 1e-9)
}

func TestMemoryRepository_PixelGrowth(t *testing.T) {
	repo := measurement.NewMemoryRepository()
	cell := measurement.Location{Lat: 52.09, Lon: 5.11}

	repo.AddPixel(measurement.SatellitePixel{
		Location: cell, Radiance: 10, AcquiredAt: time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	repo.AddPixel(measurement.SatellitePixel{
		Location: cell, Radiance: 18, AcquiredAt: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	// A cell that barely changed.
	stable := measurement.Location{Lat: 52.10, Lon: 5.12}
	repo.AddPixel(measurement.SatellitePixel{
		Location: stable, Radiance: 5, AcquiredAt: time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	repo.AddPixel(measurement.SatellitePixel{
		Location: stable, Radiance: 6, AcquiredAt: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
	})

	cells, err := repo.PixelGrowth(context.Background(), utrecht, 25, 2022, 2023, 5.0)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, cell, cells[0].Location)
	assert.InDelta(t, 8.0, cells[0].Delta, 1e-9)
}
