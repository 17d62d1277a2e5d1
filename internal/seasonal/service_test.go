package seasonal_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/seasonal"
)

type mockAccessor struct {
	readings []measurement.GroundReading
	pixels   []measurement.SatellitePixel
}

func (m *mockAccessor) GroundHistory(_ context.Context, _ measurement.Location, _ float64) []measurement.GroundReading {
	return m.readings
}

func (m *mockAccessor) SatelliteHistory(_ context.Context, _ measurement.Location, _ float64) []measurement.SatellitePixel {
	return m.pixels
}

var amersfoort = measurement.Location{Lat: 52.1530, Lon: 5.3711}

func reading(year int, month time.Month, mpsas float64) measurement.GroundReading {
	return measurement.GroundReading{
		Location:   amersfoort,
		MeasuredAt: time.Date(year, month, 15, 23, 0, 0, 0, time.UTC),
		MPSAS:      mpsas,
	}
}

func pixel(year int, month time.Month, radiance float64) measurement.SatellitePixel {
	return measurement.SatellitePixel{
		Location:   amersfoort,
		Radiance:   radiance,
		AcquiredAt: time.Date(year, month, 15, 0, 0, 0, 0, time.UTC),
	}
}

func newService(acc seasonal.Accessor) *seasonal.Service {
	return seasonal.NewService(seasonal.ServiceConfig{
		Accessor: acc,
		Logger:   zerolog.New(io.Discard),
	})
}

func TestDecompose_MonthlyAggregates(t *testing.T) {
	acc := &mockAccessor{
		readings: []measurement.GroundReading{
			reading(2022, time.January, 20.0),
			reading(2023, time.January, 21.0),
			reading(2022, time.June, 19.0),
		},
		pixels: []measurement.SatellitePixel{
			pixel(2022, time.June, 120),
			pixel(2023, time.June, 140),
		},
	}

	profile, err := newService(acc).Decompose(context.Background(), amersfoort, 25)
	require.NoError(t, err)

	// All twelve months present, zero-sample months included.
	require.Len(t, profile.MonthlyVariations, 12)

	jan := profile.MonthlyVariations[0]
	assert.Equal(t, 1, jan.Month)
	assert.InDelta(t, 20.5, jan.AvgMPSAS, 1e-9)
	assert.Equal(t, 2, jan.SampleCount)

	jun := profile.MonthlyVariations[5]
	assert.InDelta(t, 19.0, jun.AvgMPSAS, 1e-9)
	assert.InDelta(t, 130.0, jun.AvgRadiance, 1e-9)
	assert.Equal(t, 3, jun.SampleCount)

	feb := profile.MonthlyVariations[1]
	assert.Equal(t, 0, feb.SampleCount)
}

func TestDecompose_PeakAndLowest(t *testing.T) {
	// June is clearly the brightest month (radiance 130), January the
	// darkest (mean MPSAS 20.5 maps to ~108 radiance equivalents).
	acc := &mockAccessor{
		readings: []measurement.GroundReading{
			reading(2022, time.January, 21.4), // ~18 radiance-equivalent
			reading(2022, time.June, 19.0),
		},
		pixels: []measurement.SatellitePixel{
			pixel(2022, time.June, 130),
		},
	}

	profile, err := newService(acc).Decompose(context.Background(), amersfoort, 25)
	require.NoError(t, err)

	assert.Equal(t, 6, profile.PeakMonth)
	assert.Equal(t, 1, profile.LowestMonth)
}

func TestDecompose_TieBreaksToLowerMonth(t *testing.T) {
	acc := &mockAccessor{
		pixels: []measurement.SatellitePixel{
			pixel(2022, time.March, 50),
			pixel(2022, time.September, 50),
		},
	}

	profile, err := newService(acc).Decompose(context.Background(), amersfoort, 25)
	require.NoError(t, err)

	assert.Equal(t, 3, profile.PeakMonth)
	assert.Equal(t, 3, profile.LowestMonth)
}

func TestDecompose_EmptyHistory(t *testing.T) {
	profile, err := newService(&mockAccessor{}).Decompose(context.Background(), amersfoort, 25)
	require.NoError(t, err)

	require.Len(t, profile.MonthlyVariations, 12)
	assert.Equal(t, 0, profile.PeakMonth)
	assert.Equal(t, 0, profile.LowestMonth)
}

func TestDecompose_Idempotent(t *testing.T) {
	acc := &mockAccessor{
		readings: []measurement.GroundReading{
			reading(2022, time.January, 20.0),
			reading(2022, time.July, 18.5),
		},
		pixels: []measurement.SatellitePixel{
			pixel(2022, time.July, 210),
		},
	}
	svc := newService(acc)
	ctx := context.Background()

	first, err := svc.Decompose(ctx, amersfoort, 25)
	require.NoError(t, err)
	second, err := svc.Decompose(ctx, amersfoort, 25)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecompose_InvalidCoordinates(t *testing.T) {
	_, err := newService(&mockAccessor{}).Decompose(
		context.Background(), measurement.Location{Lat: 0, Lon: 200}, 25)
	assert.ErrorIs(t, err, measurement.ErrInvalidCoordinates)
}
