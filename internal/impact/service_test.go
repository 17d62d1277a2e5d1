package impact_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocturna-project/nocturna/internal/correlation"
	"github.com/nocturna-project/nocturna/internal/impact"
	"github.com/nocturna-project/nocturna/internal/measurement"
)

type stubCorrelator struct {
	result *correlation.Result
	err    error
}

func (s *stubCorrelator) Correlate(_ context.Context, loc measurement.Location, radiusKm float64) (*correlation.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	r.Location = loc
	r.RadiusKm = radiusKm
	return &r, nil
}

type failingHabitats struct{}

func (failingHabitats) Nearby(context.Context, measurement.Location, float64) ([]impact.Habitat, error) {
	return nil, errors.New("reference table unavailable")
}

// veluwe is inside the built-in reference habitat set's hotspot range.
var veluwe = measurement.Location{Lat: 52.0906, Lon: 5.8310}

// remote sits well outside the hotspot radius of every reference habitat.
var remote = measurement.Location{Lat: 50.0, Lon: 3.0}

func groundResult(mpsas float64) *correlation.Result {
	return &correlation.Result{
		GroundAvgMPSAS:              mpsas,
		EstimatedMPSASFromSatellite: mpsas,
		GroundSampleCount:           10,
		Status:                      correlation.StatusMatch,
	}
}

func newService(c impact.Correlator, h impact.HabitatRepository) *impact.Service {
	if h == nil {
		h = impact.NewMemoryHabitatRepository(nil)
	}
	return impact.NewService(impact.ServiceConfig{
		Correlator: c,
		Habitats:   h,
		Logger:     zerolog.New(io.Discard),
	})
}

func TestAssessEcological_Levels(t *testing.T) {
	tests := []struct {
		name  string
		mpsas float64
		loc   measurement.Location
		want  impact.Level
	}{
		{"dark rural sky", 21.5, remote, impact.LevelLow},
		{"suburban sky", 19.8, remote, impact.LevelModerate},
		{"bright sky far from habitats", 18.0, remote, impact.LevelHigh},
		{"bright sky next to protected habitat", 18.0, veluwe, impact.LevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(&stubCorrelator{result: groundResult(tt.mpsas)}, nil)
			assessment, err := svc.AssessEcological(context.Background(), tt.loc, 25)
			require.NoError(t, err)
			assert.Equal(t, tt.want, assessment.ImpactLevel)
		})
	}
}

func TestAssessEcological_HotspotDetails(t *testing.T) {
	svc := newService(&stubCorrelator{result: groundResult(18.5)}, nil)

	assessment, err := svc.AssessEcological(context.Background(), veluwe, 25)
	require.NoError(t, err)

	require.NotEmpty(t, assessment.NearbyHotspots)
	assert.Equal(t, "Nationaal Park De Hoge Veluwe", assessment.NearbyHotspots[0].Name)
	assert.InDelta(t, 0, assessment.NearbyHotspots[0].DistanceKm, 0.5)
	assert.Contains(t, assessment.AffectedSpecies, "Nightjar")
	assert.NotEmpty(t, assessment.Threats)
	assert.Contains(t, assessment.Threats, "habitat abandonment risk")
}

func TestAssessEcological_HabitatFailureDegrades(t *testing.T) {
	svc := newService(&stubCorrelator{result: groundResult(18.0)}, failingHabitats{})

	assessment, err := svc.AssessEcological(context.Background(), veluwe, 25)
	require.NoError(t, err)

	// Without the reference table the classification stands but cannot
	// escalate to CRITICAL, and the caller is told.
	assert.Equal(t, impact.LevelHigh, assessment.ImpactLevel)
	assert.True(t, assessment.Degraded)
	assert.Empty(t, assessment.NearbyHotspots)
}

func TestAssessEcological_DefaultsPropagateDegraded(t *testing.T) {
	result := groundResult(21.575)
	result.UsedDefaults = correlation.UsedDefaults{Satellite: true, Ground: true}
	svc := newService(&stubCorrelator{result: result}, nil)

	assessment, err := svc.AssessEcological(context.Background(), remote, 25)
	require.NoError(t, err)
	assert.True(t, assessment.Degraded)
}

func TestEstimateEnergyWaste(t *testing.T) {
	// MPSAS 18.0 is Bortle 8 → 6000 W/km².
	svc := newService(&stubCorrelator{result: groundResult(18.0)}, nil)

	estimate, err := svc.EstimateEnergyWaste(context.Background(), remote, 25, 2.0)
	require.NoError(t, err)

	assert.Equal(t, 8, estimate.BortleClass)
	// 6000 * 2.0 * 365 * 10 / 1000 = 43800 kWh
	assert.InDelta(t, 43800, estimate.WasteKwhPerYear, 1e-6)
	assert.InDelta(t, 43800*0.15, estimate.CostPerYear, 1e-6)
	assert.InDelta(t, 43800*0.0004, estimate.CO2TonsPerYear, 1e-6)
	assert.Equal(t, 40.0, estimate.PotentialSavingsPct)
}

func TestEstimateEnergyWaste_DefaultArea(t *testing.T) {
	svc := newService(&stubCorrelator{result: groundResult(21.2)}, nil)

	estimate, err := svc.EstimateEnergyWaste(context.Background(), remote, 25, 0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, estimate.AreaKm2)
	assert.Equal(t, 4, estimate.BortleClass)
}

func TestInvalidCoordinatesRejected(t *testing.T) {
	svc := newService(&stubCorrelator{result: groundResult(20)}, nil)
	bad := measurement.Location{Lat: 100, Lon: 0}

	_, err := svc.AssessEcological(context.Background(), bad, 25)
	assert.ErrorIs(t, err, measurement.ErrInvalidCoordinates)

	_, err = svc.EstimateEnergyWaste(context.Background(), bad, 25, 1)
	assert.ErrorIs(t, err, measurement.ErrInvalidCoordinates)
}

func TestMemoryHabitatRepository_Nearby(t *testing.T) {
	repo := impact.NewMemoryHabitatRepository([]impact.Habitat{
		{Name: "A", Location: measurement.Location{Lat: 52.0, Lon: 5.0}},
		{Name: "B", Location: measurement.Location{Lat: 40.0, Lon: -3.0}},
	})

	nearby, err := repo.Nearby(context.Background(), measurement.Location{Lat: 52.1, Lon: 5.1}, 50)
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, "A", nearby[0].Name)
}
