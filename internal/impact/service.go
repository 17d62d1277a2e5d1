package impact

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/correlation"
	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/units"
)

// Energy model constants. Policy figures, not measurements.
const (
	hoursPerNight       = 10
	costPerKwh          = 0.15
	co2TonsPerKwh       = 0.0004
	potentialSavingsPct = 40.0 // full LED retrofit
)

// wattsPerSqKm is upward-wasted lighting power density per Bortle class.
var wattsPerSqKm = map[int]float64{
	1: 50,
	2: 120,
	3: 300,
	4: 800,
	5: 1500,
	6: 2500,
	7: 4000,
	8: 6000,
	9: 9000,
}

// threatsByLevel maps impact levels to their characteristic ecological threats.
var threatsByLevel = map[Level][]string{
	LevelLow:      {"minor skyglow at horizon"},
	LevelModerate: {"disrupted insect navigation", "reduced star visibility for nocturnal foragers"},
	LevelHigh:     {"disrupted bird migration", "suppressed bat foraging", "altered predator-prey cycles"},
	LevelCritical: {"disrupted bird migration", "suppressed bat foraging", "altered predator-prey cycles", "habitat abandonment risk"},
}

// Correlator provides the correlated brightness the estimators start from.
type Correlator interface {
	Correlate(ctx context.Context, loc measurement.Location, radiusKm float64) (*correlation.Result, error)
}

// ServiceConfig holds configuration for the impact estimators.
type ServiceConfig struct {
	// Correlator supplies the correlated brightness value. Required.
	Correlator Correlator

	// Habitats is the protected-area reference table. Required for
	// ecological assessment.
	Habitats HabitatRepository

	// Cache memoizes assessments (optional).
	Cache cache.Store

	// Logger for estimator operations.
	Logger zerolog.Logger

	// HotspotRadiusKm is how far a protected area may be and still escalate
	// a HIGH assessment to CRITICAL. Default: 50.
	HotspotRadiusKm float64

	// CacheTTL is how long assessments stay cached. Default: 30 minutes.
	CacheTTL time.Duration
}

// Service holds both impact estimators.
type Service struct {
	correlator      Correlator
	habitats        HabitatRepository
	cache           cache.Store
	logger          zerolog.Logger
	hotspotRadiusKm float64
	cacheTTL        time.Duration
}

// NewService creates the impact estimators.
func NewService(cfg ServiceConfig) *Service {
	if cfg.HotspotRadiusKm == 0 {
		cfg.HotspotRadiusKm = 50
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	return &Service{
		correlator:      cfg.Correlator,
		habitats:        cfg.Habitats,
		cache:           cfg.Cache,
		logger:          cfg.Logger,
		hotspotRadiusKm: cfg.HotspotRadiusKm,
		cacheTTL:        cfg.CacheTTL,
	}
}

// AssessEcological classifies the ecological impact of the correlated sky
// brightness at a location. HIGH assessments escalate to CRITICAL when a
// protected habitat lies within the hotspot radius.
func (s *Service) AssessEcological(ctx context.Context, loc measurement.Location, radiusKm float64) (*Assessment, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key("impact-eco", loc.Lat, loc.Lon, radiusKm)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var assessment Assessment
			if err := json.Unmarshal(raw, &assessment); err == nil {
				return &assessment, nil
			}
		}
	}

	corr, err := s.correlator.Correlate(ctx, loc, radiusKm)
	if err != nil {
		return nil, err
	}
	// Ground SQM averages are better calibrated than the satellite
	// estimate; use them whenever real samples exist.
	mpsas := corr.EstimatedMPSASFromSatellite
	if !corr.UsedDefaults.Ground {
		mpsas = corr.GroundAvgMPSAS
	}

	assessment := &Assessment{
		Location:       loc,
		EstimatedMPSAS: mpsas,
		Degraded:       corr.UsedDefaults.Any(),
	}

	switch {
	case mpsas >= 21.0:
		assessment.ImpactLevel = LevelLow
	case mpsas >= 19.0:
		assessment.ImpactLevel = LevelModerate
	default:
		assessment.ImpactLevel = LevelHigh
	}

	habitats, err := s.habitats.Nearby(ctx, loc, s.hotspotRadiusKm)
	if err != nil {
		// Reference-table failure degrades the hotspot escalation, not
		// the brightness classification.
		s.logger.Warn().Err(err).Msg("habitat lookup failed, skipping hotspot escalation")
		assessment.Degraded = true
		habitats = nil
	}

	speciesSet := make(map[string]struct{})
	for _, h := range habitats {
		assessment.NearbyHotspots = append(assessment.NearbyHotspots, NearbyHotspot{
			Name:       h.Name,
			DistanceKm: loc.DistanceKm(h.Location),
		})
		for _, sp := range h.Species {
			speciesSet[sp] = struct{}{}
		}
	}
	sort.Slice(assessment.NearbyHotspots, func(i, j int) bool {
		return assessment.NearbyHotspots[i].DistanceKm < assessment.NearbyHotspots[j].DistanceKm
	})

	if assessment.ImpactLevel == LevelHigh && len(assessment.NearbyHotspots) > 0 {
		assessment.ImpactLevel = LevelCritical
	}

	for sp := range speciesSet {
		assessment.AffectedSpecies = append(assessment.AffectedSpecies, sp)
	}
	sort.Strings(assessment.AffectedSpecies)
	assessment.Threats = threatsByLevel[assessment.ImpactLevel]

	s.toCache(ctx, key, assessment)
	return assessment, nil
}

// EstimateEnergyWaste estimates wasted outdoor lighting for an area around a
// location, derived from its correlated Bortle class. areaKm2 defaults to 1.0
// when zero or negative.
func (s *Service) EstimateEnergyWaste(ctx context.Context, loc measurement.Location, radiusKm, areaKm2 float64) (*EnergyWasteEstimate, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if areaKm2 <= 0 {
		areaKm2 = 1.0
	}

	key := cache.Key("impact-energy", loc.Lat, loc.Lon, radiusKm, areaKm2)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var estimate EnergyWasteEstimate
			if err := json.Unmarshal(raw, &estimate); err == nil {
				return &estimate, nil
			}
		}
	}

	corr, err := s.correlator.Correlate(ctx, loc, radiusKm)
	if err != nil {
		return nil, err
	}
	mpsas := corr.EstimatedMPSASFromSatellite
	if !corr.UsedDefaults.Ground {
		mpsas = corr.GroundAvgMPSAS
	}

	class := units.MPSASToBortle(mpsas)
	annualKwh := wattsPerSqKm[class] * areaKm2 * 365 * hoursPerNight / 1000

	estimate := &EnergyWasteEstimate{
		Location:            loc,
		AreaKm2:             areaKm2,
		BortleClass:         class,
		WasteKwhPerYear:     annualKwh,
		CostPerYear:         annualKwh * costPerKwh,
		CO2TonsPerYear:      annualKwh * co2TonsPerKwh,
		PotentialSavingsPct: potentialSavingsPct,
		Degraded:            corr.UsedDefaults.Any(),
	}

	s.toCache(ctx, key, estimate)
	return estimate, nil
}

func (s *Service) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache impact estimate")
	}
}
