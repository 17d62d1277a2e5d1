// Package seasonal aggregates a location's full measurement history by
// calendar month to find its brightest and darkest months.
package seasonal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/units"
)

// MonthlyVariation is one calendar month's aggregate across all years.
type MonthlyVariation struct {
	Month       int     `json:"month"` // 1..12
	AvgMPSAS    float64 `json:"avgMpsas"`
	AvgRadiance float64 `json:"avgRadiance"`
	SampleCount int     `json:"sampleCount"`
}

// Profile is a location's seasonal brightness decomposition. PeakMonth is the
// most light-polluted month, LowestMonth the darkest; both are 0 when the
// location has no samples at all.
type Profile struct {
	Location          measurement.Location `json:"location"`
	RadiusKm          float64              `json:"radiusKm"`
	MonthlyVariations []MonthlyVariation   `json:"monthlyVariations"`
	PeakMonth         int                  `json:"peakMonth"`
	LowestMonth       int                  `json:"lowestMonth"`
}

// Accessor is the slice of the measurement accessor the decomposer consumes.
type Accessor interface {
	GroundHistory(ctx context.Context, loc measurement.Location, radiusKm float64) []measurement.GroundReading
	SatelliteHistory(ctx context.Context, loc measurement.Location, radiusKm float64) []measurement.SatellitePixel
}

// ServiceConfig holds configuration for the seasonal decomposer.
type ServiceConfig struct {
	// Accessor provides measurement data. Required.
	Accessor Accessor

	// Cache memoizes profiles (optional).
	Cache cache.Store

	// Logger for decomposer operations.
	Logger zerolog.Logger

	// CacheTTL is how long profiles stay cached. Default: 6 hours.
	// Seasonal aggregates move slowly, so a long TTL is appropriate.
	CacheTTL time.Duration
}

// Service is the seasonal decomposer.
type Service struct {
	accessor Accessor
	cache    cache.Store
	logger   zerolog.Logger
	cacheTTL time.Duration
}

// NewService creates a seasonal decomposer.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	return &Service{
		accessor: cfg.Accessor,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
		cacheTTL: cfg.CacheTTL,
	}
}

// Decompose groups the location's full history by calendar month. All twelve
// months appear in the output; months without samples carry SampleCount 0 and
// are excluded from peak/lowest selection. The decomposition is a pure
// function of the stored history, so repeated runs yield identical profiles.
func (s *Service) Decompose(ctx context.Context, loc measurement.Location, radiusKm float64) (*Profile, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key("seasonal", loc.Lat, loc.Lon, radiusKm)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var profile Profile
			if err := json.Unmarshal(raw, &profile); err == nil {
				return &profile, nil
			}
		}
	}

	readings := s.accessor.GroundHistory(ctx, loc, radiusKm)
	pixels := s.accessor.SatelliteHistory(ctx, loc, radiusKm)

	var mpsasSum, radianceSum [13]float64
	var groundCount, satCount [13]int
	for _, g := range readings {
		m := int(g.MeasuredAt.Month())
		mpsasSum[m] += g.MPSAS
		groundCount[m]++
	}
	for _, p := range pixels {
		m := int(p.AcquiredAt.Month())
		radianceSum[m] += p.Radiance
		satCount[m]++
	}

	profile := &Profile{
		Location:          loc,
		RadiusKm:          radiusKm,
		MonthlyVariations: make([]MonthlyVariation, 0, 12),
	}

	peakScore, lowScore := 0.0, 0.0
	for month := 1; month <= 12; month++ {
		v := MonthlyVariation{
			Month:       month,
			SampleCount: groundCount[month] + satCount[month],
		}
		if groundCount[month] > 0 {
			v.AvgMPSAS = mpsasSum[month] / float64(groundCount[month])
		}
		if satCount[month] > 0 {
			v.AvgRadiance = radianceSum[month] / float64(satCount[month])
		}
		profile.MonthlyVariations = append(profile.MonthlyVariations, v)

		if v.SampleCount == 0 {
			continue
		}

		// Brightness score in radiance terms. Months with only ground
		// samples are mapped through the canonical conversion so both
		// source mixes rank on one scale.
		score := v.AvgRadiance
		if satCount[month] == 0 {
			score = units.MPSASToRadiance(v.AvgMPSAS)
		}

		// Ties break toward the lower month number, so only a strictly
		// better score displaces an earlier month.
		if profile.PeakMonth == 0 || score > peakScore {
			profile.PeakMonth = month
			peakScore = score
		}
		if profile.LowestMonth == 0 || score < lowScore {
			profile.LowestMonth = month
			lowScore = score
		}
	}

	s.toCache(ctx, key, profile)
	return profile, nil
}

func (s *Service) toCache(ctx context.Context, key string, profile *Profile) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache seasonal profile")
	}
}
