package correlation

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/measurement"
	"github.com/nocturna-project/nocturna/internal/units"
)

// Accessor is the slice of the measurement accessor the engine consumes.
type Accessor interface {
	NearbyGround(ctx context.Context, loc measurement.Location, radiusKm float64, since time.Time) []measurement.GroundReading
	LatestSatellitePixel(ctx context.Context, loc measurement.Location) *measurement.SatellitePixel
}

// ServiceConfig holds configuration for the correlation engine.
type ServiceConfig struct {
	// Accessor provides measurement data. Required.
	Accessor Accessor

	// Cache memoizes results (optional).
	Cache cache.Store

	// Logger for engine operations.
	Logger zerolog.Logger

	// MatchThreshold is the maximum |estimated − ground| difference in
	// magnitudes still considered agreement. Default: 1.0.
	MatchThreshold float64

	// DefaultRadiance is the pinned satellite fallback in nW/cm²/sr.
	// Default: 0.5.
	DefaultRadiance float64

	// DefaultMPSAS is the pinned ground fallback. Default: 21.0.
	DefaultMPSAS float64

	// LookbackDays limits which ground readings count toward the average.
	// Default: 365.
	LookbackDays int

	// CacheTTL is how long results stay cached. Default: 15 minutes.
	CacheTTL time.Duration
}

// Service is the correlation engine.
type Service struct {
	accessor        Accessor
	cache           cache.Store
	logger          zerolog.Logger
	matchThreshold  float64
	defaultRadiance float64
	defaultMPSAS    float64
	lookbackDays    int
	cacheTTL        time.Duration
}

// NewService creates a correlation engine.
func NewService(cfg ServiceConfig) *Service {
	if cfg.MatchThreshold == 0 {
		cfg.MatchThreshold = 1.0
	}
	if cfg.DefaultRadiance == 0 {
		cfg.DefaultRadiance = 0.5
	}
	if cfg.DefaultMPSAS == 0 {
		cfg.DefaultMPSAS = 21.0
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = 365
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	return &Service{
		accessor:        cfg.Accessor,
		cache:           cfg.Cache,
		logger:          cfg.Logger,
		matchThreshold:  cfg.MatchThreshold,
		defaultRadiance: cfg.DefaultRadiance,
		defaultMPSAS:    cfg.DefaultMPSAS,
		lookbackDays:    cfg.LookbackDays,
		cacheTTL:        cfg.CacheTTL,
	}
}

// Correlate produces the satellite/ground agreement verdict for a location.
// A missing source degrades to its pinned default and sets the matching
// UsedDefaults flag; the call itself never fails on missing data.
func (s *Service) Correlate(ctx context.Context, loc measurement.Location, radiusKm float64) (*Result, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key("correlation", loc.Lat, loc.Lon, radiusKm)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	result := s.compute(ctx, loc, radiusKm)
	s.toCache(ctx, key, result)
	return result, nil
}

func (s *Service) compute(ctx context.Context, loc measurement.Location, radiusKm float64) *Result {
	result := &Result{
		Location: loc,
		RadiusKm: radiusKm,
	}

	pixel := s.accessor.LatestSatellitePixel(ctx, loc)
	if pixel != nil {
		result.SatelliteRadiance = pixel.Radiance
	} else {
		result.SatelliteRadiance = s.defaultRadiance
		result.UsedDefaults.Satellite = true
	}

	since := time.Now().AddDate(0, 0, -s.lookbackDays)
	readings := s.accessor.NearbyGround(ctx, loc, radiusKm, since)
	result.GroundSampleCount = len(readings)
	if len(readings) > 0 {
		var sum float64
		for _, g := range readings {
			sum += g.MPSAS
		}
		result.GroundAvgMPSAS = sum / float64(len(readings))
	} else {
		result.GroundAvgMPSAS = s.defaultMPSAS
		result.UsedDefaults.Ground = true
	}

	result.EstimatedMPSASFromSatellite = units.RadianceToMPSAS(result.SatelliteRadiance)

	if math.Abs(result.EstimatedMPSASFromSatellite-result.GroundAvgMPSAS) <= s.matchThreshold {
		result.Status = StatusMatch
	} else {
		result.Status = StatusMismatch
	}

	if result.UsedDefaults.Any() {
		s.logger.Debug().
			Float64("lat", loc.Lat).
			Float64("lon", loc.Lon).
			Bool("default_satellite", result.UsedDefaults.Satellite).
			Bool("default_ground", result.UsedDefaults.Ground).
			Msg("correlation computed with pinned defaults")
	}

	return result
}

func (s *Service) fromCache(ctx context.Context, key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (s *Service) toCache(ctx context.Context, key string, result *Result) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache correlation result")
	}
}
