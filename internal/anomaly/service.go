// Package anomaly flags a location's current sky brightness as statistically
// unusual against its own recent history.
package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/measurement"
)

// ErrInsufficientData is returned when the location has no readings at all.
var ErrInsufficientData = errors.New("insufficient data: no readings for location")

// maxZScore caps the reported z-score when the baseline has zero variance.
const maxZScore = 99.0

// Cause labels. Higher MPSAS means a darker sky, so a latest reading above
// the baseline mean is a darkening sky and one below it is a brightening sky.
const (
	CauseBrightening          = "brightening"
	CauseDarkening            = "darkening"
	CauseNormal               = "normal"
	CauseInsufficientBaseline = "insufficient baseline"
)

// Verdict is the anomaly decision for a location's latest reading.
type Verdict struct {
	Location        measurement.Location `json:"location"`
	Latest          float64              `json:"latest"`
	MeasuredAt      time.Time            `json:"measuredAt"`
	IsAnomaly       bool                 `json:"isAnomaly"`
	ZScore          float64              `json:"zScore"`
	Cause           string               `json:"cause"`
	BaselineMean    float64              `json:"baselineMean"`
	BaselineStdDev  float64              `json:"baselineStdDev"`
	BaselineSamples int                  `json:"baselineSamples"`
}

// Accessor is the slice of the measurement accessor the detector consumes.
type Accessor interface {
	NearbyGround(ctx context.Context, loc measurement.Location, radiusKm float64, since time.Time) []measurement.GroundReading
}

// ServiceConfig holds configuration for the anomaly detector.
type ServiceConfig struct {
	// Accessor provides measurement data. Required.
	Accessor Accessor

	// Cache memoizes verdicts (optional).
	Cache cache.Store

	// Logger for detector operations.
	Logger zerolog.Logger

	// ZThreshold is the |z| above which a reading is anomalous.
	// Default: 2.0. A design choice, not a validated constant.
	ZThreshold float64

	// CacheTTL is how long verdicts stay cached. Default: 5 minutes.
	CacheTTL time.Duration
}

// Service is the anomaly detector.
type Service struct {
	accessor   Accessor
	cache      cache.Store
	logger     zerolog.Logger
	zThreshold float64
	cacheTTL   time.Duration
}

// NewService creates an anomaly detector.
func NewService(cfg ServiceConfig) *Service {
	if cfg.ZThreshold == 0 {
		cfg.ZThreshold = 2.0
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Service{
		accessor:   cfg.Accessor,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		zThreshold: cfg.ZThreshold,
		cacheTTL:   cfg.CacheTTL,
	}
}

// Detect compares the location's most recent reading against a baseline drawn
// from the preceding windowDays (the latest point excluded).
//
// No readings at all is an ErrInsufficientData; a present latest reading with
// fewer than two baseline points yields a non-anomalous verdict with cause
// "insufficient baseline" rather than a divide-by-zero z-score.
func (s *Service) Detect(ctx context.Context, loc measurement.Location, radiusKm float64, windowDays int) (*Verdict, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key("anomaly", loc.Lat, loc.Lon, radiusKm, windowDays)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var verdict Verdict
			if err := json.Unmarshal(raw, &verdict); err == nil {
				return &verdict, nil
			}
		}
	}

	since := time.Now().AddDate(0, 0, -windowDays)
	readings := s.accessor.NearbyGround(ctx, loc, radiusKm, since)
	if len(readings) == 0 {
		return nil, ErrInsufficientData
	}

	// Readings arrive newest first.
	latest := readings[0]
	baseline := readings[1:]

	verdict := &Verdict{
		Location:        loc,
		Latest:          latest.MPSAS,
		MeasuredAt:      latest.MeasuredAt,
		BaselineSamples: len(baseline),
	}

	if len(baseline) < 2 {
		verdict.Cause = CauseInsufficientBaseline
		s.toCache(ctx, key, verdict)
		return verdict, nil
	}

	var sum float64
	for _, g := range baseline {
		sum += g.MPSAS
	}
	mean := sum / float64(len(baseline))

	var sumSq float64
	for _, g := range baseline {
		sumSq += (g.MPSAS - mean) * (g.MPSAS - mean)
	}
	stddev := math.Sqrt(sumSq / float64(len(baseline))) // population stddev

	verdict.BaselineMean = mean
	verdict.BaselineStdDev = stddev

	if stddev == 0 {
		// Perfectly flat baseline: any deviation at all is anomalous.
		// The z-score is capped so the verdict stays JSON-representable.
		if latest.MPSAS != mean {
			verdict.IsAnomaly = true
			verdict.ZScore = float64(sign(latest.MPSAS-mean)) * maxZScore
		}
	} else {
		verdict.ZScore = (latest.MPSAS - mean) / stddev
		verdict.IsAnomaly = math.Abs(verdict.ZScore) > s.zThreshold
	}

	switch {
	case verdict.IsAnomaly && latest.MPSAS > mean:
		verdict.Cause = CauseDarkening
	case verdict.IsAnomaly && latest.MPSAS < mean:
		verdict.Cause = CauseBrightening
	default:
		verdict.Cause = CauseNormal
	}

	if verdict.IsAnomaly {
		s.logger.Info().
			Float64("lat", loc.Lat).
			Float64("lon", loc.Lon).
			Float64("z_score", verdict.ZScore).
			Str("cause", verdict.Cause).
			Msg("anomalous reading detected")
	}

	s.toCache(ctx, key, verdict)
	return verdict, nil
}

func sign(x float64) int {
	if x < 0 {
		return -1
	}
	return 1
}

func (s *Service) toCache(ctx context.Context, key string, verdict *Verdict) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(verdict)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache anomaly verdict")
	}
}
