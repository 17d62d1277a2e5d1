package trend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/cache"
	"github.com/nocturna-project/nocturna/internal/measurement"
)

// Accessor is the slice of the measurement accessor the engine consumes.
type Accessor interface {
	YearlySeries(ctx context.Context, loc measurement.Location, radiusKm float64, yearsBack int) []measurement.YearlySeriesPoint
	PixelGrowth(ctx context.Context, loc measurement.Location, radiusKm float64, fromYear, toYear int, minDelta float64) []measurement.GrowthCell
}

// ServiceConfig holds configuration for the trend engine.
type ServiceConfig struct {
	// Accessor provides measurement data. Required.
	Accessor Accessor

	// Cache memoizes results (optional).
	Cache cache.Store

	// Logger for engine operations.
	Logger zerolog.Logger

	// MinGrowthDelta is the radiance increase a cell needs to count as a
	// growth hotspot, in nW/cm²/sr. Default: 5.0.
	MinGrowthDelta float64

	// CacheTTL is how long results stay cached. Default: 1 hour.
	CacheTTL time.Duration
}

// Service is the trend and forecast engine.
type Service struct {
	accessor       Accessor
	cache          cache.Store
	logger         zerolog.Logger
	minGrowthDelta float64
	cacheTTL       time.Duration
}

// NewService creates a trend engine.
func NewService(cfg ServiceConfig) *Service {
	if cfg.MinGrowthDelta == 0 {
		cfg.MinGrowthDelta = 5.0
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Service{
		accessor:       cfg.Accessor,
		cache:          cfg.Cache,
		logger:         cfg.Logger,
		minGrowthDelta: cfg.MinGrowthDelta,
		cacheTTL:       cfg.CacheTTL,
	}
}

// Fit performs ordinary least squares over a yearly series and projects
// forecastYears years past the last observed year. The fit is deterministic:
// no state, no clock.
func Fit(series []measurement.YearlySeriesPoint, forecastYears int) (*Model, error) {
	if len(series) < 2 {
		return nil, ErrInsufficientData
	}

	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range series {
		x := float64(p.Year)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
	}

	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		// All points share one year; no distinct years to regress over.
		return nil, ErrInsufficientData
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	meanX := sumX / n
	meanY := sumY / n
	intercept := meanY - slope*meanX

	// r² as explained-over-total sum of squares. A flat series has zero
	// total variance; report 0 rather than dividing by zero.
	var ssTotal, ssExplained float64
	for _, p := range series {
		predicted := intercept + slope*float64(p.Year)
		ssTotal += (p.Value - meanY) * (p.Value - meanY)
		ssExplained += (predicted - meanY) * (predicted - meanY)
	}
	r2 := 0.0
	if ssTotal > 0 {
		r2 = ssExplained / ssTotal
	}

	model := &Model{
		Slope:     slope,
		Intercept: intercept,
		R2:        r2,
		Series:    make([]measurement.YearlySeriesPoint, 0, len(series)+forecastYears),
	}

	for _, p := range series {
		p.Type = measurement.PointHistorical
		model.Series = append(model.Series, p)
	}

	lastYear := series[len(series)-1].Year
	for i := 1; i <= forecastYears; i++ {
		year := lastYear + i
		model.Series = append(model.Series, measurement.YearlySeriesPoint{
			Year:  year,
			Value: meanY + slope*(float64(year)-meanX),
			Type:  measurement.PointForecast,
		})
	}

	return model, nil
}

// Trend fetches the yearly series for a location and fits it.
// Returns ErrInsufficientData when the store yields fewer than two years.
func (s *Service) Trend(ctx context.Context, loc measurement.Location, radiusKm float64, yearsBack, forecastYears int) (*Model, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key("trend", loc.Lat, loc.Lon, radiusKm, yearsBack, forecastYears)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var model Model
			if err := json.Unmarshal(raw, &model); err == nil {
				return &model, nil
			}
		}
	}

	series := s.accessor.YearlySeries(ctx, loc, radiusKm, yearsBack)
	model, err := Fit(series, forecastYears)
	if err != nil {
		return nil, err
	}
	model.Location = loc
	model.RadiusKm = radiusKm

	s.logger.Debug().
		Float64("lat", loc.Lat).
		Float64("lon", loc.Lon).
		Float64("slope", model.Slope).
		Float64("r2", model.R2).
		Int("points", len(series)).
		Msg("trend fitted")

	s.toCache(ctx, key, model)
	return model, nil
}

// GrowthHotspots reports the raster cells within radiusKm whose mean radiance
// grew by more than the configured delta between two years.
func (s *Service) GrowthHotspots(ctx context.Context, loc measurement.Location, radiusKm float64, fromYear, toYear int) (*HotspotReport, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key("hotspots", loc.Lat, loc.Lon, radiusKm, fromYear, toYear)
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var report HotspotReport
			if err := json.Unmarshal(raw, &report); err == nil {
				return &report, nil
			}
		}
	}

	report := &HotspotReport{
		Location: loc,
		RadiusKm: radiusKm,
		FromYear: fromYear,
		ToYear:   toYear,
		MinDelta: s.minGrowthDelta,
		Cells:    s.accessor.PixelGrowth(ctx, loc, radiusKm, fromYear, toYear, s.minGrowthDelta),
	}

	s.toCache(ctx, key, report)
	return report, nil
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
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache trend result")
	}
}
