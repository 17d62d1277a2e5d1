package measurement

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sampler samples the latest satellite mosaic at a point. It backs the
// Accessor when the spatial store has no pixel for a location.
type Sampler interface {
	// Sample returns the current radiance at the point, or nil when the
	// mosaic has no coverage there.
	Sample(ctx context.Context, loc Location) (*SatellitePixel, error)
}

// AccessorConfig holds configuration for the measurement accessor.
type AccessorConfig struct {
	// Repository is the spatial store. Required.
	Repository Repository

	// Sampler is an optional raster fallback for satellite pixels.
	Sampler Sampler

	// Logger for degraded-path logging.
	Logger zerolog.Logger

	// StoreTimeout bounds each store call (default: 5s).
	StoreTimeout time.Duration
}

// Accessor is the single entry point to measurement data for all engines.
//
// Availability beats strictness here: a store timeout or error degrades to an
// empty result set and is logged, never propagated. Engines treat empty as
// "no data" and fall back to their pinned defaults.
type Accessor struct {
	repo    Repository
	sampler Sampler
	logger  zerolog.Logger
	timeout time.Duration
}

// NewAccessor creates a measurement accessor.
func NewAccessor(cfg AccessorConfig) *Accessor {
	timeout := cfg.StoreTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Accessor{
		repo:    cfg.Repository,
		sampler: cfg.Sampler,
		logger:  cfg.Logger,
		timeout: timeout,
	}
}

// NearbyGround returns ground readings within radiusKm measured at or after
// since. An unreachable store yields an empty slice.
func (a *Accessor) NearbyGround(ctx context.Context, loc Location, radiusKm float64, since time.Time) []GroundReading {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	readings, err := a.repo.NearbyGround(ctx, loc, radiusKm, since)
	if err != nil {
		a.logDegraded(loc, "nearby_ground", err)
		return nil
	}
	return readings
}

// LatestSatellitePixel returns the newest pixel covering loc, consulting the
// raster sampler when the store has none. Returns nil when neither source has
// coverage or both are unreachable.
func (a *Accessor) LatestSatellitePixel(ctx context.Context, loc Location) *SatellitePixel {
	storeCtx, cancel := context.WithTimeout(ctx, a.timeout)
	pixel, err := a.repo.LatestSatellitePixel(storeCtx, loc)
	cancel()
	if err != nil {
		a.logDegraded(loc, "latest_satellite_pixel", err)
		pixel = nil
	}
	if pixel != nil || a.sampler == nil {
		return pixel
	}

	sampleCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	pixel, err = a.sampler.Sample(sampleCtx, loc)
	if err != nil {
		a.logDegraded(loc, "raster_sample", err)
		return nil
	}
	return pixel
}

// YearlySeries returns per-year mean MPSAS, ascending. Empty on store failure.
func (a *Accessor) YearlySeries(ctx context.Context, loc Location, radiusKm float64, yearsBack int) []YearlySeriesPoint {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	series, err := a.repo.YearlySeries(ctx, loc, radiusKm, yearsBack)
	if err != nil {
		a.logDegraded(loc, "yearly_series", err)
		return nil
	}
	return series
}

// GroundHistory returns the full ground history within radiusKm.
func (a *Accessor) GroundHistory(ctx context.Context, loc Location, radiusKm float64) []GroundReading {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	readings, err := a.repo.GroundHistory(ctx, loc, radiusKm)
	if err != nil {
		a.logDegraded(loc, "ground_history", err)
		return nil
	}
	return readings
}

// SatelliteHistory returns all pixels within radiusKm.
func (a *Accessor) SatelliteHistory(ctx context.Context, loc Location, radiusKm float64) []SatellitePixel {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	pixels, err := a.repo.SatelliteHistory(ctx, loc, radiusKm)
	if err != nil {
		a.logDegraded(loc, "satellite_history", err)
		return nil
	}
	return pixels
}

// PixelGrowth returns growth cells between two years within radiusKm.
func (a *Accessor) PixelGrowth(ctx context.Context, loc Location, radiusKm float64, fromYear, toYear int, minDelta float64) []GrowthCell {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cells, err := a.repo.PixelGrowth(ctx, loc, radiusKm, fromYear, toYear, minDelta)
	if err != nil {
		a.logDegraded(loc, "pixel_growth", err)
		return nil
	}
	return cells
}

func (a *Accessor) logDegraded(loc Location, op string, err error) {
	a.logger.Warn().
		Err(err).
		Str("op", op).
		Float64("lat", loc.Lat).
		Float64("lon", loc.Lon).
		Msg("spatial store unavailable, degrading to empty result")
}
