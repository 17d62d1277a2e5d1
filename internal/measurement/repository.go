package measurement

import (
	"context"
	"time"
)

// Repository defines the spatial store queries the engines depend on.
// All queries are read-only.
type Repository interface {
	// NearbyGround returns ground readings within radiusKm of loc measured
	// at or after since, newest first.
	NearbyGround(ctx context.Context, loc Location, radiusKm float64, since time.Time) ([]GroundReading, error)

	// LatestSatellitePixel returns the most recent pixel intersecting loc,
	// or nil when no raster covers the location.
	LatestSatellitePixel(ctx context.Context, loc Location) (*SatellitePixel, error)

	// YearlySeries returns per-year mean MPSAS within radiusKm for the last
	// yearsBack years, ascending by year. Years without readings are absent.
	YearlySeries(ctx context.Context, loc Location, radiusKm float64, yearsBack int) ([]YearlySeriesPoint, error)

	// GroundHistory returns the full ground reading history within radiusKm.
	GroundHistory(ctx context.Context, loc Location, radiusKm float64) ([]GroundReading, error)

	// SatelliteHistory returns all pixels within radiusKm across all
	// acquisition dates.
	SatelliteHistory(ctx context.Context, loc Location, radiusKm float64) ([]SatellitePixel, error)

	// PixelGrowth returns cells within radiusKm whose mean radiance grew by
	// more than minDelta between fromYear and toYear, largest growth first.
	PixelGrowth(ctx context.Context, loc Location, radiusKm float64, fromYear, toYear int, minDelta float64) ([]GrowthCell, error)
}
