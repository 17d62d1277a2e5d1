package measurement

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository for tests and local development.
type MemoryRepository struct {
	mu       sync.RWMutex
	readings []GroundReading
	pixels   []SatellitePixel
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// AddReading stores a ground reading.
func (r *MemoryRepository) AddReading(g GroundReading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, g)
}

// AddPixel stores a satellite pixel.
func (r *MemoryRepository) AddPixel(p SatellitePixel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pixels = append(r.pixels, p)
}

// NearbyGround returns readings within radiusKm measured at or after since,
// newest first.
func (r *MemoryRepository) NearbyGround(_ context.Context, loc Location, radiusKm float64, since time.Time) ([]GroundReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []GroundReading
	for _, g := range r.readings {
		if g.MeasuredAt.Before(since) {
			continue
		}
		if loc.DistanceKm(g.Location) <= radiusKm {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MeasuredAt.After(result[j].MeasuredAt)
	})
	return result, nil
}

// LatestSatellitePixel returns the newest pixel within the intersect radius.
func (r *MemoryRepository) LatestSatellitePixel(_ context.Context, loc Location) (*SatellitePixel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *SatellitePixel
	for i := range r.pixels {
		p := r.pixels[i]
		if loc.DistanceKm(p.Location) > pixelIntersectKm {
			continue
		}
		if latest == nil || p.AcquiredAt.After(latest.AcquiredAt) {
			latest = &p
		}
	}
	return latest, nil
}

// YearlySeries returns per-year mean MPSAS, ascending by year.
func (r *MemoryRepository) YearlySeries(_ context.Context, loc Location, radiusKm float64, yearsBack int) ([]YearlySeriesPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().AddDate(-yearsBack, 0, 0)
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, g := range r.readings {
		if g.MeasuredAt.Before(cutoff) || loc.DistanceKm(g.Location) > radiusKm {
			continue
		}
		year := g.MeasuredAt.Year()
		sums[year] += g.MPSAS
		counts[year]++
	}

	series := make([]YearlySeriesPoint, 0, len(sums))
	for year, sum := range sums {
		series = append(series, YearlySeriesPoint{
			Year:  year,
			Value: sum / float64(counts[year]),
			Type:  PointHistorical,
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series, nil
}

// GroundHistory returns all readings within radiusKm, oldest first.
func (r *MemoryRepository) GroundHistory(_ context.Context, loc Location, radiusKm float64) ([]GroundReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []GroundReading
	for _, g := range r.readings {
		if loc.DistanceKm(g.Location) <= radiusKm {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MeasuredAt.Before(result[j].MeasuredAt)
	})
	return result, nil
}

// SatelliteHistory returns all pixels within radiusKm, oldest first.
func (r *MemoryRepository) SatelliteHistory(_ context.Context, loc Location, radiusKm float64) ([]SatellitePixel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []SatellitePixel
	for _, p := range r.pixels {
		if loc.DistanceKm(p.Location) <= radiusKm {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AcquiredAt.Before(result[j].AcquiredAt)
	})
	return result, nil
}

// PixelGrowth diffs per-cell yearly mean radiance between two years.
func (r *MemoryRepository) PixelGrowth(_ context.Context, loc Location, radiusKm float64, fromYear, toYear int, minDelta float64) ([]GrowthCell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type cellYear struct {
		loc  Location
		year int
	}
	sums := make(map[cellYear]float64)
	counts := make(map[cellYear]int)
	for _, p := range r.pixels {
		year := p.AcquiredAt.Year()
		if year != fromYear && year != toYear {
			continue
		}
		if loc.DistanceKm(p.Location) > radiusKm {
			continue
		}
		key := cellYear{loc: p.Location, year: year}
		sums[key] += p.Radiance
		counts[key]++
	}

	var cells []GrowthCell
	for key, sum := range sums {
		if key.year != fromYear {
			continue
		}
		toKey := cellYear{loc: key.loc, year: toYear}
		toCount, ok := counts[toKey]
		if !ok {
			continue
		}
		fromMean := sum / float64(counts[key])
		toMean := sums[toKey] / float64(toCount)
		if delta := toMean - fromMean; delta > minDelta {
			cells = append(cells, GrowthCell{
				Location: key.loc,
				FromMean: fromMean,
				ToMean:   toMean,
				Delta:    delta,
			})
		}
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Delta > cells[j].Delta })
	return cells, nil
}
