// Package worker provides background cache warming for Nocturna.
package worker

import (
	"time"
)

// WarmTarget represents a geographic region whose analytics should be
// precomputed.
type WarmTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the lat/lon coordinates to warm.
	// Typically city centers with active monitoring coverage.
	Points []Point

	// Priority determines warm order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// WarmConfig holds configuration for the cache warm job.
type WarmConfig struct {
	// Targets are the geographic regions to warm.
	// If empty, uses DefaultWarmTargets.
	Targets []WarmTarget

	// Concurrency is the number of concurrent warm operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each point.
	// Default: 30 seconds
	Timeout time.Duration

	// RadiusKm is the analysis radius used for every point.
	// Default: 10
	RadiusKm float64

	// YearsBack is the trend lookback. Default: 10
	YearsBack int

	// ForecastYears is the trend projection horizon. Default: 5
	ForecastYears int

	// WarmCorrelation enables correlation warming. Default: true
	WarmCorrelation bool

	// WarmTrend enables trend warming. Default: true
	WarmTrend bool

	// WarmSeasonal enables seasonal warming. Default: true
	WarmSeasonal bool
}

// DefaultWarmConfig returns the default warm configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Targets:         DefaultWarmTargets(),
		Concurrency:     3,
		Timeout:         30 * time.Second,
		RadiusKm:        10,
		YearsBack:       10,
		ForecastYears:   5,
		WarmCorrelation: true,
		WarmTrend:       true,
		WarmSeasonal:    true,
	}
}

// DefaultWarmTargets returns the default warm targets: the cities the
// raster-ingestion pipeline tracks.
func DefaultWarmTargets() []WarmTarget {
	return []WarmTarget{
		{
			Name:     "Lahore",
			Priority: 1,
			Points: []Point{
				{Lat: 31.5204, Lon: 74.3587},
			},
		},
		{
			Name:     "New York",
			Priority: 1,
			Points: []Point{
				{Lat: 40.7128, Lon: -74.0060},
			},
		},
		{
			Name:     "London",
			Priority: 2,
			Points: []Point{
				{Lat: 51.5074, Lon: -0.1278},
			},
		},
		{
			Name:     "Tokyo",
			Priority: 2,
			Points: []Point{
				{Lat: 35.6762, Lon: 139.6503},
			},
		},
	}
}

// AllPoints returns all points from all targets, ordered by priority.
func (c WarmConfig) AllPoints() []Point {
	var points []Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to warm.
func (c WarmConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
