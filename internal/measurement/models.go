// Package measurement provides read-only access to ground sky-quality-meter
// readings and satellite radiance pixels stored in the spatial store.
package measurement

import (
	"errors"
	"math"
	"time"
)

// Store errors. These never cross the Accessor boundary; the Accessor absorbs
// them into empty results so the engines can apply their documented defaults.
var (
	ErrStoreUnavailable   = errors.New("spatial store unavailable")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the location is a real point on the globe.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) ||
		l.Lat < -90 || l.Lat > 90 || l.Lon < -180 || l.Lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// DistanceKm returns the great-circle distance to another location in
// kilometers using the haversine formula.
func (l Location) DistanceKm(other Location) float64 {
	const earthRadiusKm = 6371.0

	lat1 := l.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	deltaLat := (other.Lat - l.Lat) * math.Pi / 180
	deltaLon := (other.Lon - l.Lon) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// GroundReading is a single SQM measurement submitted by an observer or an
// ingestion job. Readings are immutable once stored and never deleted here.
type GroundReading struct {
	Location        Location  `json:"location"`
	MeasuredAt      time.Time `json:"measuredAt"`
	MPSAS           float64   `json:"mpsas"`
	DeviceType      string    `json:"deviceType,omitempty"`
	IsResearchGrade bool      `json:"isResearchGrade"`
}

// SatellitePixel is one cell of a VIIRS nighttime-lights raster.
type SatellitePixel struct {
	Location   Location  `json:"location"`
	Radiance   float64   `json:"radiance"` // nW/cm²/sr, never negative
	AcquiredAt time.Time `json:"acquiredAt"`
}

// SeriesPointType tags whether a yearly point was observed or projected.
type SeriesPointType string

const (
	PointHistorical SeriesPointType = "historical"
	PointForecast   SeriesPointType = "forecast"
)

// YearlySeriesPoint is one year of pre-aggregated mean brightness.
type YearlySeriesPoint struct {
	Year  int             `json:"year"`
	Value float64         `json:"value"`
	Type  SeriesPointType `json:"type,omitempty"`
}

// GrowthCell is a raster cell whose mean radiance grew between two years.
type GrowthCell struct {
	Location Location `json:"location"`
	FromMean float64  `json:"fromMean"`
	ToMean   float64  `json:"toMean"`
	Delta    float64  `json:"delta"`
}
