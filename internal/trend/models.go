// Package trend fits linear brightness trends over yearly series and
// projects them forward.
package trend

import (
	"errors"

	"github.com/nocturna-project/nocturna/internal/measurement"
)

// ErrInsufficientData is returned when fewer than two distinct yearly points
// are available. It is surfaced to callers, never silently defaulted.
var ErrInsufficientData = errors.New("insufficient data: regression requires at least 2 yearly points")

// Model is an ordinary-least-squares fit over a yearly series plus its
// forward projection. It is purely a function of the input series.
type Model struct {
	Location measurement.Location `json:"location,omitempty"`
	RadiusKm float64              `json:"radiusKm,omitempty"`

	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`

	// Series concatenates the historical points and the forecast points in
	// chronological order, each tagged with its type.
	Series []measurement.YearlySeriesPoint `json:"series"`
}

// Forecast returns only the projected points.
func (m *Model) Forecast() []measurement.YearlySeriesPoint {
	var forecast []measurement.YearlySeriesPoint
	for _, p := range m.Series {
		if p.Type == measurement.PointForecast {
			forecast = append(forecast, p)
		}
	}
	return forecast
}

// HotspotReport lists raster cells whose radiance grew between two years.
type HotspotReport struct {
	Location measurement.Location     `json:"location"`
	RadiusKm float64                  `json:"radiusKm"`
	FromYear int                      `json:"fromYear"`
	ToYear   int                      `json:"toYear"`
	MinDelta float64                  `json:"minDelta"`
	Cells    []measurement.GrowthCell `json:"cells"`
}
