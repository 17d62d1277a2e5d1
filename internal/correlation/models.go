// Package correlation combines satellite radiance and ground SQM readings
// into a single agreement verdict for a location.
package correlation

import "github.com/nocturna-project/nocturna/internal/measurement"

// Status is the satellite/ground agreement verdict.
type Status string

const (
	StatusMatch    Status = "MATCH"
	StatusMismatch Status = "MISMATCH"
)

// UsedDefaults records which side of the comparison fell back to a pinned
// default because no samples were available. Callers comparing MATCH and
// MISMATCH verdicts must check this before trusting the verdict.
type UsedDefaults struct {
	Satellite bool `json:"satellite"`
	Ground    bool `json:"ground"`
}

// Any reports whether either side used a default.
func (u UsedDefaults) Any() bool {
	return u.Satellite || u.Ground
}

// Result is the correlation verdict for a location and radius.
type Result struct {
	Location                    measurement.Location `json:"location"`
	RadiusKm                    float64              `json:"radiusKm"`
	SatelliteRadiance           float64              `json:"satelliteRadiance"`
	GroundAvgMPSAS              float64              `json:"groundAvgMpsas"`
	GroundSampleCount           int                  `json:"groundSampleCount"`
	EstimatedMPSASFromSatellite float64              `json:"estimatedMpsasFromSatellite"`
	Status                      Status               `json:"status"`
	UsedDefaults                UsedDefaults         `json:"usedDefaults"`
}
