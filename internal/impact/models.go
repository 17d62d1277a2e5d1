// Package impact maps correlated brightness values to ecological and
// energy-waste impact estimates.
package impact

import (
	"github.com/nocturna-project/nocturna/internal/measurement"
)

// Level is the qualitative ecological impact classification.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelModerate Level = "MODERATE"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Habitat is one protected area from the static reference dataset.
type Habitat struct {
	Name        string               `json:"name"`
	Location    measurement.Location `json:"location"`
	Species     []string             `json:"species"`
	ThreatLevel string               `json:"threatLevel"`
}

// NearbyHotspot is a protected area within range of an assessed location.
type NearbyHotspot struct {
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distanceKm"`
}

// Assessment is the ecological impact verdict for a location.
type Assessment struct {
	Location        measurement.Location `json:"location"`
	EstimatedMPSAS  float64              `json:"estimatedMpsas"`
	ImpactLevel     Level                `json:"impactLevel"`
	AffectedSpecies []string             `json:"affectedSpecies"`
	Threats         []string             `json:"threats"`
	NearbyHotspots  []NearbyHotspot      `json:"nearbyHotspots"`
	Degraded        bool                 `json:"degraded,omitempty"`
}

// EnergyWasteEstimate quantifies wasted outdoor lighting for an area.
type EnergyWasteEstimate struct {
	Location            measurement.Location `json:"location"`
	AreaKm2             float64              `json:"areaKm2"`
	BortleClass         int                  `json:"bortleClass"`
	WasteKwhPerYear     float64              `json:"wasteKwhPerYear"`
	CostPerYear         float64              `json:"costPerYear"`
	CO2TonsPerYear      float64              `json:"co2TonsPerYear"`
	PotentialSavingsPct float64              `json:"potentialSavingsPct"`
	Degraded            bool                 `json:"degraded,omitempty"`
}
