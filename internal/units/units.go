// Package units converts between the three brightness scales used throughout
// Nocturna: satellite radiance (nW/cm²/sr), sky brightness (MPSAS, magnitudes
// per square arcsecond) and the Bortle class (1 pristine to 9 inner-city).
//
// All conversions in the codebase go through this package. Radiance is never
// mapped to a Bortle class directly; it is first converted to MPSAS so there
// is exactly one canonical MPSAS→Bortle mapping.
package units

// MPSAS bounds for the canonical radiance conversion. 22.0 is the darkest
// measurable natural sky, 10.0 the physical floor for saturated urban cores.
const (
	MPSASCeiling = 22.0
	MPSASFloor   = 10.0
)

// bortleThresholds holds the minimum MPSAS value for classes 1..8.
// Anything below the class-8 threshold is class 9.
var bortleThresholds = [...]float64{
	21.99, // class 1
	21.89, // class 2
	21.69, // class 3
	20.49, // class 4
	19.50, // class 5
	18.94, // class 6
	18.38, // class 7
	17.80, // class 8
}

// MPSASToBortle maps a sky brightness value to its Bortle class.
// The mapping is a total step function: every float maps to a class in [1,9].
func MPSASToBortle(mpsas float64) int {
	for class, min := range bortleThresholds {
		if mpsas >= min {
			return class + 1
		}
	}
	return 9
}

// RadianceToMPSAS converts satellite radiance (nW/cm²/sr) to an estimated
// sky brightness, clamped to the physically plausible [MPSASFloor, MPSASCeiling]
// range.
func RadianceToMPSAS(radiance float64) float64 {
	mpsas := 21.58 - radiance/100
	if mpsas < MPSASFloor {
		return MPSASFloor
	}
	if mpsas > MPSASCeiling {
		return MPSASCeiling
	}
	return mpsas
}

// MPSASToRadiance inverts the canonical linear conversion. Values darker than
// the zero-radiance sky map to 0.
func MPSASToRadiance(mpsas float64) float64 {
	radiance := (21.58 - mpsas) * 100
	if radiance < 0 {
		return 0
	}
	return radiance
}

// RadianceToBortle classifies a radiance value by routing it through MPSAS.
func RadianceToBortle(radiance float64) int {
	return MPSASToBortle(RadianceToMPSAS(radiance))
}

// BortleMidpointMPSAS returns the MPSAS midpoint of a class's band.
// Class 1's band is bounded above by MPSASCeiling and class 9's below by
// MPSASFloor. Out-of-range classes are clamped.
func BortleMidpointMPSAS(class int) float64 {
	if class < 1 {
		class = 1
	}
	if class > 9 {
		class = 9
	}
	switch class {
	case 1:
		return (bortleThresholds[0] + MPSASCeiling) / 2
	case 9:
		return (MPSASFloor + bortleThresholds[7]) / 2
	default:
		return (bortleThresholds[class-1] + bortleThresholds[class-2]) / 2
	}
}
