// Package level provides scalar level conversions and curves shared by the
// dynamics processing chain: dB/linear conversion with a finite floor, the
// soft-knee overshoot curve, and linear interpolation.
package level

import "math"

// FloorDB is the decibel value substituted for non-positive linear levels.
// Keeping the floor finite avoids propagating -Inf or NaN through the
// recursive gain path.
const FloorDB = -200.0

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Non-positive input returns FloorDB instead of -Inf or NaN.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return FloorDB
	}

	return 20 * math.Log10(linear)
}

// SoftKnee returns the effective overshoot of inputDB above thresholdDB,
// shaped by the knee width.
//
// With kneeDB <= 0 the knee is hard: overshoot is max(0, inputDB-thresholdDB).
// With a positive knee the transition ramps quadratically over
// [threshold-kneeDB/2, threshold+kneeDB/2], which keeps the gain curve
// C1-continuous into compression.
func SoftKnee(inputDB, thresholdDB, kneeDB float64) float64 {
	overshoot := inputDB - thresholdDB

	if kneeDB <= 0 {
		if overshoot <= 0 {
			return 0
		}

		return overshoot
	}

	halfWidth := kneeDB * 0.5

	if overshoot < -halfWidth {
		return 0
	}

	if overshoot > halfWidth {
		return overshoot
	}

	scratch := overshoot + halfWidth

	return scratch * scratch / (2 * kneeDB)
}

// Lerp linearly interpolates between a and b by t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
