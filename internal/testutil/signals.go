package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// StereoSine generates a two-channel signal with per-channel frequency and
// amplitude, sharing the sample clock.
func StereoSine(sampleRate, freqL, ampL, freqR, ampR float64, length int) [][]float64 {
	return [][]float64{
		DeterministicSine(freqL, sampleRate, ampL, length),
		DeterministicSine(freqR, sampleRate, ampR, length),
	}
}
