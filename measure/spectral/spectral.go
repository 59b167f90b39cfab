// Package spectral computes per-channel diagnostic signal statistics for
// the pre/post compression report: peak, RMS and crest factor plus the
// dominant frequency estimated from a Hann-windowed forward FFT.
package spectral

import (
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-compress/dsp/core"
	"github.com/cwbudde/algo-compress/dsp/level"
)

// maxAnalysisSamples bounds the FFT input so report generation stays cheap
// on long files; the leading slice is representative enough for a
// dominant-bin estimate.
const maxAnalysisSamples = 1 << 16

// Result holds one channel's signal statistics.
type Result struct {
	PeakDB        float64
	RMSDB         float64
	CrestFactorDB float64
	DominantHz    float64
}

// Analyzer computes signal statistics for a fixed sample rate.
type Analyzer struct {
	cfg core.ProcessorConfig
}

// NewAnalyzer creates an analyzer from processor options.
func NewAnalyzer(opts ...core.ProcessorOption) *Analyzer {
	return &Analyzer{cfg: core.ApplyProcessorOptions(opts...)}
}

// AnalyzeSignal computes statistics for one channel.
func (a *Analyzer) AnalyzeSignal(signal []float64) Result {
	if len(signal) == 0 {
		return Result{
			PeakDB: level.FloorDB,
			RMSDB:  level.FloorDB,
		}
	}

	peak := vecmath.MaxAbs(signal)

	squares := make([]float64, len(signal))
	vecmath.MulBlock(squares, signal, signal)

	rms := math.Sqrt(vecmath.Sum(squares) / float64(len(signal)))

	res := Result{
		PeakDB: level.LinearToDB(peak),
		RMSDB:  level.LinearToDB(rms),
	}

	if rms > 0 {
		res.CrestFactorDB = level.LinearToDB(peak / rms)
	}

	res.DominantHz = a.dominantFrequency(signal)

	return res
}

// dominantFrequency estimates the strongest spectral component via a
// Hann-windowed forward FFT. Returns 0 when no estimate is possible.
func (a *Analyzer) dominantFrequency(signal []float64) float64 {
	n := min(len(signal), maxAnalysisSamples)
	if n < 4 || a.cfg.SampleRate <= 0 {
		return 0
	}

	fftSize := nextPowerOf2(n)

	inData := make([]complex128, fftSize)
	for i := range n {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		inData[i] = complex(signal[i]*w, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return 0
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, inData); err != nil {
		return 0
	}

	bins := fftSize/2 + 1

	re := make([]float64, bins)
	im := make([]float64, bins)

	for i := range bins {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	power := make([]float64, bins)
	vecmath.Power(power, re, im)

	// Skip the DC bin when searching for the dominant component.
	best := 1
	for i := 2; i < bins; i++ {
		if power[i] > power[best] {
			best = i
		}
	}

	if power[best] <= 0 {
		return 0
	}

	return float64(best) * a.cfg.SampleRate / float64(fftSize)
}

func nextPowerOf2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}

	return size
}
