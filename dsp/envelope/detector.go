// Package envelope provides a multichannel signal-level follower with
// selectable detection mode and release shape. The follower is a first-order
// recursive smoother, so frames must be fed strictly in temporal order.
package envelope

import (
	"fmt"
	"math"
)

// rmsWindowDivisor derives the RMS window length from the sample rate:
// sampleRate/10 samples, i.e. a fixed 100 ms window.
const rmsWindowDivisor = 10

// Mode selects the detection target fed into the smoother.
type Mode int

const (
	// ModePeak follows the absolute sample value.
	ModePeak Mode = iota
	// ModeRMS follows the windowed root-mean-square level (100 ms window).
	ModeRMS
	// ModeTrueRMS is an alias of ModeRMS; the reference behavior has no
	// distinct true-RMS computation.
	ModeTrueRMS
	// ModeAdaptive is an alias of ModePeak; the reference behavior has no
	// distinct adaptive detector.
	ModeAdaptive
)

// ParseMode converts a mode name into a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "peak":
		return ModePeak, nil
	case "rms":
		return ModeRMS, nil
	case "truerms", "true-rms":
		return ModeTrueRMS, nil
	case "adaptive":
		return ModeAdaptive, nil
	}

	return 0, fmt.Errorf("unknown envelope mode: %q", name)
}

// String returns the canonical mode name.
func (m Mode) String() string {
	switch m {
	case ModePeak:
		return "peak"
	case ModeRMS:
		return "rms"
	case ModeTrueRMS:
		return "truerms"
	case ModeAdaptive:
		return "adaptive"
	}

	return "unknown"
}

// windowed reports whether the mode uses the squared-sample ring buffer.
func (m Mode) windowed() bool {
	return m == ModeRMS || m == ModeTrueRMS
}

// Curve selects the release smoothing shape. Attack is always exponential.
type Curve int

const (
	// CurveLinear releases with a constant fraction of the remaining distance
	// per sample, 1/releaseSamples.
	CurveLinear Curve = iota
	// CurveExponential releases with the same exponential form as attack.
	CurveExponential
	// CurveAdaptive is an alias of CurveExponential; the reference behavior
	// has no distinct adaptive release.
	CurveAdaptive
)

// ParseCurve converts a curve name into a Curve.
func ParseCurve(name string) (Curve, error) {
	switch name {
	case "linear":
		return CurveLinear, nil
	case "exponential", "exp":
		return CurveExponential, nil
	case "adaptive":
		return CurveAdaptive, nil
	}

	return 0, fmt.Errorf("unknown release curve: %q", name)
}

// String returns the canonical curve name.
func (c Curve) String() string {
	switch c {
	case CurveLinear:
		return "linear"
	case CurveExponential:
		return "exponential"
	case CurveAdaptive:
		return "adaptive"
	}

	return "unknown"
}

// Detector smooths per-channel signal level with asymmetric attack/release.
//
// Advance must be called once per sample frame, in order; the envelope at
// sample n depends on the envelope at sample n-1.
type Detector struct {
	mode  Mode
	curve Curve

	attackSamples  int
	releaseSamples int
	attackRate     float64
	releaseExpRate float64
	releaseLinRate float64

	env []float64

	// Windowed-mode state: one squared-sample ring per channel plus its
	// running sum, sharing a single write cursor since all channels advance
	// together.
	windows [][]float64
	sums    []float64
	cursor  int
}

// NewDetector creates a level follower for the given channel layout.
func NewDetector(sampleRate float64, channels int, mode Mode, curve Curve, attackMs, releaseMs float64) (*Detector, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("detector sample rate must be positive and finite: %f", sampleRate)
	}

	if channels < 1 {
		return nil, fmt.Errorf("detector channel count must be >= 1: %d", channels)
	}

	d := &Detector{
		mode:           mode,
		curve:          curve,
		attackSamples:  timeToSamples(attackMs, sampleRate),
		releaseSamples: timeToSamples(releaseMs, sampleRate),
		env:            make([]float64, channels),
	}

	d.attackRate = 1.0 - math.Pow(0.01, 1.0/float64(d.attackSamples))
	d.releaseExpRate = 1.0 - math.Pow(0.01, 1.0/float64(d.releaseSamples))
	d.releaseLinRate = 1.0 / float64(d.releaseSamples)

	if mode.windowed() {
		windowSamples := max(int(sampleRate)/rmsWindowDivisor, 1)

		d.windows = make([][]float64, channels)
		for ch := range d.windows {
			d.windows[ch] = make([]float64, windowSamples)
		}

		d.sums = make([]float64, channels)
	}

	return d, nil
}

// Channels returns the number of channels the detector follows.
func (d *Detector) Channels() int { return len(d.env) }

// Mode returns the configured detection mode.
func (d *Detector) Mode() Mode { return d.mode }

// Curve returns the configured release curve.
func (d *Detector) Curve() Curve { return d.curve }

// AttackSamples returns the attack time constant in samples.
func (d *Detector) AttackSamples() int { return d.attackSamples }

// ReleaseSamples returns the release time constant in samples.
func (d *Detector) ReleaseSamples() int { return d.releaseSamples }

// WindowSamples returns the RMS window length, or 0 for non-windowed modes.
func (d *Detector) WindowSamples() int {
	if len(d.windows) == 0 {
		return 0
	}

	return len(d.windows[0])
}

// Advance feeds one frame (one sample per channel) and returns the smoothed
// per-channel envelopes. The returned slice is reused between calls.
func (d *Detector) Advance(frame []float64) []float64 {
	for ch := range d.env {
		target := d.target(ch, frame[ch])

		if target > d.env[ch] {
			d.env[ch] += d.attackRate * (target - d.env[ch])
		} else if d.curve == CurveLinear {
			d.env[ch] -= d.releaseLinRate * (d.env[ch] - target)
		} else {
			d.env[ch] += d.releaseExpRate * (target - d.env[ch])
		}
	}

	if len(d.windows) > 0 {
		d.cursor++
		if d.cursor >= len(d.windows[0]) {
			d.cursor = 0
		}
	}

	return d.env
}

// Envelope returns the current smoothed level for the given channel.
func (d *Detector) Envelope(ch int) float64 { return d.env[ch] }

// Reset zeroes the envelopes and rewinds the ring cursor. The squared-sample
// window contents are intentionally left in place, matching the reference
// behavior: the first post-reset window can reflect stale level.
func (d *Detector) Reset() {
	for ch := range d.env {
		d.env[ch] = 0
	}

	d.cursor = 0
}

// target computes the detection value for one channel's sample.
func (d *Detector) target(ch int, sample float64) float64 {
	if !d.mode.windowed() {
		return math.Abs(sample)
	}

	win := d.windows[ch]
	square := sample * sample

	d.sums[ch] += square - win[d.cursor]
	win[d.cursor] = square

	mean := d.sums[ch] / float64(len(win))
	if mean <= 0 {
		return 0
	}

	return math.Sqrt(mean)
}

// timeToSamples converts milliseconds to a sample count, minimum 1.
func timeToSamples(ms, sampleRate float64) int {
	return max(int(math.Round(ms*sampleRate/1000.0)), 1)
}
