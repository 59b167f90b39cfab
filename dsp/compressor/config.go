package compressor

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-compress/dsp/envelope"
)

// Default configuration values.
const (
	defaultThresholdDB = -20.0
	defaultRatio       = 4.0
	defaultAttackMs    = 10.0
	defaultReleaseMs   = 100.0
	defaultKneeDB      = 0.0
	defaultMakeupDB    = 0.0
	defaultLookaheadMs = 0.0
	defaultDryWetMix   = 0.0
)

// LinkMode selects how per-channel envelopes fuse into the single control
// value. Regardless of mode exactly one scalar gain is derived and applied
// identically to every channel; "independent" does not produce per-channel
// gain paths.
type LinkMode int

const (
	// LinkIndependent passes channel 0's envelope through unchanged.
	LinkIndependent LinkMode = iota
	// LinkAverage uses the arithmetic mean of the two channel envelopes.
	LinkAverage
	// LinkMax uses the greater of the two channel envelopes.
	LinkMax
	// LinkRMS uses sqrt((e0^2+e1^2)/2).
	LinkRMS
	// LinkMidSide passes channel 0's envelope through unchanged, like
	// LinkIndependent.
	LinkMidSide
)

// ParseLinkMode converts a link-mode name into a LinkMode.
func ParseLinkMode(name string) (LinkMode, error) {
	switch name {
	case "independent":
		return LinkIndependent, nil
	case "average":
		return LinkAverage, nil
	case "max":
		return LinkMax, nil
	case "rms":
		return LinkRMS, nil
	case "midside", "mid-side":
		return LinkMidSide, nil
	}

	return 0, fmt.Errorf("unknown stereo-link mode: %q", name)
}

// String returns the canonical link-mode name.
func (m LinkMode) String() string {
	switch m {
	case LinkIndependent:
		return "independent"
	case LinkAverage:
		return "average"
	case LinkMax:
		return "max"
	case LinkRMS:
		return "rms"
	case LinkMidSide:
		return "midside"
	}

	return "unknown"
}

// Config holds the full compressor parameter set. It is a plain value,
// immutable for the lifetime of the Engine that owns it.
//
// The engine deliberately performs no range validation on these values;
// callers validate before construction (see Validate).
type Config struct {
	ThresholdDB  float64
	Ratio        float64
	AttackMs     float64
	ReleaseMs    float64
	KneeDB       float64
	MakeupGainDB float64
	StereoLink   LinkMode
	EnvelopeMode envelope.Mode
	ReleaseCurve envelope.Curve
	LookaheadMs  float64
	DryWetMix    float64
	Bypass       bool
}

// DefaultConfig returns the stock parameter set: -20 dB threshold, 4:1
// ratio, 10/100 ms attack/release, hard knee, max linking, peak detection,
// linear release, no lookahead, fully wet.
func DefaultConfig() Config {
	return Config{
		ThresholdDB:  defaultThresholdDB,
		Ratio:        defaultRatio,
		AttackMs:     defaultAttackMs,
		ReleaseMs:    defaultReleaseMs,
		KneeDB:       defaultKneeDB,
		MakeupGainDB: defaultMakeupDB,
		StereoLink:   LinkMax,
		EnvelopeMode: envelope.ModePeak,
		ReleaseCurve: envelope.CurveLinear,
		LookaheadMs:  defaultLookaheadMs,
		DryWetMix:    defaultDryWetMix,
	}
}

// Validate checks parameter ranges for callers that construct configs from
// untrusted input. The engine itself never calls this.
func (c Config) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"threshold", c.ThresholdDB},
		{"ratio", c.Ratio},
		{"attack", c.AttackMs},
		{"release", c.ReleaseMs},
		{"knee", c.KneeDB},
		{"makeup gain", c.MakeupGainDB},
		{"lookahead", c.LookaheadMs},
		{"dry/wet mix", c.DryWetMix},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%s must be finite: %f", v.name, v.value)
		}
	}

	if c.Ratio < 1 {
		return fmt.Errorf("ratio must be >= 1: %f", c.Ratio)
	}

	if c.AttackMs < 0 {
		return fmt.Errorf("attack must be >= 0 ms: %f", c.AttackMs)
	}

	if c.ReleaseMs < 0 {
		return fmt.Errorf("release must be >= 0 ms: %f", c.ReleaseMs)
	}

	if c.KneeDB < 0 {
		return fmt.Errorf("knee must be >= 0 dB: %f", c.KneeDB)
	}

	if c.LookaheadMs < 0 {
		return fmt.Errorf("lookahead must be >= 0 ms: %f", c.LookaheadMs)
	}

	if c.DryWetMix < 0 || c.DryWetMix > 1 {
		return fmt.Errorf("dry/wet mix must be in [0, 1]: %f", c.DryWetMix)
	}

	return nil
}
