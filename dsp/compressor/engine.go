package compressor

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-compress/dsp/core"
	"github.com/cwbudde/algo-compress/dsp/delay"
	"github.com/cwbudde/algo-compress/dsp/envelope"
	"github.com/cwbudde/algo-compress/dsp/level"
)

// limiterRatio is the ratio at and above which the full overshoot is
// removed instead of scaled, i.e. the compressor acts as a limiter.
const limiterRatio = 100.0

// BlockMetrics holds the metering values of one processed block. Values are
// produced once per block; ownership transfers to the metrics sink.
type BlockMetrics struct {
	// Input/output peak (max absolute sample) and RMS across all channels
	// and samples of the block, linear.
	InputPeak  float64
	InputRMS   float64
	OutputPeak float64
	OutputRMS  float64

	// GainReductionPeakDB is the strongest per-sample reduction in the
	// block (the most negative dB value).
	GainReductionPeakDB float64
	// GainReductionRMSDB is the root-mean-square of the per-sample
	// reduction values.
	GainReductionRMSDB float64
	// AvgGainReductionDB is the plain mean of the per-sample reductions.
	AvgGainReductionDB float64
}

// MetricsSink receives per-block metrics and the per-sample gain-reduction
// trace from the Driver.
type MetricsSink interface {
	RecordBlock(BlockMetrics)
	RecordGainReduction(db float64)
}

// Engine computes and applies per-sample gain reduction. It owns its Config
// for its lifetime and an envelope.Detector for level estimation.
//
// Not safe for concurrent use; the per-sample recursion makes the algorithm
// inherently sequential.
type Engine struct {
	cfg        Config
	sampleRate float64
	channels   int

	det       *envelope.Detector
	lookahead []*delay.Line

	frame   []float64
	history []float64
	squares []float64
	trace   []float64
}

// NewEngine creates a dynamics engine for the given stream layout. The
// config's parameter ranges are taken as-is; only the structural arguments
// are checked. Callers validate untrusted configs via Config.Validate.
func NewEngine(sampleRate float64, channels int, cfg Config) (*Engine, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("engine sample rate must be positive and finite: %f", sampleRate)
	}

	if channels < 1 {
		return nil, fmt.Errorf("engine channel count must be >= 1: %d", channels)
	}

	det, err := envelope.NewDetector(sampleRate, channels,
		cfg.EnvelopeMode, cfg.ReleaseCurve, cfg.AttackMs, cfg.ReleaseMs)
	if err != nil {
		return nil, fmt.Errorf("engine detector init: %w", err)
	}

	// The lookahead ring captures the raw input but is never read back to
	// delay the program path, so the configured time has no audible effect.
	// It is kept as a delay.Line so a true delayed path can be added without
	// reshaping the engine contract.
	lookaheadSize := max(int(math.Round(cfg.LookaheadMs*sampleRate/1000.0)), 1) + 1

	lookahead := make([]*delay.Line, channels)
	for ch := range lookahead {
		line, err := delay.New(lookaheadSize)
		if err != nil {
			return nil, fmt.Errorf("engine lookahead init: %w", err)
		}

		lookahead[ch] = line
	}

	return &Engine{
		cfg:        cfg,
		sampleRate: sampleRate,
		channels:   channels,
		det:        det,
		lookahead:  lookahead,
		frame:      make([]float64, channels),
	}, nil
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() Config { return e.cfg }

// SampleRate returns the configured sample rate in Hz.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// Channels returns the configured channel count.
func (e *Engine) Channels() int { return e.channels }

// LookaheadSamples returns the lookahead ring size in samples.
func (e *Engine) LookaheadSamples() int { return e.lookahead[0].Len() }

// Trace returns the engine-wide per-sample gain-reduction trace in dB, one
// entry per processed sample in order. The returned slice is the engine's
// own storage; callers must not modify it.
func (e *Engine) Trace() []float64 { return e.trace }

// LastGainReduction returns the previous block's per-sample reductions in
// dB. Valid until the next ProcessBlock call.
func (e *Engine) LastGainReduction() []float64 { return e.history }

// ProcessBlock runs one block through the per-sample pipeline in place and
// returns its metrics. Envelope, lookahead and trace state carry over from
// the previous block.
func (e *Engine) ProcessBlock(block [][]float64) (BlockMetrics, error) {
	if len(block) != e.channels {
		return BlockMetrics{}, fmt.Errorf("block has %d channels, engine expects %d", len(block), e.channels)
	}

	n := len(block[0])
	for ch := 1; ch < len(block); ch++ {
		if len(block[ch]) != n {
			return BlockMetrics{}, fmt.Errorf("channel %d has %d samples, channel 0 has %d", ch, len(block[ch]), n)
		}
	}

	var m BlockMetrics
	if n == 0 {
		e.history = e.history[:0]
		return m, nil
	}

	m.InputPeak, m.InputRMS = e.blockLevels(block)

	e.history = e.history[:0]
	e.squares = core.EnsureLen(e.squares, n)

	for i := range n {
		for ch := range block {
			e.frame[ch] = block[ch][i]
		}

		env := e.det.Advance(e.frame)

		for ch := range e.lookahead {
			e.lookahead[ch].Write(e.frame[ch])
		}

		grDB := e.gainReductionDB(e.linkedEnvelope(env))

		e.history = append(e.history, grDB)
		e.trace = append(e.trace, grDB)

		if e.cfg.Bypass {
			continue
		}

		gain := level.DBToLinear(grDB + e.cfg.MakeupGainDB)

		for ch := range block {
			in := block[ch][i]
			wet := in * gain
			block[ch][i] = level.Lerp(wet, in, e.cfg.DryWetMix)
		}
	}

	m.OutputPeak, m.OutputRMS = e.blockLevels(block)
	m.GainReductionPeakDB, m.GainReductionRMSDB, m.AvgGainReductionDB = e.reductionStats()

	return m, nil
}

// Reset clears the envelope detector and rewinds the lookahead cursors.
// Configuration, history and trace buffers persist.
func (e *Engine) Reset() {
	e.det.Reset()

	for _, line := range e.lookahead {
		line.Rewind()
	}
}

// blockLevels computes peak and RMS across all channels and samples.
func (e *Engine) blockLevels(block [][]float64) (peak, rms float64) {
	var sumSq float64

	n := 0

	for ch := range block {
		if p := vecmath.MaxAbs(block[ch]); p > peak {
			peak = p
		}

		e.squares = core.EnsureLen(e.squares, len(block[ch]))
		vecmath.MulBlock(e.squares, block[ch], block[ch])
		sumSq += vecmath.Sum(e.squares)

		n += len(block[ch])
	}

	if n > 0 {
		rms = math.Sqrt(sumSq / float64(n))
	}

	return peak, rms
}

// reductionStats computes peak (most negative), RMS and mean of the current
// block's per-sample gain reduction.
func (e *Engine) reductionStats() (peakDB, rmsDB, avgDB float64) {
	if len(e.history) == 0 {
		return 0, 0, 0
	}

	for _, v := range e.history {
		if v < peakDB {
			peakDB = v
		}
	}

	e.squares = core.EnsureLen(e.squares, len(e.history))
	vecmath.MulBlock(e.squares, e.history, e.history)

	rmsDB = math.Sqrt(vecmath.Sum(e.squares) / float64(len(e.history)))
	avgDB = vecmath.Sum(e.history) / float64(len(e.history))

	return peakDB, rmsDB, avgDB
}

// linkedEnvelope fuses the per-channel envelopes into the single control
// level. The fusion modes are defined for two-channel signals only; mono
// and higher channel counts use channel 0, as do the independent and
// mid-side modes.
func (e *Engine) linkedEnvelope(env []float64) float64 {
	if len(env) != 2 {
		return env[0]
	}

	switch e.cfg.StereoLink {
	case LinkAverage:
		return (env[0] + env[1]) / 2
	case LinkMax:
		return math.Max(env[0], env[1])
	case LinkRMS:
		return math.Sqrt((env[0]*env[0] + env[1]*env[1]) / 2)
	default:
		return env[0]
	}
}

// gainReductionDB converts the control level into the gain reduction to
// apply, in dB, always <= 0 for valid ratios.
func (e *Engine) gainReductionDB(linked float64) float64 {
	levelDB := level.LinearToDB(linked)

	overshoot := level.SoftKnee(levelDB, e.cfg.ThresholdDB, e.cfg.KneeDB)
	if overshoot <= 0 {
		return 0
	}

	if e.cfg.Ratio >= limiterRatio {
		return -overshoot
	}

	return overshoot * (1/e.cfg.Ratio - 1)
}
