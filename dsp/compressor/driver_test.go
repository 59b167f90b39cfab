package compressor

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-compress/dsp/core"
	"github.com/cwbudde/algo-compress/internal/testutil"
)

type captureSink struct {
	blocks []BlockMetrics
	trace  []float64
}

func (s *captureSink) RecordBlock(m BlockMetrics)     { s.blocks = append(s.blocks, m) }
func (s *captureSink) RecordGainReduction(db float64) { s.trace = append(s.trace, db) }

// TestDriverBlockCount verifies chunking: one metrics record per block,
// including the final partial block.
func TestDriverBlockCount(t *testing.T) {
	tests := []struct {
		name       string
		samples    int
		blockSize  int
		wantBlocks int
	}{
		{"exact blocks", 8192, 4096, 2},
		{"partial tail", 10000, 4096, 3},
		{"single short", 100, 4096, 1},
		{"tiny blocks", 1000, 64, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(48000, 1, DefaultConfig())
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}

			sink := &captureSink{}
			d := NewDriver(e, sink, core.WithBlockSize(tt.blockSize))

			signal := [][]float64{testutil.DeterministicSine(440, 48000, 0.8, tt.samples)}
			if err := d.Process(signal); err != nil {
				t.Fatalf("Process() error = %v", err)
			}

			if len(sink.blocks) != tt.wantBlocks {
				t.Errorf("recorded blocks = %d, want %d", len(sink.blocks), tt.wantBlocks)
			}

			if len(sink.trace) != tt.samples {
				t.Errorf("forwarded trace length = %d, want %d", len(sink.trace), tt.samples)
			}
		})
	}
}

// TestDriverStateCarriesOver verifies block size does not change results:
// the engine state is continuous across block boundaries.
func TestDriverStateCarriesOver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AttackMs = 2
	cfg.ReleaseMs = 80
	cfg.KneeDB = 6

	run := func(blockSize int) [][]float64 {
		e, err := NewEngine(48000, 2, cfg)
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}

		signal := [][]float64{
			testutil.DeterministicSine(440, 48000, 0.9, 12000),
			testutil.DeterministicSine(660, 48000, 0.5, 12000),
		}

		d := NewDriver(e, nil, core.WithBlockSize(blockSize))
		if err := d.Process(signal); err != nil {
			t.Fatalf("Process() error = %v", err)
		}

		return signal
	}

	whole := run(12000)
	chunked := run(257)

	for ch := range whole {
		testutil.RequireSliceNearlyEqual(t, chunked[ch], whole[ch], 0)
	}
}

// TestDriverChannelMismatch verifies structural validation.
func TestDriverChannelMismatch(t *testing.T) {
	e, err := NewEngine(48000, 2, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	d := NewDriver(e, nil)

	if err := d.Process([][]float64{make([]float64, 64)}); err == nil {
		t.Error("expected error for channel count mismatch")
	}

	if err := d.Process([][]float64{make([]float64, 64), make([]float64, 63)}); err == nil {
		t.Error("expected error for length mismatch")
	}
}

// TestDriverNilSink verifies processing works without metrics forwarding.
func TestDriverNilSink(t *testing.T) {
	e, err := NewEngine(48000, 1, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	d := NewDriver(e, nil)

	signal := [][]float64{testutil.DeterministicSine(440, 48000, 0.8, 5000)}
	if err := d.Process(signal); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(e.Trace()) != 5000 {
		t.Errorf("trace length = %d, want 5000", len(e.Trace()))
	}
}

// TestDriverMetricsMatchSignal verifies forwarded block metrics carry
// plausible levels for a known signal.
func TestDriverMetricsMatchSignal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bypass = true

	e, err := NewEngine(48000, 1, cfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	sink := &captureSink{}
	d := NewDriver(e, sink, core.WithBlockSize(4800))

	signal := [][]float64{testutil.DeterministicSine(1000, 48000, 0.5, 48000)}
	if err := d.Process(signal); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	for i, m := range sink.blocks {
		if math.Abs(m.InputPeak-0.5) > 1e-6 {
			t.Errorf("block %d: InputPeak = %v, want 0.5", i, m.InputPeak)
		}

		if want := 0.5 / math.Sqrt2; math.Abs(m.InputRMS-want) > 1e-3 {
			t.Errorf("block %d: InputRMS = %v, want %v", i, m.InputRMS, want)
		}
	}
}
