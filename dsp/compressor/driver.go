package compressor

import (
	"fmt"

	"github.com/cwbudde/algo-compress/dsp/core"
)

// Driver splits a fully buffered multichannel signal into fixed-size blocks
// and runs them through an Engine in order, forwarding metrics to an
// optional sink. Block chunking only bounds per-block working memory; the
// engine state carries over unchanged between blocks.
type Driver struct {
	engine    *Engine
	sink      MetricsSink
	blockSize int
}

// NewDriver creates a block driver around the given engine. A nil sink
// disables metrics forwarding.
func NewDriver(engine *Engine, sink MetricsSink, opts ...core.ProcessorOption) *Driver {
	cfg := core.ApplyProcessorOptions(opts...)

	return &Driver{
		engine:    engine,
		sink:      sink,
		blockSize: cfg.BlockSize,
	}
}

// BlockSize returns the configured chunk size in samples.
func (d *Driver) BlockSize() int { return d.blockSize }

// Process compresses the whole buffered signal in place, one block at a
// time. samples holds one slice per channel, all the same length.
func (d *Driver) Process(samples [][]float64) error {
	if len(samples) != d.engine.Channels() {
		return fmt.Errorf("signal has %d channels, engine expects %d", len(samples), d.engine.Channels())
	}

	n := len(samples[0])
	for ch := 1; ch < len(samples); ch++ {
		if len(samples[ch]) != n {
			return fmt.Errorf("channel %d has %d samples, channel 0 has %d", ch, len(samples[ch]), n)
		}
	}

	block := make([][]float64, len(samples))

	for off := 0; off < n; off += d.blockSize {
		end := min(off+d.blockSize, n)
		for ch := range samples {
			block[ch] = samples[ch][off:end]
		}

		metrics, err := d.engine.ProcessBlock(block)
		if err != nil {
			return fmt.Errorf("block at sample %d: %w", off, err)
		}

		if d.sink == nil {
			continue
		}

		d.sink.RecordBlock(metrics)

		for _, grDB := range d.engine.LastGainReduction() {
			d.sink.RecordGainReduction(grDB)
		}
	}

	return nil
}
