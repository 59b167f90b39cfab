// Package metering accumulates per-block compression metrics and the
// full-resolution gain-reduction trace, and renders diagnostic output: a CSV
// trace export and a human-readable summary.
package metering

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-compress/dsp/compressor"
	"github.com/cwbudde/algo-compress/dsp/level"
)

// traceHeader is the exact first line of the exported trace table.
const traceHeader = "Sample,GainReductionDB"

// Recorder collects block metrics and per-sample gain reduction in arrival
// order. It implements compressor.MetricsSink. Not safe for concurrent use;
// the pipeline has exactly one writer.
type Recorder struct {
	blocks []compressor.BlockMetrics
	trace  []float64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordBlock appends one block's metrics.
func (r *Recorder) RecordBlock(m compressor.BlockMetrics) {
	r.blocks = append(r.blocks, m)
}

// RecordGainReduction appends one per-sample gain-reduction value in dB.
func (r *Recorder) RecordGainReduction(db float64) {
	r.trace = append(r.trace, db)
}

// Blocks returns the recorded block metrics in order.
func (r *Recorder) Blocks() []compressor.BlockMetrics { return r.blocks }

// TraceLen returns the number of recorded gain-reduction samples.
func (r *Recorder) TraceLen() int { return len(r.trace) }

// ExportTrace writes the gain-reduction trace as a two-column table: a
// header line, then one row per sample in ascending order with fixed
// decimal precision.
func (r *Recorder) ExportTrace(w io.Writer) error {
	if _, err := fmt.Fprintln(w, traceHeader); err != nil {
		return fmt.Errorf("trace header: %w", err)
	}

	for i, db := range r.trace {
		if _, err := fmt.Fprintf(w, "%d,%.6f\n", i, db); err != nil {
			return fmt.Errorf("trace row %d: %w", i, err)
		}
	}

	return nil
}

// ExportTraceFile writes the trace to the given path.
func (r *Recorder) ExportTraceFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}

	if err := r.ExportTrace(f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close trace file: %w", err)
	}

	return nil
}

// WriteSummary renders the unweighted per-block means. Level statistics skip
// blocks whose linear value is not positive instead of counting them as
// zero; the gain-reduction mean covers every block. A final partial block
// gets no special weighting.
func (r *Recorder) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Blocks processed:\t%d\n", len(r.blocks))
	fmt.Fprintf(tw, "Samples traced:\t%d\n", len(r.trace))
	fmt.Fprintf(tw, "Mean input peak:\t%s\n", formatDB(r.meanDB(func(m compressor.BlockMetrics) float64 { return m.InputPeak })))
	fmt.Fprintf(tw, "Mean input RMS:\t%s\n", formatDB(r.meanDB(func(m compressor.BlockMetrics) float64 { return m.InputRMS })))
	fmt.Fprintf(tw, "Mean output peak:\t%s\n", formatDB(r.meanDB(func(m compressor.BlockMetrics) float64 { return m.OutputPeak })))
	fmt.Fprintf(tw, "Mean output RMS:\t%s\n", formatDB(r.meanDB(func(m compressor.BlockMetrics) float64 { return m.OutputRMS })))
	fmt.Fprintf(tw, "Mean gain reduction:\t%.2f dB\n", r.meanGainReduction())

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("summary flush: %w", err)
	}

	return nil
}

// meanDB averages one linear block statistic in the dB domain, skipping
// non-positive blocks entirely. Returns ok=false when no block qualifies.
func (r *Recorder) meanDB(pick func(compressor.BlockMetrics) float64) (mean float64, ok bool) {
	var (
		sum   float64
		count int
	)

	for _, m := range r.blocks {
		v := pick(m)
		if v <= 0 {
			continue
		}

		sum += level.LinearToDB(v)
		count++
	}

	if count == 0 {
		return 0, false
	}

	return sum / float64(count), true
}

// meanGainReduction averages the per-block average reduction over all blocks.
func (r *Recorder) meanGainReduction() float64 {
	if len(r.blocks) == 0 {
		return 0
	}

	var sum float64
	for _, m := range r.blocks {
		sum += m.AvgGainReductionDB
	}

	return sum / float64(len(r.blocks))
}

func formatDB(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}

	return fmt.Sprintf("%.2f dB", v)
}
