// Command compress applies dynamic range compression to a WAV file.
//
// Usage:
//
//	compress [flags] input.wav output.wav
//
// The whole file is buffered, processed offline in fixed-size blocks and
// written back out at the input's bit depth. Per-sample gain reduction can
// be exported as CSV for inspection.
//
// Examples:
//
//	compress -threshold -18 -ratio 4 in.wav out.wav
//	compress -ratio 100 -attack 1 -release 50 -lookahead 5 in.wav out.wav
//	compress -detector rms -knee 6 -makeup 3 -trace gr.csv in.wav out.wav
//	compress -analyze -quiet in.wav out.wav
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-compress/audiofile"
	"github.com/cwbudde/algo-compress/dsp/compressor"
	"github.com/cwbudde/algo-compress/dsp/core"
	"github.com/cwbudde/algo-compress/dsp/envelope"
	"github.com/cwbudde/algo-compress/measure/metering"
	"github.com/cwbudde/algo-compress/measure/spectral"
)

type options struct {
	cfg       compressor.Config
	blockSize int
	tracePath string
	analyze   bool
	quiet     bool
	input     string
	output    string
}

func main() {
	threshold := flag.Float64("threshold", -20, "threshold in dBFS")
	ratio := flag.Float64("ratio", 4, "compression ratio (100 or more acts as a limiter)")
	attack := flag.Float64("attack", 10, "attack time in milliseconds")
	release := flag.Float64("release", 100, "release time in milliseconds")
	knee := flag.Float64("knee", 0, "soft knee width in dB (0 for hard knee)")
	makeup := flag.Float64("makeup", 0, "makeup gain in dB")
	link := flag.String("link", "max", "stereo link mode (independent, average, max, rms, midside)")
	detector := flag.String("detector", "peak", "envelope detector mode (peak, rms, truerms, adaptive)")
	curve := flag.String("release-curve", "linear", "release curve (linear, exponential, adaptive)")
	lookahead := flag.Float64("lookahead", 0, "lookahead buffer in milliseconds")
	mix := flag.Float64("mix", 0, "dry/wet mix, 0 fully compressed to 1 fully dry")
	bypass := flag.Bool("bypass", false, "pass audio through unchanged but keep metering")
	block := flag.Int("block", 4096, "processing block size in samples")
	trace := flag.String("trace", "", "write per-sample gain reduction CSV to this path")
	analyze := flag.Bool("analyze", false, "print per-channel signal statistics before and after")
	quiet := flag.Bool("quiet", false, "suppress the processing summary")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: compress [flags] input.wav output.wav\n\n")
		fmt.Fprintf(os.Stderr, "Applies dynamic range compression to a WAV file.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  compress -threshold -18 -ratio 4 in.wav out.wav\n")
		fmt.Fprintf(os.Stderr, "  compress -detector rms -knee 6 -trace gr.csv in.wav out.wav\n")
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	opts := options{
		blockSize: *block,
		tracePath: *trace,
		analyze:   *analyze,
		quiet:     *quiet,
		input:     flag.Arg(0),
		output:    flag.Arg(1),
	}

	opts.cfg = compressor.Config{
		ThresholdDB:  *threshold,
		Ratio:        *ratio,
		AttackMs:     *attack,
		ReleaseMs:    *release,
		KneeDB:       *knee,
		MakeupGainDB: *makeup,
		LookaheadMs:  *lookahead,
		DryWetMix:    *mix,
		Bypass:       *bypass,
	}

	var err error
	if opts.cfg.StereoLink, err = compressor.ParseLinkMode(*link); err != nil {
		fatal(err)
	}

	if opts.cfg.EnvelopeMode, err = envelope.ParseMode(*detector); err != nil {
		fatal(err)
	}

	if opts.cfg.ReleaseCurve, err = envelope.ParseCurve(*curve); err != nil {
		fatal(err)
	}

	if err := run(opts); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func run(opts options) error {
	if err := opts.cfg.Validate(); err != nil {
		return err
	}

	if opts.blockSize <= 0 {
		return fmt.Errorf("block size must be positive, got %d", opts.blockSize)
	}

	clip, err := audiofile.Read(opts.input)
	if err != nil {
		return err
	}

	if opts.analyze {
		printAnalysis("input", clip)
	}

	engine, err := compressor.NewEngine(float64(clip.SampleRate), clip.Channels(), opts.cfg)
	if err != nil {
		return err
	}

	recorder := metering.NewRecorder()
	driver := compressor.NewDriver(engine, recorder, core.WithBlockSize(opts.blockSize))

	if err := driver.Process(clip.Samples); err != nil {
		return err
	}

	if err := audiofile.Write(opts.output, clip); err != nil {
		return err
	}

	if opts.tracePath != "" {
		if err := recorder.ExportTraceFile(opts.tracePath); err != nil {
			return err
		}
	}

	if !opts.quiet {
		if err := recorder.WriteSummary(os.Stdout); err != nil {
			return err
		}
	}

	if opts.analyze {
		printAnalysis("output", clip)
	}

	return nil
}

func printAnalysis(label string, clip *audiofile.Clip) {
	analyzer := spectral.NewAnalyzer(core.WithSampleRate(float64(clip.SampleRate)))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tpeak\tRMS\tcrest\tdominant\n", label)

	for ch, samples := range clip.Samples {
		res := analyzer.AnalyzeSignal(samples)
		fmt.Fprintf(w, "ch %d\t%.2f dB\t%.2f dB\t%.2f dB\t%.1f Hz\n",
			ch, res.PeakDB, res.RMSDB, res.CrestFactorDB, res.DominantHz)
	}

	w.Flush()
}
