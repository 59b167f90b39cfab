package compressor_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-compress/dsp/compressor"
)

// ExampleEngine demonstrates basic engine usage with default settings.
func ExampleEngine() {
	engine, err := compressor.NewEngine(48000, 1, compressor.DefaultConfig())
	if err != nil {
		panic(err)
	}

	buf := make([]float64, 256)
	for i := range buf {
		buf[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/48000)
	}

	if _, err := engine.ProcessBlock([][]float64{buf}); err != nil {
		panic(err)
	}

	fmt.Printf("Processed %d samples\n", len(engine.Trace()))
	// Output:
	// Processed 256 samples
}

// ExampleEngine_configuration demonstrates a custom parameter set.
func ExampleEngine_configuration() {
	cfg := compressor.DefaultConfig()
	cfg.ThresholdDB = -10 // compress above -10 dBFS
	cfg.Ratio = 8
	cfg.KneeDB = 3
	cfg.AttackMs = 5
	cfg.ReleaseMs = 50

	engine, _ := compressor.NewEngine(48000, 2, cfg)

	fmt.Printf("Threshold: %.1f dB\n", engine.Config().ThresholdDB)
	fmt.Printf("Ratio: %.1f:1\n", engine.Config().Ratio)
	fmt.Printf("Knee: %.1f dB\n", engine.Config().KneeDB)
	// Output:
	// Threshold: -10.0 dB
	// Ratio: 8.0:1
	// Knee: 3.0 dB
}
