// Package audiofile reads and writes PCM WAV files as deinterleaved
// float64 channel slices.
package audiofile

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Clip holds decoded audio as per-channel sample slices in [-1, 1].
type Clip struct {
	SampleRate int
	BitDepth   int
	Samples    [][]float64
}

// Channels returns the number of channels.
func (c *Clip) Channels() int {
	return len(c.Samples)
}

// Frames returns the number of frames per channel.
func (c *Clip) Frames() int {
	if len(c.Samples) == 0 {
		return 0
	}

	return len(c.Samples[0])
}

// Read decodes a PCM WAV file into a Clip.
func Read(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("read %s: not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("decode %s: no channels", path)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("decode %s: unsupported bit depth %d", path, bitDepth)
	}

	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	frames := len(buf.Data) / channels

	clip := &Clip{
		SampleRate: buf.Format.SampleRate,
		BitDepth:   bitDepth,
		Samples:    make([][]float64, channels),
	}

	for ch := range clip.Samples {
		clip.Samples[ch] = make([]float64, frames)
	}

	for i := range frames {
		for ch := range channels {
			clip.Samples[ch][i] = float64(buf.Data[i*channels+ch]) * scale
		}
	}

	return clip, nil
}

// Write encodes a Clip as a PCM WAV file. Samples outside [-1, 1] are
// clamped before quantization.
func Write(path string, clip *Clip) error {
	if clip.Channels() == 0 {
		return fmt.Errorf("write %s: clip has no channels", path)
	}

	if clip.BitDepth <= 0 || clip.BitDepth > 32 {
		return fmt.Errorf("write %s: unsupported bit depth %d", path, clip.BitDepth)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	channels := clip.Channels()
	frames := clip.Frames()

	// Quantize by the same full-scale factor Read normalizes with so a
	// round trip is exact to the declared bit depth; only the positive rail
	// is one code short.
	full := float64(int64(1) << (clip.BitDepth - 1))
	maxCode := int(full) - 1

	data := make([]int, frames*channels)

	for i := range frames {
		for ch := range channels {
			s := clip.Samples[ch][i]
			s = math.Max(-1, math.Min(1, s))

			code := int(math.Round(s * full))
			if code > maxCode {
				code = maxCode
			}

			data[i*channels+ch] = code
		}
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  clip.SampleRate,
		},
		Data:           data,
		SourceBitDepth: clip.BitDepth,
	}

	enc := wav.NewEncoder(f, clip.SampleRate, clip.BitDepth, channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", path, err)
	}

	return nil
}
