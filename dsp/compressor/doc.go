// Package compressor implements the offline dynamics engine: per-sample
// gain-reduction computation driven by a smoothed level estimate, with
// threshold/ratio/knee control, stereo linking, lookahead buffering, makeup
// gain, dry/wet mixing and per-block metering.
//
// The engine is strictly sequential: the level follower is a first-order
// recursive smoother, so blocks must be processed in order and state carries
// over between blocks. There is exactly one writer and no locking.
//
// The Driver splits a fully buffered multichannel signal into fixed-size
// blocks, feeds them through an Engine and forwards metrics to a sink such
// as metering.Recorder.
package compressor
