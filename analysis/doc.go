// Package analysis turns a mono waveform into per-frame features: pitch and
// its confidence, a pitch-adaptive spectral envelope, and band
// aperiodicity.
//
// Frames are spaced by the hop and analysed independently, so an
// [Extractor] spreads contiguous frame ranges over a bounded set of
// goroutines. Each goroutine owns its FFT plan and scratch buffers.
//
// Pitch is estimated from the normalized autocorrelation computed through
// the power spectrum and divided by the analysis window's own
// autocorrelation. Among the peaks within a tolerance of the strongest one
// the shortest lag wins, which guards against octave-down errors.
package analysis
